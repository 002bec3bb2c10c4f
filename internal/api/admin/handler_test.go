package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storyforge-app/database"
	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/domain/users"
	"storyforge-app/internal/store"
)

type healthFunc func(ctx context.Context) billing.ProviderHealth

func (f healthFunc) Ping(ctx context.Context) billing.ProviderHealth { return f(ctx) }

func setup(t *testing.T, health healthFunc) (*gin.Engine, *gorm.DB, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	st := store.New(db)
	h := NewHandler(db, st, health, "creem_...")
	r := gin.New()
	r.GET("/admin/dashboard", h.AdminDashboard)
	r.GET("/admin/users", h.ListAllUsers)
	r.GET("/admin/customers", h.ListCustomers)
	r.GET("/admin/checkouts", h.ListCheckouts)
	r.GET("/admin/payment-provider/health", h.ProviderHealth)
	return r, db, st
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestDashboardAndLists(t *testing.T) {
	r, db, st := setup(t, nil)
	ctx := context.Background()

	require.NoError(t, db.Create(&users.User{Email: "a@example.com", AuthProvider: users.ProviderLocal, Role: users.RoleUser}).Error)
	key, err := st.UpsertCustomer(ctx, &billing.Customer{UserID: 1, Email: "a@example.com"})
	require.NoError(t, err)
	_, err = st.GrantCredits(ctx, key, 7)
	require.NoError(t, err)
	_, err = st.UpsertSubscription(ctx, &billing.Subscription{ProviderSubscriptionID: "sub_1", Status: billing.StatusActive, Source: billing.SourceRedirect}, key)
	require.NoError(t, err)
	require.NoError(t, st.SaveCheckoutAttempt(ctx, &billing.CheckoutAttempt{RequestID: "1-1", UserID: 1, Status: billing.AttemptFailed, Tries: 1}))
	require.NoError(t, st.SaveCheckoutAttempt(ctx, &billing.CheckoutAttempt{RequestID: "1-2", UserID: 1, Status: billing.AttemptCreated, Tries: 1}))

	w := get(r, "/admin/dashboard")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats AdminStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, AdminStats{
		TotalUsers: 1, TotalCustomers: 1, ActiveSubscriptions: 1,
		PendingSyncs: 1, OutstandingCredits: 7, FailedCheckouts30d: 1,
	}, stats)

	w = get(r, "/admin/users")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@example.com")

	w = get(r, "/admin/customers?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var customers []billing.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &customers))
	require.Len(t, customers, 1)
	assert.Len(t, customers[0].Subscriptions, 1)

	w = get(r, "/admin/checkouts?status=failed")
	require.Equal(t, http.StatusOK, w.Code)
	var attempts []billing.CheckoutAttempt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &attempts))
	require.Len(t, attempts, 1)
	assert.Equal(t, "1-1", attempts[0].RequestID)

	assert.Equal(t, http.StatusBadRequest, get(r, "/admin/checkouts?status=weird").Code)
}

func TestProviderHealth(t *testing.T) {
	reachable := true
	r, _, _ := setup(t, func(ctx context.Context) billing.ProviderHealth {
		return billing.ProviderHealth{Provider: "creem", URL: "https://test-api.creem.io", Status: 200, Reachable: reachable}
	})

	w := get(r, "/admin/payment-provider/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"api_key":"creem_..."`)

	reachable = false
	assert.Equal(t, http.StatusBadGateway, get(r, "/admin/payment-provider/health").Code)
}
