package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/domain/users"
)

type entitlementFunc func(ctx context.Context, userID uint) (billing.Entitlement, error)

func (f entitlementFunc) Entitlement(ctx context.Context, userID uint) (billing.Entitlement, error) {
	return f(ctx, userID)
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&users.User{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func getMe(h *Handler, userID uint) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		if userID != 0 {
			c.Set("user_id", userID)
		}
		c.Next()
	}, h.GetCurrentUser)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	return w
}

func TestGetCurrentUser(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.Create(&users.User{Email: "a@example.com", AuthProvider: users.ProviderLocal, Role: users.RoleUser, DisplayName: "Ann"}).Error)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := now.Add(36 * time.Hour)
	h := NewHandler(db, entitlementFunc(func(ctx context.Context, userID uint) (billing.Entitlement, error) {
		return billing.Entitlement{
			HasSubscription: true,
			Credits:         3,
			Subscription: &billing.Subscription{
				ProviderSubscriptionID: "sub_1", ProductID: "prod_A", Status: billing.StatusActive,
				CurrentPeriodEnd: &end, Source: billing.SourceRedirect,
			},
		}, nil
	}))
	h.now = func() time.Time { return now }

	w := getMe(h, 1)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, `"display_name":"Ann"`)
	assert.Contains(t, body, `"credits":3`)
	assert.Contains(t, body, `"can_generate":true`)
	assert.Contains(t, body, `"days_left":2`)
	assert.Contains(t, body, `"pending":true`)
}

func TestGetCurrentUser_Errors(t *testing.T) {
	db := newDB(t)
	none := entitlementFunc(func(ctx context.Context, userID uint) (billing.Entitlement, error) {
		return billing.Entitlement{}, nil
	})

	assert.Equal(t, http.StatusUnauthorized, getMe(NewHandler(db, none), 0).Code)
	assert.Equal(t, http.StatusNotFound, getMe(NewHandler(db, none), 42).Code)

	require.NoError(t, db.Create(&users.User{Email: "a@example.com", AuthProvider: users.ProviderLocal, Role: users.RoleUser}).Error)
	failing := entitlementFunc(func(ctx context.Context, userID uint) (billing.Entitlement, error) {
		return billing.Entitlement{}, &billing.StorageError{Op: "find_subscription", Err: errors.New("down")}
	})
	assert.Equal(t, http.StatusInternalServerError, getMe(NewHandler(db, failing), 1).Code)
}

func TestBuildSubscriptionDTO(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, BuildSubscriptionDTO(now, nil))

	past := now.Add(-time.Hour)
	dto := BuildSubscriptionDTO(now, &billing.Subscription{Status: billing.StatusActive, CurrentPeriodEnd: &past, Source: billing.SourceWebhook})
	assert.False(t, dto.Active)
	assert.Nil(t, dto.DaysLeft)
	assert.False(t, dto.Pending)
}
