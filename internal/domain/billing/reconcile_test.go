package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler(store *memStore, flags *memFlags, pub EventPublisher) *Reconciler {
	r := NewReconciler(store, flags, pub)
	r.now = func() time.Time { return fixedNow }
	return r
}

var redirectIDs = RedirectIdentifiers{SubscriptionID: "sub_1", CustomerID: "cus_1", ProductID: "prod_A"}

func TestReconcile_NotAuthenticated(t *testing.T) {
	store := newMemStore()
	res, err := newTestReconciler(store, &memFlags{}, nil).Reconcile(context.Background(), nil, redirectIDs)

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, SyncUnknown, res.State)
	assert.Zero(t, store.writes)
}

func TestReconcile_MissingIdentifiers(t *testing.T) {
	store := newMemStore()
	_, err := newTestReconciler(store, &memFlags{}, nil).Reconcile(context.Background(),
		&Session{UserID: 1, Email: "a@x.com"}, RedirectIdentifiers{SubscriptionID: "sub_1"})

	assert.ErrorIs(t, err, ErrMissingIdentifiers)
	assert.Zero(t, store.writes)
}

func TestReconcile_AlreadySynced(t *testing.T) {
	store := newMemStore()
	store.customers[1] = &Customer{ID: 10, UserID: 1}
	store.subscriptions["sub_0"] = &Subscription{ID: 20, CustomerID: 10, ProviderSubscriptionID: "sub_0", Status: StatusActive}

	res, err := newTestReconciler(store, &memFlags{}, nil).Reconcile(context.Background(), &Session{UserID: 1, Email: "a@x.com"}, redirectIDs)
	require.NoError(t, err)

	assert.Equal(t, SyncAlreadySynced, res.State)
	assert.Zero(t, store.writes)
	require.NotNil(t, res.Subscription)
	assert.Equal(t, "sub_0", res.Subscription.ProviderSubscriptionID)
}

func TestReconcile_Synced(t *testing.T) {
	store := newMemStore()
	pub := &memPublisher{}

	res, err := newTestReconciler(store, &memFlags{}, pub).Reconcile(context.Background(), &Session{UserID: 1, Email: "alice@x.com"}, redirectIDs)
	require.NoError(t, err)

	assert.Equal(t, SyncSynced, res.State)
	assert.NotZero(t, res.CustomerKey)
	assert.NotZero(t, res.SubscriptionKey)

	cus := store.customers[1]
	require.NotNil(t, cus)
	assert.Equal(t, "cus_1", cus.ProviderCustomerID)
	assert.Equal(t, "alice", cus.Name)

	sub := store.subscriptions["sub_1"]
	require.NotNil(t, sub)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, SourceRedirect, sub.Source)
	assert.Equal(t, "prod_A", sub.ProductID)
	assert.Equal(t, fixedNow, *sub.CurrentPeriodStart)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour), *sub.CurrentPeriodEnd)

	require.Len(t, pub.events, 1)
	assert.Equal(t, EventSubscriptionSynced, pub.events[0].key)
}

func TestReconcile_TwiceIsIdempotent(t *testing.T) {
	store := newMemStore()
	r := newTestReconciler(store, &memFlags{}, nil)
	sess := &Session{UserID: 1, Email: "a@x.com"}

	first, err := r.Reconcile(context.Background(), sess, redirectIDs)
	require.NoError(t, err)
	assert.Equal(t, SyncSynced, first.State)
	writes := store.writes

	second, err := r.Reconcile(context.Background(), sess, redirectIDs)
	require.NoError(t, err)
	assert.Equal(t, SyncAlreadySynced, second.State)
	assert.Equal(t, writes, store.writes)
	assert.Len(t, store.customers, 1)
	assert.Len(t, store.subscriptions, 1)
}

func TestReconcile_ConcurrentConvergesToOneRow(t *testing.T) {
	store := newMemStore()
	r := newTestReconciler(store, &memFlags{}, nil)
	sess := &Session{UserID: 1, Email: "a@x.com"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Reconcile(context.Background(), sess, redirectIDs)
		}()
	}
	wg.Wait()

	assert.Len(t, store.customers, 1)
	assert.Len(t, store.subscriptions, 1)
}

func TestReconcile_StorageFailure(t *testing.T) {
	store := newMemStore()
	store.upsertErr = errors.New("connection reset")

	res, err := newTestReconciler(store, &memFlags{}, nil).Reconcile(context.Background(), &Session{UserID: 1, Email: "a@x.com"}, redirectIDs)

	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "upsert_customer", serr.Op)
	assert.Equal(t, SyncFailed, res.State)
	assert.Equal(t, 1, store.writes)
}

func TestAutoReconcile_RunsOnce(t *testing.T) {
	store := newMemStore()
	flags := &memFlags{}
	r := newTestReconciler(store, flags, nil)
	sess := &Session{UserID: 1, Email: "a@x.com"}

	first, err := r.AutoReconcile(context.Background(), sess, redirectIDs)
	require.NoError(t, err)
	assert.Equal(t, SyncSynced, first.State)
	assert.True(t, flags.seen["sub_1"])

	second, err := r.AutoReconcile(context.Background(), sess, redirectIDs)
	require.NoError(t, err)
	assert.Equal(t, SyncAlreadySynced, second.State)
}

func TestAutoReconcile_SkippedAfterFailedAttempt(t *testing.T) {
	store := newMemStore()
	store.upsertErr = errors.New("deadlock")
	flags := &memFlags{}
	r := newTestReconciler(store, flags, nil)
	sess := &Session{UserID: 1, Email: "a@x.com"}

	first, err := r.AutoReconcile(context.Background(), sess, redirectIDs)
	require.Error(t, err)
	assert.Equal(t, SyncFailed, first.State)

	store.upsertErr = nil
	second, err := r.AutoReconcile(context.Background(), sess, redirectIDs)
	require.NoError(t, err)
	assert.Equal(t, SyncSkipped, second.State)
	assert.Equal(t, 1, store.writes)

	manual, err := r.Reconcile(context.Background(), sess, redirectIDs)
	require.NoError(t, err)
	assert.Equal(t, SyncSynced, manual.State)
}

func TestAutoReconcile_FlagFailure(t *testing.T) {
	store := newMemStore()
	res, err := newTestReconciler(store, &memFlags{err: errors.New("redis down")}, nil).
		AutoReconcile(context.Background(), &Session{UserID: 1}, redirectIDs)

	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, SyncFailed, res.State)
	assert.Zero(t, store.writes)
}

func TestAutoReconcile_NotAuthenticatedLeavesFlagUnset(t *testing.T) {
	flags := &memFlags{}
	_, err := newTestReconciler(newMemStore(), flags, nil).AutoReconcile(context.Background(), &Session{}, redirectIDs)

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, flags.seen["sub_1"])
}
