package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"wellnest/internal/models"
	"wellnest/internal/repositories"
	"wellnest/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(userID, intentID string, createdAt time.Time) *models.Order {
	return &models.Order{
		UserID:          userID,
		PaymentIntentID: intentID,
		Items: []models.OrderItem{
			{ProductID: "p1", Name: "Vitamin D3", Price: decimal.RequireFromString("9.99"), Quantity: 2},
		},
		Total:     decimal.RequireFromString("19.98"),
		Currency:  "usd",
		Address:   testAddress(),
		CreatedAt: createdAt,
	}
}

func newOrderService(t *testing.T) (*services.OrderService, *recordingPublisher) {
	t.Helper()
	events := &recordingPublisher{}
	repo := repositories.NewGORMOrderRepository(newTestDB(t))
	return services.NewOrderService(repo, services.NewRoleGate(), events), events
}

func TestOrderService_RecordIsIdempotentOnIntent(t *testing.T) {
	svc, events := newOrderService(t)
	ctx := context.Background()

	first, created, err := svc.Record(ctx, newOrder("u1", "pi_123", time.Time{}))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.OrderStatusConfirmed, first.Status)

	second, created, err := svc.Record(ctx, newOrder("u1", "pi_123", time.Time{}))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, events.count(services.EventOrderCreated))
}

func TestOrderService_ConcurrentRecordCreatesOneOrder(t *testing.T) {
	svc, events := newOrderService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, _, err := svc.Record(ctx, newOrder("u1", "pi_race", time.Time{}))
			if assert.NoError(t, err) {
				ids <- order.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
	assert.Equal(t, 1, events.count(services.EventOrderCreated))
}

func TestOrderService_RecordValidation(t *testing.T) {
	svc, _ := newOrderService(t)

	_, _, err := svc.Record(context.Background(), newOrder("u1", "", time.Time{}))
	assert.Equal(t, services.KindValidation, services.KindOf(err))

	empty := newOrder("u1", "pi_1", time.Time{})
	empty.Items = nil
	_, _, err = svc.Record(context.Background(), empty)
	assert.Equal(t, services.KindValidation, services.KindOf(err))
}

func TestOrderService_ListAndGet(t *testing.T) {
	svc, _ := newOrderService(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	var mine []*models.Order
	for i := 0; i < 3; i++ {
		o, _, err := svc.Record(ctx, newOrder("u1", fmt.Sprintf("pi_%d", i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		mine = append(mine, o)
	}
	_, _, err := svc.Record(ctx, newOrder("u2", "pi_other", base))
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, buyer("u1"))
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, mine[2].ID, list[0].ID)
	assert.Equal(t, mine[0].ID, list[2].ID)
	assert.Len(t, list[0].Items, 1)

	got, err := svc.Get(ctx, buyer("u1"), mine[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "19.98", got.Total.StringFixed(2))

	_, err = svc.Get(ctx, buyer("u2"), mine[1].ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.Get(ctx, admin("a1"), mine[1].ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, buyer("u1"), "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)

	all, err := svc.ListAll(ctx, admin("a1"))
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = svc.ListAll(ctx, pharmacist("ph1"))
	assert.ErrorIs(t, err, services.ErrForbidden)
}
