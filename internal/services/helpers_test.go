package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"wellnest/internal/database"
	"wellnest/internal/models"
	"wellnest/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB returns a fresh, migrated in-memory SQLite database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)
	return db
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == routingKey {
			n++
		}
	}
	return n
}

func buyer(id string) models.Principal {
	return models.Principal{UserID: id, Email: id + "@example.com", Role: models.RoleBuyer}
}

func pharmacist(id string) models.Principal {
	return models.Principal{UserID: id, Email: id + "@example.com", Role: models.RolePharmacist}
}

func admin(id string) models.Principal {
	return models.Principal{UserID: id, Email: id + "@example.com", Role: models.RoleAdmin}
}

func addProduct(t *testing.T, repo *repositories.MockProductRepository, id, name, price string, stock int, rx bool) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.Product{
		ID:                   id,
		Name:                 name,
		Price:                decimal.RequireFromString(price),
		Stock:                stock,
		RequiresPrescription: rx,
	}))
}

func testAddress() models.Address {
	return models.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701", Country: "US"}
}
