package database_test

import (
	"fmt"
	"testing"

	"wellnest/internal/database"
	"wellnest/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMigratesSchema(t *testing.T) {
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)

	for _, model := range []interface{}{
		&models.User{}, &models.Product{}, &models.Cart{}, &models.CartItem{},
		&models.Checkout{}, &models.Order{}, &models.OrderItem{}, &models.Prescription{},
	} {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Order{}, "PaymentIntentID"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open("oracle", "whatever")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
