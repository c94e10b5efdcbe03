package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellnest/internal/config"
)

const (
	adminEmail    = "admin@wellnest.test"
	adminPassword = "admin-secret"
)

func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// newTestApp builds the full application on an in-memory database with the sandbox gateway.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("DATABASE_DRIVER", "sqlite")
	v.Set("DATABASE_DSN", "file:"+uuid.New().String()+"?mode=memory&cache=shared")
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("PAYMENT_PROVIDER", config.ProviderSandbox)
	v.Set("STORAGE_DIR", t.TempDir())
	v.Set("ADMIN_EMAIL", adminEmail)
	v.Set("ADMIN_PASSWORD", adminPassword)
	v.Set("SEED_CATALOG", true)

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	app, cleanup, err := newApp(cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode(t *testing.T, raw []byte, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out), string(raw))
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	status, raw := call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, raw, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func registerBuyer(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, raw := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Jane Doe",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return login(t, app, email, "password123")
}

type catalogEntry struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Price                string `json:"price"`
	RequiresPrescription bool   `json:"requires_prescription"`
}

func catalog(t *testing.T, app *fiber.App) map[string]catalogEntry {
	t.Helper()
	status, raw := call(t, app, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	var products []catalogEntry
	decode(t, raw, &products)
	byName := make(map[string]catalogEntry, len(products))
	for _, p := range products {
		byName[p.Name] = p
	}
	return byName
}

func address() map[string]string {
	return map[string]string{
		"street":  "12 Main St",
		"city":    "Springfield",
		"state":   "IL",
		"zip":     "62701",
		"country": "US",
	}
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	status, raw := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	var resp map[string]interface{}
	decode(t, raw, &resp)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, false, resp["events"])
}

func TestCheckoutEndToEnd(t *testing.T) {
	app := newTestApp(t)
	token := registerBuyer(t, app, "jane@example.com")
	products := catalog(t, app)
	vitamin := products["Vitamin D3 1000 IU"]
	require.NotEmpty(t, vitamin.ID)

	// Fill the cart; prices come from the catalog, never from the client.
	status, raw := call(t, app, http.MethodPut, "/api/v1/cart", token, fiber.Map{
		"items": []fiber.Map{{"product_id": vitamin.ID, "quantity": 2, "price": "0.01"}},
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	var cart struct {
		Items []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
		Total string `json:"total"`
	}
	decode(t, raw, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "17.98", cart.Total)

	// Start the saga.
	status, raw = call(t, app, http.MethodPost, "/api/v1/checkout", token, fiber.Map{"address": address()})
	require.Equal(t, http.StatusOK, status, string(raw))
	var started struct {
		PaymentIntentID string `json:"payment_intent_id"`
		ClientSecret    string `json:"client_secret"`
		Amount          string `json:"amount"`
		Status          string `json:"status"`
	}
	decode(t, raw, &started)
	require.NotEmpty(t, started.PaymentIntentID)
	assert.NotEmpty(t, started.ClientSecret)
	assert.Equal(t, "17.98", started.Amount)
	assert.Equal(t, "pending", started.Status)

	// Starting again with the same cart hands back the same intent.
	status, raw = call(t, app, http.MethodPost, "/api/v1/checkout", token, fiber.Map{"address": address()})
	require.Equal(t, http.StatusOK, status, string(raw))
	var again struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	decode(t, raw, &again)
	assert.Equal(t, started.PaymentIntentID, again.PaymentIntentID)

	// Confirming before the buyer paid is retryable.
	status, _ = call(t, app, http.MethodPost, "/api/v1/checkout/confirm", token, fiber.Map{"payment_intent_id": started.PaymentIntentID})
	assert.Equal(t, http.StatusServiceUnavailable, status)

	// The buyer pays at the provider.
	status, raw = call(t, app, http.MethodPost, "/api/v1/sandbox/intents/"+started.PaymentIntentID, "", fiber.Map{"status": "succeeded"})
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = call(t, app, http.MethodPost, "/api/v1/checkout/confirm", token, fiber.Map{
		"payment_intent_id": started.PaymentIntentID,
		"status":            "succeeded",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var order struct {
		ID              string `json:"id"`
		Total           string `json:"total"`
		Status          string `json:"status"`
		PaymentIntentID string `json:"payment_intent_id"`
	}
	decode(t, raw, &order)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "17.98", order.Total)
	assert.Equal(t, started.PaymentIntentID, order.PaymentIntentID)

	// A retried confirmation returns the same order without creating one.
	status, raw = call(t, app, http.MethodPost, "/api/v1/checkout/confirm", token, fiber.Map{"payment_intent_id": started.PaymentIntentID})
	require.Equal(t, http.StatusOK, status, string(raw))
	var replay struct {
		ID string `json:"id"`
	}
	decode(t, raw, &replay)
	assert.Equal(t, order.ID, replay.ID)

	status, raw = call(t, app, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, status)
	var orders []struct {
		ID string `json:"id"`
	}
	decode(t, raw, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	status, raw = call(t, app, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, status)
	decode(t, raw, &cart)
	assert.Empty(t, cart.Items)

	// Paid checkouts cannot be canceled.
	status, _ = call(t, app, http.MethodPost, "/api/v1/checkout/"+started.PaymentIntentID+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Only the admin sees every order.
	status, _ = call(t, app, http.MethodGet, "/api/v1/admin/orders", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	adminToken := login(t, app, adminEmail, adminPassword)
	status, raw = call(t, app, http.MethodGet, "/api/v1/admin/orders", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	decode(t, raw, &orders)
	assert.Len(t, orders, 1)
}

func TestPrescriptionReviewEndToEnd(t *testing.T) {
	app := newTestApp(t)
	token := registerBuyer(t, app, "rx@example.com")
	amoxicillin := catalog(t, app)["Amoxicillin 500mg"]
	require.True(t, amoxicillin.RequiresPrescription)

	// Upload the prescription document.
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("patientName", "Jane Doe"))
	part, err := writer.CreateFormFile("file", "rx.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 prescription"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prescriptions", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prescription struct {
		ID              string  `json:"id"`
		Status          string  `json:"status"`
		PharmacistNotes *string `json:"pharmacist_notes"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decode(t, raw, &prescription)
	assert.Equal(t, "received", prescription.Status)

	// The rx product cannot be checked out without an approved prescription.
	status, raw := call(t, app, http.MethodPut, "/api/v1/cart", token, fiber.Map{
		"items": []fiber.Map{{"product_id": amoxicillin.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	status, raw = call(t, app, http.MethodPost, "/api/v1/checkout", token, fiber.Map{
		"address":         address(),
		"prescription_id": prescription.ID,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(raw), "prescription_required")

	// Buyers cannot review.
	status, _ = call(t, app, http.MethodPatch, "/api/v1/pharmacist/prescriptions/"+prescription.ID, token, fiber.Map{"status": "under-review"})
	assert.Equal(t, http.StatusForbidden, status)

	adminToken := login(t, app, adminEmail, adminPassword)
	status, raw = call(t, app, http.MethodGet, "/api/v1/pharmacist/prescriptions?status=received", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var queue []struct {
		ID string `json:"id"`
	}
	decode(t, raw, &queue)
	require.Len(t, queue, 1)

	// Skipping review is rejected.
	status, _ = call(t, app, http.MethodPatch, "/api/v1/pharmacist/prescriptions/"+prescription.ID, adminToken, fiber.Map{"status": "approved"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, raw = call(t, app, http.MethodPatch, "/api/v1/pharmacist/prescriptions/"+prescription.ID, adminToken, fiber.Map{"status": "under-review"})
	require.Equal(t, http.StatusOK, status, string(raw))
	status, raw = call(t, app, http.MethodPatch, "/api/v1/pharmacist/prescriptions/"+prescription.ID, adminToken, fiber.Map{
		"status":           "approved",
		"pharmacist_notes": "Dosage confirmed",
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	decode(t, raw, &prescription)
	assert.Equal(t, "approved", prescription.Status)
	require.NotNil(t, prescription.PharmacistNotes)
	assert.Equal(t, "Dosage confirmed", *prescription.PharmacistNotes)

	// The owner can download the document.
	status, raw = call(t, app, http.MethodGet, "/api/v1/prescriptions/"+prescription.ID+"/file", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "%PDF-1.4 prescription", string(raw))

	// With the approval the checkout starts.
	status, raw = call(t, app, http.MethodPost, "/api/v1/checkout", token, fiber.Map{
		"address":         address(),
		"prescription_id": prescription.ID,
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), `"amount":"12.99"`)
}
