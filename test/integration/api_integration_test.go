package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar-backend/internal/fees"
	"bazaar-backend/internal/geo"
	"bazaar-backend/internal/handler"
	"bazaar-backend/internal/model"
	"bazaar-backend/internal/notify"
	"bazaar-backend/internal/payment"
	"bazaar-backend/internal/points"
	"bazaar-backend/internal/qrcode"
	"bazaar-backend/internal/repository"
	"bazaar-backend/internal/router"
	"bazaar-backend/internal/service"
	"bazaar-backend/internal/wallet"
)

const testAPIKey = "test-api-key"

func setupTestServer(t *testing.T, testDB *TestDB) http.Handler {
	t.Helper()

	logger := zerolog.Nop()

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	businessRepo := repository.NewBusinessRepository(testDB.Pool, logger)
	driverRepo := repository.NewDriverRepository(testDB.Pool, logger)
	subscriptionRepo := repository.NewSubscriptionRepository(testDB.Pool, logger)
	walletRepo := repository.NewWalletRepository(testDB.Pool, logger)
	pointsRepo := repository.NewPointsRepository(testDB.Pool, logger)
	qrRepo := repository.NewQRRepository(testDB.Pool, logger)

	calculator := fees.NewCalculator(fees.DefaultConfig())
	walletLedger := wallet.NewLedger(walletRepo, logger)
	pointsLedger := points.NewLedger(pointsRepo, logger)
	issuer := qrcode.NewIssuer(qrRepo, logger)
	gateway := payment.NewLogGateway(logger)

	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:        orderRepo,
		Products:      productRepo,
		Businesses:    businessRepo,
		Drivers:       driverRepo,
		Subscriptions: subscriptionRepo,
		Calculator:    calculator,
		Estimator:     geo.HaversineEstimator{},
		QR:            issuer,
		Wallet:        walletLedger,
		Points:        pointsLedger,
		Gateway:       gateway,
		Notifier:      notify.Nop{},
	}, logger)
	paymentService := service.NewPaymentService(orderRepo, walletLedger, gateway, calculator, logger)

	productHandler := handler.NewProductHandler(productService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)
	walletHandler := handler.NewWalletHandler(walletLedger, paymentService, logger)
	pointsHandler := handler.NewPointsHandler(pointsLedger, logger)
	qrHandler := handler.NewQRHandler(issuer, logger)

	return router.New(productHandler, orderHandler, walletHandler, pointsHandler, qrHandler, testAPIKey, logger)
}

func TestProductAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	t.Run("GET /api/products returns the catalogue", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var products []model.Product
		err := json.NewDecoder(w.Body).Decode(&products)
		require.NoError(t, err)
		assert.Len(t, products, 3)
	})

	t.Run("GET /api/products/{id} returns a single product", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		req := httptest.NewRequest(http.MethodGet, "/api/products/P001", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var product model.Product
		err := json.NewDecoder(w.Body).Decode(&product)
		require.NoError(t, err)
		assert.Equal(t, "P001", product.ID)
		assert.Equal(t, int64(5000), product.Price)
	})

	t.Run("GET /api/products/{id} returns 404 for unknown product", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products/MISSING", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("requests without API key are rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOrderAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	CleanupDB(t, testDB.Pool)
	SeedCatalog(t, testDB.Pool)
	userID := uuid.New()

	createBody := map[string]interface{}{
		"items": []map[string]interface{}{
			{"productId": "P001", "quantity": 2},
		},
		"orderType":     "delivery",
		"paymentMethod": "cash",
		"deliveryAddress": map[string]interface{}{
			"line":      "Calle 93 #11-27",
			"city":      "Bogota",
			"latitude":  4.6610,
			"longitude": -74.0550,
		},
	}

	var orderID string

	t.Run("POST /api/orders creates a priced order", func(t *testing.T) {
		body, err := json.Marshal(createBody)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Actor-ID", userID.String())
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var detail model.OrderDetail
		err = json.NewDecoder(w.Body).Decode(&detail)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, detail.Order.Status)
		assert.Equal(t, int64(12000), detail.Order.FinalAmount)
		require.Len(t, detail.Businesses, 1)

		orderID = detail.Order.ID.String()
	})

	t.Run("POST /api/orders without actor is rejected", func(t *testing.T) {
		body, err := json.Marshal(createBody)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
		req.Header.Set("X-API-Key", testAPIKey)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GET /api/orders/{id} returns the order to its owner", func(t *testing.T) {
		require.NotEmpty(t, orderID)

		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID, nil)
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Actor-ID", userID.String())
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var detail model.OrderDetail
		err := json.NewDecoder(w.Body).Decode(&detail)
		require.NoError(t, err)
		assert.Equal(t, orderID, detail.Order.ID.String())
	})

	t.Run("GET /api/orders/{id} hides the order from others", func(t *testing.T) {
		require.NotEmpty(t, orderID)

		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID, nil)
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Actor-ID", uuid.NewString())
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("POST /api/orders/{id}/cancel cancels a pending order", func(t *testing.T) {
		require.NotEmpty(t, orderID)

		req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID+"/cancel", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Actor-ID", userID.String())
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var order model.Order
		err := json.NewDecoder(w.Body).Decode(&order)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, order.Status)
	})

	t.Run("cancelling twice returns a conflict", func(t *testing.T) {
		require.NotEmpty(t, orderID)

		req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID+"/cancel", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Actor-ID", userID.String())
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestWalletAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	CleanupDB(t, testDB.Pool)
	userID := uuid.New()
	SeedWallet(t, testDB.Pool, userID, 7500)

	t.Run("GET /api/wallet returns the balance", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Actor-ID", userID.String())
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		err := json.NewDecoder(w.Body).Decode(&resp)
		require.NoError(t, err)
		assert.Equal(t, float64(7500), resp["balance"])
		assert.Equal(t, "COP", resp["currency"])
	})

	t.Run("POST /api/wallet/topup credits the wallet", func(t *testing.T) {
		body := bytes.NewBufferString(`{"amount": 10000}`)
		req := httptest.NewRequest(http.MethodPost, "/api/wallet/topup", body)
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Actor-ID", userID.String())
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var txn model.Transaction
		err := json.NewDecoder(w.Body).Decode(&txn)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), txn.Amount)

		// Balance reflects the credit
		req = httptest.NewRequest(http.MethodGet, "/api/wallet", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-Actor-ID", userID.String())
		w = httptest.NewRecorder()

		server.ServeHTTP(w, req)

		var resp map[string]interface{}
		err = json.NewDecoder(w.Body).Decode(&resp)
		require.NoError(t, err)
		assert.Equal(t, float64(17500), resp["balance"])
	})
}
