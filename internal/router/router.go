package router

import (
	"net/http"

	"github.com/rs/zerolog"

	"bazaar-backend/internal/handler"
	"bazaar-backend/internal/middleware"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	walletHandler *handler.WalletHandler,
	pointsHandler *handler.PointsHandler,
	qrHandler *handler.QRHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Catalogue
	mux.HandleFunc("GET /api/products", productHandler.GetAll)
	mux.HandleFunc("GET /api/products/{id}", productHandler.GetByID)

	// Order lifecycle
	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders/awaiting-driver", orderHandler.ListAwaitingDriver)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetByID)
	mux.HandleFunc("POST /api/orders/{id}/cancel", orderHandler.Cancel)
	mux.HandleFunc("POST /api/orders/{id}/accept", orderHandler.Accept)
	mux.HandleFunc("POST /api/orders/{id}/prepare", orderHandler.StartPreparing)
	mux.HandleFunc("POST /api/orders/{id}/ready", orderHandler.MarkReady)
	mux.HandleFunc("POST /api/orders/{id}/driver/accept", orderHandler.DriverAccept)
	mux.HandleFunc("POST /api/orders/{id}/driver/reject", orderHandler.DriverReject)
	mux.HandleFunc("POST /api/orders/{id}/deliver", orderHandler.CompleteDelivery)
	mux.HandleFunc("POST /api/orders/{id}/pay", walletHandler.PayOrder)

	// Wallet
	mux.HandleFunc("GET /api/wallet", walletHandler.Balance)
	mux.HandleFunc("GET /api/wallet/transactions", walletHandler.History)
	mux.HandleFunc("POST /api/wallet/topup", walletHandler.TopUp)

	// Loyalty points
	mux.HandleFunc("GET /api/points", pointsHandler.Balance)
	mux.HandleFunc("GET /api/points/history", pointsHandler.History)
	mux.HandleFunc("POST /api/points/redeem", pointsHandler.Redeem)

	// QR tokens
	mux.HandleFunc("GET /api/qr/{token}", qrHandler.Validate)
	mux.HandleFunc("POST /api/qr/{token}/scan", qrHandler.Scan)

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth
	var h http.Handler = mux
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
