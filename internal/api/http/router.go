package http

import (
	"net/http"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/security"
	"driveshare-settlement/internal/service"

	"github.com/gorilla/mux"
)

// Services groups what the HTTP API calls into.
type Services struct {
	Mileage       service.MileageService
	Charges       service.ChargeService
	Refunds       service.RefundService
	Payouts       service.PayoutService
	Notifications service.NotificationService
}

// NewRouter builds the settlement API with authentication applied per route.
func NewRouter(svcs Services, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(RecoveryMiddleware, LoggingMiddleware, NewAuthMiddleware(tm).Handler)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	RegisterChargeRoutes(router, NewChargeHandler(svcs.Charges, svcs.Mileage))
	RegisterRefundRoutes(router, NewRefundHandler(svcs.Refunds))
	RegisterPayoutRoutes(router, NewPayoutHandler(svcs.Payouts))
	RegisterNotificationRoutes(router, NewNotificationHandler(svcs.Notifications))

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route_not_found", Message: "no route for " + r.Method + " " + r.URL.Path})
	})
	return router
}

func requestActor(r *http.Request) domain.Actor {
	actor, _ := ActorFromContext(r.Context())
	return actor
}
