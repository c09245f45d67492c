package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/segyhp/lending-engine/pkg/prom"
	"github.com/segyhp/lending-engine/pkg/response"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Applications *LoanApplicationHandler
	Repayments   *RepaymentHandler
	Products     *ProductHandler
	Health       *HealthHandler
}

// NewRouter wires the API routes, health probes and /metrics.
func NewRouter(h Handlers, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer, response.LoggingMiddleware, prom.Middleware)

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", prom.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loan-applications", h.Applications.Create).Methods(http.MethodPost)
	api.HandleFunc("/loan-applications", h.Applications.List).Methods(http.MethodGet)
	api.HandleFunc("/loan-applications/{id}", h.Applications.Get).Methods(http.MethodGet)
	api.HandleFunc("/loan-applications/{id}/status", h.Applications.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/loan-applications/{id}/send-to-decision", h.Applications.SendToDecision).Methods(http.MethodPost)
	api.HandleFunc("/loan-applications/{id}/finalize", h.Applications.Finalize).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}/loan-applications", h.Applications.ListByUser).Methods(http.MethodGet)

	api.HandleFunc("/loan-applications/{id}/repayment-plan", h.Repayments.GeneratePlan).Methods(http.MethodPost)
	api.HandleFunc("/loan-applications/{id}/repayment-plan", h.Repayments.GetPlan).Methods(http.MethodGet)
	api.HandleFunc("/loan-applications/{id}/repayments", h.Repayments.ListByApplication).Methods(http.MethodGet)
	api.HandleFunc("/loan-applications/{id}/payments", h.Repayments.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/repayments", h.Repayments.ListAll).Methods(http.MethodGet)
	api.HandleFunc("/repayments/overdue", h.Repayments.ListOverdue).Methods(http.MethodGet)
	api.HandleFunc("/repayments/payments", h.Repayments.RecordPayment).Methods(http.MethodPost)
	api.HandleFunc("/repayments/{entryId}/penalty", h.Repayments.ApplyPenalty).Methods(http.MethodPost)
	api.HandleFunc("/users/{userId}/repayments/pending", h.Repayments.ListPendingByUser).Methods(http.MethodGet)

	api.HandleFunc("/loan-products", h.Products.Create).Methods(http.MethodPost)
	api.HandleFunc("/loan-products", h.Products.List).Methods(http.MethodGet)
	api.HandleFunc("/loan-products/{id}", h.Products.Get).Methods(http.MethodGet)
	api.HandleFunc("/loan-products/{id}", h.Products.Deactivate).Methods(http.MethodDelete)

	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", ActorHeader},
		MaxAge:         300,
	})(router)
}
