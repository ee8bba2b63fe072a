package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handlers *Handlers) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/algorithms", handlers.ListAlgorithms).Methods(http.MethodGet)

	api.HandleFunc("/ordinations", handlers.SubmitOrdination).Methods(http.MethodPost)
	api.HandleFunc("/ordinations/{jobId}", handlers.GetOrdinationJob).Methods(http.MethodGet)
	api.HandleFunc("/ordinations/{jobId}", handlers.CancelOrdinationJob).Methods(http.MethodDelete)

	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	return router
}
