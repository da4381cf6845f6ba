package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	aidrequestservice "almoner/contexts/mutual-aid/aid-request-service"
	validationengine "almoner/contexts/mutual-aid/validation-engine"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "almoner/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	validations validationengine.Module
	requests    aidrequestservice.Module
}

func New(
	validations validationengine.Module,
	requests aidrequestservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		validations: validations,
		requests:    requests,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /api/mutual-aid/validations", s.handlePendingValidations)
	s.mux.HandleFunc("POST /api/mutual-aid/validations", s.handleSubmitValidation)
	s.mux.HandleFunc("GET /api/mutual-aid/validations/history", s.handleValidationHistory)

	s.mux.HandleFunc("POST /api/mutual-aid/requests", s.handleCreateRequest)
	s.mux.HandleFunc("GET /api/mutual-aid/requests/my", s.handleMyRequests)
	s.mux.HandleFunc("GET /api/mutual-aid/requests/{request_id}", s.handleGetRequest)
	s.mux.HandleFunc("DELETE /api/mutual-aid/requests/{request_id}", s.handleCancelRequest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func resolveClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
