package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	requesterrors "almoner/contexts/mutual-aid/aid-request-service/domain/errors"
	requestports "almoner/contexts/mutual-aid/aid-request-service/ports"
	requesthttp "almoner/contexts/mutual-aid/aid-request-service/transport/http"
)

func writeRequestError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, requesthttp.ErrorResponse{Code: code, Message: message})
}

func writeRequestDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, requesterrors.ErrAuthenticationRequired):
		writeRequestError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, requesterrors.ErrNotRequestOwner):
		writeRequestError(w, http.StatusForbidden, "not_request_owner", err.Error())
	case errors.Is(err, requesterrors.ErrRequestNotFound):
		writeRequestError(w, http.StatusNotFound, "request_not_found", err.Error())
	case errors.Is(err, requesterrors.ErrOpenRequestExists):
		writeRequestError(w, http.StatusConflict, "open_request_exists", err.Error())
	case errors.Is(err, requesterrors.ErrCannotCancel):
		writeRequestError(w, http.StatusBadRequest, "cannot_cancel", err.Error())
	case errors.Is(err, requesterrors.ErrInvalidStatusTransition):
		writeRequestError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, requesterrors.ErrInvalidRequestInput):
		writeRequestError(w, http.StatusBadRequest, "invalid_request_input", err.Error())
	default:
		writeRequestError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireRequestIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeRequestError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return "", false
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeRequestError(w, http.StatusUnauthorized, "unauthorized", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requireRequestIdentity(w, r)
	if !ok {
		return
	}

	var req requesthttp.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.requests.Handler.CreateRequestHandler(r.Context(), requesterID, req)
	if err != nil {
		writeRequestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireRequestIdentity(w, r)
	if !ok {
		return
	}

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		writeRequestError(w, http.StatusBadRequest, "invalid_request_input", "request_id is required")
		return
	}

	resp, err := s.requests.Handler.GetRequestHandler(r.Context(), requestID, callerID)
	if err != nil {
		writeRequestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requireRequestIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := requestports.MyRequestsFilter{
		Status:    query.Get("status"),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}
	var badPage bool
	filter.Page, badPage = parsePositiveInt(query.Get("page"))
	if badPage {
		writeRequestError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	var badLimit bool
	filter.Limit, badLimit = parsePositiveInt(query.Get("limit"))
	if badLimit {
		writeRequestError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}

	resp, err := s.requests.Handler.MyRequestsHandler(r.Context(), requesterID, filter)
	if err != nil {
		writeRequestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requireRequestIdentity(w, r)
	if !ok {
		return
	}

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		writeRequestError(w, http.StatusBadRequest, "invalid_request_input", "request_id is required")
		return
	}

	resp, err := s.requests.Handler.CancelRequestHandler(r.Context(), requestID, requesterID)
	if err != nil {
		writeRequestDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
