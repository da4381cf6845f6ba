package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"almoner/contexts/mutual-aid/validation-engine/application/queries"
	validationerrors "almoner/contexts/mutual-aid/validation-engine/domain/errors"
	validationports "almoner/contexts/mutual-aid/validation-engine/ports"
	validationhttp "almoner/contexts/mutual-aid/validation-engine/transport/http"
)

func writeValidationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, validationhttp.ErrorResponse{Code: code, Message: message})
}

func writeValidationDomainError(w http.ResponseWriter, err error) {
	var qualification validationerrors.QualificationError
	if errors.As(err, &qualification) {
		writeJSON(w, http.StatusForbidden, validationhttp.ErrorResponse{
			Code:    "validator_not_qualified",
			Message: err.Error(),
			Details: validationhttp.QualificationDetails{
				MinReputationScore:        qualification.Report.MinReputationScore,
				CurrentReputationScore:    qualification.Report.CurrentReputationScore,
				MinValidationAccuracy:     qualification.Report.MinValidationAccuracy,
				CurrentValidationAccuracy: qualification.Report.CurrentValidationAccuracy,
				IsActiveValidator:         qualification.Report.IsActiveValidator,
				UnmetRequirements:         qualification.Report.UnmetRequirements,
			},
		})
		return
	}

	var status validationerrors.StatusError
	if errors.As(err, &status) {
		writeJSON(w, http.StatusBadRequest, validationhttp.ErrorResponse{
			Code:    "invalid_request_status",
			Message: err.Error(),
			Details: validationhttp.StatusDetails{CurrentStatus: status.CurrentStatus},
		})
		return
	}

	switch {
	case errors.Is(err, validationerrors.ErrAuthenticationRequired):
		writeValidationError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, validationerrors.ErrValidatorNotQualified):
		writeValidationError(w, http.StatusForbidden, "validator_not_qualified", err.Error())
	case errors.Is(err, validationerrors.ErrCannotValidateOwnRequest):
		writeValidationError(w, http.StatusForbidden, "own_request", err.Error())
	case errors.Is(err, validationerrors.ErrRequestNotFound):
		writeValidationError(w, http.StatusNotFound, "request_not_found", err.Error())
	case errors.Is(err, validationerrors.ErrValidatorNotFound):
		writeValidationError(w, http.StatusNotFound, "validator_not_found", err.Error())
	case errors.Is(err, validationerrors.ErrVoteNotFound):
		writeValidationError(w, http.StatusNotFound, "vote_not_found", err.Error())
	case errors.Is(err, validationerrors.ErrAlreadyValidated):
		writeValidationError(w, http.StatusConflict, "already_validated", err.Error())
	case errors.Is(err, validationerrors.ErrInvalidRequestStatus):
		writeValidationError(w, http.StatusBadRequest, "invalid_request_status", err.Error())
	case errors.Is(err, validationerrors.ErrInvalidVoteInput):
		writeValidationError(w, http.StatusBadRequest, "invalid_vote_input", err.Error())
	default:
		writeValidationError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireValidationIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeValidationError(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return "", false
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeValidationError(w, http.StatusUnauthorized, "unauthorized", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func (s *Server) handleSubmitValidation(w http.ResponseWriter, r *http.Request) {
	validatorID, ok := requireValidationIdentity(w, r)
	if !ok {
		return
	}

	var req validationhttp.SubmitValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.validations.Handler.SubmitValidationHandler(
		r.Context(),
		validatorID,
		strings.TrimSpace(req.RequestID),
		resolveClientIP(r),
		req,
	)
	if err != nil {
		writeValidationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handlePendingValidations(w http.ResponseWriter, r *http.Request) {
	validatorID, ok := requireValidationIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	pending := queries.PendingValidationsQuery{
		Category:  query.Get("category"),
		Urgency:   query.Get("urgency"),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}
	if raw := query.Get("severity_level"); raw != "" {
		severity, err := strconv.Atoi(raw)
		if err != nil {
			writeValidationError(w, http.StatusBadRequest, "invalid_severity", "severity_level must be an integer")
			return
		}
		pending.SeverityLevel = severity
	}
	var badPage bool
	pending.Page, badPage = parsePositiveInt(query.Get("page"))
	if badPage {
		writeValidationError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	var badLimit bool
	pending.Limit, badLimit = parsePositiveInt(query.Get("limit"))
	if badLimit {
		writeValidationError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}

	resp, err := s.validations.Handler.PendingValidationsHandler(r.Context(), validatorID, pending)
	if err != nil {
		writeValidationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidationHistory(w http.ResponseWriter, r *http.Request) {
	validatorID, ok := requireValidationIdentity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := validationports.HistoryFilter{
		Decision:  query.Get("decision"),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}
	if raw := query.Get("date_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeValidationError(w, http.StatusBadRequest, "invalid_date_from", "date_from must be RFC3339")
			return
		}
		filter.DateFrom = &from
	}
	if raw := query.Get("date_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeValidationError(w, http.StatusBadRequest, "invalid_date_to", "date_to must be RFC3339")
			return
		}
		filter.DateTo = &to
	}
	var badPage bool
	filter.Page, badPage = parsePositiveInt(query.Get("page"))
	if badPage {
		writeValidationError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	var badLimit bool
	filter.Limit, badLimit = parsePositiveInt(query.Get("limit"))
	if badLimit {
		writeValidationError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}

	resp, err := s.validations.Handler.ValidationHistoryHandler(r.Context(), validatorID, filter)
	if err != nil {
		writeValidationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parsePositiveInt returns (0, false) for an empty value so use cases can
// apply their own defaults.
func parsePositiveInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, true
	}
	return value, false
}
