package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "idmcore/pkg/domain-errors"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

type httpMapping struct {
	status int
	name   string
}

var mappings = map[dErrors.Code]httpMapping{
	dErrors.CodeNotFound:          {http.StatusNotFound, "not_found"},
	dErrors.CodeInvalidInput:      {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:        {http.StatusBadRequest, "validation_error"},
	dErrors.CodeConfiguration:     {http.StatusUnprocessableEntity, "configuration_error"},
	dErrors.CodeConflict:          {http.StatusConflict, "conflict"},
	dErrors.CodeUnauthorized:      {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeExpired:           {http.StatusUnauthorized, "expired"},
	dErrors.CodeForbidden:         {http.StatusForbidden, "forbidden"},
	dErrors.CodeSecurityViolation: {http.StatusForbidden, "security_violation"},
	dErrors.CodeTooManyAttempts:   {http.StatusTooManyRequests, "too_many_attempts"},
	dErrors.CodeTimeout:           {http.StatusGatewayTimeout, "timeout"},
}

var internalMapping = httpMapping{http.StatusInternalServerError, "internal_error"}

func mappingFor(code dErrors.Code) httpMapping {
	if m, ok := mappings[code]; ok {
		return m
	}
	return internalMapping
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// status is already sent; an encoding failure cannot be reported
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError maps err to a status and body. Messages of internal errors and
// of errors without a domain code never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, internalMapping.status, ErrorResponse{Error: internalMapping.name})
		return
	}
	m := mappingFor(domainErr.Code)
	resp := ErrorResponse{Error: m.name}
	if m != internalMapping {
		resp.Description = domainErr.Message
	}
	WriteJSON(w, m.status, resp)
}

// StatusFor returns the HTTP status WriteError would use for code.
func StatusFor(code dErrors.Code) int {
	return mappingFor(code).status
}
