package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "idmcore/pkg/domain-errors"
)

// Request preparation hooks, run by DecodeAndPrepare in the order
// Sanitize, Normalize, Validate.
type (
	Sanitizable  interface{ Sanitize() }
	Normalizable interface{ Normalize() }
	Validatable  interface{ Validate() error }
)

// DecodeJSON reads a single JSON value from the body into a new T. On
// failure it writes a 400 and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	if err := decodeBody(r.Body, req); err != nil {
		reject(w, logger, ctx, requestID, "failed to decode request body", err)
		return nil, false
	}
	return req, true
}

func decodeBody(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	err := dec.Decode(dst)
	if err == nil {
		if dec.More() {
			return dErrors.New(dErrors.CodeInvalidInput, "request body must hold a single JSON value")
		}
		return nil
	}

	var (
		tooLarge *http.MaxBytesError
		syntax   *json.SyntaxError
		mismatch *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "request body too large")
	case errors.Is(err, io.EOF):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "request body is empty")
	case errors.As(err, &mismatch) && mismatch.Field != "":
		return dErrors.Wrapf(err, dErrors.CodeInvalidInput, "%s must be a %s", mismatch.Field, jsonKind(mismatch.Type.Kind().String()))
	case errors.As(err, &syntax):
		return dErrors.Wrapf(err, dErrors.CodeInvalidInput, "invalid request body at offset %d", syntax.Offset)
	default:
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid request body")
	}
}

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "list"
	case "map", "struct":
		return "object"
	default:
		return "number"
	}
}

// PrepareRequest runs whichever preparation hooks req implements.
func PrepareRequest(req any) error {
	if s, ok := req.(Sanitizable); ok {
		s.Sanitize()
	}
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	v, ok := req.(Validatable)
	if !ok {
		return nil
	}
	err := v.Validate()
	var domainErr *dErrors.Error
	if err != nil && !errors.As(err, &domainErr) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}

// DecodeAndPrepare is DecodeJSON followed by PrepareRequest. Plain
// validation errors are reported as CodeValidation.
//
//	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//		return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger, ctx, requestID)
	if !ok {
		return nil, false
	}
	if err := PrepareRequest(req); err != nil {
		reject(w, logger, ctx, requestID, "invalid request", err)
		return nil, false
	}
	return req, true
}

func reject(w http.ResponseWriter, logger *slog.Logger, ctx context.Context, requestID, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, msg, "error", err, "request_id", requestID)
	WriteError(w, err)
}
