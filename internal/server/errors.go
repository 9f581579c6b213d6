package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/TakashiAihara/preppin-sub000/internal/logging"
	"github.com/TakashiAihara/preppin-sub000/internal/registry"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
	"github.com/TakashiAihara/preppin-sub000/internal/store"
)

var (
	errEmptyBody   = errors.New("request body is required")
	errMalformed   = errors.New("malformed JSON body")
	errBodyTooLong = errors.New("request body too large")
)

type errorBody struct {
	Error string `json:"error"`
}

// decodeBody reads exactly one JSON value. An empty body is an error unless
// allowEmpty, in which case it decodes as an empty object. Anything after
// the value other than whitespace is malformed.
func decodeBody(r *http.Request, allowEmpty bool) (any, error) {
	dec := json.NewDecoder(r.Body)
	var v any
	err := dec.Decode(&v)
	switch {
	case errors.Is(err, io.EOF):
		if allowEmpty {
			return map[string]any{}, nil
		}
		return nil, errEmptyBody
	case err != nil:
		return nil, bodyError(err)
	}

	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return v, nil
	case err != nil:
		return nil, bodyError(err)
	}
	return nil, fmt.Errorf("%w: trailing data after JSON value", errMalformed)
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooLong
	}
	return fmt.Errorf("%w: %v", errMalformed, err)
}

// writeErr maps service errors onto status codes. Validation failures
// carry their issues; unexpected errors are logged and hidden.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr.Issues})
	case errors.Is(err, registry.ErrUnknownSchema), errors.Is(err, sqlfilter.ErrUnknownEntity):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, errBodyTooLong):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
	case errors.Is(err, errEmptyBody), errors.Is(err, errMalformed), errors.Is(err, sqlfilter.ErrUnsupportedFilter):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, store.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		logging.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
