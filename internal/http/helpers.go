package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"obras/internal/core"
	"obras/internal/log"
	"obras/internal/middleware/trace"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// decodeJSON decodes a request body into dst, rejecting unknown fields
// and oversized bodies.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a domain error to its HTTP status and emits a JSON
// error body. Unrecognized errors become 500 with a generic message so
// internals don't leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldRequestID, trace.GetRequestID(r.Context()))
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrBudgetNotFound),
		errors.Is(err, core.ErrCategoryNotFound),
		errors.Is(err, core.ErrItemNotFound),
		errors.Is(err, core.ErrTaskNotFound),
		errors.Is(err, core.ErrStageNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrVersionConflict),
		errors.Is(err, core.ErrLogAlreadyApplied):
		return http.StatusConflict
	case errors.Is(err, core.ErrProgressOutOfRange),
		errors.Is(err, core.ErrNegativeDelta),
		errors.Is(err, core.ErrDeltaExceedsRemaining),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrTaskNotLinked),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrUnknownStageStatus),
		errors.Is(err, core.ErrUnknownProgressMethod):
		return http.StatusUnprocessableEntity
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || strings.Contains(err.Error(), "decode request body") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatReais formats cents as a Real currency string (e.g. "R$12,34").
func formatReais(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	reais := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(reais, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-R$" + s
	}
	return "R$" + s
}
