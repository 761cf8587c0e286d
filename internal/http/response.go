package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hearth/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain sentinels onto HTTP status codes. Anything
// unrecognized is a 500 with a generic body so storage details never leak.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(ctx, err), errorResponse{Error: publicMessage(ctx, err)})
}

func statusFor(ctx context.Context, err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrCategoryNameTaken),
		errors.Is(err, core.ErrCategoryInUse),
		errors.Is(err, core.ErrAccountNotEmpty):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidAccountType),
		errors.Is(err, core.ErrInvalidRepetitionType),
		errors.Is(err, core.ErrSplitAmount),
		errors.Is(err, core.ErrSplitParticipants),
		errors.Is(err, core.ErrSplitTransfer),
		errors.Is(err, core.ErrNestedSplit),
		errors.Is(err, core.ErrNotSplitParent),
		errors.Is(err, core.ErrReimbursementAmount),
		errors.Is(err, core.ErrOwnerConflict),
		errors.Is(err, core.ErrDefaultCategory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(ctx context.Context, err error) string {
	if statusFor(ctx, err) == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Internal error serving request", "error", err)
		return "internal server error"
	}
	return err.Error()
}
