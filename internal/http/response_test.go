package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hearth/internal/core"
)

func TestStatusFor(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", core.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get transaction: %w", core.ErrNotFound), http.StatusNotFound},
		{"access denied", core.ErrAccessDenied, http.StatusForbidden},
		{"name taken", core.ErrCategoryNameTaken, http.StatusConflict},
		{"account not empty", core.ErrAccountNotEmpty, http.StatusConflict},
		{"invalid date", core.ErrInvalidDate, http.StatusUnprocessableEntity},
		{"split validation", core.ErrSplitParticipants, http.StatusUnprocessableEntity},
		{"not split parent", core.ErrNotSplitParent, http.StatusUnprocessableEntity},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(ctx, tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, errors.New("sqlite file is corrupt at page 7"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Error != "internal server error" {
		t.Errorf("body = %q, want generic message", body.Error)
	}
}

func TestWriteError_ExposesDomainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, core.ErrAccountNotEmpty)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Error != core.ErrAccountNotEmpty.Error() {
		t.Errorf("body = %q, want %q", body.Error, core.ErrAccountNotEmpty.Error())
	}
}
