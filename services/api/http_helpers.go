package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"gamelog/services/accounts"
	"gamelog/services/blog"
	"gamelog/services/catalog"
)

const (
	msgUnauthorized = "unauthorized"
	msgServerError  = "Something went wrong. Please try again."
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]any{"error": msg})
}

func respondOK(w http.ResponseWriter, extra map[string]any) {
	payload := map[string]any{"ok": true}
	for k, v := range extra {
		payload[k] = v
	}
	respondJSON(w, http.StatusOK, payload)
}

// seeOther redirects with 303 so the browser follows up with a GET.
func seeOther(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// respondInternal logs err against the request and returns a generic failure.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	respondMessage(w, http.StatusInternalServerError, msgServerError)
}

// respondValidation writes a 400 with the field-level message when err is a
// validation failure from any service. It reports whether it handled err.
func respondValidation(w http.ResponseWriter, err error) bool {
	var (
		accountErr *accounts.ValidationError
		gameErr    *catalog.ValidationError
		postErr    *blog.ValidationError
		field, msg string
	)
	switch {
	case errors.As(err, &accountErr):
		field, msg = accountErr.Field, accountErr.Message
	case errors.As(err, &gameErr):
		field, msg = gameErr.Field, gameErr.Message
	case errors.As(err, &postErr):
		field, msg = postErr.Field, postErr.Message
	default:
		return false
	}
	respondJSON(w, http.StatusBadRequest, map[string]any{"error": msg, "field": field})
	return true
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}
