package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamelog/pkg/metrics"
	"gamelog/services/accounts"
)

// Messages shown for account lifecycle outcomes.
const (
	msgEmailTaken         = "Email already in use"
	msgUsernameTaken      = "Username already taken"
	msgInvalidLogin       = "Invalid email or password"
	msgVerifyFirst        = "Please verify your email"
	msgInvalidVerifyLink  = "Invalid or expired verification link."
	msgInvalidResetLink   = "Invalid or expired reset link."
	msgUnknownEmail       = "No account found with that email"
	msgMailUnavailable    = "We could not send the email. Please try again later."
	msgCheckEmail         = "Check your email to verify your account."
	msgPasswordsDifferent = "Passwords do not match."
)

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	form, _, err := readForm(w, r)
	defer releaseForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	acct, err := a.deps.Accounts.Signup(ctx, form.get("email"), form.get("username"), form.raw("password"), a.origin(r))
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": acct.ID, "message": msgCheckEmail})
	case respondValidation(w, err):
	case errors.Is(err, accounts.ErrEmailTaken):
		respondMessage(w, http.StatusConflict, msgEmailTaken)
	case errors.Is(err, accounts.ErrUsernameTaken):
		respondMessage(w, http.StatusConflict, msgUsernameTaken)
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	form, _, err := readForm(w, r)
	defer releaseForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	acct, err := a.deps.Accounts.Login(ctx, form.get("email"), form.raw("password"))
	switch {
	case err == nil:
	case errors.Is(err, accounts.ErrInvalidCredentials):
		respondMessage(w, http.StatusUnauthorized, msgInvalidLogin)
		return
	case errors.Is(err, accounts.ErrEmailNotVerified):
		respondMessage(w, http.StatusForbidden, msgVerifyFirst)
		return
	default:
		respondInternal(w, r, err)
		return
	}

	sess, err := a.deps.Sessions.Issue(acct.ID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	a.setSessionCookie(w, sess)
	respondOK(w, map[string]any{"id": acct.ID, "username": acct.DisplayName()})
}

// handleLogout always clears the cookie; revocation is best effort.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r.Context()); sess.AccountID != uuid.Nil {
		if err := a.deps.Auth.Revoke(r.Context(), sess); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("revoke session")
			a.deps.Metrics.AuthEvent("logout", metrics.OutcomeError)
		} else {
			a.deps.Metrics.AuthEvent("logout", metrics.OutcomeOK)
		}
	}
	a.clearSessionCookie(w)
	seeOther(w, r, loginPath)
}

func (a *API) handleLogoutEverywhere(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.deps.Auth.RevokeAll(ctx, accountFrom(r.Context())); err != nil {
		a.deps.Metrics.AuthEvent("logout_everywhere", metrics.OutcomeError)
		respondInternal(w, r, err)
		return
	}
	a.deps.Metrics.AuthEvent("logout_everywhere", metrics.OutcomeOK)
	a.clearSessionCookie(w)
	seeOther(w, r, loginPath)
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err := a.deps.Accounts.VerifyEmail(ctx, chi.URLParam(r, "token"))
	switch {
	case err == nil:
		seeOther(w, r, loginPath+"?verified=1")
	case errors.Is(err, accounts.ErrTokenInvalid):
		respondMessage(w, http.StatusBadRequest, msgInvalidVerifyLink)
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	form, _, err := readForm(w, r)
	defer releaseForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err = a.deps.Accounts.RequestPasswordReset(ctx, form.get("email"), a.origin(r))
	switch {
	case err == nil:
		respondOK(w, nil)
	case respondValidation(w, err):
	case errors.Is(err, accounts.ErrNotFound):
		respondMessage(w, http.StatusNotFound, msgUnknownEmail)
	case errors.Is(err, accounts.ErrMailUnavailable):
		respondMessage(w, http.StatusBadGateway, msgMailUnavailable)
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	form, _, err := readForm(w, r)
	defer releaseForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	password := form.raw("password")
	if confirm, ok := form["confirmPassword"]; ok && confirm != password {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": msgPasswordsDifferent, "field": "confirmPassword"})
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err = a.deps.Accounts.ResetPassword(ctx, chi.URLParam(r, "token"), password)
	switch {
	case err == nil:
		seeOther(w, r, loginPath+"?reset=success")
	case respondValidation(w, err):
	case errors.Is(err, accounts.ErrTokenInvalid):
		respondMessage(w, http.StatusBadRequest, msgInvalidResetLink)
	default:
		respondInternal(w, r, err)
	}
}
