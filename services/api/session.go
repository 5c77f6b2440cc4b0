package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"gamelog/services/accounts"
)

const loginPath = "/login"

type sessionKey struct{}

// sessionFrom returns the authenticated session attached by withSession.
// The zero Session (AccountID == uuid.Nil) means anonymous.
func sessionFrom(ctx context.Context) accounts.Session {
	sess, _ := ctx.Value(sessionKey{}).(accounts.Session)
	return sess
}

func accountFrom(ctx context.Context) uuid.UUID {
	return sessionFrom(ctx).AccountID
}

// withSession resolves the session cookie once per request. Missing, forged,
// expired, and revoked cookies all resolve to anonymous.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.config.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		sess, ok := a.deps.Auth.Authenticate(r.Context(), cookie.Value)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// requireAccount gates a route group on an authenticated session.
func (a *API) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.allow(w, r, accounts.Authenticated()) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow applies the gate and writes the redirect or deny response when the
// request may not proceed.
func (a *API) allow(w http.ResponseWriter, r *http.Request, req accounts.Requirement) bool {
	switch accounts.Decide(accountFrom(r.Context()), req) {
	case accounts.Permit:
		return true
	case accounts.RedirectLogin:
		seeOther(w, r, loginPath)
	default:
		respondMessage(w, http.StatusForbidden, msgUnauthorized)
	}
	return false
}

func (a *API) setSessionCookie(w http.ResponseWriter, sess accounts.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.config.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   a.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.config.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// origin is the base URL for emailed links.
func (a *API) origin(r *http.Request) string {
	if a.config.Origin != "" {
		return a.config.Origin
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
