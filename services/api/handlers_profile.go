package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamelog/pkg/images"
	"gamelog/services/accounts"
)

const (
	msgImageRequired = "Choose an image to upload."
	msgImageTooLarge = "Image must be 10 MB or smaller."
	msgNotImage      = "File must be an image."
	msgUploadFailed  = "Image upload failed. Please try again."
)

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	profile, err := a.deps.Accounts.Profile(ctx, accountFrom(r.Context()))
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, profile)
	case errors.Is(err, accounts.ErrNotFound):
		// The session outlived its account.
		a.clearSessionCookie(w)
		seeOther(w, r, loginPath)
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) handleProfilePicture(w http.ResponseWriter, r *http.Request) {
	url, ok := a.receiveImage(w, r, images.FolderProfilePics)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.deps.Accounts.SetProfilePicture(ctx, accountFrom(r.Context()), url); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			a.clearSessionCookie(w)
			seeOther(w, r, loginPath)
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"imageUrl": url})
}

func (a *API) handleUploadCover(w http.ResponseWriter, r *http.Request) {
	url, ok := a.receiveImage(w, r, images.FolderGameCovers)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"imageUrl": url})
}

// handleDeleteAccount deletes the signed-in account. A target other than the
// session's own account is refused.
func (a *API) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	form, _, err := readForm(w, r)
	defer releaseForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	actor := accountFrom(r.Context())
	target := actor
	if raw := form.get("accountId"); raw != "" {
		if target, err = uuid.Parse(raw); err != nil {
			respondMessage(w, http.StatusForbidden, msgUnauthorized)
			return
		}
	}
	if !a.allow(w, r, accounts.OwnerOf(target)) {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err = a.deps.Accounts.DeleteAccount(ctx, actor, target)
	switch {
	case err == nil:
	case errors.Is(err, accounts.ErrForbidden):
		respondMessage(w, http.StatusForbidden, msgUnauthorized)
		return
	case errors.Is(err, accounts.ErrNotFound):
	default:
		respondInternal(w, r, err)
		return
	}

	revokeCtx, revokeCancel := withTimeout(context.WithoutCancel(r.Context()))
	defer revokeCancel()
	if err := a.deps.Auth.RevokeAll(revokeCtx, actor); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("revoke sessions of deleted account")
	}

	a.clearSessionCookie(w)
	seeOther(w, r, loginPath)
}

// receiveImage reads the multipart "image" part and uploads it to folder.
// It writes the error response itself and reports whether the upload succeeded.
func (a *API) receiveImage(w http.ResponseWriter, r *http.Request, folder string) (string, bool) {
	_, kind, err := readForm(w, r)
	defer releaseForm(r)
	if err != nil {
		respondImageError(w, r, err)
		return "", false
	}
	data, present, err := uploadedFile(r, kind, "image")
	if err != nil {
		respondImageError(w, r, err)
		return "", false
	}
	if !present {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": msgImageRequired, "field": "image"})
		return "", false
	}
	return a.upload(w, r, data, folder)
}

func (a *API) upload(w http.ResponseWriter, r *http.Request, data []byte, folder string) (string, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	url, err := a.deps.Images.Upload(ctx, data, folder)
	if err != nil {
		respondImageError(w, r, err)
		return "", false
	}
	return url, true
}

func respondImageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, images.ErrEmpty):
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": msgImageRequired, "field": "image"})
	case errors.Is(err, images.ErrTooLarge):
		respondJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": msgImageTooLarge, "field": "image"})
	case errors.Is(err, images.ErrNotImage):
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": msgNotImage, "field": "image"})
	case errors.Is(err, images.ErrUpstream):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("image upload")
		respondMessage(w, http.StatusBadGateway, msgUploadFailed)
	case errors.Is(err, errBadBody):
		respondError(w, http.StatusBadRequest, err)
	default:
		respondInternal(w, r, err)
	}
}
