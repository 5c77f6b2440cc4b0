package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"gamelog/services/accounts"
	"gamelog/services/blog"
)

const (
	msgPostReported  = "Post reported. Thank you!"
	msgPostNotFound  = "Post not found"
	msgUnknownIntent = "Unknown action."
)

func (a *API) handleListPosts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	posts, err := a.deps.Posts.List(ctx)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// handlePostAction dispatches the blog form on its intent field.
func (a *API) handlePostAction(w http.ResponseWriter, r *http.Request) {
	form, _, err := readForm(w, r)
	defer releaseForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	switch form.get("intent") {
	case "", "create":
		a.createPost(w, r, form)
	case "edit":
		a.editPost(w, r, form)
	case "delete":
		a.deletePost(w, r, form)
	case "report":
		a.reportPost(w, r, form)
	default:
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": msgUnknownIntent, "field": "intent"})
	}
}

func postInput(form formValues) blog.Input {
	return blog.Input{
		Title:   form.get("title"),
		Content: form.get("content"),
		GameID:  form.get("gameId"),
	}
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request, form formValues) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	post, err := a.deps.Posts.Create(ctx, accountFrom(r.Context()), postInput(form))
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, map[string]any{"post": post})
	case respondValidation(w, err):
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) editPost(w http.ResponseWriter, r *http.Request, form formValues) {
	id, ok := a.ownedPost(w, r, form)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err := a.deps.Posts.Update(ctx, accountFrom(r.Context()), id, postInput(form))
	switch {
	case err == nil:
		respondOK(w, map[string]any{"id": id})
	case respondValidation(w, err):
	case errors.Is(err, blog.ErrForbidden), errors.Is(err, blog.ErrNotFound):
		respondMessage(w, http.StatusForbidden, msgUnauthorized)
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) deletePost(w http.ResponseWriter, r *http.Request, form formValues) {
	id, ok := a.ownedPost(w, r, form)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err := a.deps.Posts.Delete(ctx, accountFrom(r.Context()), id)
	switch {
	case err == nil:
		respondOK(w, nil)
	case errors.Is(err, blog.ErrForbidden), errors.Is(err, blog.ErrNotFound):
		respondMessage(w, http.StatusForbidden, msgUnauthorized)
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) reportPost(w http.ResponseWriter, r *http.Request, form formValues) {
	id, err := uuid.Parse(form.get("postId"))
	if err != nil {
		respondMessage(w, http.StatusNotFound, msgPostNotFound)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err = a.deps.Posts.Report(ctx, accountFrom(r.Context()), id, form.get("reason"))
	switch {
	case err == nil:
		respondOK(w, map[string]any{"message": msgPostReported})
	case errors.Is(err, blog.ErrNotFound):
		respondMessage(w, http.StatusNotFound, msgPostNotFound)
	default:
		respondInternal(w, r, err)
	}
}

// ownedPost resolves the postId field and applies the owner gate.
func (a *API) ownedPost(w http.ResponseWriter, r *http.Request, form formValues) (uuid.UUID, bool) {
	var owner uuid.UUID
	id, err := uuid.Parse(form.get("postId"))
	if err == nil {
		ctx, cancel := withTimeout(r.Context())
		defer cancel()

		post, err := a.deps.Posts.Get(ctx, id)
		switch {
		case err == nil:
			owner = post.UserID
		case errors.Is(err, blog.ErrNotFound):
		default:
			respondInternal(w, r, err)
			return uuid.Nil, false
		}
	}
	if !a.allow(w, r, accounts.OwnerOf(owner)) {
		return uuid.Nil, false
	}
	return id, true
}
