package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gamelog/pkg/images"
	"gamelog/services/accounts"
	"gamelog/services/catalog"
)

const msgGameNotFound = "Game not found"

func (a *API) handleListGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	games, err := a.deps.Games.List(ctx)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (a *API) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusNotFound, msgGameNotFound)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	game, err := a.deps.Games.Get(ctx, id)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]any{"game": game})
	case errors.Is(err, catalog.ErrNotFound):
		respondMessage(w, http.StatusNotFound, msgGameNotFound)
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) handleGameOfTheWeek(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	game, err := a.deps.Games.GameOfTheWeek(ctx, a.now())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"game": game})
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	categories, err := a.deps.Games.Categories(ctx)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleMyGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	games, err := a.deps.Games.ListByOwner(ctx, accountFrom(r.Context()))
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	stats, err := a.deps.Games.Stats(ctx, accountFrom(r.Context()))
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (a *API) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	in, ok := a.gameInput(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	game, err := a.deps.Games.Create(ctx, accountFrom(r.Context()), in)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, map[string]any{"game": game})
	case respondValidation(w, err):
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	id, ok := a.ownedGame(w, r)
	if !ok {
		return
	}
	in, ok := a.gameInput(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err := a.deps.Games.Update(ctx, accountFrom(r.Context()), id, in)
	switch {
	case err == nil:
		respondOK(w, map[string]any{"id": id})
	case respondValidation(w, err):
	case errors.Is(err, catalog.ErrForbidden), errors.Is(err, catalog.ErrNotFound):
		respondMessage(w, http.StatusForbidden, msgUnauthorized)
	default:
		respondInternal(w, r, err)
	}
}

func (a *API) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id, ok := a.ownedGame(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	err := a.deps.Games.Delete(ctx, accountFrom(r.Context()), id)
	switch {
	case err == nil:
		respondOK(w, nil)
	case errors.Is(err, catalog.ErrForbidden), errors.Is(err, catalog.ErrNotFound):
		respondMessage(w, http.StatusForbidden, msgUnauthorized)
	default:
		respondInternal(w, r, err)
	}
}

// ownedGame resolves the {id} game and applies the owner gate. A missing game
// is denied exactly like someone else's.
func (a *API) ownedGame(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var owner uuid.UUID
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err == nil {
		ctx, cancel := withTimeout(r.Context())
		defer cancel()

		game, err := a.deps.Games.Get(ctx, id)
		switch {
		case err == nil:
			owner = game.UserID
		case errors.Is(err, catalog.ErrNotFound):
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

// gameInput decodes the game form. A multipart "image" part is uploaded as the
// cover and overrides any imageUrl field.
func (a *API) gameInput(w http.ResponseWriter, r *http.Request) (catalog.Input, bool) {
	form, kind, err := readForm(w, r)
	defer releaseForm(r)
	if err != nil {
		respondImageError(w, r, err)
		return catalog.Input{}, false
	}

	in := catalog.Input{
		Title:       form.get("title"),
		Description: form.get("description"),
		Price:       form.get("price"),
		Rating:      form.get("rating"),
		ReleaseDate: form.get("releaseDate"),
		CategoryID:  form.get("categoryId"),
		ImageURL:    form.get("imageUrl"),
	}

	data, present, err := uploadedFile(r, kind, "image")
	if err != nil {
		respondImageError(w, r, err)
		return catalog.Input{}, false
	}
	if present {
		url, ok := a.upload(w, r, data, images.FolderGameCovers)
		if !ok {
			return catalog.Input{}, false
		}
		in.ImageURL = url
	}
	return in, true
}
