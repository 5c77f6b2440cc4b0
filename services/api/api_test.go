package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gamelog/pkg/images"
	"gamelog/services/accounts"
	"gamelog/services/accounts/accountstest"
	"gamelog/services/blog"
	"gamelog/services/catalog"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testOrigin = "https://gamelog.test"
	cookieName = "_gamelog_session"
)

type fakeGames struct {
	mu      sync.Mutex
	games   map[uuid.UUID]catalog.Game
	deleted []uuid.UUID
	created []catalog.Input
}

func newFakeGames() *fakeGames { return &fakeGames{games: map[uuid.UUID]catalog.Game{}} }

func (f *fakeGames) add(owner uuid.UUID) catalog.Game {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := catalog.Game{ID: uuid.New(), Title: "Hades", UserID: owner}
	f.games[g.ID] = g
	return g
}

func (f *fakeGames) List(context.Context) ([]catalog.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Game, 0, len(f.games))
	for _, g := range f.games {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGames) ListByOwner(_ context.Context, owner uuid.UUID) ([]catalog.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Game
	for _, g := range f.games {
		if g.UserID == owner {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGames) Get(_ context.Context, id uuid.UUID) (catalog.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return catalog.Game{}, catalog.ErrNotFound
	}
	return g, nil
}

func (f *fakeGames) Create(_ context.Context, owner uuid.UUID, in catalog.Input) (catalog.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.Title == "" {
		return catalog.Game{}, &catalog.ValidationError{Field: "title", Message: "Title is required."}
	}
	f.created = append(f.created, in)
	g := catalog.Game{ID: uuid.New(), Title: in.Title, ImageURL: in.ImageURL, UserID: owner}
	f.games[g.ID] = g
	return g, nil
}

func (f *fakeGames) Update(context.Context, uuid.UUID, uuid.UUID, catalog.Input) error { return nil }

func (f *fakeGames) Delete(_ context.Context, actor, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok || g.UserID != actor {
		return catalog.ErrForbidden
	}
	delete(f.games, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeGames) Categories(context.Context) ([]catalog.Category, error) { return nil, nil }

func (f *fakeGames) Stats(context.Context, uuid.UUID) (catalog.Stats, error) {
	return catalog.Stats{}, nil
}

func (f *fakeGames) GameOfTheWeek(context.Context, time.Time) (*catalog.Game, error) {
	return nil, nil
}

type fakePosts struct {
	mu       sync.Mutex
	posts    map[uuid.UUID]blog.Post
	reported []uuid.UUID
}

func (f *fakePosts) List(context.Context) ([]blog.Post, error) { return nil, nil }

func (f *fakePosts) Get(_ context.Context, id uuid.UUID) (blog.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return blog.Post{}, blog.ErrNotFound
	}
	return p, nil
}

func (f *fakePosts) Create(_ context.Context, author uuid.UUID, in blog.Input) (blog.Post, error) {
	return blog.Post{ID: uuid.New(), Title: in.Title, UserID: author}, nil
}

func (f *fakePosts) Update(context.Context, uuid.UUID, uuid.UUID, blog.Input) error { return nil }

func (f *fakePosts) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakePosts) Report(_ context.Context, _ uuid.UUID, id uuid.UUID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return blog.ErrNotFound
	}
	f.reported = append(f.reported, id)
	return nil
}

type fakeHost struct {
	folders []string
	err     error
}

func (f *fakeHost) Upload(_ context.Context, data []byte, folder string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if images.DetectContentType(data) == "" {
		return "", images.ErrNotImage
	}
	f.folders = append(f.folders, folder)
	return "https://img.test/" + folder + "/cover.png", nil
}

type countingRevocations struct {
	mu       sync.Mutex
	sessions []string
	revoked  map[uuid.UUID]bool
}

func (c *countingRevocations) RevokeSession(_ context.Context, sess accounts.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = append(c.sessions, sess.ID)
	return nil
}

func (c *countingRevocations) RevokeAccount(_ context.Context, id uuid.UUID, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revoked == nil {
		c.revoked = map[uuid.UUID]bool{}
	}
	c.revoked[id] = true
	return nil
}

func (c *countingRevocations) IsRevoked(_ context.Context, sess accounts.Session) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.sessions {
		if id == sess.ID {
			return true, nil
		}
	}
	return c.revoked[sess.AccountID], nil
}

type harness struct {
	handler     http.Handler
	store       *accountstest.MemStore
	mailer      *accountstest.Mailer
	sessions    *accounts.Sessions
	revocations *countingRevocations
	games       *fakeGames
	posts       *fakePosts
	host        *fakeHost
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		store:       accountstest.NewMemStore(),
		mailer:      &accountstest.Mailer{},
		revocations: &countingRevocations{},
		games:       newFakeGames(),
		posts:       &fakePosts{posts: map[uuid.UUID]blog.Post{}},
		host:        &fakeHost{},
	}

	svc, err := accounts.NewService(h.store, accounts.NewHasher(bcrypt.MinCost), h.mailer, &accountstest.Events{}, nil, accounts.DefaultOptions())
	require.NoError(t, err)
	h.sessions, err = accounts.NewSessions(testSecret, time.Hour)
	require.NoError(t, err)

	cfg := Config{CookieName: cookieName, Origin: testOrigin, AuthRateLimit: 100}
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := New(Deps{
		Accounts: svc,
		Sessions: h.sessions,
		Auth:     accounts.NewAuthenticator(h.sessions, h.revocations),
		Games:    h.games,
		Posts:    h.posts,
		Images:   h.host,
		Logger:   zerolog.Nop(),
	}, cfg)
	require.NoError(t, err)

	h.handler, err = a.Routes()
	require.NoError(t, err)
	return h
}

func (h *harness) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, body map[string]any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "cover.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", cookieName)
	return nil
}

// verifiedAccount stores a ready-to-use account and returns a session cookie for it.
func (h *harness) verifiedAccount(t *testing.T, email string) (uuid.UUID, *http.Cookie) {
	t.Helper()
	hash, err := accounts.NewHasher(bcrypt.MinCost).Hash("p@ssw0rd1")
	require.NoError(t, err)
	id := uuid.New()
	h.store.Put(accounts.Account{ID: id, Email: email, PasswordHash: hash, IsEmailVerified: true, CreatedAt: time.Now()})

	sess, err := h.sessions.Issue(id)
	require.NoError(t, err)
	return id, &http.Cookie{Name: cookieName, Value: sess.Token}
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestSignupVerifyLoginFlow(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(jsonRequest(http.MethodPost, "/signup", map[string]any{
		"email": "a@x.com", "username": "alice", "password": "p@ssw0rd1",
	}), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(jsonRequest(http.MethodPost, "/login", map[string]any{"email": "a@x.com", "password": "p@ssw0rd1"}), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, msgVerifyFirst, decodeBody(t, rec)["error"])

	sent, ok := h.mailer.Last("verify")
	require.True(t, ok)
	require.True(t, strings.HasPrefix(sent.Link, testOrigin+"/verify-email/"))

	rec = h.do(httptest.NewRequest(http.MethodGet, strings.TrimPrefix(sent.Link, testOrigin), nil), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?verified=1", rec.Header().Get("Location"))

	rec = h.do(jsonRequest(http.MethodPost, "/login", map[string]any{"email": "a@x.com", "password": "p@ssw0rd1"}), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.False(t, cookie.Secure)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/profile", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "a@x.com")

	// The verification link is single use.
	rec = h.do(httptest.NewRequest(http.MethodGet, strings.TrimPrefix(sent.Link, testOrigin), nil), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidVerifyLink, decodeBody(t, rec)["error"])
}

func TestSecureCookieFlag(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.SecureCookies = true })
	h.verifiedAccount(t, "s@x.com")

	rec := h.do(formRequest("/login", url.Values{"email": {"s@x.com"}, "password": {"p@ssw0rd1"}}), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, sessionCookie(t, rec).Secure)
}

func TestSignupErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.verifiedAccount(t, "taken@x.com")

	rec := h.do(formRequest("/signup", url.Values{"email": {"taken@x.com"}, "username": {"bob"}, "password": {"p@ssw0rd1"}}), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, msgEmailTaken, decodeBody(t, rec)["error"])

	rec = h.do(formRequest("/signup", url.Values{"email": {"new@x.com"}, "username": {"bob"}, "password": {"short"}}), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password", decodeBody(t, rec)["field"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t, nil)
	h.verifiedAccount(t, "c@x.com")

	for _, body := range []map[string]any{
		{"email": "c@x.com", "password": "wrong-password"},
		{"email": "nobody@x.com", "password": "p@ssw0rd1"},
	} {
		rec := h.do(jsonRequest(http.MethodPost, "/login", body), nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, msgInvalidLogin, decodeBody(t, rec)["error"])
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	h := newHarness(t, nil)

	forged := &http.Cookie{Name: cookieName, Value: "not-a-token"}
	for _, cookie := range []*http.Cookie{nil, forged} {
		for _, target := range []string{"/profile", "/my-games", "/stats"} {
			rec := h.do(httptest.NewRequest(http.MethodGet, target, nil), cookie)
			require.Equal(t, http.StatusSeeOther, rec.Code, target)
			assert.Equal(t, loginPath, rec.Header().Get("Location"))
		}
	}

	rec := h.do(jsonRequest(http.MethodPost, "/games", map[string]any{"title": "Hades"}), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, h.games.created)
}

func TestPublicRoutesServeAnonymous(t *testing.T) {
	h := newHarness(t, nil)
	for _, target := range []string{"/games", "/game-of-the-week", "/categories", "/blog", "/healthz", "/readyz", "/metrics"} {
		rec := h.do(httptest.NewRequest(http.MethodGet, target, nil), nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}

func TestReadyzReportsFailure(t *testing.T) {
	h := newHarness(t, nil)
	a, err := New(Deps{
		Accounts: &accounts.Service{},
		Sessions: h.sessions,
		Auth:     accounts.NewAuthenticator(h.sessions, nil),
		Games:    h.games,
		Posts:    h.posts,
		Images:   h.host,
		Ready:    func(context.Context) error { return errors.New("db down") },
		Logger:   zerolog.Nop(),
	}, Config{})
	require.NoError(t, err)
	handler, err := a.Routes()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogoutRevokesAndClearsCookie(t *testing.T) {
	h := newHarness(t, nil)
	_, cookie := h.verifiedAccount(t, "d@x.com")

	rec := h.do(httptest.NewRequest(http.MethodGet, "/logout", nil), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, loginPath, rec.Header().Get("Location"))
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
	assert.Len(t, h.revocations.sessions, 1)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/profile", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLogoutWithoutSessionStillClearsCookie(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/logout", nil), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
	assert.Empty(t, h.revocations.sessions)
}

func TestLogoutEverywhere(t *testing.T) {
	h := newHarness(t, nil)
	id, cookie := h.verifiedAccount(t, "e@x.com")

	rec := h.do(httptest.NewRequest(http.MethodPost, "/logout-everywhere", nil), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, h.revocations.revoked[id])

	rec = h.do(httptest.NewRequest(http.MethodGet, "/profile", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.verifiedAccount(t, "f@x.com")

	rec := h.do(jsonRequest(http.MethodPost, "/reset-password", map[string]any{"email": "f@x.com"}), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeBody(t, rec)["ok"])

	rec = h.do(jsonRequest(http.MethodPost, "/reset-password", map[string]any{"email": "nobody@x.com"}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])

	sent, ok := h.mailer.Last("reset")
	require.True(t, ok)
	require.True(t, strings.HasPrefix(sent.Link, testOrigin+"/reset/"))
	path := strings.TrimPrefix(sent.Link, testOrigin)

	rec = h.do(formRequest(path, url.Values{"password": {"n3w-passw0rd"}, "confirmPassword": {"different"}}), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(formRequest(path, url.Values{"password": {"n3w-passw0rd"}, "confirmPassword": {"n3w-passw0rd"}}), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?reset=success", rec.Header().Get("Location"))

	rec = h.do(formRequest(path, url.Values{"password": {"an0ther-pass"}}), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidResetLink, decodeBody(t, rec)["error"])

	rec = h.do(jsonRequest(http.MethodPost, "/login", map[string]any{"email": "f@x.com", "password": "n3w-passw0rd"}), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteGameOwnership(t *testing.T) {
	h := newHarness(t, nil)
	owner, _ := h.verifiedAccount(t, "owner@x.com")
	_, intruder := h.verifiedAccount(t, "intruder@x.com")
	game := h.games.add(owner)

	rec := h.do(httptest.NewRequest(http.MethodPost, "/games/"+game.ID.String()+"/delete", nil), intruder)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, msgUnauthorized, decodeBody(t, rec)["error"])
	assert.Empty(t, h.games.deleted)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/games/"+uuid.NewString()+"/delete", nil), intruder)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/games/not-a-uuid/delete", nil), intruder)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/games/"+game.ID.String()+"/delete", nil), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, h.games.deleted)
}

func TestDeleteOwnGame(t *testing.T) {
	h := newHarness(t, nil)
	owner, cookie := h.verifiedAccount(t, "g@x.com")
	game := h.games.add(owner)

	rec := h.do(httptest.NewRequest(http.MethodPost, "/games/"+game.ID.String()+"/delete", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []uuid.UUID{game.ID}, h.games.deleted)
}

func TestCreateGameWithCoverUpload(t *testing.T) {
	h := newHarness(t, nil)
	_, cookie := h.verifiedAccount(t, "h@x.com")

	rec := h.do(multipartRequest(t, "/games", map[string]string{"title": "Celeste", "price": "19.99"}, pngBytes), cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, h.games.created, 1)
	assert.Equal(t, "https://img.test/game-covers/cover.png", h.games.created[0].ImageURL)
	assert.Equal(t, "19.99", h.games.created[0].Price)

	rec = h.do(jsonRequest(http.MethodPost, "/games", map[string]any{"title": ""}), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title", decodeBody(t, rec)["field"])
}

func TestUploadCover(t *testing.T) {
	h := newHarness(t, nil)
	_, cookie := h.verifiedAccount(t, "i@x.com")

	rec := h.do(multipartRequest(t, "/uploads/cover", nil, pngBytes), cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://img.test/game-covers/cover.png", decodeBody(t, rec)["imageUrl"])

	rec = h.do(multipartRequest(t, "/uploads/cover", nil, []byte("plain text, not a picture")), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgNotImage, decodeBody(t, rec)["error"])

	rec = h.do(multipartRequest(t, "/uploads/cover", map[string]string{"title": "x"}, nil), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgImageRequired, decodeBody(t, rec)["error"])

	h.host.err = images.ErrUpstream
	rec = h.do(multipartRequest(t, "/uploads/cover", nil, pngBytes), cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestProfilePicture(t *testing.T) {
	h := newHarness(t, nil)
	id, cookie := h.verifiedAccount(t, "j@x.com")

	rec := h.do(multipartRequest(t, "/profile/picture", nil, pngBytes), cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{images.FolderProfilePics}, h.host.folders)

	stored, ok := h.store.Get(id)
	require.True(t, ok)
	assert.Equal(t, "https://img.test/profile_pics/cover.png", stored.ProfilePicURL)
}

func TestBlogIntents(t *testing.T) {
	h := newHarness(t, nil)
	owner, _ := h.verifiedAccount(t, "k@x.com")
	_, other := h.verifiedAccount(t, "l@x.com")
	post := blog.Post{ID: uuid.New(), Title: "Review", UserID: owner}
	h.posts.posts[post.ID] = post

	rec := h.do(formRequest("/blog", url.Values{"intent": {"report"}, "postId": {post.ID.String()}}), other)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, msgPostReported, decodeBody(t, rec)["message"])
	assert.Equal(t, []uuid.UUID{post.ID}, h.posts.reported)

	rec = h.do(formRequest("/blog", url.Values{"intent": {"delete"}, "postId": {post.ID.String()}}), other)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(formRequest("/blog", url.Values{"intent": {"edit"}, "postId": {post.ID.String()}, "title": {"mine now"}}), other)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(formRequest("/blog", url.Values{"title": {"New"}, "content": {"c"}, "gameId": {uuid.NewString()}}), other)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(formRequest("/blog", url.Values{"intent": {"shout"}}), other)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(formRequest("/blog", url.Values{"intent": {"report"}, "postId": {post.ID.String()}}), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t, nil)
	id, cookie := h.verifiedAccount(t, "m@x.com")
	otherID, _ := h.verifiedAccount(t, "n@x.com")

	rec := h.do(formRequest("/delete-account", url.Values{"accountId": {otherID.String()}}), cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)
	_, ok := h.store.Get(otherID)
	assert.True(t, ok)

	rec = h.do(formRequest("/delete-account", url.Values{}), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, loginPath, rec.Header().Get("Location"))
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)

	_, ok = h.store.Get(id)
	assert.False(t, ok)
	assert.True(t, h.revocations.revoked[id])
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AuthRateLimit = 1 })

	body := map[string]any{"email": "nobody@x.com", "password": "p@ssw0rd1"}
	rec := h.do(jsonRequest(http.MethodPost, "/login", body), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(jsonRequest(http.MethodPost, "/login", body), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRequestKindOf(t *testing.T) {
	tests := []struct {
		contentType string
		want        requestKind
	}{
		{"application/json", kindJSON},
		{"application/json; charset=utf-8", kindJSON},
		{"multipart/form-data; boundary=xyz", kindMultipart},
		{"application/x-www-form-urlencoded", kindForm},
		{"", kindForm},
		{"text/plain", kindForm},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Content-Type", tt.contentType)
			assert.Equal(t, tt.want, requestKindOf(req))
		})
	}
}

func TestReadFormRejectsNestedJSON(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/", map[string]any{"title": map[string]any{"x": 1}})
	_, kind, err := readForm(httptest.NewRecorder(), req)
	assert.Equal(t, kindJSON, kind)
	assert.ErrorIs(t, err, errBadBody)
}

func TestReadFormJSONScalars(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/", map[string]any{"price": 19.5, "title": " Hades ", "draft": true, "skip": nil})
	form, _, err := readForm(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "19.5", form.get("price"))
	assert.Equal(t, "Hades", form.get("title"))
	assert.Equal(t, "true", form.get("draft"))
	_, present := form["skip"]
	assert.False(t, present)
}

func TestResetLinkUsesConfiguredOrigin(t *testing.T) {
	h := newHarness(t, nil)
	h.verifiedAccount(t, "victim@x.com")

	req := jsonRequest(http.MethodPost, "/reset-password", map[string]any{"email": "victim@x.com"})
	req.Host = "attacker.example"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := h.do(req, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sent, ok := h.mailer.Last("reset")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(sent.Link, testOrigin+"/reset/"), sent.Link)
	assert.NotContains(t, sent.Link, "attacker.example")
}

func TestResetLinkFallsBackToRequestHost(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Origin = "" })
	h.verifiedAccount(t, "dev@x.com")

	req := jsonRequest(http.MethodPost, "/reset-password", map[string]any{"email": "dev@x.com"})
	req.Host = "localhost:8080"
	rec := h.do(req, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sent, ok := h.mailer.Last("reset")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(sent.Link, "http://localhost:8080/reset/"), sent.Link)
}

func TestUploadsRemoveSpilledFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	h := newHarness(t, nil)
	_, cookie := h.verifiedAccount(t, "big@x.com")
	srv := httptest.NewServer(h.handler)
	defer srv.Close()

	// Larger than the in-memory form limit, so the part spills to disk.
	image := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 3<<20)...)

	for _, path := range []string{"/uploads/cover", "/profile/picture", "/games"} {
		t.Run(path, func(t *testing.T) {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			require.NoError(t, mw.WriteField("title", "Hades"))
			part, err := mw.CreateFormFile("image", "cover.png")
			require.NoError(t, err)
			_, err = part.Write(image)
			require.NoError(t, err)
			require.NoError(t, mw.Close())

			req, err := http.NewRequest(http.MethodPost, srv.URL+path, &buf)
			require.NoError(t, err)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			req.AddCookie(cookie)

			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			require.Less(t, resp.StatusCode, 300)

			require.Eventually(t, func() bool {
				entries, err := os.ReadDir(tmp)
				return err == nil && len(entries) == 0
			}, time.Second, 10*time.Millisecond, "multipart temp files left behind")
		})
	}
}

func TestNoCORSHeadersWithoutAllowedOrigins(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := h.do(req, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSEchoesOnlyAllowedOrigins(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AllowedOrigins = []string{testOrigin} })

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	req.Header.Set("Origin", testOrigin)
	rec := h.do(req, nil)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/games", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = h.do(req, nil)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
