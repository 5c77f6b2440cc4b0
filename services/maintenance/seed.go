// Package maintenance holds the operator tasks run by gamelogctl. They act on
// the stores directly and bypass the request gate.
package maintenance

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"gamelog/services/accounts"
	"gamelog/services/catalog"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedFile is the YAML document describing demo data.
type SeedFile struct {
	Account    SeedAccount `yaml:"account"`
	Categories []string    `yaml:"categories"`
	Games      []SeedGame  `yaml:"games"`
}

// SeedAccount owns every seeded game.
type SeedAccount struct {
	Email    string `yaml:"email"`
	Username string `yaml:"username"`
}

// SeedGame is one catalog entry.
type SeedGame struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	Rating      float64 `yaml:"rating"`
	ReleaseDate string  `yaml:"release_date"`
	Category    string  `yaml:"category,omitempty"`
	ImageURL    string  `yaml:"image_url,omitempty"`
}

// SeedResult counts what a seed run created.
type SeedResult struct {
	AccountCreated bool
	Categories     int
	GamesCreated   int
	GamesSkipped   int
}

// SeedAccounts is the account store slice seeding needs.
type SeedAccounts interface {
	ByEmail(ctx context.Context, email string) (accounts.Account, error)
	Create(ctx context.Context, account accounts.Account) error
}

// SeedCatalog is the catalog slice seeding needs.
type SeedCatalog interface {
	EnsureCategory(ctx context.Context, title string) (catalog.Category, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]catalog.Game, error)
	Create(ctx context.Context, owner uuid.UUID, in catalog.Input) (catalog.Game, error)
}

// DefaultSeed returns the embedded demo data.
func DefaultSeed() (SeedFile, error) {
	return ParseSeed(defaultSeed)
}

// ReadSeed parses a seed document from r.
func ReadSeed(r io.Reader) (SeedFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return SeedFile{}, err
	}
	return ParseSeed(data)
}

// ParseSeed parses a seed document and checks that every game names a listed category.
func ParseSeed(data []byte) (SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed: %w", err)
	}

	f.Account.Email = accounts.NormalizeEmail(f.Account.Email)
	if f.Account.Email == "" {
		return SeedFile{}, errors.New("seed: account.email is required")
	}

	known := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		known[c] = true
	}
	for _, g := range f.Games {
		if g.Category != "" && !known[g.Category] {
			return SeedFile{}, fmt.Errorf("seed: game %q uses unlisted category %q", g.Title, g.Category)
		}
	}
	return f, nil
}

// Seed creates the seed account, categories, and games. Games whose title the
// seed account already owns are skipped, so reruns are harmless.
func Seed(ctx context.Context, store SeedAccounts, games SeedCatalog, hasher *accounts.Hasher, f SeedFile) (SeedResult, error) {
	var res SeedResult

	owner, created, err := seedOwner(ctx, store, hasher, f.Account)
	if err != nil {
		return res, err
	}
	res.AccountCreated = created

	categories := make(map[string]uuid.UUID, len(f.Categories))
	for _, title := range f.Categories {
		c, err := games.EnsureCategory(ctx, title)
		if err != nil {
			return res, fmt.Errorf("category %q: %w", title, err)
		}
		categories[title] = c.ID
		res.Categories++
	}

	existing, err := games.ListByOwner(ctx, owner)
	if err != nil {
		return res, err
	}
	have := make(map[string]bool, len(existing))
	for _, g := range existing {
		have[g.Title] = true
	}

	for _, g := range f.Games {
		if have[g.Title] {
			res.GamesSkipped++
			continue
		}
		in := catalog.Input{
			Title:       g.Title,
			Description: g.Description,
			Price:       strconv.FormatFloat(g.Price, 'f', 2, 64),
			Rating:      strconv.FormatFloat(g.Rating, 'f', -1, 64),
			ReleaseDate: g.ReleaseDate,
			ImageURL:    g.ImageURL,
		}
		if id, ok := categories[g.Category]; ok {
			in.CategoryID = id.String()
		}
		if _, err := games.Create(ctx, owner, in); err != nil {
			return res, fmt.Errorf("game %q: %w", g.Title, err)
		}
		have[g.Title] = true
		res.GamesCreated++
	}
	return res, nil
}

// seedOwner finds or creates the verified seed account. Its password is random;
// use the reset flow to sign in as it.
func seedOwner(ctx context.Context, store SeedAccounts, hasher *accounts.Hasher, a SeedAccount) (uuid.UUID, bool, error) {
	acct, err := store.ByEmail(ctx, a.Email)
	if err == nil {
		return acct.ID, false, nil
	}
	if !errors.Is(err, accounts.ErrNotFound) {
		return uuid.Nil, false, err
	}

	hash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return uuid.Nil, false, err
	}
	now := time.Now().UTC()
	acct = accounts.Account{
		ID:              uuid.New(),
		Email:           a.Email,
		PasswordHash:    hash,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if a.Username != "" {
		username := a.Username
		acct.Username = &username
	}
	if err := store.Create(ctx, acct); err != nil {
		return uuid.Nil, false, fmt.Errorf("create seed account: %w", err)
	}
	return acct.ID, true, nil
}
