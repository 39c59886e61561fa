package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/common"
	"github.com/nicolasssh/cosplaiii/internal/logging"
)

const (
	catalogCacheKey = "catalog"
	catalogCacheTTL = 10 * time.Minute
)

// CatalogAPI is the slice of the recognizer client the dex uses.
type CatalogAPI interface {
	Characters(ctx context.Context) ([]models.Character, error)
}

// DexStore reads the user's unlock records.
type DexStore interface {
	ListUnlocks(ctx context.Context, uid string) ([]models.Unlock, error)
}

// Entry is one cosplaydex cell: a catalog character plus how many times
// the user has had it recognized. Count zero renders locked.
type Entry struct {
	models.Character
	Count int
}

// Board is the assembled cosplaydex view state.
type Board struct {
	Entries  []Entry
	Unlocked int
	Total    int
}

// Progress is the unique-unlocked share in [0,1] for the progress bar.
func (b Board) Progress() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Unlocked) / float64(b.Total)
}

// Dex assembles the catalog/progress board. The catalog is cached across
// visits; unlock records are fetched fresh each time.
type Dex struct {
	catalog CatalogAPI
	store   DexStore
	session SessionInfo
	cache   *cache.Cache
	log     logging.Logger
}

func NewDex(catalog CatalogAPI, store DexStore, session SessionInfo, log logging.Logger) *Dex {
	return &Dex{
		catalog: catalog,
		store:   store,
		session: session,
		cache:   cache.New(catalogCacheTTL, 2*catalogCacheTTL),
		log:     log,
	}
}

// Fetch builds the board for the signed-in user. Unauthenticated callers
// get ErrSignInRequired; the screen shows a blocking overlay instead of a
// partial grid.
func (d *Dex) Fetch(ctx context.Context) (*Board, error) {
	user, ok := d.session.Current()
	if !ok {
		return nil, common.ErrSignInRequired
	}

	var (
		characters []models.Character
		unlocks    []models.Unlock
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		characters, err = d.characters(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unlocks, err = d.store.ListUnlocks(gctx, user.UID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(unlocks))
	for _, u := range unlocks {
		counts[u.Character]++
	}

	board := &Board{
		Entries: make([]Entry, 0, len(characters)),
		Total:   len(characters),
	}
	for _, c := range characters {
		count := counts[c.Name]
		if count > 0 {
			board.Unlocked++
		}
		board.Entries = append(board.Entries, Entry{Character: c, Count: count})
	}
	return board, nil
}

func (d *Dex) characters(ctx context.Context) ([]models.Character, error) {
	if cached, ok := d.cache.Get(catalogCacheKey); ok {
		return cached.([]models.Character), nil
	}

	characters, err := d.catalog.Characters(ctx)
	if err != nil {
		return nil, err
	}
	d.cache.Set(catalogCacheKey, characters, cache.DefaultExpiration)
	return characters, nil
}
