package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/common"
)

type fakeCatalog struct {
	Ret   []models.Character
	Err   error
	calls int
}

func (f *fakeCatalog) Characters(ctx context.Context) ([]models.Character, error) {
	f.calls++
	return f.Ret, f.Err
}

type fakeDexStore struct {
	Ret     []models.Unlock
	Err     error
	LastUID string
}

func (f *fakeDexStore) ListUnlocks(ctx context.Context, uid string) ([]models.Unlock, error) {
	f.LastUID = uid
	return f.Ret, f.Err
}

func TestDexRequiresSession(t *testing.T) {
	dex := NewDex(&fakeCatalog{}, &fakeDexStore{}, &fakeSession{}, testLogger())

	_, err := dex.Fetch(context.Background())
	require.ErrorIs(t, err, common.ErrSignInRequired)
}

func TestDexBoardCountsAndProgress(t *testing.T) {
	catalog := &fakeCatalog{Ret: []models.Character{
		{Name: "Rem"}, {Name: "Ram"}, {Name: "Emilia"}, {Name: "Beatrice"},
	}}
	store := &fakeDexStore{Ret: []models.Unlock{
		{ID: "1", UserID: "u1", Character: "Rem"},
		{ID: "2", UserID: "u1", Character: "Rem"},
		{ID: "3", UserID: "u1", Character: "Emilia"},
	}}
	dex := NewDex(catalog, store, signedIn("u1"), testLogger())

	board, err := dex.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "u1", store.LastUID)
	assert.Equal(t, 4, board.Total)
	assert.Equal(t, 2, board.Unlocked)
	assert.InDelta(t, 0.5, board.Progress(), 1e-9)

	require.Len(t, board.Entries, 4)
	assert.Equal(t, 2, board.Entries[0].Count)
	assert.Equal(t, 0, board.Entries[1].Count)
	assert.Equal(t, 1, board.Entries[2].Count)
}

func TestDexEmptyCatalogProgressZero(t *testing.T) {
	dex := NewDex(&fakeCatalog{}, &fakeDexStore{}, signedIn("u1"), testLogger())

	board, err := dex.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, board.Progress())
}

func TestDexCatalogCachedAcrossFetches(t *testing.T) {
	catalog := &fakeCatalog{Ret: []models.Character{{Name: "Rem"}}}
	dex := NewDex(catalog, &fakeDexStore{}, signedIn("u1"), testLogger())

	_, err := dex.Fetch(context.Background())
	require.NoError(t, err)
	_, err = dex.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.calls)
}

func TestDexSurfacesFetchErrors(t *testing.T) {
	wantErr := errors.New("store down")
	dex := NewDex(&fakeCatalog{}, &fakeDexStore{Err: wantErr}, signedIn("u1"), testLogger())

	_, err := dex.Fetch(context.Background())
	require.ErrorIs(t, err, wantErr)
}
