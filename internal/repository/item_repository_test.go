package repository

import (
	"path/filepath"
	"testing"

	"guild-loot/internal/model"
	"guild-loot/pkg/config"
	"guild-loot/pkg/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Test Setup ---

// setupTestDB opens a fresh migrated sqlite database for one test.
func setupTestDB(t *testing.T) *gorm.DB {
	conn, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "loot.db")})
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { _ = db.Close(conn) })
	return conn
}

func createItem(t *testing.T, repo *ItemRepository, name string) *model.Item {
	item := &model.Item{Name: name}
	require.NoError(t, repo.Create(item))
	require.NotZero(t, item.ID)
	return item
}

// --- Tests ---

func TestItemRepository_CreateAndFind(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))

	item := createItem(t, repo, "Thunderfury")

	found, err := repo.FindByID(item.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Thunderfury", found.Name)

	missing, err := repo.FindByID(item.ID + 100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestItemRepository_FindAllKeepsCreationOrder(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	for _, name := range []string{"Sulfuras", "Ashkandi", "Thunderfury"} {
		createItem(t, repo, name)
	}

	items, err := repo.FindAll()
	require.NoError(t, err)
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Sulfuras", "Ashkandi", "Thunderfury"}, names)
}

func TestMatchFragment(t *testing.T) {
	items := []model.Item{
		{ID: 1, Name: "Thunderfury, Blessed Blade"},
		{ID: 2, Name: "Thunder Lizard Hide"},
		{ID: 3, Name: "Épée de Lumière"},
	}

	tests := []struct {
		name     string
		fragment string
		wantID   uint
	}{
		{name: "case insensitive", fragment: "THUNDERFURY", wantID: 1},
		{name: "first in creation order wins", fragment: "thunder", wantID: 1},
		{name: "later item", fragment: "lizard", wantID: 2},
		{name: "surrounding spaces", fragment: "  hide ", wantID: 2},
		{name: "non ascii folds", fragment: "épée", wantID: 3},
		{name: "decomposed accents", fragment: "E\u0301PE\u0301E", wantID: 3},
		{name: "no match", fragment: "sulfuras"},
		{name: "blank", fragment: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchFragment(items, tt.fragment)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestItemRepository_FindByFragment(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))
	createItem(t, repo, "Ashkandi")
	createItem(t, repo, "Thunderfury")

	item, err := repo.FindByFragment("fury")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Thunderfury", item.Name)

	item, err = repo.FindByFragment("sulfuras")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestItemRepository_DeleteRemovesQueue(t *testing.T) {
	conn := setupTestDB(t)
	items := NewItemRepository(conn)
	members := NewMemberRepository(conn)
	ranks := NewRankRepository(conn)

	kept := createItem(t, items, "Ashkandi")
	doomed := createItem(t, items, "Thunderfury")
	alice := createMember(t, members, "Alice", "1")
	require.NoError(t, ranks.Create(&model.RankEntry{ItemID: kept.ID, MemberID: alice.ID, Rank: 1}))
	require.NoError(t, ranks.Create(&model.RankEntry{ItemID: doomed.ID, MemberID: alice.ID, Rank: 1}))

	require.NoError(t, items.Delete(doomed))

	gone, err := items.FindByID(doomed.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	n, err := ranks.Count(doomed.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = ranks.Count(kept.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestItemRepository_WithTxRollsBack(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewItemRepository(conn)

	err := conn.Transaction(func(tx *gorm.DB) error {
		createItem(t, repo.WithTx(tx), "Thunderfury")
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	items, err := repo.FindAll()
	require.NoError(t, err)
	assert.Empty(t, items)
}
