package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLootService_ListAll(t *testing.T) {
	s, _ := setupLootService(t)
	ctx := context.Background()
	queueWith(t, s, "Thunderfury", "Alice", "Bob")
	_, err := s.AddItem(ctx, "Ashkandi")
	require.NoError(t, err)

	var names []string
	for q, err := range s.ListAll(ctx) {
		require.NoError(t, err)
		names = append(names, q.Item.Name)
		assert.Len(t, q.Standings, 2)
	}
	assert.Equal(t, []string{"Thunderfury", "Ashkandi"}, names)

	// stopping early and ranging again both work
	seq := s.ListAll(ctx)
	for q := range seq {
		assert.Equal(t, "Thunderfury", q.Item.Name)
		break
	}
	count := 0
	for range seq {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestLootService_ListAll_Empty(t *testing.T) {
	s, _ := setupLootService(t)
	for range s.ListAll(context.Background()) {
		t.Fatal("no items expected")
	}
}

func TestLootService_ListForItem_NotFound(t *testing.T) {
	s, _ := setupLootService(t)
	_, err := s.ListForItem(context.Background(), "sulfuras")
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "item", nf.Kind)
}

func TestLootService_ListForMember(t *testing.T) {
	s, _ := setupLootService(t)
	ctx := context.Background()
	queueWith(t, s, "Thunderfury", "Alice", "Bob", "Carol")
	_, err := s.AddItem(ctx, "Ashkandi")
	require.NoError(t, err)
	_, err = s.PassItem(ctx, "thunder", extID("Carol"))
	require.NoError(t, err)

	loot, err := s.ListForMember(ctx, extID("Bob"))
	require.NoError(t, err)
	assert.Equal(t, "Bob", loot.Member.Name)
	require.Len(t, loot.Standings, 2)
	assert.Equal(t, "Thunderfury", loot.Standings[0].Item.Name)
	assert.Equal(t, 2, loot.Standings[0].Rank)
	assert.Equal(t, 2, loot.Standings[0].Total)
	assert.Equal(t, "Ashkandi", loot.Standings[1].Item.Name)
	assert.Equal(t, 3, loot.Standings[1].Total)

	loot, err = s.ListForMember(ctx, extID("Carol"))
	require.NoError(t, err)
	require.Len(t, loot.Standings, 1)
	assert.Equal(t, "Ashkandi", loot.Standings[0].Item.Name)

	_, err = s.ListForMember(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLootService_Raffle(t *testing.T) {
	s, _ := setupLootService(t)
	ctx := context.Background()

	_, err := s.Raffle(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	addMembers(t, s, "Alice", "Bob", "Carol")
	seen := map[string]bool{}
	for range 50 {
		winner, err := s.Raffle(ctx)
		require.NoError(t, err)
		seen[winner.Name] = true
	}
	assert.Subset(t, []string{"Alice", "Bob", "Carol"}, keys(seen))
	assert.Greater(t, len(seen), 1)
}

func TestLootService_Roll(t *testing.T) {
	s, _ := setupLootService(t)
	for range 200 {
		n := s.Roll()
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 100)
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
