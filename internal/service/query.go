package service

import (
	"context"
	"iter"

	"guild-loot/internal/model"
)

// Standing is one place in an item's queue.
type Standing struct {
	Rank   int
	Member model.Member
}

// ItemQueue is an item with its queue ordered by rank.
type ItemQueue struct {
	Item      model.Item
	Standings []Standing
}

// MemberStanding is a member's place in one item's queue.
type MemberStanding struct {
	Item  model.Item
	Rank  int
	Total int
}

// MemberLoot is every queue a member is in.
type MemberLoot struct {
	Member    model.Member
	Standings []MemberStanding
}

func standings(entries []model.RankEntry) []Standing {
	out := make([]Standing, 0, len(entries))
	for _, e := range entries {
		out = append(out, Standing{Rank: e.Rank, Member: e.Member})
	}
	return out
}

// ListAll yields every item in creation order with its queue. Each queue is
// read when the consumer asks for it; ranging over the result again starts a
// fresh read. On a store failure the error is yielded once and the sequence
// stops.
func (s *LootService) ListAll(ctx context.Context) iter.Seq2[ItemQueue, error] {
	return func(yield func(ItemQueue, error) bool) {
		r := s.reader(ctx)
		items, err := r.items.FindAll()
		if err != nil {
			yield(ItemQueue{}, storeFailure("list items", err))
			return
		}
		for _, item := range items {
			entries, err := r.ranks.ListByItem(item.ID)
			if err != nil {
				yield(ItemQueue{Item: item}, storeFailure("list queue", err))
				return
			}
			if !yield(ItemQueue{Item: item, Standings: standings(entries)}, nil) {
				return
			}
		}
	}
}

// ListForItem returns the queue of the first item matching fragment.
func (s *LootService) ListForItem(ctx context.Context, fragment string) (*ItemQueue, error) {
	r := s.reader(ctx)
	item, err := r.items.FindByFragment(fragment)
	if err != nil {
		return nil, storeFailure("find item", err)
	}
	if item == nil {
		return nil, &NotFoundError{Kind: "item", Ref: fragment}
	}
	entries, err := r.ranks.ListByItem(item.ID)
	if err != nil {
		return nil, storeFailure("list queue", err)
	}
	return &ItemQueue{Item: *item, Standings: standings(entries)}, nil
}

// ListForMember returns the member's rank in every queue it is part of.
func (s *LootService) ListForMember(ctx context.Context, externalID string) (*MemberLoot, error) {
	r := s.reader(ctx)
	member, err := r.members.FindByExternalID(externalID)
	if err != nil {
		return nil, storeFailure("find member", err)
	}
	if member == nil {
		return nil, &NotFoundError{Kind: "member", Ref: externalID}
	}
	entries, err := r.ranks.ListByMember(member.ID)
	if err != nil {
		return nil, storeFailure("list member entries", err)
	}

	itemIDs := make([]uint, 0, len(entries))
	for _, e := range entries {
		itemIDs = append(itemIDs, e.ItemID)
	}
	totals, err := r.ranks.CountByItems(itemIDs)
	if err != nil {
		return nil, storeFailure("count queues", err)
	}

	loot := &MemberLoot{Member: *member, Standings: make([]MemberStanding, 0, len(entries))}
	for _, e := range entries {
		loot.Standings = append(loot.Standings, MemberStanding{Item: e.Item, Rank: e.Rank, Total: totals[e.ItemID]})
	}
	return loot, nil
}

// Roster returns all members in join order.
func (s *LootService) Roster(ctx context.Context) ([]model.Member, error) {
	members, err := s.reader(ctx).members.FindAll()
	if err != nil {
		return nil, storeFailure("list members", err)
	}
	return members, nil
}

// Raffle draws one member uniformly at random.
func (s *LootService) Raffle(ctx context.Context) (*model.Member, error) {
	members, err := s.Roster(ctx)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, &NotFoundError{Kind: "member", Ref: "*"}
	}
	s.rngMu.Lock()
	winner := members[s.rng.IntN(len(members))]
	s.rngMu.Unlock()
	return &winner, nil
}

// Roll returns a dice roll between 1 and 100.
func (s *LootService) Roll() int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntN(100) + 1
}
