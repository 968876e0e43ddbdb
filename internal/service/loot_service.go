package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"guild-loot/internal/metrics"
	"guild-loot/internal/model"
	"guild-loot/internal/repository"
	"guild-loot/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Broadcaster receives committed queue changes for live viewers.
type Broadcaster interface {
	BroadcastEvent(event *model.QueueEvent) error
}

// Outcome tells whether a mutation changed anything.
type Outcome int

const (
	Applied Outcome = iota
	Noop
)

func (o Outcome) String() string {
	if o == Noop {
		return "noop"
	}
	return "applied"
}

// Change is the result of a single queue mutation.
type Change struct {
	Item    model.Item
	Member  model.Member
	Outcome Outcome
	From    int // previous rank, 0 when the member was not queued
	To      int // new rank, 0 when the member left the queue
}

// LootService is the ranking engine and its read side. Every mutation runs in
// one database transaction and mutations are serialized by a service-wide
// lock, so a single LootService may be shared by concurrent callers. Two
// LootService values over the same database must not mutate concurrently.
type LootService struct {
	db      *gorm.DB
	items   *repository.ItemRepository
	members *repository.MemberRepository
	ranks   *repository.RankRepository

	hub     Broadcaster
	isAdmin func(externalID string) bool
	now     func() time.Time

	mu    sync.Mutex
	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*LootService)

// WithRand replaces the shuffle and raffle source.
func WithRand(rng *rand.Rand) Option {
	return func(s *LootService) { s.rng = rng }
}

func WithBroadcaster(hub Broadcaster) Option {
	return func(s *LootService) { s.hub = hub }
}

// WithAdminPolicy decides which platform ids are guild leadership. Admins get
// the admin role on join and go first in freshly seeded queues.
func WithAdminPolicy(isAdmin func(externalID string) bool) Option {
	return func(s *LootService) { s.isAdmin = isAdmin }
}

func NewLootService(db *gorm.DB, opts ...Option) *LootService {
	s := &LootService{
		db:      db,
		items:   repository.NewItemRepository(db),
		members: repository.NewMemberRepository(db),
		ranks:   repository.NewRankRepository(db),
		isAdmin: func(string) bool { return false },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s
}

type repos struct {
	items   *repository.ItemRepository
	members *repository.MemberRepository
	ranks   *repository.RankRepository
}

func (s *LootService) bind(tx *gorm.DB) repos {
	return repos{
		items:   s.items.WithTx(tx),
		members: s.members.WithTx(tx),
		ranks:   s.ranks.WithTx(tx),
	}
}

// inTx runs fn in one transaction; any error rolls everything back.
func (s *LootService) inTx(ctx context.Context, op string, fn func(r repos) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.bind(tx))
	})
	return classify(op, err)
}

func (s *LootService) reader(ctx context.Context) repos {
	return s.bind(s.db.WithContext(ctx))
}

func (s *LootService) resolve(r repos, fragment, externalID string) (*model.Item, *model.Member, error) {
	item, err := r.items.FindByFragment(fragment)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, &NotFoundError{Kind: "item", Ref: fragment}
	}
	member, err := r.members.FindByExternalID(externalID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil {
		return nil, nil, &NotFoundError{Kind: "member", Ref: externalID}
	}
	return item, member, nil
}

func (s *LootService) admin(m model.Member) bool {
	return m.IsAdmin() || s.isAdmin(m.ExternalID)
}

// seedOrder puts admins first in join order, then everyone else shuffled.
func (s *LootService) seedOrder(members []model.Member) []model.Member {
	var admins, others []model.Member
	for _, m := range members {
		if s.admin(m) {
			admins = append(admins, m)
		} else {
			others = append(others, m)
		}
	}
	s.rngMu.Lock()
	s.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	s.rngMu.Unlock()
	return append(admins, others...)
}

func (s *LootService) publish(event *model.QueueEvent) {
	if s.hub == nil {
		return
	}
	event.At = s.now()
	if err := s.hub.BroadcastEvent(event); err != nil {
		logger.L.Warn("Failed to broadcast queue event", zap.String("kind", string(event.Kind)), zap.Error(err))
	}
}

var rejected = []error{ErrNotFound, ErrDuplicateItem, ErrDuplicateMember, ErrOutOfRange, ErrInvalidArgument}

// AddItem starts tracking a new item and seeds its queue with the whole roster.
func (s *LootService) AddItem(ctx context.Context, name string) (*ItemQueue, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("item name is required: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var queue ItemQueue
	err := s.inTx(ctx, "add item", func(r repos) error {
		items, err := r.items.FindAll()
		if err != nil {
			return err
		}
		if existing := repository.MatchFragment(items, name); existing != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateItem, existing.Name)
		}

		item := model.Item{Name: name}
		if err := r.items.Create(&item); err != nil {
			return err
		}

		members, err := r.members.FindAll()
		if err != nil {
			return err
		}
		ordered := s.seedOrder(members)
		entries := make([]model.RankEntry, 0, len(ordered))
		standings := make([]Standing, 0, len(ordered))
		for i, m := range ordered {
			entries = append(entries, model.RankEntry{ItemID: item.ID, MemberID: m.ID, Rank: i + 1})
			standings = append(standings, Standing{Rank: i + 1, Member: m})
		}
		if err := r.ranks.CreateBatch(entries); err != nil {
			return err
		}

		queue = ItemQueue{Item: item, Standings: standings}
		return nil
	})
	metrics.ObserveOperation("add_item", err, rejected...)
	if err != nil {
		return nil, err
	}

	logger.L.Info("Item added", zap.Uint("itemID", queue.Item.ID), zap.String("name", queue.Item.Name), zap.Int("queued", len(queue.Standings)))
	s.publish(&model.QueueEvent{Kind: model.EventItemAdded, ItemID: queue.Item.ID, ItemName: queue.Item.Name})
	return &queue, nil
}

// DeleteItem drops the first item matching fragment and its whole queue.
func (s *LootService) DeleteItem(ctx context.Context, fragment string) (*model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted *model.Item
	err := s.inTx(ctx, "delete item", func(r repos) error {
		item, err := r.items.FindByFragment(fragment)
		if err != nil {
			return err
		}
		if item == nil {
			return &NotFoundError{Kind: "item", Ref: fragment}
		}
		if err := r.items.Delete(item); err != nil {
			return err
		}
		deleted = item
		return nil
	})
	metrics.ObserveOperation("delete_item", err, rejected...)
	if err != nil {
		return nil, err
	}

	logger.L.Info("Item deleted", zap.Uint("itemID", deleted.ID), zap.String("name", deleted.Name))
	s.publish(&model.QueueEvent{Kind: model.EventItemDeleted, ItemID: deleted.ID, ItemName: deleted.Name})
	return deleted, nil
}

// AddMember puts a new member on the roster and at the back of every queue.
// It returns the member and the number of queues joined. A blank name falls
// back to the external id.
func (s *LootService) AddMember(ctx context.Context, name, externalID string) (*model.Member, int, error) {
	name = strings.TrimSpace(name)
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, 0, fmt.Errorf("external id is required: %w", ErrInvalidArgument)
	}
	if name == "" {
		name = externalID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	member := model.Member{Name: name, ExternalID: externalID, Role: model.RoleMember}
	if s.isAdmin(externalID) {
		member.Role = model.RoleAdmin
	}
	joined := 0
	err := s.inTx(ctx, "add member", func(r repos) error {
		existing, err := r.members.FindByNameOrExternalID(name, externalID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s (id %s)", ErrDuplicateMember, existing.Name, existing.ExternalID)
		}
		if err := r.members.Create(&member); err != nil {
			return err
		}

		items, err := r.items.FindAll()
		if err != nil {
			return err
		}
		for _, item := range items {
			last, err := r.ranks.MaxRank(item.ID)
			if err != nil {
				return err
			}
			if err := r.ranks.Create(&model.RankEntry{ItemID: item.ID, MemberID: member.ID, Rank: last + 1}); err != nil {
				return err
			}
			joined++
		}
		return nil
	})
	metrics.ObserveOperation("add_member", err, rejected...)
	if err != nil {
		return nil, 0, err
	}

	logger.L.Info("Member added", zap.Uint("memberID", member.ID), zap.String("name", member.Name), zap.String("role", member.Role), zap.Int("queues", joined))
	s.publish(&model.QueueEvent{Kind: model.EventMemberJoined, MemberID: member.ID, MemberName: member.Name})
	return &member, joined, nil
}

// DeleteMember kicks a member and renumbers every queue it left.
func (s *LootService) DeleteMember(ctx context.Context, externalID string) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kicked *model.Member
	err := s.inTx(ctx, "delete member", func(r repos) error {
		member, err := r.members.FindByExternalID(externalID)
		if err != nil {
			return err
		}
		if member == nil {
			return &NotFoundError{Kind: "member", Ref: externalID}
		}
		if err := r.members.Delete(member); err != nil {
			return err
		}
		kicked = member
		return compactAll(r)
	})
	metrics.ObserveOperation("delete_member", err, rejected...)
	if err != nil {
		return nil, err
	}

	logger.L.Info("Member kicked", zap.Uint("memberID", kicked.ID), zap.String("name", kicked.Name))
	s.publish(&model.QueueEvent{Kind: model.EventMemberKicked, MemberID: kicked.ID, MemberName: kicked.Name})
	return kicked, nil
}

// compactAll renumbers every queue to 1..N keeping the relative order.
func compactAll(r repos) error {
	items, err := r.items.FindAll()
	if err != nil {
		return err
	}
	for _, item := range items {
		entries, err := r.ranks.ListByItem(item.ID)
		if err != nil {
			return err
		}
		for i := range entries {
			if entries[i].Rank == i+1 {
				continue
			}
			if err := r.ranks.SetRank(&entries[i], i+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// MovePosition puts the member at newRank in the item's queue, moving an
// existing entry or inserting a new one. newRank must lie in [1, N] where N is
// the queue length before the call.
func (s *LootService) MovePosition(ctx context.Context, fragment, externalID string, newRank int) (*Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var change Change
	err := s.inTx(ctx, "move position", func(r repos) error {
		item, member, err := s.resolve(r, fragment, externalID)
		if err != nil {
			return err
		}
		current, err := r.ranks.Find(item.ID, member.ID)
		if err != nil {
			return err
		}
		count, err := r.ranks.Count(item.ID)
		if err != nil {
			return err
		}
		if newRank < 1 || newRank > count {
			return &RangeError{Rank: newRank, Max: count}
		}

		change = Change{Item: *item, Member: *member, To: newRank}
		if current != nil {
			change.From = current.Rank
			if err := r.ranks.Delete(current); err != nil {
				return err
			}
			if err := r.ranks.ShiftDown(item.ID, current.Rank); err != nil {
				return err
			}
		}
		if err := r.ranks.ShiftUp(item.ID, newRank); err != nil {
			return err
		}
		return r.ranks.Create(&model.RankEntry{ItemID: item.ID, MemberID: member.ID, Rank: newRank})
	})
	metrics.ObserveOperation("move_position", err, rejected...)
	if err != nil {
		return nil, err
	}

	logger.L.Info("Member moved", zap.Uint("itemID", change.Item.ID), zap.Uint("memberID", change.Member.ID), zap.Int("from", change.From), zap.Int("to", change.To))
	s.publish(change.event(model.EventMemberMoved))
	return &change, nil
}

// PassItem takes the member out of the item's queue. Passing an item the
// member is not queued for is a Noop, not an error.
func (s *LootService) PassItem(ctx context.Context, fragment, externalID string) (*Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var change Change
	err := s.inTx(ctx, "pass item", func(r repos) error {
		item, member, err := s.resolve(r, fragment, externalID)
		if err != nil {
			return err
		}
		change = Change{Item: *item, Member: *member}
		current, err := r.ranks.Find(item.ID, member.ID)
		if err != nil {
			return err
		}
		if current == nil {
			change.Outcome = Noop
			return nil
		}

		change.From = current.Rank
		if err := r.ranks.Delete(current); err != nil {
			return err
		}
		return r.ranks.ShiftDown(item.ID, current.Rank)
	})
	metrics.ObserveOperation("pass_item", err, rejected...)
	if err != nil {
		return nil, err
	}

	if change.Outcome == Noop {
		logger.L.Debug("Pass ignored, member not queued", zap.Uint("itemID", change.Item.ID), zap.Uint("memberID", change.Member.ID))
		return &change, nil
	}
	logger.L.Info("Member passed", zap.Uint("itemID", change.Item.ID), zap.Uint("memberID", change.Member.ID), zap.Int("from", change.From))
	s.publish(change.event(model.EventMemberPassed))
	return &change, nil
}

// BindItem records that the member claimed the item: the member goes to the
// back of the item's queue.
func (s *LootService) BindItem(ctx context.Context, fragment, externalID string) (*Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var change Change
	err := s.inTx(ctx, "bind item", func(r repos) error {
		item, member, err := s.resolve(r, fragment, externalID)
		if err != nil {
			return err
		}
		current, err := r.ranks.Find(item.ID, member.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotQueued
		}
		count, err := r.ranks.Count(item.ID)
		if err != nil {
			return err
		}

		change = Change{Item: *item, Member: *member, From: current.Rank, To: count}
		if err := r.ranks.ShiftDown(item.ID, current.Rank); err != nil {
			return err
		}
		return r.ranks.SetRank(current, count)
	})
	metrics.ObserveOperation("bind_item", err, rejected...)
	if err != nil {
		return nil, err
	}

	logger.L.Info("Item bound", zap.Uint("itemID", change.Item.ID), zap.Uint("memberID", change.Member.ID), zap.Int("from", change.From), zap.Int("to", change.To))
	s.publish(change.event(model.EventItemBound))
	return &change, nil
}

func (c *Change) event(kind model.QueueEventKind) *model.QueueEvent {
	return &model.QueueEvent{
		Kind:       kind,
		ItemID:     c.Item.ID,
		ItemName:   c.Item.Name,
		MemberID:   c.Member.ID,
		MemberName: c.Member.Name,
		From:       c.From,
		To:         c.To,
	}
}
