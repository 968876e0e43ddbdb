package repository

import (
	"errors"

	"guild-loot/internal/model"

	"gorm.io/gorm"
)

// RankRepository stores queue positions. It has no opinion on ranking rules;
// the loot service keeps every queue dense.
type RankRepository struct {
	db *gorm.DB
}

func NewRankRepository(db *gorm.DB) *RankRepository {
	return &RankRepository{db: db}
}

func (r *RankRepository) WithTx(tx *gorm.DB) *RankRepository {
	return &RankRepository{db: tx}
}

// Find returns the member's entry in the item's queue, or nil.
func (r *RankRepository) Find(itemID, memberID uint) (*model.RankEntry, error) {
	var entry model.RankEntry
	err := r.db.Where("item_id = ? AND member_id = ?", itemID, memberID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *RankRepository) Count(itemID uint) (int, error) {
	var n int64
	err := r.db.Model(&model.RankEntry{}).Where("item_id = ?", itemID).Count(&n).Error
	return int(n), err
}

// MaxRank returns the highest rank in the item's queue, 0 when it is empty.
func (r *RankRepository) MaxRank(itemID uint) (int, error) {
	var top int
	err := r.db.Model(&model.RankEntry{}).
		Where("item_id = ?", itemID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&top).Error
	return top, err
}

// ListByItem returns the queue of an item ordered by rank with members preloaded.
func (r *RankRepository) ListByItem(itemID uint) ([]model.RankEntry, error) {
	var entries []model.RankEntry
	err := r.db.Preload("Member").
		Where("item_id = ?", itemID).
		Order("position").Order("id").
		Find(&entries).Error
	return entries, err
}

// ListByMember returns every entry a member holds, items preloaded, in item creation order.
func (r *RankRepository) ListByMember(memberID uint) ([]model.RankEntry, error) {
	var entries []model.RankEntry
	err := r.db.Preload("Item").
		Where("member_id = ?", memberID).
		Order("item_id").
		Find(&entries).Error
	return entries, err
}

// CountByItems returns queue sizes keyed by item id.
func (r *RankRepository) CountByItems(itemIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ItemID uint
		Total  int
	}
	err := r.db.Model(&model.RankEntry{}).
		Select("item_id, COUNT(*) AS total").
		Where("item_id IN ?", itemIDs).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ItemID] = row.Total
	}
	return counts, nil
}

// ShiftDown closes the gap left at rank above: every rank > above moves up one place.
func (r *RankRepository) ShiftDown(itemID uint, above int) error {
	return r.db.Model(&model.RankEntry{}).
		Where("item_id = ? AND position > ?", itemID, above).
		UpdateColumn("position", gorm.Expr("position - 1")).Error
}

// ShiftUp opens a slot at rank from: every rank >= from moves down one place.
func (r *RankRepository) ShiftUp(itemID uint, from int) error {
	return r.db.Model(&model.RankEntry{}).
		Where("item_id = ? AND position >= ?", itemID, from).
		UpdateColumn("position", gorm.Expr("position + 1")).Error
}

func (r *RankRepository) Create(entry *model.RankEntry) error {
	return r.db.Create(entry).Error
}

func (r *RankRepository) CreateBatch(entries []model.RankEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.CreateInBatches(entries, 100).Error
}

func (r *RankRepository) Delete(entry *model.RankEntry) error {
	return r.db.Delete(entry).Error
}

func (r *RankRepository) SetRank(entry *model.RankEntry, rank int) error {
	if err := r.db.Model(entry).UpdateColumn("position", rank).Error; err != nil {
		return err
	}
	entry.Rank = rank
	return nil
}
