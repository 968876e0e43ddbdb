package repository

import (
	"errors"
	"strings"

	"guild-loot/internal/model"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// ItemRepository persists tracked loot items.
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// WithTx returns a copy bound to tx so several repositories can share one transaction.
func (r *ItemRepository) WithTx(tx *gorm.DB) *ItemRepository {
	return &ItemRepository{db: tx}
}

func (r *ItemRepository) Create(item *model.Item) error {
	return r.db.Create(item).Error
}

func (r *ItemRepository) FindByID(id uint) (*model.Item, error) {
	var item model.Item
	if err := r.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// FindAll returns every item in creation order.
func (r *ItemRepository) FindAll() ([]model.Item, error) {
	var items []model.Item
	err := r.db.Order("id").Find(&items).Error
	return items, err
}

// FindByFragment returns the first item, in creation order, whose name contains
// fragment case-insensitively. The match runs in Go so non-ASCII names fold
// the same way on every driver.
func (r *ItemRepository) FindByFragment(fragment string) (*model.Item, error) {
	items, err := r.FindAll()
	if err != nil {
		return nil, err
	}
	if item := MatchFragment(items, fragment); item != nil {
		return item, nil
	}
	return nil, nil
}

// MatchFragment picks the first of items whose name contains fragment under
// Unicode case folding. items must already be in creation order.
func MatchFragment(items []model.Item, fragment string) *model.Item {
	needle := fold(strings.TrimSpace(fragment))
	if needle == "" {
		return nil
	}
	for i := range items {
		if strings.Contains(fold(items[i].Name), needle) {
			return &items[i]
		}
	}
	return nil
}

// fold normalizes to NFC first so composed and decomposed accents compare equal.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Delete removes the item together with its whole queue.
func (r *ItemRepository) Delete(item *model.Item) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", item.ID).Delete(&model.RankEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
}
