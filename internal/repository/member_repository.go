package repository

import (
	"errors"

	"guild-loot/internal/model"

	"gorm.io/gorm"
)

// MemberRepository persists the guild roster.
type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) WithTx(tx *gorm.DB) *MemberRepository {
	return &MemberRepository{db: tx}
}

func (r *MemberRepository) Create(member *model.Member) error {
	if member.Role == "" {
		member.Role = model.RoleMember
	}
	return r.db.Create(member).Error
}

func (r *MemberRepository) FindByID(id uint) (*model.Member, error) {
	var member model.Member
	if err := r.db.First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// FindByExternalID looks a member up by chat platform user id.
func (r *MemberRepository) FindByExternalID(externalID string) (*model.Member, error) {
	var member model.Member
	if err := r.db.Where("external_id = ?", externalID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// FindByNameOrExternalID returns the first member clashing with either unique field.
func (r *MemberRepository) FindByNameOrExternalID(name, externalID string) (*model.Member, error) {
	var member model.Member
	err := r.db.Where("name = ? OR external_id = ?", name, externalID).Order("id").First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// FindAll returns the roster in join order.
func (r *MemberRepository) FindAll() ([]model.Member, error) {
	var members []model.Member
	err := r.db.Order("id").Find(&members).Error
	return members, err
}

// Delete removes the member and every queue entry it holds. Queues are left
// with gaps; the caller renumbers them in the same transaction.
func (r *MemberRepository) Delete(member *model.Member) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ?", member.ID).Delete(&model.RankEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(member).Error
	})
}
