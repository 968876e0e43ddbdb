package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Member struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex:idx_member_name"`
	// ExternalID is the chat platform user id, kept opaque.
	ExternalID string `gorm:"type:varchar(100);not null;uniqueIndex:idx_member_external_id"`
	Role       string `gorm:"type:varchar(20);not null;default:'member'"` // 'admin' or 'member'
	CreatedAt  time.Time

	Entries []RankEntry `gorm:"foreignKey:MemberID"`
}

func (m Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}
