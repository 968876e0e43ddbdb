package model

// RankEntry is one member's place in one item's queue. For a given item the
// ranks are always exactly 1..N.
type RankEntry struct {
	ID       uint `gorm:"primaryKey"`
	ItemID   uint `gorm:"not null;uniqueIndex:idx_rank_item_member;index:idx_rank_item_position,priority:1"`
	MemberID uint `gorm:"not null;uniqueIndex:idx_rank_item_member;index"`
	// stored as "position": RANK is reserved in MySQL 8
	Rank int `gorm:"column:position;not null;index:idx_rank_item_position,priority:2"`

	Item   Item   `gorm:"foreignKey:ItemID"`
	Member Member `gorm:"foreignKey:MemberID"`
}
