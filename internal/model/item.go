package model

import "time"

// Item is a tracked piece of loot with its own priority queue.
type Item struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time

	Entries []RankEntry `gorm:"foreignKey:ItemID"`
}
