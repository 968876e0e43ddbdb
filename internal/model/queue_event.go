package model

import "time"

type QueueEventKind string

const (
	EventItemAdded    QueueEventKind = "item_added"
	EventItemDeleted  QueueEventKind = "item_deleted"
	EventMemberJoined QueueEventKind = "member_joined"
	EventMemberKicked QueueEventKind = "member_kicked"
	EventMemberMoved  QueueEventKind = "member_moved"
	EventMemberPassed QueueEventKind = "member_passed"
	EventItemBound    QueueEventKind = "item_bound"
)

// QueueEvent describes a committed queue change. It is pushed to live board
// viewers and never persisted.
type QueueEvent struct {
	Kind       QueueEventKind `json:"kind"`
	ItemID     uint           `json:"item_id,omitempty"`
	ItemName   string         `json:"item_name,omitempty"`
	MemberID   uint           `json:"member_id,omitempty"`
	MemberName string         `json:"member_name,omitempty"`
	From       int            `json:"from,omitempty"`
	To         int            `json:"to,omitempty"`
	At         time.Time      `json:"at"`
}
