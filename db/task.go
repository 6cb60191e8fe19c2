package db

import "time"

// Task is a cached copy of a task fetched from the API.
type Task struct {
	ID       string     `gorm:"primaryKey" json:"id"`
	Title    string     `gorm:"index" json:"title"`
	Status   string     `gorm:"index" json:"status"`
	Assignee string     `json:"assignee"`
	DueAt    *time.Time `json:"due_at,omitempty"`
	Data     string     `json:"data"` // raw JSON as returned by the API
	SyncedAt time.Time  `json:"synced_at"`
}
