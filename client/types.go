package client

import "time"

// Task is a unit of work in the ERP tasks module.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Assignee    string     `json:"assignee,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskPage is one page of GET /tasks. NextPage is zero on the last page.
type TaskPage struct {
	Items    []Task `json:"items"`
	NextPage int    `json:"next_page,omitempty"`
}

// TaskFilter narrows a task listing. Zero values are omitted from the query.
type TaskFilter struct {
	Status   string
	Assignee string
	Page     int
	PageSize int
}

type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Attachment struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}
