package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ListTasks fetches one page of tasks.
func (c *Client) ListTasks(ctx context.Context, f TaskFilter) (TaskPage, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Assignee != "" {
		q.Set("assignee", f.Assignee)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}

	var page TaskPage
	if _, err := c.getJSON(ctx, c.endpoint(q, "tasks"), &page); err != nil {
		return TaskPage{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	log.Debug().Int("count", len(page.Items)).Int("next_page", page.NextPage).Msg("Fetched task page")
	return page, nil
}

// GetTask fetches one task. It returns the parsed task and the raw JSON document.
func (c *Client) GetTask(ctx context.Context, id string) (Task, string, error) {
	var task Task
	raw, err := c.getJSON(ctx, c.endpoint(nil, "tasks", id), &task)
	if err != nil {
		return Task{}, string(raw), fmt.Errorf("failed to fetch task %s: %w", id, err)
	}
	return task, string(raw), nil
}

func (c *Client) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	var comments []Comment
	if _, err := c.getJSON(ctx, c.endpoint(nil, "tasks", taskID, "comments"), &comments); err != nil {
		return nil, fmt.Errorf("failed to list comments for task %s: %w", taskID, err)
	}
	return comments, nil
}

// AddComment posts a comment and returns it as stored by the server.
func (c *Client) AddComment(ctx context.Context, taskID, body string) (Comment, error) {
	payload := struct {
		Body string `json:"body"`
	}{Body: body}

	req, err := newRequest(ctx, http.MethodPost, c.endpoint(nil, "tasks", taskID, "comments"), payload)
	if err != nil {
		return Comment{}, err
	}
	resp, err := c.send(req)
	if err != nil {
		return Comment{}, fmt.Errorf("failed to add comment to task %s: %w", taskID, err)
	}
	raw, err := readResponseBody(resp)
	if err != nil {
		return Comment{}, err
	}

	var comment Comment
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &comment); err != nil {
			return Comment{}, fmt.Errorf("failed to parse created comment: %w", err)
		}
	}
	if comment.TaskID == "" {
		comment.TaskID = taskID
	}
	log.Info().Str("task", taskID).Str("comment", comment.ID).Msg("Comment added")
	return comment, nil
}

func (c *Client) ListAttachments(ctx context.Context, taskID string) ([]Attachment, error) {
	var atts []Attachment
	if _, err := c.getJSON(ctx, c.endpoint(nil, "tasks", taskID, "attachments"), &atts); err != nil {
		return nil, fmt.Errorf("failed to list attachments for task %s: %w", taskID, err)
	}
	for i := range atts {
		if atts[i].TaskID == "" {
			atts[i].TaskID = taskID
		}
	}
	return atts, nil
}
