package tasks

import (
	"time"

	tasks "google.golang.org/api/tasks/v1"
)

// Task represents a Google Tasks task
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Status    string     `json:"status"` // "needsAction" or "completed"
	Due       *time.Time `json:"due,omitempty"`
	Completed *time.Time `json:"completed,omitempty"`
	WebLink   string     `json:"webLink,omitempty"`
}

// TaskInput represents the input for creating a task
type TaskInput struct {
	Title string
	Notes string
	Due   time.Time
}

// toTask converts a Google Tasks Task to our Task type
func toTask(t *tasks.Task) Task {
	if t == nil {
		return Task{}
	}

	result := Task{
		ID:      t.Id,
		Title:   t.Title,
		Notes:   t.Notes,
		Status:  t.Status,
		WebLink: t.WebViewLink,
	}

	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			result.Due = &due
		}
	}

	if t.Completed != nil && *t.Completed != "" {
		if completed, err := time.Parse(time.RFC3339, *t.Completed); err == nil {
			result.Completed = &completed
		}
	}

	return result
}
