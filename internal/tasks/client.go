package tasks

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/pillminder/internal/google"
)

// DefaultTaskListID is the user's default task list.
const DefaultTaskListID = "@default"

// Client wraps the Google Tasks service
type Client struct {
	svc *tasks.Service
}

// NewClient creates a Tasks client that authorises requests with ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	clientOpts := append([]option.ClientOption{
		option.WithHTTPClient(google.NewHTTPClient(ctx, ts)),
	}, opts...)

	svc, err := tasks.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// ListOptions filters a task listing.
// DueMin and DueMax are ignored when zero.
type ListOptions struct {
	TaskListID    string
	ShowCompleted bool
	DueMin        time.Time
	DueMax        time.Time
	MaxResults    int64
}

// ListTasks lists tasks in a task list
func (c *Client) ListTasks(ctx context.Context, opts ListOptions) ([]Task, error) {
	taskListID := opts.TaskListID
	if taskListID == "" {
		taskListID = DefaultTaskListID
	}

	call := c.svc.Tasks.List(taskListID).
		ShowCompleted(opts.ShowCompleted).
		Context(ctx)

	if !opts.DueMin.IsZero() {
		call = call.DueMin(opts.DueMin.Format(time.RFC3339))
	}
	if !opts.DueMax.IsZero() {
		call = call.DueMax(opts.DueMax.Format(time.RFC3339))
	}
	if opts.MaxResults > 0 {
		call = call.MaxResults(opts.MaxResults)
	}

	result, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	taskList := make([]Task, 0, len(result.Items))
	for _, t := range result.Items {
		taskList = append(taskList, toTask(t))
	}

	return taskList, nil
}

// CreateTask creates a new task. The Tasks API stores only the date part of
// Due; the time of day is discarded upstream.
func (c *Client) CreateTask(ctx context.Context, taskListID string, input TaskInput) (*Task, error) {
	if taskListID == "" {
		taskListID = DefaultTaskListID
	}

	t := &tasks.Task{
		Title: input.Title,
		Notes: input.Notes,
	}

	if !input.Due.IsZero() {
		t.Due = input.Due.UTC().Format(time.RFC3339)
	}

	created, err := c.svc.Tasks.Insert(taskListID, t).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	result := toTask(created)
	return &result, nil
}

// CompleteTask marks a task as completed
func (c *Client) CompleteTask(ctx context.Context, taskListID, taskID string) (*Task, error) {
	if taskListID == "" {
		taskListID = DefaultTaskListID
	}

	completedTime := time.Now().UTC().Format(time.RFC3339)
	patch := &tasks.Task{
		Status:    "completed",
		Completed: &completedTime,
	}

	updated, err := c.svc.Tasks.Patch(taskListID, taskID, patch).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	result := toTask(updated)
	return &result, nil
}
