package gateway

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/pillminder/internal/calendar"
	"github.com/teemow/pillminder/internal/google"
	"github.com/teemow/pillminder/internal/tasks"
)

// CalendarService is the calendar surface the gateway uses.
type CalendarService interface {
	ListEvents(ctx context.Context, opts calendar.ListOptions) ([]calendar.EventSummary, error)
	CreateEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.EventSummary, error)
}

// TasksService is the task-list surface the gateway uses.
type TasksService interface {
	ListTasks(ctx context.Context, opts tasks.ListOptions) ([]tasks.Task, error)
	CreateTask(ctx context.Context, taskListID string, input tasks.TaskInput) (*tasks.Task, error)
	CompleteTask(ctx context.Context, taskListID, taskID string) (*tasks.Task, error)
}

// ClientFactory builds provider clients scoped to one caller's token.
type ClientFactory interface {
	Calendar(ctx context.Context, token *oauth2.Token) (CalendarService, error)
	Tasks(ctx context.Context, token *oauth2.Token) (TasksService, error)
}

// GoogleFactory builds real Google API clients, one per call.
type GoogleFactory struct {
	oauthConfig *oauth2.Config
	opts        []option.ClientOption
}

// NewGoogleFactory creates a factory. With a non-nil oauthConfig, tokens
// that carry a refresh token are refreshed transparently. opts are passed
// to every client (tests use option.WithEndpoint).
func NewGoogleFactory(oauthConfig *oauth2.Config, opts ...option.ClientOption) *GoogleFactory {
	return &GoogleFactory{oauthConfig: oauthConfig, opts: opts}
}

func (f *GoogleFactory) Calendar(ctx context.Context, token *oauth2.Token) (CalendarService, error) {
	return calendar.NewClient(ctx, google.TokenSource(ctx, f.oauthConfig, token), f.opts...)
}

func (f *GoogleFactory) Tasks(ctx context.Context, token *oauth2.Token) (TasksService, error) {
	return tasks.NewClient(ctx, google.TokenSource(ctx, f.oauthConfig, token), f.opts...)
}
