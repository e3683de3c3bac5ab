package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/pillminder/internal/calendar"
	"github.com/teemow/pillminder/internal/tasks"
)

// fakeFactory counts client constructions and hands out shared fakes.
type fakeFactory struct {
	mu            sync.Mutex
	calendarCalls int
	tasksCalls    int
	tokens        []string

	cal *fakeCalendar
	tsk *fakeTasks
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{cal: &fakeCalendar{}, tsk: &fakeTasks{}}
}

func (f *fakeFactory) Calendar(_ context.Context, token *oauth2.Token) (CalendarService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendarCalls++
	f.tokens = append(f.tokens, token.AccessToken)
	return f.cal, nil
}

func (f *fakeFactory) Tasks(_ context.Context, token *oauth2.Token) (TasksService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasksCalls++
	f.tokens = append(f.tokens, token.AccessToken)
	return f.tsk, nil
}

func (f *fakeFactory) networkCalls() int {
	return f.calendarCalls + f.tasksCalls
}

type fakeCalendar struct {
	events    []calendar.EventSummary
	listErr   error
	listOpts  []calendar.ListOptions
	inserted  []calendar.EventInput
	insertErr func(n int) error
}

func (c *fakeCalendar) ListEvents(_ context.Context, opts calendar.ListOptions) ([]calendar.EventSummary, error) {
	c.listOpts = append(c.listOpts, opts)
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.events, nil
}

func (c *fakeCalendar) CreateEvent(_ context.Context, _ string, input calendar.EventInput) (*calendar.EventSummary, error) {
	n := len(c.inserted)
	c.inserted = append(c.inserted, input)
	if c.insertErr != nil {
		if err := c.insertErr(n); err != nil {
			return nil, err
		}
	}
	return &calendar.EventSummary{
		ID:          fmt.Sprintf("evt-%d", n+1),
		Summary:     input.Summary,
		Description: input.Description,
		Start:       input.Start,
		End:         input.End,
		TimeZone:    input.TimeZone,
	}, nil
}

type fakeTasks struct {
	items     []tasks.Task
	listOpts  []tasks.ListOptions
	inserted  []tasks.TaskInput
	createErr error
	completed []string
}

func (t *fakeTasks) ListTasks(_ context.Context, opts tasks.ListOptions) ([]tasks.Task, error) {
	t.listOpts = append(t.listOpts, opts)
	return t.items, nil
}

func (t *fakeTasks) CreateTask(_ context.Context, _ string, input tasks.TaskInput) (*tasks.Task, error) {
	t.inserted = append(t.inserted, input)
	if t.createErr != nil {
		return nil, t.createErr
	}
	task := &tasks.Task{ID: "task-1", Title: input.Title, Notes: input.Notes, Status: "needsAction"}
	if !input.Due.IsZero() {
		due := input.Due
		task.Due = &due
	}
	return task, nil
}

func (t *fakeTasks) CompleteTask(_ context.Context, _ string, taskID string) (*tasks.Task, error) {
	t.completed = append(t.completed, taskID)
	return &tasks.Task{ID: taskID, Status: "completed"}, nil
}

var errQuota = errors.New("googleapi: Error 403: Quota exceeded")
