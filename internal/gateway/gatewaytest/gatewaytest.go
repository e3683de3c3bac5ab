// Package gatewaytest provides an in-memory Google backend for tests of
// packages built on the gateway.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/pillminder/internal/calendar"
	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/tasks"
)

// Google implements gateway.ClientFactory and both provider services in
// memory. The zero value is ready to use.
type Google struct {
	mu     sync.Mutex
	events []calendar.EventSummary
	tasks  []tasks.Task
	tokens []string

	// EventErr, when set, fails every CreateEvent call.
	EventErr error
	// ListErr, when set, fails every list call.
	ListErr error
}

var (
	_ gateway.ClientFactory   = (*Google)(nil)
	_ gateway.CalendarService = (*Google)(nil)
	_ gateway.TasksService    = (*Google)(nil)
)

func (g *Google) Calendar(_ context.Context, token *oauth2.Token) (gateway.CalendarService, error) {
	g.recordToken(token)
	return g, nil
}

func (g *Google) Tasks(_ context.Context, token *oauth2.Token) (gateway.TasksService, error) {
	g.recordToken(token)
	return g, nil
}

func (g *Google) recordToken(token *oauth2.Token) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = append(g.tokens, token.AccessToken)
}

func (g *Google) ListEvents(context.Context, calendar.ListOptions) ([]calendar.EventSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	return append([]calendar.EventSummary(nil), g.events...), nil
}

func (g *Google) CreateEvent(_ context.Context, _ string, input calendar.EventInput) (*calendar.EventSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.EventErr != nil {
		return nil, g.EventErr
	}
	ev := calendar.EventSummary{
		ID:          fmt.Sprintf("evt-%d", len(g.events)+1),
		Summary:     input.Summary,
		Description: input.Description,
		Start:       input.Start,
		End:         input.End,
		TimeZone:    input.TimeZone,
		Status:      "confirmed",
	}
	g.events = append(g.events, ev)
	return &ev, nil
}

func (g *Google) ListTasks(context.Context, tasks.ListOptions) ([]tasks.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	return append([]tasks.Task(nil), g.tasks...), nil
}

func (g *Google) CreateTask(_ context.Context, _ string, input tasks.TaskInput) (*tasks.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := tasks.Task{
		ID:     fmt.Sprintf("task-%d", len(g.tasks)+1),
		Title:  input.Title,
		Notes:  input.Notes,
		Status: "needsAction",
	}
	if !input.Due.IsZero() {
		due := input.Due
		t.Due = &due
	}
	g.tasks = append(g.tasks, t)
	return &t, nil
}

func (g *Google) CompleteTask(_ context.Context, _ string, taskID string) (*tasks.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.tasks {
		if g.tasks[i].ID == taskID {
			g.tasks[i].Status = "completed"
			t := g.tasks[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("googleapi: Error 404: task %s not found", taskID)
}

// AddEvent seeds an event as if it had been created outside the app.
func (g *Google) AddEvent(ev calendar.EventSummary) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, ev)
}

// Events returns every stored event.
func (g *Google) Events() []calendar.EventSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]calendar.EventSummary(nil), g.events...)
}

// TaskItems returns every stored task.
func (g *Google) TaskItems() []tasks.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]tasks.Task(nil), g.tasks...)
}

// Tokens returns the access tokens clients were built with, in order.
func (g *Google) Tokens() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.tokens...)
}
