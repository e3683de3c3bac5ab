package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/pillminder/internal/calendar"
	"github.com/teemow/pillminder/internal/prescription"
	"github.com/teemow/pillminder/internal/session"
	"github.com/teemow/pillminder/internal/tasks"
)

var fixedNow = time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

func newTestGateway(f *fakeFactory) *Gateway {
	return New(f, Config{TimeZone: "UTC"}, WithClock(func() time.Time { return fixedNow }))
}

func authed() context.Context {
	return session.WithToken(context.Background(), &oauth2.Token{AccessToken: "session-token"})
}

func TestGateway_NoSessionFailsBeforeAnyClient(t *testing.T) {
	f := newFakeFactory()
	g := newTestGateway(f)
	ctx := context.Background()

	calls := map[string]func() error{
		"ListUpcomingEvents": func() error { _, err := g.ListUpcomingEvents(ctx); return err },
		"ListUpcomingTasks":  func() error { _, err := g.ListUpcomingTasks(ctx); return err },
		"CreateEvent": func() error {
			_, err := g.CreateEvent(ctx, EventRequest{Summary: "Sync", Start: "2024-03-01T09:00", End: "2024-03-01T10:00"})
			return err
		},
		"CreateTask": func() error {
			_, err := g.CreateTask(ctx, TaskRequest{Title: "Pills", Due: "2024-01-01T09:00"})
			return err
		},
		"CompleteTask": func() error { _, err := g.CompleteTask(ctx, "t1"); return err },
		"SchedulePrescription": func() error {
			_, err := g.SchedulePrescription(ctx, prescription.Prescription{DrugName: "A", Days: 1, Times: []string{"08:00"}, StartDate: "2024-03-01"})
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			var authErr *AuthenticationError
			require.ErrorAs(t, err, &authErr)
		})
	}
	assert.Zero(t, f.networkCalls(), "no client may be built without a session")
}

func TestGateway_EmptyAccessTokenIsNoSession(t *testing.T) {
	f := newFakeFactory()
	ctx := session.WithToken(context.Background(), &oauth2.Token{})

	_, err := newTestGateway(f).ListUpcomingEvents(ctx)
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, f.networkCalls())
}

func TestGateway_ListUpcomingEvents_FiltersOwned(t *testing.T) {
	f := newFakeFactory()
	f.cal.events = []calendar.EventSummary{
		{ID: "a", Description: TagDescription("Amoxicillin")},
		{ID: "b", Description: "Lunch"},
		{ID: "c", Description: TagDescription("Ibuprofen")},
	}

	events, err := newTestGateway(f).ListUpcomingEvents(authed())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "c", events[1].ID)
	for _, e := range events {
		assert.True(t, IsAppOwned(e.Description))
	}

	require.Len(t, f.cal.listOpts, 1)
	opts := f.cal.listOpts[0]
	assert.Equal(t, "primary", opts.CalendarID)
	assert.Equal(t, int64(10), opts.MaxResults)
	assert.True(t, opts.TimeMin.Equal(fixedNow))
	assert.Equal(t, []string{"session-token"}, f.tokens)
}

func TestGateway_ListUpcomingEvents_NothingOwned(t *testing.T) {
	f := newFakeFactory()
	f.cal.events = []calendar.EventSummary{{ID: "x", Description: "Standup"}}

	events, err := newTestGateway(f).ListUpcomingEvents(authed())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestGateway_ListUpcomingEvents_UpstreamError(t *testing.T) {
	f := newFakeFactory()
	f.cal.listErr = errQuota

	_, err := newTestGateway(f).ListUpcomingEvents(authed())
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "calendar", upErr.Service)
	assert.Equal(t, "list", upErr.Operation)
	assert.ErrorIs(t, err, errQuota)
	assert.Equal(t, "Google Calendar request failed (list)", upErr.Message())
	assert.Len(t, f.cal.listOpts, 1, "no retry")
}

func TestGateway_ListUpcomingTasks(t *testing.T) {
	f := newFakeFactory()

	items, err := newTestGateway(f).ListUpcomingTasks(authed())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	require.Len(t, f.tsk.listOpts, 1)
	assert.False(t, f.tsk.listOpts[0].ShowCompleted)
	assert.Equal(t, "@default", f.tsk.listOpts[0].TaskListID)
	assert.Equal(t, int64(10), f.tsk.listOpts[0].MaxResults)
}

func TestGateway_CreateTask_DateOnlyHasNoCompanion(t *testing.T) {
	f := newFakeFactory()

	result, err := newTestGateway(f).CreateTask(authed(), TaskRequest{Title: "Refill", Due: "2024-01-01"})
	require.NoError(t, err)
	assert.Nil(t, result.Companion)
	assert.Empty(t, result.CompanionError)
	assert.Zero(t, f.calendarCalls)
	assert.Empty(t, f.cal.inserted)

	require.Len(t, f.tsk.inserted, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.tsk.inserted[0].Due)
}

func TestGateway_CreateTask_NoDue(t *testing.T) {
	f := newFakeFactory()

	result, err := newTestGateway(f).CreateTask(authed(), TaskRequest{Title: "Ask pharmacist"})
	require.NoError(t, err)
	assert.Nil(t, result.Task.Due)
	assert.Zero(t, f.calendarCalls)
}

func TestGateway_CreateTask_TimedCreatesOneCompanion(t *testing.T) {
	f := newFakeFactory()
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	result, err := newTestGateway(f).CreateTask(authed(), TaskRequest{
		Title:    "Vitamin D",
		Due:      "2024-01-01T09:00",
		TimeZone: "Europe/Berlin",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Companion)
	assert.Empty(t, result.CompanionError)

	require.Len(t, f.cal.inserted, 1)
	companion := f.cal.inserted[0]
	assert.True(t, companion.Start.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, berlin)))
	assert.True(t, companion.End.Equal(time.Date(2024, 1, 1, 9, 15, 0, 0, berlin)))
	assert.Equal(t, "💊 Vitamin D", companion.Summary)
	assert.True(t, IsAppOwned(companion.Description))
	assert.Equal(t, "Europe/Berlin", companion.TimeZone)
	assert.True(t, companion.PopupAtStart)

	require.Len(t, f.tsk.inserted, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.tsk.inserted[0].Due)
}

func TestGateway_CreateTask_LocalDayIsKept(t *testing.T) {
	f := newFakeFactory()

	// 00:30 in Berlin is still the previous day in UTC.
	_, err := newTestGateway(f).CreateTask(authed(), TaskRequest{
		Title:    "Late dose",
		Due:      "2024-01-02T00:30",
		TimeZone: "Europe/Berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.tsk.inserted[0].Due.Day())
}

func TestGateway_CreateTask_CompanionFailureKeepsTask(t *testing.T) {
	f := newFakeFactory()
	f.cal.insertErr = func(int) error { return errQuota }

	result, err := newTestGateway(f).CreateTask(authed(), TaskRequest{Title: "Pills", Due: "2024-01-01T09:00"})
	require.NoError(t, err)
	require.NotNil(t, result.Task)
	assert.Equal(t, "task-1", result.Task.ID)
	assert.Nil(t, result.Companion)
	assert.Contains(t, result.CompanionError, "Google Calendar request failed (create)")
}

func TestGateway_CreateTask_TaskFailureSkipsCompanion(t *testing.T) {
	f := newFakeFactory()
	f.tsk.createErr = errQuota

	_, err := newTestGateway(f).CreateTask(authed(), TaskRequest{Title: "Pills", Due: "2024-01-01T09:00"})
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "tasks", upErr.Service)
	assert.Zero(t, f.calendarCalls)
}

func TestGateway_CreateTask_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   TaskRequest
		field string
	}{
		{"missing title", TaskRequest{Title: "  "}, "title"},
		{"bad due", TaskRequest{Title: "x", Due: "tomorrow"}, "due"},
		{"bad zone", TaskRequest{Title: "x", TimeZone: "Mars/Olympus"}, "timeZone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFactory()
			_, err := newTestGateway(f).CreateTask(authed(), tt.req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Zero(t, f.networkCalls())
		})
	}
}

func TestGateway_CreateEvent_EndBeforeStartIsRejected(t *testing.T) {
	f := newFakeFactory()

	_, err := newTestGateway(f).CreateEvent(authed(), EventRequest{
		Summary: "Sync",
		Start:   "2024-03-01T10:00",
		End:     "2024-03-01T09:00",
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "end", vErr.Field)
	assert.Zero(t, f.networkCalls())
}

func TestGateway_CreateEvent_EqualStartAndEndIsRejected(t *testing.T) {
	f := newFakeFactory()

	_, err := newTestGateway(f).CreateEvent(authed(), EventRequest{
		Summary: "Sync",
		Start:   "2024-03-01T10:00",
		End:     "2024-03-01T10:00",
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestGateway_CreateEvent(t *testing.T) {
	f := newFakeFactory()

	created, err := newTestGateway(f).CreateEvent(authed(), EventRequest{
		Summary:     "Sync",
		Description: "weekly",
		Start:       "2024-03-01T10:00:00+01:00",
		End:         "2024-03-01T11:00:00+01:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.ID)

	require.Len(t, f.cal.inserted, 1)
	input := f.cal.inserted[0]
	assert.Equal(t, "[ERNIE_AI_PILL_REMINDER] weekly", input.Description)
	assert.Equal(t, time.Hour, input.End.Sub(input.Start))
	assert.Equal(t, 9, input.Start.UTC().Hour())
	assert.False(t, input.PopupAtStart)
}

func TestGateway_CreateEvent_PastStartIsAccepted(t *testing.T) {
	f := newFakeFactory()

	_, err := newTestGateway(f).CreateEvent(authed(), EventRequest{
		Summary: "Backfilled dose",
		Start:   "2020-01-01T08:00",
		End:     "2020-01-01T08:15",
	})
	require.NoError(t, err)
	assert.Len(t, f.cal.inserted, 1)
}

func TestGateway_CreateEvent_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   EventRequest
		field string
	}{
		{"missing summary", EventRequest{Start: "2024-03-01T10:00", End: "2024-03-01T11:00"}, "summary"},
		{"missing start", EventRequest{Summary: "x", End: "2024-03-01T11:00"}, "start"},
		{"date-only start", EventRequest{Summary: "x", Start: "2024-03-01", End: "2024-03-01T11:00"}, "start"},
		{"garbage end", EventRequest{Summary: "x", Start: "2024-03-01T10:00", End: "soon"}, "end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFactory()
			_, err := newTestGateway(f).CreateEvent(authed(), tt.req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Zero(t, f.networkCalls())
		})
	}
}

func TestGateway_CompleteTask(t *testing.T) {
	f := newFakeFactory()

	task, err := newTestGateway(f).CompleteTask(authed(), "t-42")
	require.NoError(t, err)
	assert.Equal(t, "completed", task.Status)
	assert.Equal(t, []string{"t-42"}, f.tsk.completed)

	_, err = newTestGateway(f).CompleteTask(authed(), "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestParseTimeInput(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	tests := []struct {
		in       string
		want     time.Time
		dateOnly bool
	}{
		{"2024-01-01T09:00", time.Date(2024, 1, 1, 9, 0, 0, 0, tokyo), false},
		{"2024-01-01T09:00:30", time.Date(2024, 1, 1, 9, 0, 30, 0, tokyo), false},
		{"2024-01-01 09:00", time.Date(2024, 1, 1, 9, 0, 0, 0, tokyo), false},
		{"2024-01-01T00:00:00Z", time.Date(2024, 1, 1, 9, 0, 0, 0, tokyo), false},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, tokyo), true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, dateOnly, err := parseTimeInput("due", tt.in, tokyo)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			assert.Equal(t, tt.dateOnly, dateOnly)
		})
	}

	_, _, err = parseTimeInput("due", "", tokyo)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "is required", vErr.Reason)
}

var _ TasksService = (*tasks.Client)(nil)
var _ CalendarService = (*calendar.Client)(nil)

func TestSessionAccount(t *testing.T) {
	_, err := SessionAccount(context.Background())
	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)

	_, err = SessionAccount(authed())
	require.ErrorAs(t, err, &authErr, "unvalidated remote tokens own no data")
	assert.Contains(t, authErr.Reason, "verified Google identity")

	account, err := SessionAccount(session.WithLocalSession(authed()))
	require.NoError(t, err)
	assert.Equal(t, session.DefaultAccount, account)

	ctx := session.WithUser(authed(), &session.UserInfo{Email: "alice@example.com"})
	account, err = SessionAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", account)
}
