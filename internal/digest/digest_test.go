package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/pillminder/internal/calendar"
	"github.com/teemow/pillminder/internal/prescription"
	"github.com/teemow/pillminder/internal/session"
	"github.com/teemow/pillminder/internal/store"
)

type fakeLister struct {
	records []store.Record
	err     error
}

func (f *fakeLister) ListAll(context.Context) ([]store.Record, error) {
	return f.records, f.err
}

type fakeEvents struct {
	events   []calendar.EventSummary
	err      error
	accounts []string
}

func (f *fakeEvents) ListUpcomingEvents(ctx context.Context) ([]calendar.EventSummary, error) {
	if _, ok := session.TokenFromContext(ctx); !ok {
		return nil, errors.New("no session")
	}
	f.accounts = append(f.accounts, session.Account(ctx))
	return f.events, f.err
}

type fakeTokens map[string]*oauth2.Token

func (f fakeTokens) HasTokenForAccount(account string) bool {
	_, ok := f[account]
	return ok
}

func (f fakeTokens) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	token, ok := f[account]
	if !ok {
		return nil, errors.New("not found")
	}
	return token, nil
}

func records() []store.Record {
	return []store.Record{
		{
			ID:    "rx-1",
			Owner: "alice@example.com",
			Prescription: prescription.Prescription{
				DrugName: "Amoxicillin", Dose: "500mg", Days: 7, TimesPerDay: 3,
				Times: []string{"08:00", "14:00", "20:00"}, StartDate: "2024-03-01", TimeZone: "Europe/Berlin",
			},
		},
		{
			ID:    "rx-2",
			Owner: "bob@example.com",
			Prescription: prescription.Prescription{
				DrugName: "Ibuprofen", Days: 1, TimesPerDay: 1,
				Times: []string{"09:00"}, StartDate: "2024-02-01", TimeZone: "UTC",
			},
		},
		{
			ID:    "rx-3",
			Owner: "bob@example.com",
			Prescription: prescription.Prescription{
				DrugName: "Broken", Days: 1, TimesPerDay: 1,
				Times: []string{"09:00"}, StartDate: "2024-03-03", TimeZone: "Mars/Olympus",
			},
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 3, 6, 0, 0, 0, time.UTC)
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New("every morning", time.UTC, &fakeLister{})
	assert.Error(t, err)

	s, err := New("", nil, &fakeLister{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, s.schedule)
}

func TestRunOnce(t *testing.T) {
	var buf bytes.Buffer
	events := &fakeEvents{events: []calendar.EventSummary{{ID: "e1"}, {ID: "e2"}}}
	tokens := fakeTokens{"alice@example.com": {AccessToken: "ya29.alice"}}

	s, err := New(DefaultSchedule, time.UTC, &fakeLister{records: records()},
		WithEvents(events, tokens),
		WithClock(fixedClock),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, err)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Accounts, 2)

	alice := report.Accounts[0]
	assert.Equal(t, "alice@example.com", alice.Account)
	require.Len(t, alice.Doses, 3)
	assert.Equal(t, "08:00", alice.Doses[0].Time)
	assert.Equal(t, "Amoxicillin 500mg", alice.Doses[0].Title)
	assert.Equal(t, time.Date(2024, 3, 3, 7, 0, 0, 0, time.UTC), alice.Doses[0].Start.UTC())
	assert.True(t, alice.EventsChecked)
	assert.Equal(t, 2, alice.UpcomingEvents)

	bob := report.Accounts[1]
	assert.Equal(t, "bob@example.com", bob.Account)
	assert.Empty(t, bob.Doses)
	assert.False(t, bob.EventsChecked)

	assert.Equal(t, []string{"alice@example.com"}, events.accounts)
	assert.Contains(t, buf.String(), "Skipping prescription in digest")
	assert.NotContains(t, buf.String(), "alice@example.com", "digest logs must not contain raw emails")
}

func TestRunOnce_EventsErrorDoesNotFailRun(t *testing.T) {
	events := &fakeEvents{err: errors.New("quota exceeded")}
	tokens := fakeTokens{"alice@example.com": {AccessToken: "ya29.alice"}}

	s, err := New(DefaultSchedule, time.UTC, &fakeLister{records: records()[:1]},
		WithEvents(events, tokens),
		WithClock(fixedClock),
		WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Accounts, 1)
	assert.False(t, report.Accounts[0].EventsChecked)
	assert.Equal(t, "quota exceeded", report.Accounts[0].EventsError)
	assert.Len(t, report.Accounts[0].Doses, 3)
}

func TestRunOnce_DigestLogLine(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(DefaultSchedule, time.UTC, &fakeLister{records: records()[:1]},
		WithClock(fixedClock),
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "Daily dose digest", line["msg"])
	assert.Equal(t, float64(3), line["doses"])
	assert.Equal(t, float64(0), line["upcoming_events"])
	assert.Equal(t, false, line["events_checked"])
	assert.NotEmpty(t, line["user_hash"])
}

func TestDosesToday_OutsideCourse(t *testing.T) {
	s, err := New(DefaultSchedule, time.UTC, &fakeLister{})
	require.NoError(t, err)

	rec := records()[0]
	tests := []struct {
		name  string
		now   time.Time
		doses int
	}{
		{name: "before start", now: time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), doses: 0},
		{name: "first day", now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), doses: 3},
		{name: "last day", now: time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC), doses: 3},
		{name: "after end", now: time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC), doses: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doses, err := s.dosesToday(rec, tt.now)
			require.NoError(t, err)
			assert.NotNil(t, doses)
			assert.Len(t, doses, tt.doses)
		})
	}
}

func TestRunOnce_ListError(t *testing.T) {
	s, err := New(DefaultSchedule, time.UTC, &fakeLister{err: errors.New("disk on fire")},
		WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New(DefaultSchedule, time.UTC, &fakeLister{}, WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
