package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/pillminder/internal/google"
)

// DefaultCalendarID is the user's primary calendar.
const DefaultCalendarID = "primary"

// Client wraps the Google Calendar service
type Client struct {
	svc *calendar.Service
}

// NewClient creates a Calendar client that authorises requests with ts.
// Extra options (e.g. option.WithEndpoint) are applied after the HTTP client.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	clientOpts := append([]option.ClientOption{
		option.WithHTTPClient(google.NewHTTPClient(ctx, ts)),
	}, opts...)

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// ListOptions filters an event listing.
type ListOptions struct {
	CalendarID string
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int64
	Query      string
}

// ListEvents lists events ordered by start time, with recurring events
// expanded into single instances.
func (c *Client) ListEvents(ctx context.Context, opts ListOptions) ([]EventSummary, error) {
	calendarID := opts.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	call := c.svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	if !opts.TimeMin.IsZero() {
		call = call.TimeMin(opts.TimeMin.Format(time.RFC3339))
	}
	if !opts.TimeMax.IsZero() {
		call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
	}
	if opts.MaxResults > 0 {
		call = call.MaxResults(opts.MaxResults)
	}
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}

	return summaries, nil
}

// CreateEvent creates a new calendar event
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	timeZone := input.TimeZone
	if timeZone == "" {
		timeZone = "UTC"
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: timeZone,
		},
	}

	if input.PopupAtStart {
		event.Reminders = &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: 0, ForceSendFields: []string{"Minutes"}},
			},
			ForceSendFields: []string{"UseDefault"},
		}
	}

	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	summary := toEventSummary(created)
	return &summary, nil
}
