package gateway

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/pillminder/internal/calendar"
	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/logging"
	"github.com/teemow/pillminder/internal/session"
	"github.com/teemow/pillminder/internal/tasks"
)

// DefaultMaxResults caps event and task listings.
const DefaultMaxResults = 10

// Config selects the calendar and task list the gateway works against.
type Config struct {
	CalendarID string
	TaskListID string
	MaxResults int64
	// TimeZone interprets local date-times in requests that name no zone.
	TimeZone string
}

// Gateway is safe for concurrent use; it holds no per-user state.
type Gateway struct {
	factory ClientFactory
	cfg     Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(g *Gateway) { g.metrics = metrics }
}

// WithClock replaces time.Now as the notion of "upcoming".
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New creates a Gateway. Zero Config fields take the provider defaults.
func New(factory ClientFactory, cfg Config, opts ...Option) *Gateway {
	if cfg.CalendarID == "" {
		cfg.CalendarID = calendar.DefaultCalendarID
	}
	if cfg.TaskListID == "" {
		cfg.TaskListID = tasks.DefaultTaskListID
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	g := &Gateway{
		factory: factory,
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EventRequest is the input of CreateEvent. Start and End accept RFC3339,
// YYYY-MM-DDTHH:MM[:SS] in TimeZone, or the same with a space separator.
type EventRequest struct {
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	TimeZone    string `json:"timeZone,omitempty"`
}

// TaskRequest is the input of CreateTask. Due is optional; a bare
// YYYY-MM-DD sets a due date without a companion event.
type TaskRequest struct {
	Title    string `json:"title"`
	Notes    string `json:"notes,omitempty"`
	Due      string `json:"due,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// TaskResult is the outcome of CreateTask. CompanionError is set when the
// task was created but its companion event was not; the task is not rolled
// back.
type TaskResult struct {
	Task           *tasks.Task            `json:"task"`
	Companion      *calendar.EventSummary `json:"companionEvent,omitempty"`
	CompanionError string                 `json:"companionError,omitempty"`
}

// ListUpcomingEvents returns up to MaxResults upcoming events, recurring
// events expanded, filtered to those carrying the ownership marker.
func (g *Gateway) ListUpcomingEvents(ctx context.Context) ([]calendar.EventSummary, error) {
	cal, err := g.calendar(ctx)
	if err != nil {
		return nil, err
	}

	var events []calendar.EventSummary
	err = g.call(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList, func(ctx context.Context) error {
		var err error
		events, err = cal.ListEvents(ctx, calendar.ListOptions{
			CalendarID: g.cfg.CalendarID,
			TimeMin:    g.now(),
			MaxResults: g.cfg.MaxResults,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return FilterOwned(events), nil
}

// ListUpcomingTasks returns up to MaxResults incomplete tasks from the
// configured list, in provider order.
func (g *Gateway) ListUpcomingTasks(ctx context.Context) ([]tasks.Task, error) {
	svc, err := g.tasks(ctx)
	if err != nil {
		return nil, err
	}

	var items []tasks.Task
	err = g.call(ctx, instrumentation.ServiceTasks, instrumentation.OperationList, func(ctx context.Context) error {
		var err error
		items, err = svc.ListTasks(ctx, tasks.ListOptions{
			TaskListID:    g.cfg.TaskListID,
			ShowCompleted: false,
			MaxResults:    g.cfg.MaxResults,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []tasks.Task{}
	}
	return items, nil
}

// CreateEvent creates one event tagged with the ownership marker. End must
// be after Start; past instants are accepted.
func (g *Gateway) CreateEvent(ctx context.Context, req EventRequest) (*calendar.EventSummary, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	input, err := g.eventInput(req)
	if err != nil {
		return nil, err
	}

	cal, err := g.factory.Calendar(ctx, token)
	if err != nil {
		return nil, g.clientError(instrumentation.ServiceCalendar, err)
	}
	return g.insertEvent(ctx, cal, input)
}

func (g *Gateway) eventInput(req EventRequest) (calendar.EventInput, error) {
	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		return calendar.EventInput{}, &ValidationError{Field: "summary", Reason: "is required"}
	}
	loc, err := loadZone(req.TimeZone, g.cfg.TimeZone)
	if err != nil {
		return calendar.EventInput{}, err
	}

	start, dateOnly, err := parseTimeInput("start", req.Start, loc)
	if err != nil {
		return calendar.EventInput{}, err
	}
	if dateOnly {
		return calendar.EventInput{}, &ValidationError{Field: "start", Reason: "must include a time of day"}
	}
	end, dateOnly, err := parseTimeInput("end", req.End, loc)
	if err != nil {
		return calendar.EventInput{}, err
	}
	if dateOnly {
		return calendar.EventInput{}, &ValidationError{Field: "end", Reason: "must include a time of day"}
	}
	if !end.After(start) {
		return calendar.EventInput{}, &ValidationError{Field: "end", Reason: "must be after start"}
	}

	return calendar.EventInput{
		Summary:     summary,
		Description: TagDescription(req.Description),
		Start:       start,
		End:         end,
		TimeZone:    loc.String(),
	}, nil
}

// CreateTask creates a task. When Due carries a time of day, a companion
// event [due, due+CompanionDuration) is created afterwards. The two calls
// are independent: a companion failure is reported in the result and
// logged, and the task stays.
func (g *Gateway) CreateTask(ctx context.Context, req TaskRequest) (*TaskResult, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "is required"}
	}
	loc, err := loadZone(req.TimeZone, g.cfg.TimeZone)
	if err != nil {
		return nil, err
	}

	input := tasks.TaskInput{Title: title, Notes: req.Notes}
	var due time.Time
	timed := false
	if req.Due != "" {
		var dateOnly bool
		due, dateOnly, err = parseTimeInput("due", req.Due, loc)
		if err != nil {
			return nil, err
		}
		timed = !dateOnly
		// Tasks keeps only the date; pin it to the local calendar day.
		input.Due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	}

	svc, err := g.factory.Tasks(ctx, token)
	if err != nil {
		return nil, g.clientError(instrumentation.ServiceTasks, err)
	}

	var created *tasks.Task
	err = g.call(ctx, instrumentation.ServiceTasks, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = svc.CreateTask(ctx, g.cfg.TaskListID, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &TaskResult{Task: created}
	if !timed {
		return result, nil
	}

	companion, err := g.createCompanion(ctx, token, calendar.EventInput{
		Summary:      ReminderPrefix + title,
		Description:  TagDescription(title),
		Start:        due,
		End:          due.Add(CompanionDuration),
		TimeZone:     loc.String(),
		PopupAtStart: true,
	})
	if err != nil {
		g.metrics.RecordCompanionEvent(ctx, instrumentation.StatusError)
		g.logger.Error("task created without its companion event",
			slog.String("task_id", created.ID),
			logging.Err(err))
		result.CompanionError = err.Error()
		return result, nil
	}
	g.metrics.RecordCompanionEvent(ctx, instrumentation.StatusSuccess)
	result.Companion = companion
	return result, nil
}

func (g *Gateway) createCompanion(ctx context.Context, token *oauth2.Token, input calendar.EventInput) (*calendar.EventSummary, error) {
	cal, err := g.factory.Calendar(ctx, token)
	if err != nil {
		return nil, g.clientError(instrumentation.ServiceCalendar, err)
	}
	return g.insertEvent(ctx, cal, input)
}

// Now returns the current time of the gateway clock.
func (g *Gateway) Now() time.Time {
	return g.now()
}

// CompleteTask marks a task in the configured list as completed.
func (g *Gateway) CompleteTask(ctx context.Context, taskID string) (*tasks.Task, error) {
	if _, err := g.token(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(taskID) == "" {
		return nil, &ValidationError{Field: "taskId", Reason: "is required"}
	}

	svc, err := g.tasks(ctx)
	if err != nil {
		return nil, err
	}

	var completed *tasks.Task
	err = g.call(ctx, instrumentation.ServiceTasks, instrumentation.OperationComplete, func(ctx context.Context) error {
		var err error
		completed, err = svc.CompleteTask(ctx, g.cfg.TaskListID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

func (g *Gateway) insertEvent(ctx context.Context, cal CalendarService, input calendar.EventInput) (*calendar.EventSummary, error) {
	var created *calendar.EventSummary
	err := g.call(ctx, instrumentation.ServiceCalendar, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = cal.CreateEvent(ctx, g.cfg.CalendarID, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// token returns the session token or an *AuthenticationError.
func (g *Gateway) token(ctx context.Context) (*oauth2.Token, error) {
	token, ok := session.TokenFromContext(ctx)
	if !ok {
		return nil, noSession()
	}
	return token, nil
}

// SessionAccount returns the owner of saved prescriptions for the session
// in ctx. A token without a validated identity is only accepted from a local
// session; remote callers with unvalidated tokens would otherwise share one
// owner.
func SessionAccount(ctx context.Context) (string, error) {
	if owner := session.Owner(ctx); owner != "" {
		return owner, nil
	}
	if _, ok := session.TokenFromContext(ctx); ok {
		return "", &AuthenticationError{Reason: "saved prescriptions need a verified Google identity; enable token validation"}
	}
	return "", noSession()
}

func noSession() *AuthenticationError {
	return &AuthenticationError{Reason: "no Google session; sign in with Google and retry"}
}

func (g *Gateway) calendar(ctx context.Context) (CalendarService, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}
	cal, err := g.factory.Calendar(ctx, token)
	if err != nil {
		return nil, g.clientError(instrumentation.ServiceCalendar, err)
	}
	return cal, nil
}

func (g *Gateway) tasks(ctx context.Context) (TasksService, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := g.factory.Tasks(ctx, token)
	if err != nil {
		return nil, g.clientError(instrumentation.ServiceTasks, err)
	}
	return svc, nil
}

func (g *Gateway) clientError(service string, err error) error {
	return &UpstreamError{Service: service, Operation: "connect", Err: err}
}

// call runs one provider round trip under a span, records its metrics and
// wraps a failure in *UpstreamError.
func (g *Gateway) call(ctx context.Context, service, operation string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, service, operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		instrumentation.SetSpanError(span, err)
		g.metrics.RecordGoogleAPIOperation(ctx, service, operation, instrumentation.StatusError, duration)
		g.logger.Warn("google api call failed",
			logging.Service(service),
			logging.Operation(operation),
			logging.UserHash(session.Account(ctx)),
			logging.Err(err))
		return &UpstreamError{Service: service, Operation: operation, Err: err}
	}

	instrumentation.SetSpanSuccess(span)
	g.metrics.RecordGoogleAPIOperation(ctx, service, operation, instrumentation.StatusSuccess, duration)
	return nil
}
