// Package digest runs the daily dose digest.
//
// On every tick of its cron schedule the Scheduler expands each saved
// prescription to the doses due today (in the prescription's own zone) and
// logs one digest per account. Accounts with a cached Google token also get a
// count of upcoming app-owned calendar events, fetched through the gateway
// with the cached token as the session.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teemow/pillminder/internal/calendar"
	"github.com/teemow/pillminder/internal/google"
	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/logging"
	"github.com/teemow/pillminder/internal/prescription"
	"github.com/teemow/pillminder/internal/session"
	"github.com/teemow/pillminder/internal/store"
)

// DefaultSchedule runs the digest every morning at 07:00.
const DefaultSchedule = "0 7 * * *"

// PrescriptionLister lists every saved prescription.
type PrescriptionLister interface {
	ListAll(ctx context.Context) ([]store.Record, error)
}

// EventLister lists the upcoming app-owned events of the session in ctx.
type EventLister interface {
	ListUpcomingEvents(ctx context.Context) ([]calendar.EventSummary, error)
}

// Dose is one entry of a digest.
type Dose struct {
	PrescriptionID string    `json:"prescriptionId"`
	Title          string    `json:"title"`
	Time           string    `json:"time"`
	Start          time.Time `json:"start"`
}

// AccountDigest is the digest of one account.
type AccountDigest struct {
	Account        string `json:"account"`
	Doses          []Dose `json:"doses"`
	UpcomingEvents int    `json:"upcomingEvents"`
	EventsChecked  bool   `json:"eventsChecked"`
	EventsError    string `json:"eventsError,omitempty"`
}

// Report is the result of one digest run.
type Report struct {
	RunAt    time.Time       `json:"runAt"`
	Accounts []AccountDigest `json:"accounts"`
}

// Scheduler triggers digest runs on a cron schedule.
type Scheduler struct {
	cron          *cron.Cron
	schedule      string
	prescriptions PrescriptionLister
	events        EventLister
	tokens        google.TokenProvider
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
	now           func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithEvents enables the upcoming event count for accounts with a cached token.
func WithEvents(events EventLister, tokens google.TokenProvider) Option {
	return func(s *Scheduler) {
		s.events = events
		s.tokens = tokens
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a Scheduler on schedule (standard five-field cron) in loc.
func New(schedule string, loc *time.Location, prescriptions PrescriptionLister, opts ...Option) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", schedule, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		schedule:      schedule,
		prescriptions: prescriptions,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the digest job and starts the cron loop in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("Digest run failed", logging.Status(logging.StatusError), logging.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to add digest job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Digest scheduler started", "schedule", s.schedule, "location", s.cron.Location().String())
	return nil
}

// Stop stops the cron loop and waits for a running job, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.logger.Info("Digest scheduler stopped")
}

// RunOnce computes and logs today's digest for every account.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	records, err := s.prescriptions.ListAll(ctx)
	if err != nil {
		s.metrics.RecordDigestRun(ctx, instrumentation.StatusError)
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}

	now := s.now()
	report := &Report{RunAt: now}
	byAccount := make(map[string]int)

	for _, rec := range records {
		doses, err := s.dosesToday(rec, now)
		if err != nil {
			s.logger.Warn("Skipping prescription in digest",
				logging.PrescriptionID(rec.ID),
				logging.Err(err))
			continue
		}

		idx, ok := byAccount[rec.Owner]
		if !ok {
			idx = len(report.Accounts)
			byAccount[rec.Owner] = idx
			report.Accounts = append(report.Accounts, AccountDigest{Account: rec.Owner, Doses: []Dose{}})
		}
		report.Accounts[idx].Doses = append(report.Accounts[idx].Doses, doses...)
	}

	for i := range report.Accounts {
		s.countEvents(ctx, &report.Accounts[i])
		d := report.Accounts[i]
		s.logger.Info("Daily dose digest",
			logging.UserHash(d.Account),
			slog.Int("doses", len(d.Doses)),
			slog.Int("upcoming_events", d.UpcomingEvents),
			slog.Bool("events_checked", d.EventsChecked))
	}

	s.metrics.RecordDigestRun(ctx, instrumentation.StatusSuccess)
	return report, nil
}

func (s *Scheduler) dosesToday(rec store.Record, now time.Time) ([]Dose, error) {
	p := rec.Prescription
	loc, err := p.Location()
	if err != nil {
		return nil, err
	}
	today := now.In(loc).Format(prescription.DateLayout)

	// Dates are YYYY-MM-DD, so string order is calendar order.
	endDate, err := p.EndDate()
	if err != nil {
		return nil, err
	}
	if today < p.StartDate || today > endDate {
		return []Dose{}, nil
	}

	doses, err := prescription.DosesOn(p, today)
	if err != nil {
		return nil, err
	}

	out := make([]Dose, 0, len(doses))
	for _, d := range doses {
		out = append(out, Dose{
			PrescriptionID: rec.ID,
			Title:          p.Title(),
			Time:           d.Task.Time,
			Start:          d.Start,
		})
	}
	return out, nil
}

func (s *Scheduler) countEvents(ctx context.Context, d *AccountDigest) {
	if s.events == nil || s.tokens == nil {
		return
	}
	if !s.tokens.HasTokenForAccount(d.Account) {
		return
	}
	token, err := s.tokens.GetTokenForAccount(ctx, d.Account)
	if err != nil {
		d.EventsError = err.Error()
		return
	}

	ctx = session.WithToken(ctx, token)
	ctx = session.WithUser(ctx, &session.UserInfo{Email: d.Account})
	events, err := s.events.ListUpcomingEvents(ctx)
	if err != nil {
		d.EventsError = err.Error()
		s.logger.Warn("Failed to count upcoming reminder events",
			logging.UserHash(d.Account),
			logging.Err(err))
		return
	}
	d.EventsChecked = true
	d.UpcomingEvents = len(events)
}
