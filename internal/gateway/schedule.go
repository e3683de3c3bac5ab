package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/pillminder/internal/calendar"
	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/logging"
	"github.com/teemow/pillminder/internal/prescription"
)

// MaxScheduledDoses bounds the events one SchedulePrescription call may
// create.
const MaxScheduledDoses = 500

// DoseFailure describes one dose whose event could not be created.
type DoseFailure struct {
	UID   string `json:"uid"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Error string `json:"error"`
}

// ScheduleResult is the outcome of SchedulePrescription.
type ScheduleResult struct {
	DrugName string                  `json:"drugName"`
	Created  []calendar.EventSummary `json:"created"`
	Failed   []DoseFailure           `json:"failed,omitempty"`
}

// PlanOptions returns the rendering used for dose events: reminder-prefixed
// summaries, marker-tagged descriptions and CompanionDuration blocks.
func PlanOptions() prescription.PlanOptions {
	return prescription.PlanOptions{
		SummaryPrefix:     ReminderPrefix,
		DescriptionPrefix: markerTag() + " ",
		Duration:          CompanionDuration,
	}
}

// SchedulePrescription writes one tagged calendar event per dose of p,
// sequentially. Failed doses are collected in the result and do not stop
// the remaining ones; if every dose fails the first error is returned.
func (g *Gateway) SchedulePrescription(ctx context.Context, p prescription.Prescription) (*ScheduleResult, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, &ValidationError{Field: "prescription", Reason: err.Error()}
	}
	if total := p.Days * len(p.Times); total > MaxScheduledDoses {
		return nil, &ValidationError{
			Field:  "prescription",
			Reason: fmt.Sprintf("expands to %d doses, more than the %d allowed per request", total, MaxScheduledDoses),
		}
	}
	planned, err := prescription.Plan(p, PlanOptions())
	if err != nil {
		return nil, &ValidationError{Field: "prescription", Reason: err.Error()}
	}

	ctx, span := instrumentation.StartSpan(ctx, "gateway.schedule_prescription",
		attribute.String(instrumentation.SpanAttrDrug, p.DrugName),
		attribute.Int(instrumentation.SpanAttrDoseCount, len(planned)),
	)
	defer span.End()

	result := &ScheduleResult{
		DrugName: p.DrugName,
		Created:  make([]calendar.EventSummary, 0, len(planned)),
	}
	if len(planned) == 0 {
		instrumentation.SetSpanSuccess(span)
		return result, nil
	}

	cal, err := g.factory.Calendar(ctx, token)
	if err != nil {
		err = g.clientError(instrumentation.ServiceCalendar, err)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	var firstErr error
	for _, e := range planned {
		created, err := g.insertEvent(ctx, cal, calendar.EventInput{
			Summary:      e.Summary,
			Description:  e.Description,
			Start:        e.Start,
			End:          e.End,
			TimeZone:     p.TimeZone,
			PopupAtStart: true,
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			result.Failed = append(result.Failed, DoseFailure{
				UID:   e.UID,
				Date:  e.Task.Date,
				Time:  e.Task.Time,
				Error: err.Error(),
			})
			continue
		}
		result.Created = append(result.Created, *created)
	}

	g.metrics.RecordDosesScheduled(ctx, instrumentation.StatusSuccess, len(result.Created))
	g.metrics.RecordDosesScheduled(ctx, instrumentation.StatusError, len(result.Failed))

	if len(result.Created) == 0 {
		instrumentation.SetSpanError(span, firstErr)
		return nil, firstErr
	}
	if len(result.Failed) > 0 {
		g.logger.Error("prescription partially scheduled",
			logging.Drug(p.DrugName),
			slog.Int("created", len(result.Created)),
			slog.Int("failed", len(result.Failed)),
			logging.Err(firstErr))
	}
	instrumentation.SetSpanSuccess(span)
	return result, nil
}
