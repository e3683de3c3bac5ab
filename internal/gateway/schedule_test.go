package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/pillminder/internal/prescription"
)

func amoxicillin() prescription.Prescription {
	return prescription.Prescription{
		DrugName:    "Amoxicillin",
		Dose:        "500mg",
		Days:        3,
		TimesPerDay: 2,
		Times:       []string{"08:00", "20:00"},
		StartDate:   "2024-03-01",
		TimeZone:    "Europe/Berlin",
	}
}

func TestSchedulePrescription(t *testing.T) {
	f := newFakeFactory()

	result, err := newTestGateway(f).SchedulePrescription(authed(), amoxicillin())
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin", result.DrugName)
	assert.Len(t, result.Created, 6)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 1, f.calendarCalls, "one client for the whole course")

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	require.Len(t, f.cal.inserted, 6)
	first := f.cal.inserted[0]
	assert.True(t, first.Start.Equal(time.Date(2024, 3, 1, 8, 0, 0, 0, berlin)))
	assert.Equal(t, CompanionDuration, first.End.Sub(first.Start))
	assert.Equal(t, "💊 Amoxicillin 500mg", first.Summary)
	assert.Equal(t, "Europe/Berlin", first.TimeZone)
	for _, in := range f.cal.inserted {
		assert.True(t, IsAppOwned(in.Description), in.Description)
	}

	last := f.cal.inserted[5]
	assert.True(t, last.Start.Equal(time.Date(2024, 3, 3, 20, 0, 0, 0, berlin)))
}

func TestSchedulePrescription_PartialFailure(t *testing.T) {
	f := newFakeFactory()
	f.cal.insertErr = func(n int) error {
		if n == 1 {
			return errQuota
		}
		return nil
	}

	result, err := newTestGateway(f).SchedulePrescription(authed(), amoxicillin())
	require.NoError(t, err)
	assert.Len(t, result.Created, 5)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "2024-03-01", result.Failed[0].Date)
	assert.Equal(t, "20:00", result.Failed[0].Time)
	assert.Len(t, f.cal.inserted, 6, "remaining doses are still attempted")
}

func TestSchedulePrescription_AllFail(t *testing.T) {
	f := newFakeFactory()
	f.cal.insertErr = func(int) error { return errQuota }

	_, err := newTestGateway(f).SchedulePrescription(authed(), amoxicillin())
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.ErrorIs(t, err, errQuota)
}

func TestSchedulePrescription_Invalid(t *testing.T) {
	f := newFakeFactory()
	p := amoxicillin()
	p.Times = []string{"25:00", "08:00"}

	_, err := newTestGateway(f).SchedulePrescription(authed(), p)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "prescription", vErr.Field)
	assert.Zero(t, f.networkCalls())
}

func TestSchedulePrescription_TooManyDoses(t *testing.T) {
	f := newFakeFactory()
	p := amoxicillin()
	p.Days = 365
	p.TimesPerDay = 4
	p.Times = []string{"06:00", "12:00", "18:00", "22:00"}

	_, err := newTestGateway(f).SchedulePrescription(authed(), p)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "1460 doses")
	assert.Zero(t, f.networkCalls())
}

func TestSchedulePrescription_AtDoseLimit(t *testing.T) {
	f := newFakeFactory()
	p := amoxicillin()
	p.Days = MaxScheduledDoses / 2

	result, err := newTestGateway(f).SchedulePrescription(authed(), p)
	require.NoError(t, err)
	assert.Len(t, result.Created, MaxScheduledDoses)
	assert.Empty(t, result.Failed)
}

func TestSchedulePrescription_CourseTooLong(t *testing.T) {
	f := newFakeFactory()
	p := amoxicillin()
	p.Days = 100000

	_, err := newTestGateway(f).SchedulePrescription(authed(), p)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "days: must be at most 365")
	assert.Zero(t, f.networkCalls())
}

func TestSchedulePrescription_DefaultsDoseTimes(t *testing.T) {
	f := newFakeFactory()
	p := amoxicillin()
	p.Times = nil

	result, err := newTestGateway(f).SchedulePrescription(authed(), p)
	require.NoError(t, err)
	assert.Len(t, result.Created, 6)
}
