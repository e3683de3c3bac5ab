package prescription_tools

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/teemow/pillminder/internal/prescription"
	"github.com/teemow/pillminder/internal/tools/batch"
)

// prescriptionFromArgs builds a Prescription from tool arguments. Defaults
// are applied; validation is left to the caller.
func prescriptionFromArgs(args map[string]any) (prescription.Prescription, error) {
	var p prescription.Prescription
	var err error

	if p.DrugName, err = stringArg(args, "drugName"); err != nil {
		return p, err
	}
	if p.Dose, err = stringArg(args, "dose"); err != nil {
		return p, err
	}
	if p.StartDate, err = stringArg(args, "startDate"); err != nil {
		return p, err
	}
	if p.TimeZone, err = stringArg(args, "timezone"); err != nil {
		return p, err
	}
	if p.Notes, err = stringArg(args, "notes"); err != nil {
		return p, err
	}
	if p.Days, err = intArg(args, "days"); err != nil {
		return p, err
	}
	if p.TimesPerDay, err = intArg(args, "timesPerDay"); err != nil {
		return p, err
	}
	if raw, ok := args["times"]; ok && raw != nil {
		if p.Times, err = batch.ParseStringOrArray(raw, "times"); err != nil {
			return p, err
		}
	}

	return p.WithDefaults(), nil
}

// medicinesFromArgs decodes the medicines argument, a list of objects.
func medicinesFromArgs(args map[string]any) ([]prescription.Medicine, error) {
	raw, ok := args["medicines"].([]any)
	if !ok {
		return nil, fmt.Errorf("medicines must be an array of objects")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read medicines: %w", err)
	}
	var medicines []prescription.Medicine
	if err := json.Unmarshal(data, &medicines); err != nil {
		return nil, fmt.Errorf("medicines must be an array of objects: %w", err)
	}
	return medicines, nil
}

func stringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return s, nil
}

// intArg accepts JSON numbers with no fractional part.
func intArg(args map[string]any, name string) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("%s must be a whole number", name)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}
