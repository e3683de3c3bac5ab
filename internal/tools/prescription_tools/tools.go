package prescription_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/prescription"
	"github.com/teemow/pillminder/internal/server"
	"github.com/teemow/pillminder/internal/store"
	"github.com/teemow/pillminder/internal/tools/common"
)

// prescriptionOptions are the tool parameters describing an inline prescription.
func prescriptionOptions(required bool) []mcp.ToolOption {
	drugName := []mcp.PropertyOption{mcp.Description("Medication name, e.g. 'Amoxicillin'")}
	days := []mcp.PropertyOption{mcp.Description("Course length in days (1-365)")}
	startDate := []mcp.PropertyOption{mcp.Description("First day of the course, YYYY-MM-DD")}
	if required {
		drugName = append(drugName, mcp.Required())
		days = append(days, mcp.Required())
		startDate = append(startDate, mcp.Required())
	}

	return []mcp.ToolOption{
		mcp.WithString("drugName", drugName...),
		mcp.WithString("dose",
			mcp.Description("Dose per intake, e.g. '500mg'"),
		),
		mcp.WithNumber("days", days...),
		mcp.WithNumber("timesPerDay",
			mcp.Description("Doses per day (1-24). Defaults to the number of times given."),
		),
		mcp.WithArray("times",
			mcp.Description("Dose times as HH:MM. Defaults to an even spread over the day, e.g. ['08:00','20:00'] for two doses."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("startDate", startDate...),
		mcp.WithString("timezone",
			mcp.Description("IANA time zone the dose times are in. Defaults to UTC."),
		),
		mcp.WithString("notes",
			mcp.Description("Free-text instructions, e.g. 'after meals'"),
		),
	}
}

// RegisterPrescriptionTools registers the prescription tools with the MCP
// server. prescription_schedule is skipped in read-only mode.
func RegisterPrescriptionTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	expandOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Expand a prescription into its dose schedule (one entry per dose, ordered by date and time). Nothing is written to Google."),
		mcp.WithReadOnlyHintAnnotation(true),
	}, prescriptionOptions(true)...)
	s.AddTool(mcp.NewTool("prescription_expand", expandOpts...),
		common.InstrumentedToolHandler("prescription_expand", sc, handleExpand()))

	if sc.Prescriptions() != nil {
		listTool := mcp.NewTool("prescription_list",
			mcp.WithDescription("List the prescriptions saved for the current account"),
			mcp.WithReadOnlyHintAnnotation(true),
		)
		s.AddTool(listTool, common.InstrumentedToolHandler("prescription_list", sc, handleList(sc)))
	}

	// Saving is a write, so read-only servers only convert.
	allowSave := !readOnly && sc.Prescriptions() != nil
	medicinesOpts := []mcp.ToolOption{
		mcp.WithDescription("Turn medicines read from a prescription label (name, dose, frequency per day, duration in days, timing) into prescriptions with default dose times. Missing frequency means once a day, missing duration means 7 days."),
		mcp.WithArray("medicines",
			mcp.Required(),
			mcp.Description("Medicines, e.g. [{\"name\":\"Amoxicillin\",\"dose\":\"500mg\",\"frequency_per_day\":3,\"duration_days\":5,\"timing\":\"after meals\"}] (at most 10)"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithString("startDate",
			mcp.Description("First day of every course, YYYY-MM-DD. Defaults to today."),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA time zone the dose times are in. Defaults to UTC."),
		),
	}
	if allowSave {
		medicinesOpts = append(medicinesOpts, mcp.WithBoolean("save",
			mcp.Description("Save the prescriptions for the current account"),
		))
	} else {
		medicinesOpts = append(medicinesOpts, mcp.WithReadOnlyHintAnnotation(true))
	}
	s.AddTool(mcp.NewTool("prescription_from_medicines", medicinesOpts...),
		common.InstrumentedToolHandler("prescription_from_medicines", sc, handleFromMedicines(sc, allowSave)))

	if readOnly {
		return nil
	}
	if sc.Gateway() == nil {
		return fmt.Errorf("prescription tools need a gateway")
	}

	scheduleOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Create one tagged calendar reminder per dose of a prescription. Pass either prescriptionId of a saved prescription or the prescription fields. Failed doses are reported without stopping the others."),
		mcp.WithString("prescriptionId",
			mcp.Description("ID of a saved prescription"),
		),
	}, prescriptionOptions(false)...)
	s.AddTool(mcp.NewTool("prescription_schedule", scheduleOpts...),
		common.InstrumentedToolHandlerWithService("prescription_schedule",
			instrumentation.ServiceCalendar, instrumentation.OperationCreate, sc, handleSchedule(sc)))

	return nil
}

func handleExpand() mcpserver.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := prescriptionFromArgs(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		items, err := prescription.Expand(p)
		if err != nil {
			return common.ErrorResult("expand prescription", err)
		}
		return common.JSONResult(items)
	}
}

func handleFromMedicines(sc *server.ServerContext, allowSave bool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		medicines, err := medicinesFromArgs(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		startDate, err := stringArg(args, "startDate")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		timeZone, err := stringArg(args, "timezone")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		save := request.GetBool("save", false)
		if save && !allowSave {
			return mcp.NewToolResultError("saving prescriptions is not available on this server"), nil
		}

		ps, err := prescription.FromMedicines(medicines, startDate, timeZone, sc.Gateway().Now())
		if err != nil {
			return common.ErrorResult("convert medicines", err)
		}

		var owner string
		if save {
			if owner, err = gateway.SessionAccount(ctx); err != nil {
				return common.ErrorResult("save prescriptions", err)
			}
		}

		courses := make([]prescription.Course, 0, len(ps))
		for _, p := range ps {
			course, err := p.Course()
			if err != nil {
				return common.ErrorResult("convert medicines", err)
			}
			if save {
				rec, err := sc.Prescriptions().Create(ctx, owner, p)
				if err != nil {
					return common.ErrorResult("save prescriptions", err)
				}
				course.ID = rec.ID
			}
			courses = append(courses, course)
		}
		return common.JSONResult(courses)
	}
}

func handleList(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner, err := gateway.SessionAccount(ctx)
		if err != nil {
			return common.ErrorResult("list prescriptions", err)
		}
		records, err := sc.Prescriptions().List(ctx, owner)
		if err != nil {
			return common.ErrorResult("list prescriptions", err)
		}
		return common.JSONResult(records)
	}
}

func handleSchedule(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := resolvePrescription(ctx, sc, request)
		if err != nil {
			return common.ErrorResult("schedule prescription", err)
		}

		result, err := sc.Gateway().SchedulePrescription(ctx, p)
		if err != nil {
			return common.ErrorResult("schedule prescription", err)
		}
		return common.JSONResult(result)
	}
}

// resolvePrescription loads prescriptionId for the session's account, or
// reads the prescription from the arguments.
func resolvePrescription(ctx context.Context, sc *server.ServerContext, request mcp.CallToolRequest) (prescription.Prescription, error) {
	id := request.GetString("prescriptionId", "")
	if id == "" {
		return prescriptionFromArgs(request.GetArguments())
	}

	if sc.Prescriptions() == nil {
		return prescription.Prescription{}, errors.New("saved prescriptions are not enabled on this server")
	}
	owner, err := gateway.SessionAccount(ctx)
	if err != nil {
		return prescription.Prescription{}, err
	}
	rec, err := sc.Prescriptions().Get(ctx, owner, id)
	if errors.Is(err, store.ErrNotFound) {
		return prescription.Prescription{}, fmt.Errorf("prescription %s not found", id)
	}
	if err != nil {
		return prescription.Prescription{}, err
	}
	return rec.Prescription, nil
}
