package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/prescription"
	"github.com/teemow/pillminder/internal/session"
	"github.com/teemow/pillminder/internal/store"
)

// maxRequestBodyBytes bounds JSON request bodies.
const maxRequestBodyBytes = 1 << 20

// api implements the JSON endpoints over a ServerContext.
type api struct {
	sc *ServerContext
}

// registerAPIRoutes mounts the /api endpoints on r.
func (a *api) registerAPIRoutes(r *mux.Router) {
	r.HandleFunc("/events", a.listEvents).Methods(http.MethodGet)
	r.HandleFunc("/events", a.createEvent).Methods(http.MethodPost)
	r.HandleFunc("/tasks", a.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", a.createTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/complete", a.completeTask).Methods(http.MethodPost)

	r.HandleFunc("/prescriptions/expand", a.expandPrescription).Methods(http.MethodPost)
	r.HandleFunc("/prescriptions/from-medicines", a.prescriptionsFromMedicines).Methods(http.MethodPost)
	r.HandleFunc("/prescriptions", a.createPrescription).Methods(http.MethodPost)
	r.HandleFunc("/prescriptions", a.listPrescriptions).Methods(http.MethodGet)
	r.HandleFunc("/prescriptions/{id}", a.getPrescription).Methods(http.MethodGet)
	r.HandleFunc("/prescriptions/{id}", a.deletePrescription).Methods(http.MethodDelete)
	r.HandleFunc("/prescriptions/{id}/schedule", a.schedulePrescription).Methods(http.MethodPost)
	r.HandleFunc("/prescriptions/{id}/calendar.ics", a.prescriptionCalendar).Methods(http.MethodGet)
	r.HandleFunc("/prescriptions/{id}/feed", a.issueFeed).Methods(http.MethodPost)
}

// registerFeedRoutes mounts the public feed endpoint on r.
func (a *api) registerFeedRoutes(r *mux.Router) {
	r.HandleFunc("/feeds/{token}/calendar.ics", a.feedCalendar).Methods(http.MethodGet)
}

func (a *api) fail(w http.ResponseWriter, err error) {
	writeError(w, a.sc.Logger(), err)
}

func (a *api) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.sc.Gateway().ListUpcomingEvents(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *api) createEvent(w http.ResponseWriter, r *http.Request) {
	var req gateway.EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := a.sc.Gateway().CreateEvent(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (a *api) listTasks(w http.ResponseWriter, r *http.Request) {
	items, err := a.sc.Gateway().ListUpcomingTasks(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": items})
}

func (a *api) createTask(w http.ResponseWriter, r *http.Request) {
	var req gateway.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := a.sc.Gateway().CreateTask(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *api) completeTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.sc.Gateway().CompleteTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// expandPrescription needs no session: expansion is pure.
func (a *api) expandPrescription(w http.ResponseWriter, r *http.Request) {
	var p prescription.Prescription
	if !decodeJSON(w, r, &p) {
		return
	}
	items, err := prescription.Expand(p.WithDefaults())
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": items})
}

// medicinesRequest carries medicines extracted from a prescription label.
type medicinesRequest struct {
	Medicines []prescription.Medicine `json:"medicines"`
	StartDate string                  `json:"startDate,omitempty"`
	TimeZone  string                  `json:"timezone,omitempty"`
	Save      bool                    `json:"save,omitempty"`
}

// prescriptionsFromMedicines turns extracted medicines into prescriptions.
// Converting needs no session; saving does.
func (a *api) prescriptionsFromMedicines(w http.ResponseWriter, r *http.Request) {
	var req medicinesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ps, err := prescription.FromMedicines(req.Medicines, req.StartDate, req.TimeZone, a.sc.Gateway().Now())
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var owner string
	if req.Save {
		if owner, err = gateway.SessionAccount(r.Context()); err != nil {
			a.fail(w, err)
			return
		}
		if !a.requireStore(w) {
			return
		}
	}

	courses := make([]prescription.Course, 0, len(ps))
	for _, p := range ps {
		course, err := p.Course()
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		if req.Save {
			rec, err := a.sc.Prescriptions().Create(r.Context(), owner, p)
			if err != nil {
				a.fail(w, err)
				return
			}
			course.ID = rec.ID
		}
		courses = append(courses, course)
	}

	status := http.StatusOK
	if req.Save {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"prescriptions": courses})
}

func (a *api) createPrescription(w http.ResponseWriter, r *http.Request) {
	owner, err := gateway.SessionAccount(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	var p prescription.Prescription
	if !decodeJSON(w, r, &p) {
		return
	}
	if !a.requireStore(w) {
		return
	}

	rec, err := a.sc.Prescriptions().Create(r.Context(), owner, p)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *api) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	owner, err := gateway.SessionAccount(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	if !a.requireStore(w) {
		return
	}

	records, err := a.sc.Prescriptions().List(r.Context(), owner)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": records})
}

func (a *api) getPrescription(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.loadRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) deletePrescription(w http.ResponseWriter, r *http.Request) {
	owner, err := gateway.SessionAccount(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	if !a.requireStore(w) {
		return
	}

	if err := a.sc.Prescriptions().Delete(r.Context(), owner, mux.Vars(r)["id"]); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) schedulePrescription(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.loadRecord(w, r)
	if !ok {
		return
	}
	result, err := a.sc.Gateway().SchedulePrescription(r.Context(), rec.Prescription)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *api) prescriptionCalendar(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.loadRecord(w, r)
	if !ok {
		return
	}
	a.writeCalendar(w, rec)
}

func (a *api) issueFeed(w http.ResponseWriter, r *http.Request) {
	signer := a.sc.FeedSigner()
	if signer == nil {
		writeNotEnabled(w)
		return
	}
	rec, ok := a.loadRecord(w, r)
	if !ok {
		return
	}

	token, expiresAt, err := signer.Issue(rec.Owner, rec.ID)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"url":       feedURL(a.sc.BaseURL(), token),
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (a *api) feedCalendar(w http.ResponseWriter, r *http.Request) {
	signer := a.sc.FeedSigner()
	if signer == nil {
		writeNotEnabled(w)
		return
	}
	claims, err := signer.Verify(mux.Vars(r)["token"])
	if err != nil {
		a.fail(w, err)
		return
	}
	if !a.requireStore(w) {
		return
	}

	rec, err := a.sc.Prescriptions().Get(r.Context(), claims.Owner, claims.PrescriptionID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeCalendar(w, rec)
}

// loadRecord resolves {id} for the session's account.
func (a *api) loadRecord(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	owner, err := gateway.SessionAccount(r.Context())
	if err != nil {
		a.fail(w, err)
		return nil, false
	}
	if !a.requireStore(w) {
		return nil, false
	}

	rec, err := a.sc.Prescriptions().Get(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, err)
		return nil, false
	}
	return rec, true
}

func (a *api) requireStore(w http.ResponseWriter) bool {
	if a.sc.Prescriptions() == nil {
		writeNotEnabled(w)
		return false
	}
	return true
}

func (a *api) writeCalendar(w http.ResponseWriter, rec *store.Record) {
	events, err := prescription.Plan(rec.Prescription, gateway.PlanOptions())
	if err != nil {
		a.fail(w, &gateway.ValidationError{Field: "prescription", Reason: err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := prescription.WriteICS(&buf, rec.Prescription.Title(), events); err != nil {
		a.fail(w, fmt.Errorf("failed to render calendar: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+rec.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func feedURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + "/feeds/" + token + "/calendar.ics"
}

func writeNotEnabled(w http.ResponseWriter) {
	session.WriteError(w, http.StatusNotImplemented, ErrorCodeNotImplemented, "This feature is not enabled on this server.")
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
