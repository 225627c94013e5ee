package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/usecase"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// Identity is taken from headers set by the authenticating proxy in front of
// this service.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	roleAdmin      = "admin"
)

// HTTPServer returns a configured http.Server exposing the timeclock API.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.log.Info("http server configured", slog.String("addr", addr))
	return srv
}

// Handler returns the routed API with request logging.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", a.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/timeclock/clock-in", a.clockIn).Methods(http.MethodPost)
	api.HandleFunc("/timeclock/pause", a.pause).Methods(http.MethodPost)
	api.HandleFunc("/timeclock/resume", a.resume).Methods(http.MethodPost)
	api.HandleFunc("/timeclock/clock-out", a.clockOut).Methods(http.MethodPost)
	api.HandleFunc("/timeclock/current", a.current).Methods(http.MethodGet)
	api.HandleFunc("/timeclock/sessions", a.sessions).Methods(http.MethodGet)

	api.HandleFunc("/timesheets/week", a.getWeek).Methods(http.MethodGet)
	api.HandleFunc("/timesheets/week", a.saveWeek).Methods(http.MethodPut)
	api.HandleFunc("/timesheets/week/submit", a.submitWeek).Methods(http.MethodPost)

	api.HandleFunc("/leave", a.submitLeave).Methods(http.MethodPost)
	api.HandleFunc("/leave", a.listLeave).Methods(http.MethodGet)
	api.HandleFunc("/leave/{id}/approve", a.decideLeave(true)).Methods(http.MethodPost)
	api.HandleFunc("/leave/{id}/reject", a.decideLeave(false)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, newProblem(http.StatusNotFound, "no such route", r.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, newProblem(http.StatusMethodNotAllowed, "method not allowed", r.URL.Path))
	})
	return loggingMiddleware(a.log, r)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		a.log.Warn("health check failed", slog.String("error", err.Error()))
		writeProblem(w, newProblem(http.StatusServiceUnavailable, "database unavailable", r.URL.Path))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *App) clockIn(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	var body clockInRequest
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	s, err := a.clock.ClockIn(r.Context(), usecase.ClockInRequest{
		UserID:      user,
		IssueID:     body.IssueID,
		ProjectName: body.ProjectName,
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
		Address:     body.Address,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(s, a.now()))
}

func (a *App) pause(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	var body pauseRequest
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	s, err := a.clock.Pause(r.Context(), user, body.Reason)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s, a.now()))
}

func (a *App) resume(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	s, err := a.clock.Resume(r.Context(), user)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s, a.now()))
}

func (a *App) clockOut(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	var body clockOutRequest
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.clock.ClockOut(r.Context(), user, body.Comment)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clockOutResponse{
		Session:          toSessionDTO(res.Session, a.now()),
		TotalHours:       res.TotalHours,
		TimesheetUpdated: res.TimesheetUpdated,
	})
}

func (a *App) current(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	s, err := a.clock.Current(r.Context(), user)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	// A nil *sessionDTO encodes as null.
	writeJSON(w, http.StatusOK, toSessionDTO(s, a.now()))
}

// sessions lists sessions clocked in between from and to, both inclusive
// YYYY-MM-DD dates. Both default to the current week.
func (a *App) sessions(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	ws := a.sheets.WeekOf(a.today())
	from, err := a.dateParam(q.Get("from"), ws)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	to, err := a.dateParam(q.Get("to"), week.End(ws))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	list, err := a.clock.History(r.Context(), user, from, to.AddDate(0, 0, 1))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	now := a.now()
	out := make([]*sessionDTO, 0, len(list))
	for i := range list {
		out = append(out, toSessionDTO(&list[i], now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) getWeek(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	target, err := a.subject(r, user, q.Get("user_id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ws, err := a.dateParam(q.Get("week_start"), a.today())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	v, err := a.sheets.GetWeek(r.Context(), target, ws)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeekDTO(v))
}

func (a *App) saveWeek(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	var body saveWeekRequest
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	target, err := a.subject(r, user, body.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if body.WeekStart == "" {
		a.writeError(w, r, fmt.Errorf("%w: week_start is required", domain.ErrInvalidInput))
		return
	}
	ws, err := a.dateParam(body.WeekStart, time.Time{})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	entries := make([]domain.Entry, 0, len(body.Entries))
	for _, e := range body.Entries {
		entries = append(entries, e.toDomain())
	}
	id, n, err := a.sheets.SaveManualEntries(r.Context(), target, ws, entries)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveWeekResponse{TimesheetID: id, EntriesSaved: n})
}

func (a *App) submitWeek(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	var body submitWeekRequest
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	target, err := a.subject(r, user, body.UserID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ws, err := a.dateParam(body.WeekStart, a.today())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ts, err := a.sheets.SubmitWeek(r.Context(), target, ws)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weekDTO{
		TimesheetID: ts.ID,
		UserID:      ts.UserID,
		WeekStart:   week.FormatDate(ts.WeekStart),
		WeekEnd:     week.FormatDate(ts.WeekEnd),
		Status:      ts.Status,
		Entries:     []entryDTO{},
	})
}

func (a *App) submitLeave(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	var body leaveRequest
	if err := decodeBody(r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	start, err := week.ParseDate(body.StartDate, a.loc)
	if err != nil {
		a.writeError(w, r, fmt.Errorf("%w: start_date: %v", domain.ErrInvalidInput, err))
		return
	}
	end, err := week.ParseDate(body.EndDate, a.loc)
	if err != nil {
		a.writeError(w, r, fmt.Errorf("%w: end_date: %v", domain.ErrInvalidInput, err))
		return
	}
	lr, err := a.leave.Submit(r.Context(), usecase.SubmitLeaveRequest{
		UserID:    user,
		LeaveType: body.LeaveType,
		Reason:    body.Reason,
		Start:     start,
		End:       end,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(lr))
}

func (a *App) listLeave(w http.ResponseWriter, r *http.Request) {
	user, ok := a.caller(w, r)
	if !ok {
		return
	}
	target, err := a.subject(r, user, r.URL.Query().Get("user_id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	list, err := a.leave.List(r.Context(), target)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]leaveDTO, 0, len(list))
	for i := range list {
		out = append(out, toLeaveDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) decideLeave(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.caller(w, r)
		if !ok {
			return
		}
		if !isAdmin(r) {
			a.writeError(w, r, fmt.Errorf("%w: only admins may decide leave", domain.ErrForbidden))
			return
		}
		lr, err := a.leave.Decide(r.Context(), mux.Vars(r)["id"], approve, user)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toLeaveDTO(lr))
	}
}

// caller returns the authenticated user id or writes a 401.
func (a *App) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(headerUserID))
	if id == "" {
		writeProblem(w, newProblem(http.StatusUnauthorized, headerUserID+" header is required", r.URL.Path))
		return "", false
	}
	return id, true
}

// subject resolves whose data a request targets. Only admins may name
// another user.
func (a *App) subject(r *http.Request, caller, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == caller {
		return caller, nil
	}
	if !isAdmin(r) {
		return "", fmt.Errorf("%w: cannot access another user's data", domain.ErrForbidden)
	}
	return requested, nil
}

func isAdmin(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(headerUserRole)), roleAdmin)
}

// today is the current instant in the service calendar.
func (a *App) today() time.Time { return a.now().In(a.loc) }

// dateParam parses a YYYY-MM-DD value in the service calendar, returning def
// when the value is empty.
func (a *App) dateParam(val string, def time.Time) (time.Time, error) {
	if val == "" {
		return def, nil
	}
	d, err := week.ParseDate(val, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return d, nil
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
