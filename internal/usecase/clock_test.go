package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

type clockFixture struct {
	clk      *clock
	sessions *memSessions
	sheets   *memTimesheets
	items    *fakeWorkItems
	clock    *ClockService
	ts       *TimesheetService
}

func newClockFixture(start time.Time) *clockFixture {
	f := &clockFixture{
		clk:      newClock(start),
		sessions: newMemSessions(),
		sheets:   newMemTimesheets(),
		items:    &fakeWorkItems{items: map[int64]domain.WorkItem{}},
	}
	f.ts = &TimesheetService{
		Log:       quietLogger(),
		Store:     f.sheets,
		Leave:     &memLeave{},
		WorkItems: f.items,
		Location:  time.UTC,
	}
	f.clock = &ClockService{
		Log:       quietLogger(),
		Sessions:  f.sessions,
		Recorder:  f.ts,
		WorkItems: f.items,
		Now:       f.clk.Now,
	}
	return f
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestClockDayWithLunchBreak(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)) // Monday

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(3 * time.Hour)
	if _, err := f.clock.Pause(ctx, "u1", "lunch"); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(30 * time.Minute)
	if _, err := f.clock.Resume(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(4*time.Hour + 30*time.Minute)
	res, err := f.clock.ClockOut(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if !almost(res.TotalHours, 7.5) {
		t.Fatalf("expected 7.5 worked hours, got %v", res.TotalHours)
	}
	if !res.TimesheetUpdated {
		t.Fatal("expected timesheet to be updated")
	}
	if res.Session.Status != domain.StatusClockedOut || !almost(res.Session.PausedHours, 0.5) {
		t.Fatalf("unexpected session: %+v", res.Session)
	}

	row, ok := f.sheets.clockRow("u1", date(2024, 3, 4), domain.Key{Project: DefaultProject, Task: DefaultTask})
	if !ok {
		t.Fatal("time_clock row not created")
	}
	if !almost(row.Hours[week.Mon], 7.5) || !almost(row.Total(), 7.5) {
		t.Fatalf("unexpected hours: %v", row.Hours)
	}
}

func TestClockOutAccumulatesIntoOneRow(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)) // Wednesday

	for i := 0; i < 3; i++ {
		if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1", ProjectName: "Payroll"}); err != nil {
			t.Fatal(err)
		}
		f.clk.Advance(90 * time.Minute)
		if _, err := f.clock.ClockOut(ctx, "u1", ""); err != nil {
			t.Fatal(err)
		}
		f.clk.Advance(15 * time.Minute)
	}
	row, ok := f.sheets.clockRow("u1", date(2024, 3, 4), domain.Key{Project: "Payroll", Task: DefaultTask})
	if !ok {
		t.Fatal("row missing")
	}
	if !almost(row.Hours[week.Wed], 4.5) {
		t.Fatalf("expected 4.5 on wed, got %v", row.Hours)
	}
	if n := len(f.sheets.entries); n != 1 {
		t.Fatalf("expected one timesheet, got %d", n)
	}
}

func TestClockOutUsesWorkItemLabels(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)) // Sunday
	f.items.items[42] = domain.WorkItem{ID: 42, Title: "Fix payslip export", ProjectName: "HR Portal", Status: "opened"}

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1", IssueID: ptr(int64(42))}); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(2 * time.Hour)
	res, err := f.clock.ClockOut(ctx, "u1", "exported March")
	if err != nil {
		t.Fatal(err)
	}
	if !res.TimesheetUpdated {
		t.Fatal("expected timesheet update")
	}
	// Sunday belongs to the week that started the previous Monday.
	row, ok := f.sheets.clockRow("u1", date(2024, 3, 4), domain.Key{Project: "HR Portal", Task: "Fix payslip export"})
	if !ok {
		t.Fatal("row missing")
	}
	if !almost(row.Hours[week.Sun], 2) {
		t.Fatalf("expected 2h on sun, got %v", row.Hours)
	}
	f.clock.Wait()
	if got := f.items.commentsFor(42); len(got) != 1 || got[0] != "exported March" {
		t.Fatalf("unexpected comments: %v", got)
	}
}

func TestClockOutFallsBackWhenLookupFails(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	f.items.getErr = errBoom
	f.items.commentEr = errBoom

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1", IssueID: ptr(int64(7)), ProjectName: "Ops"}); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(time.Hour)
	res, err := f.clock.ClockOut(ctx, "u1", "done")
	if err != nil {
		t.Fatalf("comment failure must not fail clock-out: %v", err)
	}
	if !res.TimesheetUpdated {
		t.Fatal("expected timesheet update with fallback labels")
	}
	if _, ok := f.sheets.clockRow("u1", date(2024, 3, 4), domain.Key{Project: "Ops", Task: "Issue #7"}); !ok {
		t.Fatal("fallback row missing")
	}
	f.clock.Wait()
}

func TestClockOutDoesNotWaitForComment(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	f.items.items[42] = domain.WorkItem{ID: 42, Title: "Fix payslip export", ProjectName: "HR Portal", Status: "opened"}
	f.items.block = make(chan struct{})

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1", IssueID: ptr(int64(42))}); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(time.Hour)

	done := make(chan *ClockOutResult, 1)
	go func() {
		res, err := f.clock.ClockOut(ctx, "u1", "slow tracker")
		if err != nil {
			t.Error(err)
		}
		done <- res
	}()
	var res *ClockOutResult
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		close(f.items.block)
		t.Fatal("clock-out waited for the comment")
	}
	if res == nil || !res.TimesheetUpdated {
		t.Fatalf("expected timesheet update, got %+v", res)
	}
	if got := f.items.commentsFor(42); len(got) != 0 {
		t.Fatalf("comment posted before release: %v", got)
	}

	close(f.items.block)
	f.clock.Wait()
	if got := f.items.commentsFor(42); len(got) != 1 || got[0] != "slow tracker" {
		t.Fatalf("unexpected comments: %v", got)
	}
}

func TestClockOutShortSessionFloors(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(10 * time.Second)
	res, err := f.clock.ClockOut(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalHours != MinWorkedHours {
		t.Fatalf("expected %v, got %v", MinWorkedHours, res.TotalHours)
	}
	if !res.TimesheetUpdated {
		t.Fatal("expected timesheet update")
	}
}

func TestClockOutZeroLengthRecordsNothing(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	res, err := f.clock.ClockOut(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalHours != 0 || res.TimesheetUpdated {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f.sheets.writes != 0 {
		t.Fatalf("expected no timesheet writes, got %d", f.sheets.writes)
	}
}

func TestClockOutSucceedsWhenTimesheetFails(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	f.sheets.failAdd = errBoom

	s, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(2 * time.Hour)
	res, err := f.clock.ClockOut(ctx, "u1", "")
	if err != nil {
		t.Fatalf("clock-out must succeed: %v", err)
	}
	if res.TimesheetUpdated {
		t.Fatal("expected TimesheetUpdated=false")
	}
	stored, err := f.sessions.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.StatusClockedOut || stored.TotalHours == nil || !almost(*stored.TotalHours, 2) {
		t.Fatalf("session not closed: %+v", stored)
	}
}

func TestClockOutSideEffectsOutliveCaller(t *testing.T) {
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	var sawErr error = errBoom
	f.clock.Recorder = recorderFunc(func(ctx context.Context, _ *domain.ClockSession, _ float64) error {
		sawErr = ctx.Err()
		return nil
	})

	if _, err := f.clock.ClockIn(context.Background(), ClockInRequest{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.clock.ClockOut(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if sawErr != nil || !res.TimesheetUpdated {
		t.Fatalf("recorder saw cancelled context: %v", sawErr)
	}
}

func TestClockOutWhilePaused(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(4 * time.Hour)
	if _, err := f.clock.Pause(ctx, "u1", "doctor"); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(time.Hour)
	res, err := f.clock.ClockOut(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if !almost(res.TotalHours, 4) || !almost(res.Session.PausedHours, 1) {
		t.Fatalf("open pause not folded in: %+v", res)
	}
}

func TestPauseResumeAccumulates(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC))

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	prev := 0.0
	for i := 0; i < 4; i++ {
		f.clk.Advance(time.Hour)
		if _, err := f.clock.Pause(ctx, "u1", "break"); err != nil {
			t.Fatal(err)
		}
		f.clk.Advance(15 * time.Minute)
		s, err := f.clock.Resume(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if s.PausedHours < prev {
			t.Fatalf("paused hours decreased: %v -> %v", prev, s.PausedHours)
		}
		prev = s.PausedHours
	}
	if !almost(prev, 1) {
		t.Fatalf("expected 1h paused, got %v", prev)
	}
	f.clk.Advance(time.Hour)
	res, err := f.clock.ClockOut(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if !almost(res.TotalHours, 5) {
		t.Fatalf("expected 5h worked, got %v", res.TotalHours)
	}
}

func TestSecondClockInRejected(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))

	first, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"}); !errors.Is(err, domain.ErrAlreadyClockedIn) {
		t.Fatalf("expected ErrAlreadyClockedIn, got %v", err)
	}
	if f.sessions.creates != 1 {
		t.Fatalf("expected one session, got %d", f.sessions.creates)
	}
	cur, err := f.clock.Current(ctx, "u1")
	if err != nil || cur == nil || cur.ID != first.ID {
		t.Fatalf("current session changed: %+v %v", cur, err)
	}
	// Another user is unaffected.
	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u2"}); err != nil {
		t.Fatal(err)
	}
}

func TestClockPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))

	if _, err := f.clock.Pause(ctx, "u1", "lunch"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("pause without session: %v", err)
	}
	if _, err := f.clock.Resume(ctx, "u1"); !errors.Is(err, domain.ErrNoPausedSession) {
		t.Fatalf("resume without session: %v", err)
	}
	if _, err := f.clock.ClockOut(ctx, "u1", ""); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("clock-out without session: %v", err)
	}

	if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.clock.Pause(ctx, "u1", "   "); !errors.Is(err, domain.ErrReasonRequired) {
		t.Fatalf("blank reason: %v", err)
	}
	if _, err := f.clock.Resume(ctx, "u1"); !errors.Is(err, domain.ErrNoPausedSession) {
		t.Fatalf("resume while running: %v", err)
	}
	if _, err := f.clock.Pause(ctx, "u1", "lunch"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.clock.Pause(ctx, "u1", "again"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("pause while paused: %v", err)
	}
	cur, _ := f.clock.Current(ctx, "u1")
	if cur.PauseReason != "lunch" {
		t.Fatalf("failed pause mutated state: %+v", cur)
	}
	for _, err := range []error{domain.ErrAlreadyClockedIn, domain.ErrNoActiveSession, domain.ErrNoPausedSession, domain.ErrReasonRequired} {
		if !domain.IsPrecondition(err) {
			t.Fatalf("%v should be a precondition error", err)
		}
	}
}

func TestClockInValidation(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))

	cases := []ClockInRequest{
		{UserID: ""},
		{UserID: "u1", Latitude: ptr(91.0)},
		{UserID: "u1", Longitude: ptr(-181.0)},
	}
	for _, req := range cases {
		if _, err := f.clock.ClockIn(ctx, req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%+v: expected ErrInvalidInput, got %v", req, err)
		}
	}
	s, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1", Latitude: ptr(52.5), Longitude: ptr(13.4), Address: " Berlin "})
	if err != nil {
		t.Fatal(err)
	}
	if s.Location.Address != "Berlin" || *s.Location.Latitude != 52.5 {
		t.Fatalf("location not captured: %+v", s.Location)
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newClockFixture(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	for i := 0; i < 3; i++ {
		if _, err := f.clock.ClockIn(ctx, ClockInRequest{UserID: "u1"}); err != nil {
			t.Fatal(err)
		}
		f.clk.Advance(time.Hour)
		if _, err := f.clock.ClockOut(ctx, "u1", ""); err != nil {
			t.Fatal(err)
		}
		f.clk.Advance(23 * time.Hour)
	}
	got, err := f.clock.History(ctx, "u1", date(2024, 3, 5), date(2024, 3, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if _, err := f.clock.History(ctx, "u1", date(2024, 3, 7), date(2024, 3, 7)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWorkedHours(t *testing.T) {
	cases := []struct {
		raw, paused, want float64
	}{
		{8, 0.5, 7.5},
		{0, 0, 0},
		{-1, 0, 0},
		{0.001, 0, 0.01},
		{2, 3, 0.01},
		{1.23456, 0, 1.23},
	}
	for _, c := range cases {
		if got := WorkedHours(c.raw, c.paused); !almost(got, c.want) {
			t.Errorf("WorkedHours(%v, %v) = %v, want %v", c.raw, c.paused, got, c.want)
		}
	}
}
