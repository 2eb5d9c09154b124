package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/pomotrack/internal/goal"
	"github.com/sadopc/pomotrack/internal/timer"
	"github.com/sadopc/pomotrack/internal/timer/timertest"
)

var epoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testApp struct {
	app      App
	clock    *timertest.Clock
	kv       *timertest.KV
	sessions *timertest.Sessions
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithKV(t, timertest.NewKV())
}

// newTestAppWithKV builds the app over kv, so stored settings are loaded at
// construction.
func newTestAppWithKV(t *testing.T, kv *timertest.KV) *testApp {
	t.Helper()
	ta := &testApp{
		clock:    timertest.NewClock(epoch),
		kv:       kv,
		sessions: timertest.NewSessions(),
	}
	ta.app = NewApp(Options{
		Settings:  ta.kv,
		Sessions:  ta.sessions,
		Chime:     &timertest.Chime{},
		Clock:     ta.clock,
		Account:   "me@example.com",
		ExportDir: t.TempDir(),
	})
	t.Cleanup(ta.app.Close)
	return ta
}

func (ta *testApp) send(msg tea.Msg) tea.Cmd {
	m, cmd := ta.app.Update(msg)
	ta.app = m.(App)
	return cmd
}

func (ta *testApp) press(k string) {
	if k == " " {
		ta.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		return
	}
	ta.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

// sample delivers a tick for every live repeating task.
func (ta *testApp) sample() {
	for id := range ta.app.sched.tasks {
		ta.send(sampleMsg{id: id})
	}
}

// ============================================================
// Scheduler
// ============================================================

func TestSchedulerQueuesTicks(t *testing.T) {
	s := newTeaScheduler()
	calls := 0
	cancel := s.ScheduleRepeating(100*time.Millisecond, func() { calls++ })

	if s.active() != 1 {
		t.Fatalf("active = %d, want 1", s.active())
	}
	if s.drain() == nil {
		t.Fatal("expected a pending tick")
	}
	if s.drain() != nil {
		t.Fatal("drain should empty the queue")
	}

	s.fire(1)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if s.drain() == nil {
		t.Fatal("fire should queue the next tick")
	}

	cancel()
	s.fire(1)
	if calls != 1 {
		t.Fatal("cancelled task should not run")
	}
	if s.drain() != nil {
		t.Fatal("cancelled task should not requeue")
	}
}

func TestSchedulerVisibility(t *testing.T) {
	s := newTeaScheduler()
	var seen []bool
	unsubscribe := s.OnVisibilityChange(func(v bool) { seen = append(seen, v) })

	s.setVisible(true) // already visible
	s.setVisible(false)
	s.setVisible(false)
	s.setVisible(true)
	if len(seen) != 2 || seen[0] || !seen[1] {
		t.Fatalf("seen = %v, want [false true]", seen)
	}

	unsubscribe()
	s.setVisible(false)
	if len(seen) != 2 {
		t.Fatal("unsubscribed watcher was called")
	}
}

// ============================================================
// App
// ============================================================

func TestNewApp(t *testing.T) {
	ta := newTestApp(t)

	if ta.app.activeView != viewTimer {
		t.Fatal("default view should be timer")
	}
	if ta.app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if ta.app.exportPicking {
		t.Fatal("export picker should be hidden by default")
	}
	snap := ta.app.machine.Snapshot()
	if snap.Mode != timer.ModeFocus || snap.State != timer.Idle || snap.TimeLeft() != 1500 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestAppLoadingState(t *testing.T) {
	ta := newTestApp(t)
	if out := ta.app.View(); out != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", out)
	}
}

func TestAppViewStates(t *testing.T) {
	ta := newTestApp(t)
	ta.send(tea.WindowSizeMsg{Width: 120, Height: 40})

	for _, v := range []viewState{viewTimer, viewHistory, viewSettings} {
		ta.app.activeView = v
		if out := ta.app.View(); out == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppRenderHeader(t *testing.T) {
	ta := newTestApp(t)
	ta.send(tea.WindowSizeMsg{Width: 120, Height: 40})

	header := ta.app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
	if !strings.Contains(header, "me@example.com") {
		t.Fatal("header should show the account")
	}
}

func TestAppStatusMessage(t *testing.T) {
	ta := newTestApp(t)
	ta.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	ta.send(statusMsg{text: "test status"})

	if !strings.Contains(ta.app.renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppTabs(t *testing.T) {
	ta := newTestApp(t)
	ta.press("2")
	if ta.app.activeView != viewHistory {
		t.Fatal("2 should open history")
	}
	ta.press("3")
	if ta.app.activeView != viewSettings {
		t.Fatal("3 should open settings")
	}
	ta.send(tea.KeyMsg{Type: tea.KeyTab})
	if ta.app.activeView != viewTimer {
		t.Fatal("tab should wrap to timer")
	}
}

func TestAppTimerKeys(t *testing.T) {
	ta := newTestApp(t)

	ta.press("s")
	if got := ta.app.machine.Snapshot().State; got != timer.Running {
		t.Fatalf("state = %v, want running", got)
	}
	if ta.app.sched.active() != 1 {
		t.Fatalf("active samplers = %d, want 1", ta.app.sched.active())
	}

	ta.press(" ")
	if got := ta.app.machine.Snapshot().State; got != timer.Paused {
		t.Fatalf("state = %v, want paused", got)
	}
	if ta.app.sched.active() != 0 {
		t.Fatal("pause should cancel the sampler")
	}

	ta.press(" ")
	if got := ta.app.machine.Snapshot().State; got != timer.Running {
		t.Fatalf("state = %v, want running after resume", got)
	}

	ta.press("b")
	snap := ta.app.machine.Snapshot()
	if snap.Mode != timer.ModeBreak || snap.State != timer.Idle {
		t.Fatalf("snapshot after b = %+v", snap)
	}

	ta.press("a")
	if ta.app.machine.Snapshot().Config.AutoStartNext {
		t.Fatal("a should toggle auto-start off")
	}
}

func TestAppTimerKeysIgnoredOffTimerView(t *testing.T) {
	ta := newTestApp(t)
	ta.press("2")
	ta.press("s")
	if ta.app.machine.Snapshot().State != timer.Idle {
		t.Fatal("start key should only act on the timer view")
	}
}

func TestAppCompletesCycle(t *testing.T) {
	ta := newTestApp(t)
	ta.press("s")

	ta.clock.Add(25*time.Minute + time.Millisecond)
	ta.sample()

	snap := ta.app.machine.Snapshot()
	if snap.Mode != timer.ModeBreak {
		t.Fatalf("mode = %v, want break", snap.Mode)
	}
	if snap.CyclesCompleted != 1 {
		t.Fatalf("cycles = %d, want 1", snap.CyclesCompleted)
	}

	var msg loggedMsg
	select {
	case msg = <-ta.app.logged:
	case <-time.After(2 * time.Second):
		t.Fatal("session was not logged")
	}
	if msg.kind != timer.KindFocus || msg.err != nil {
		t.Fatalf("logged = %+v", msg)
	}

	ta.send(msg)
	if !strings.Contains(ta.app.status, "Focus complete") {
		t.Fatalf("status = %q", ta.app.status)
	}
}

func TestAppLogFailureShowsError(t *testing.T) {
	ta := newTestApp(t)
	ta.send(loggedMsg{kind: timer.KindFocus, err: errors.New("offline")})
	if !ta.app.statusError || !strings.Contains(ta.app.status, "offline") {
		t.Fatalf("status = %q, error = %v", ta.app.status, ta.app.statusError)
	}
}

func TestAppBlurSlowsSampler(t *testing.T) {
	ta := newTestApp(t)
	ta.press("s")

	ta.send(tea.BlurMsg{})
	if ta.app.sched.visible {
		t.Fatal("blur should hide")
	}
	for _, task := range ta.app.sched.tasks {
		if task.interval != timer.DefaultBackgroundInterval {
			t.Fatalf("interval = %v, want %v", task.interval, timer.DefaultBackgroundInterval)
		}
	}

	ta.send(tea.FocusMsg{})
	for _, task := range ta.app.sched.tasks {
		if task.interval != timer.DefaultSampleInterval {
			t.Fatalf("interval = %v, want %v", task.interval, timer.DefaultSampleInterval)
		}
	}
}

func TestAppGoalWaitsForHistory(t *testing.T) {
	kv := timertest.NewKV()
	kv.Set(goal.BaselineKey, `{"day":"2026-03-10","seconds":1500}`)
	ta := newTestAppWithKV(t, kv)

	ta.press("s")
	if ta.app.timer.hasGoal {
		t.Fatal("goal should not be derived before history loads")
	}

	list := []timer.Session{{ID: "1", Kind: timer.KindFocus, DurationSeconds: 1500, CompletedAt: epoch.Add(-time.Hour)}}
	ta.send(sessionsMsg{sessions: list, at: epoch})
	if !ta.app.timer.hasGoal {
		t.Fatal("goal should be derived after history loads")
	}
	if got := ta.app.timer.progress.BaselineSeconds; got != 1500 {
		t.Fatalf("baseline = %v, want 1500", got)
	}
}

func TestAppGoalReset(t *testing.T) {
	kv := timertest.NewKV()
	kv.Set(goal.BaselineKey, `{"day":"2026-03-10","seconds":0}`)
	ta := newTestAppWithKV(t, kv)
	list := []timer.Session{{ID: "1", Kind: timer.KindFocus, DurationSeconds: 1800, CompletedAt: epoch.Add(-time.Hour)}}
	ta.send(sessionsMsg{sessions: list, at: epoch})
	if got := ta.app.timer.progress.Spent; got != 1800 {
		t.Fatalf("spent = %v, want 1800", got)
	}

	ta.press("g")
	if got := ta.app.timer.progress.Spent; got != 0 {
		t.Fatalf("spent after reset = %v, want 0", got)
	}
	_, seconds, ok := ta.app.goal.Baseline()
	if !ok || seconds != 1800 {
		t.Fatalf("baseline = %v %v", seconds, ok)
	}
}

func TestAppGoalResetSurvivesCycleEnd(t *testing.T) {
	kv := timertest.NewKV()
	kv.Set(goal.BaselineKey, `{"day":"2026-03-10","seconds":0}`)
	ta := newTestAppWithKV(t, kv)
	ta.send(sessionsMsg{at: epoch})

	ta.press("s")
	ta.clock.Add(10 * time.Minute)
	ta.sample()
	ta.press("g")
	if _, seconds, _ := ta.app.goal.Baseline(); seconds != 600 {
		t.Fatalf("baseline after reset = %v, want 600", seconds)
	}

	// A poll issued before the session is saved returns the old list.
	staleMsg := ta.app.history.refresh()()

	ta.clock.Add(15*time.Minute + time.Millisecond)
	ta.sample()
	if ta.app.machine.Snapshot().Mode != timer.ModeBreak {
		t.Fatal("focus cycle should have ended")
	}
	if _, seconds, _ := ta.app.goal.Baseline(); seconds != 600 {
		t.Fatalf("baseline at cycle end = %v, want 600", seconds)
	}

	ta.press("g")
	if !strings.Contains(ta.app.status, "loading") {
		t.Fatalf("reset during a pending save: status = %q", ta.app.status)
	}

	select {
	case msg := <-ta.app.logged:
		ta.send(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not logged")
	}

	ta.send(staleMsg)
	if _, seconds, _ := ta.app.goal.Baseline(); seconds != 600 {
		t.Fatalf("baseline after stale list = %v, want 600", seconds)
	}

	ta.sessions.List = []timer.Session{{ID: "1", Kind: timer.KindFocus, DurationSeconds: 1500, CompletedAt: epoch.Add(25 * time.Minute)}}
	ta.send(ta.app.history.refresh()())
	if got := ta.app.timer.progress.Spent; got != 900 {
		t.Fatalf("spent after refresh = %v, want 900", got)
	}
	if got := ta.app.timer.progress.BaselineSeconds; got != 600 {
		t.Fatalf("baseline after refresh = %v, want 600", got)
	}
}

func TestAppGoalResetWaitsForHistory(t *testing.T) {
	ta := newTestApp(t)
	ta.press("s")
	ta.clock.Add(10 * time.Minute)
	ta.sample()

	ta.press("g")
	if !strings.Contains(ta.app.status, "loading") {
		t.Fatalf("status = %q", ta.app.status)
	}
	if _, _, ok := ta.app.goal.Baseline(); ok {
		t.Fatal("reset before history loads should not store a baseline")
	}

	list := []timer.Session{{ID: "1", Kind: timer.KindFocus, DurationSeconds: 1800, CompletedAt: epoch.Add(-time.Hour)}}
	ta.send(sessionsMsg{sessions: list, at: epoch})
	ta.press("g")
	if got := ta.app.timer.progress.BaselineSeconds; got != 2400 {
		t.Fatalf("baseline = %v, want 2400", got)
	}
	if got := ta.app.timer.progress.Spent; got != 0 {
		t.Fatalf("spent = %v, want 0", got)
	}
}

// ============================================================
// History
// ============================================================

func TestHistoryRefreshNumbersRequests(t *testing.T) {
	h := newHistoryModel(timertest.NewSessions(), timertest.NewClock(epoch), time.Second)
	first := h.refresh()().(sessionsMsg)
	second := h.refresh()().(sessionsMsg)
	if first.seq != 1 || second.seq != 2 {
		t.Fatalf("seq = %d, %d, want 1, 2", first.seq, second.seq)
	}

	copied := h
	copied.refresh()
	if h.lastRequest() != 3 {
		t.Fatalf("lastRequest = %d, want 3", h.lastRequest())
	}

	h, _ = h.update(second)
	h, _ = h.update(first)
	if h.loadedSeq != 2 {
		t.Fatalf("loadedSeq = %d, want 2", h.loadedSeq)
	}
}

func TestHistoryStaleKeepsList(t *testing.T) {
	h := newHistoryModel(timertest.NewSessions(), timertest.NewClock(epoch), time.Second)
	h.setSize(100, 40)

	list := []timer.Session{{ID: "1", Kind: timer.KindFocus, DurationSeconds: 1500, CompletedAt: epoch}}
	h, _ = h.update(sessionsMsg{sessions: list, at: epoch})
	if !h.loaded || h.stale {
		t.Fatal("successful fetch should load")
	}

	h, _ = h.update(sessionsMsg{err: errors.New("boom")})
	if !h.stale {
		t.Fatal("failed fetch should mark stale")
	}
	if len(h.sessions) != 1 {
		t.Fatal("failed fetch should keep the previous list")
	}
	if !strings.Contains(h.renderFreshness(), "stale") {
		t.Fatal("freshness should show the stale marker")
	}

	h, _ = h.update(sessionsMsg{sessions: list, at: epoch})
	if h.stale {
		t.Fatal("next success should clear stale")
	}
}

func TestHistoryRefreshFetches(t *testing.T) {
	sessions := timertest.NewSessions()
	sessions.List = []timer.Session{{ID: "1", Kind: timer.KindBreak, DurationSeconds: 300, CompletedAt: epoch}}
	h := newHistoryModel(sessions, timertest.NewClock(epoch), time.Second)

	msg, ok := h.refresh()().(sessionsMsg)
	if !ok {
		t.Fatal("refresh should produce sessionsMsg")
	}
	if msg.err != nil || len(msg.sessions) != 1 || !msg.at.Equal(epoch) {
		t.Fatalf("msg = %+v", msg)
	}
}

func TestHistoryDateRange(t *testing.T) {
	h := newHistoryModel(timertest.NewSessions(), timertest.NewClock(epoch), time.Second)
	from, to := h.dateRange()
	if !to.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("to = %v", to)
	}
	if to.Sub(from) != 7*24*time.Hour {
		t.Fatalf("range = %v", to.Sub(from))
	}

	h.offset = 1
	from2, _ := h.dateRange()
	if !from2.Equal(from.AddDate(0, 0, -7)) {
		t.Fatalf("offset range from = %v", from2)
	}
}

func TestHistoryView(t *testing.T) {
	h := newHistoryModel(timertest.NewSessions(), timertest.NewClock(epoch), time.Second)
	h.setSize(100, 40)
	if !strings.Contains(h.view(), "No sessions yet") {
		t.Fatal("empty history should say so")
	}

	list := []timer.Session{{ID: "1", Kind: timer.KindFocus, DurationSeconds: 1500, CompletedAt: epoch}}
	h, _ = h.update(sessionsMsg{sessions: list, at: epoch})
	if !strings.Contains(h.view(), "00:25:00") {
		t.Fatal("view should list the session duration")
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsPresetDurations(t *testing.T) {
	ta := newTestApp(t)
	s := ta.app.settings

	*s.preset = "50/10"
	focus, brk, err := s.durations()
	if err != nil || focus != 3000 || brk != 600 {
		t.Fatalf("durations = %d %d %v", focus, brk, err)
	}

	*s.preset = customPreset
	*s.focusMins = "40"
	*s.breakMins = "0"
	if _, _, err := s.durations(); !errors.Is(err, errMinimumMinute) {
		t.Fatalf("err = %v, want minimum", err)
	}
}

func TestSettingsApply(t *testing.T) {
	ta := newTestApp(t)
	s := ta.app.settings

	*s.preset = "90/15"
	*s.autoStart = false
	*s.goalHours = "2.5"
	msg := s.apply()()
	if st, ok := msg.(statusMsg); !ok || st.isError {
		t.Fatalf("apply = %+v", msg)
	}

	cfg := ta.app.machine.Snapshot().Config
	if cfg.FocusSeconds != 5400 || cfg.BreakSeconds != 900 || cfg.AutoStartNext {
		t.Fatalf("config = %+v", cfg)
	}
	if ta.app.goal.Target() != 9000 {
		t.Fatalf("target = %d, want 9000", ta.app.goal.Target())
	}
}

func TestPresetFor(t *testing.T) {
	if got := presetFor(timer.Config{FocusSeconds: 1500, BreakSeconds: 300}); got != "25/5" {
		t.Fatalf("presetFor = %q", got)
	}
	if got := presetFor(timer.Config{FocusSeconds: 1200, BreakSeconds: 300}); got != customPreset {
		t.Fatalf("presetFor = %q", got)
	}
}

func TestValidateGoalHours(t *testing.T) {
	for _, tt := range []struct {
		in string
		ok bool
	}{
		{"4", true},
		{"0.5", true},
		{"0.01", false},
		{"abc", false},
	} {
		if err := validateGoalHours(tt.in); (err == nil) != tt.ok {
			t.Errorf("validateGoalHours(%q) = %v", tt.in, err)
		}
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatClock(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{59, "00:59"},
		{1500, "25:00"},
		{5400, "90:00"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.secs); got != tt.want {
			t.Errorf("formatClock(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(3661); got != "01:01:01" {
		t.Fatalf("formatSeconds = %q", got)
	}
	if got := formatHours(5400); got != "1.5h" {
		t.Fatalf("formatHours = %q", got)
	}
}

func TestHintCoversEveryState(t *testing.T) {
	for _, mode := range []timer.Mode{timer.ModeFocus, timer.ModeBreak} {
		for _, state := range []timer.RunState{timer.Idle, timer.Running, timer.Paused} {
			if hint(mode, state) == "" {
				t.Errorf("no hint for %s/%s", mode, state)
			}
		}
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapFullHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
	for i, g := range keys.FullHelp() {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test: just verify they render)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"timer", func() string { return timerStyle.Render("test") }},
		{"timerRunning", func() string { return timerRunningStyle.Render("test") }},
		{"timerPaused", func() string { return timerPausedStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
