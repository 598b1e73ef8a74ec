package console

import (
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	session "github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

func newTestModel(settings interview.Settings) (Model, *session.Session) {
	s := session.NewSession("console-test", settings, session.Options{})
	return New(context.Background(), s), s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds msg and synchronously resolves the returned command chain,
// skipping spinner ticks.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	return drain(t, m, cmd)
}

func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case spinner.TickMsg, nil:
	case turnMsg, coachingMsg, reportMsg:
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

// typeText drops the returned commands; they only drive cursor blinking.
func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		next, _ := m.Update(runes(string(r)))
		m = next.(Model)
	}
	return m
}

func TestWelcomeKeysChangeSettings(t *testing.T) {
	m, s := newTestModel(interview.Settings{})

	m = press(t, m, runes("l"))
	m = press(t, m, runes("s"))
	m = press(t, m, runes("+"))
	m = press(t, m, runes("+"))
	m = press(t, m, runes("-"))

	got := s.Settings()
	if got.Language != interview.English {
		t.Fatalf("expected English, got %s", got.Language)
	}
	if got.Scenario != interview.ScenarioAdvanced {
		t.Fatalf("expected advanced scenario, got %s", got.Scenario)
	}
	if got.QuestionCount != interview.DefaultQuestionCount+1 {
		t.Fatalf("expected %d questions, got %d", interview.DefaultQuestionCount+1, got.QuestionCount)
	}
	if !strings.Contains(m.View(), "English") {
		t.Fatalf("view does not show language:\n%s", m.View())
	}
}

func TestQuestionCountStaysInRange(t *testing.T) {
	m, s := newTestModel(interview.Settings{QuestionCount: 1})

	m = press(t, m, runes("-"))
	if got := s.Settings().QuestionCount; got != 1 {
		t.Fatalf("expected count to stay at 1, got %d", got)
	}

	s.UpdateSettings(interview.Settings{QuestionCount: interview.MaxQuestionCount})
	press(t, m, runes("+"))
	if got := s.Settings().QuestionCount; got != interview.MaxQuestionCount {
		t.Fatalf("expected count capped at %d, got %d", interview.MaxQuestionCount, got)
	}
}

func TestConsoleFullInterview(t *testing.T) {
	m, s := newTestModel(interview.Settings{QuestionCount: 1, Language: interview.English})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	state := s.State()
	if state.Phase != interview.PhaseActive || len(state.Transcript) != 1 {
		t.Fatalf("expected opening turn, got %+v", state)
	}
	if m.busy {
		t.Fatal("console still busy after opening turn")
	}

	m = typeText(t, m, "I enjoy helping people")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	state = s.State()
	if len(state.Transcript) != 3 {
		t.Fatalf("expected answer and reply, got %d turns", len(state.Transcript))
	}
	if state.Transcript[1].Text != "I enjoy helping people" {
		t.Fatalf("unexpected candidate turn %q", state.Transcript[1].Text)
	}
	if !state.Ended {
		t.Fatal("expected interview to end after the last question")
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if s.State().Phase != interview.PhaseFinished {
		t.Fatalf("expected finished phase, got %s", s.State().Phase)
	}
	if view := m.View(); !strings.Contains(view, "/ 100") {
		t.Fatalf("report not rendered:\n%s", view)
	}

	press(t, m, runes("r"))
	if s.State().Phase != interview.PhaseWelcome {
		t.Fatalf("expected welcome after restart, got %s", s.State().Phase)
	}
}

func TestEmptyAnswerIsIgnored(t *testing.T) {
	m, s := newTestModel(interview.Settings{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no command for an empty answer")
	}
	if next.(Model).busy {
		t.Fatal("empty answer marked the console busy")
	}
	if got := len(s.State().Transcript); got != 1 {
		t.Fatalf("expected transcript unchanged, got %d turns", got)
	}
}

func TestEditAndHintKeys(t *testing.T) {
	m, s := newTestModel(interview.Settings{Language: interview.English})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	if got := len(s.State().Transcript); got != 1 {
		t.Fatalf("expected edit to leave the opening turn, got %d turns", got)
	}
	if !strings.Contains(m.status, "Removed 2") {
		t.Fatalf("unexpected status %q", m.status)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if m.coaching == nil || m.coaching.Kind != session.KindHint {
		t.Fatalf("expected hint artifact, got %+v", m.coaching)
	}
	if !strings.Contains(m.View(), session.PlaceholderHints[0]) {
		t.Fatalf("hint not rendered:\n%s", m.View())
	}
}

func TestForceEndThenReport(t *testing.T) {
	m, s := newTestModel(interview.Settings{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	if !s.State().Ended {
		t.Fatal("expected ctrl+x to end the interview")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if s.State().Report == nil {
		t.Fatal("expected report after ctrl+r")
	}
	if m.err != nil {
		t.Fatalf("unexpected error %v", m.err)
	}
}
