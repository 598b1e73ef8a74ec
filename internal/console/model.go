package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/report"
	session "github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

const (
	visibleTurns   = 8
	defaultWidth   = 80
	inputCharLimit = 600
)

// Model is the text-mode practice console: one interview session driven by
// typed answers.
type Model struct {
	ctx     context.Context
	session *session.Session

	input    textinput.Model
	spinner  spinner.Model
	busy     bool
	status   string
	err      error
	coaching *session.Artifact

	width  int
	height int
}

// New creates a console bound to s.
func New(ctx context.Context, s *session.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your answer..."
	ti.CharLimit = inputCharLimit
	ti.Width = defaultWidth - 10

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = DimStyle

	return Model{
		ctx:     ctx,
		session: s,
		input:   ti,
		spinner: sp,
		width:   defaultWidth,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = min(msg.Width-10, 100)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case turnMsg:
		m.busy = false
		m.setError(msg.Err)
		if msg.Err == nil {
			m.input.Reset()
			m.input.Focus()
		}
		return m, nil

	case coachingMsg:
		m.busy = false
		m.setError(msg.Err)
		if msg.Err == nil {
			art := msg.Artifact
			m.coaching = &art
		}
		return m, nil

	case reportMsg:
		m.busy = false
		m.setError(msg.Err)
		m.input.Blur()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) setError(err error) {
	m.err = err
	if err != nil {
		m.status = ""
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, Keys.ForceQuit) {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	state := m.session.State()
	switch state.Phase {
	case interview.PhaseWelcome:
		return m.handleWelcomeKey(msg, state.Settings)
	case interview.PhaseActive:
		return m.handleActiveKey(msg, state)
	case interview.PhaseFinished:
		return m.handleFinishedKey(msg)
	}
	return m, nil
}

func (m Model) handleWelcomeKey(msg tea.KeyMsg, settings interview.Settings) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, Keys.Start):
		m.coaching = nil
		m.input.Focus()
		return m.run(startCmd(m.ctx, m.session))
	case key.Matches(msg, Keys.Language):
		if settings.Language == interview.English {
			settings.Language = interview.Cantonese
		} else {
			settings.Language = interview.English
		}
	case key.Matches(msg, Keys.Scenario):
		if settings.Scenario == interview.ScenarioAdvanced {
			settings.Scenario = interview.ScenarioStandard
		} else {
			settings.Scenario = interview.ScenarioAdvanced
		}
	case key.Matches(msg, Keys.More):
		settings.QuestionCount = min(settings.QuestionCount+1, interview.MaxQuestionCount)
	case key.Matches(msg, Keys.Fewer):
		settings.QuestionCount = max(settings.QuestionCount-1, 1)
	default:
		return m, nil
	}
	m.session.UpdateSettings(settings)
	return m, nil
}

func (m Model) handleActiveKey(msg tea.KeyMsg, state session.State) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Submit):
		if state.Ended {
			return m.run(reportCmd(m.ctx, m.session))
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.coaching = nil
		return m.run(submitCmd(m.ctx, m.session, text))
	case key.Matches(msg, Keys.Edit):
		popped, err := m.session.EditLastExchange()
		m.setError(err)
		if err == nil {
			m.coaching = nil
			m.status = fmt.Sprintf("Removed %d turn(s). Answer again.", popped)
		}
		return m, nil
	case key.Matches(msg, Keys.Hint):
		return m.run(coachingCmd(m.ctx, m.session, session.KindHint))
	case key.Matches(msg, Keys.Vocab):
		return m.run(coachingCmd(m.ctx, m.session, session.KindVocabulary))
	case key.Matches(msg, Keys.End):
		_, err := m.session.ForceEnd()
		m.setError(err)
		return m, nil
	case key.Matches(msg, Keys.Report):
		return m.run(reportCmd(m.ctx, m.session))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleFinishedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, Keys.Restart):
		_, err := m.session.Restart()
		m.setError(err)
		m.coaching = nil
		m.status = ""
	}
	return m, nil
}

// run marks the console busy while cmd executes.
func (m Model) run(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	m.status = ""
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func startCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		turn, err := s.Start(ctx)
		return turnMsg{Turn: turn, Err: err}
	}
}

func submitCmd(ctx context.Context, s *session.Session, text string) tea.Cmd {
	return func() tea.Msg {
		turn, err := s.Submit(ctx, text)
		return turnMsg{Turn: turn, Err: err}
	}
}

func coachingCmd(ctx context.Context, s *session.Session, kind session.CoachingKind) tea.Cmd {
	return func() tea.Msg {
		art, err := s.Coaching(ctx, kind)
		return coachingMsg{Artifact: art, Err: err}
	}
}

func reportCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		rep, err := s.GenerateReport(ctx)
		return reportMsg{Report: rep, Err: err}
	}
}

func (m Model) View() string {
	state := m.session.State()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("  AIA Mock Interview"))
	b.WriteString(DimStyle.Render(fmt.Sprintf("  %s · %s · %d questions", state.Settings.Language.Label(), state.Settings.Scenario, state.Settings.QuestionCount)))
	b.WriteString("\n\n")

	switch state.Phase {
	case interview.PhaseWelcome:
		b.WriteString("  Practise a Financial Planner interview by typing your answers.\n\n")
		b.WriteString(helpLine(Keys.Start, Keys.Language, Keys.Scenario, Keys.More, Keys.Quit))
	case interview.PhaseActive, interview.PhaseSummarizing:
		b.WriteString(m.viewConversation(state))
	case interview.PhaseFinished:
		if state.Report != nil {
			b.WriteString(renderReport(*state.Report, m.width))
			b.WriteString("\n\n")
		}
		b.WriteString(helpLine(Keys.Restart, Keys.Quit))
	}

	if m.status != "" {
		b.WriteString("\n\n  " + DimStyle.Render(m.status))
	}
	if m.err != nil {
		b.WriteString("\n\n  " + ErrorStyle.Render(describeError(m.err)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewConversation(state session.State) string {
	var b strings.Builder

	turns := state.Transcript
	if len(turns) > visibleTurns {
		turns = turns[len(turns)-visibleTurns:]
	}
	wrap := lipgloss.NewStyle().Width(max(m.width-6, 20))
	for _, t := range turns {
		label := InterviewerStyle.Render("Interviewer")
		if t.Speaker == interview.Candidate {
			label = CandidateStyle.Render("You")
		}
		b.WriteString("  " + label + "\n")
		b.WriteString(wrap.Render("  "+t.Text) + "\n\n")
	}

	if state.LastError != "" {
		b.WriteString("  " + DimStyle.Render("("+state.LastError+")") + "\n\n")
	}

	if m.coaching != nil {
		b.WriteString(renderCoaching(*m.coaching))
		b.WriteString("\n\n")
	}

	switch {
	case m.busy:
		b.WriteString("  " + m.spinner.View() + DimStyle.Render(" Thinking..."))
	case state.Phase == interview.PhaseSummarizing:
		b.WriteString("  " + DimStyle.Render("Preparing report..."))
	case state.Ended:
		b.WriteString("  " + DimStyle.Render("Interview complete. Press enter to see your report."))
	default:
		b.WriteString("  " + m.input.View() + "\n\n")
		b.WriteString(helpLine(Keys.Submit, Keys.Hint, Keys.Vocab, Keys.Edit, Keys.End))
	}
	return b.String()
}

func renderCoaching(art session.Artifact) string {
	var body strings.Builder
	body.WriteString(strings.ToUpper(strings.ReplaceAll(string(art.Kind), "_", " ")))
	body.WriteString("\n")
	if art.Text != "" {
		body.WriteString(art.Text)
	}
	for _, item := range art.Items {
		body.WriteString("• " + item + "\n")
	}
	return CoachingStyle.Render(strings.TrimRight(body.String(), "\n"))
}

func renderReport(r report.Report, width int) string {
	band := report.BandFor(r.OverallScore)

	var body strings.Builder
	body.WriteString(BandStyle(band).Render(fmt.Sprintf("%d / 100", r.OverallScore)))
	body.WriteString("  " + r.Recommendation + "\n\n")

	metrics := []struct {
		label string
		value int
	}{
		{"Communication", r.Metrics.Communication},
		{"Sales potential", r.Metrics.SalesPotential},
		{"Resilience", r.Metrics.Resilience},
		{"Professionalism", r.Metrics.Professionalism},
		{"Ambition", r.Metrics.Ambition},
		{"Client focus", r.Metrics.ClientFocus},
	}
	for _, metric := range metrics {
		filled := min(max(metric.value, 0), 10)
		body.WriteString(MetricLabelStyle.Render(metric.label))
		body.WriteString(strings.Repeat("■", filled) + strings.Repeat("·", 10-filled))
		body.WriteString(fmt.Sprintf(" %d\n", metric.value))
	}

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		body.WriteString("\n" + title + "\n")
		for _, item := range items {
			body.WriteString("  • " + item + "\n")
		}
	}
	writeList("Strengths", r.Strengths)
	writeList("To improve", r.Improvements)

	if r.Analysis != "" {
		body.WriteString("\n" + r.Analysis + "\n")
	}
	if r.VisionSummary != "" {
		body.WriteString("\n" + DimStyle.Render(r.VisionSummary) + "\n")
	}
	if r.NextSteps != "" {
		body.WriteString("\nNext: " + r.NextSteps)
	}

	return BorderFor(band).Width(max(width-6, 40)).Render(strings.TrimRight(body.String(), "\n"))
}

func describeError(err error) string {
	switch {
	case errors.Is(err, session.ErrNoInterviewerTurn):
		return "No question to coach on yet."
	case errors.Is(err, session.ErrInterviewEnded):
		return "The interview has ended."
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrCoachingBusy):
		return "Still working on the previous request."
	}
	return "Error: " + err.Error()
}
