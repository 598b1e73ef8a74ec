package interview

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/analysis/reply"
	"github.com/zhouzirui/z-interview/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/report"
)

var (
	ErrNotActive         = errors.New("interview is not active")
	ErrWrongPhase        = errors.New("operation not allowed in current phase")
	ErrInterviewEnded    = errors.New("interview has ended")
	ErrBusy              = errors.New("a reply is already being generated")
	ErrEmptyUtterance    = errors.New("utterance is empty")
	ErrNoInterviewerTurn = errors.New("no interviewer turn yet")
	ErrCoachingBusy      = errors.New("coaching request already in flight")
	ErrStale             = errors.New("conversation changed before the reply arrived")
	ErrEmptyReply        = errors.New("reply empty after normalization")
	ErrNoReport          = errors.New("report not generated")
)

// Responder produces raw interviewer replies.
type Responder interface {
	Reply(ctx context.Context, req interview.ReplyRequest) (string, error)
}

// ReportMaker turns a finished transcript into a report. It never fails.
type ReportMaker interface {
	Generate(ctx context.Context, transcript []interview.Turn, visionLog []string, lang interview.Language) report.Report
}

// Speaker plays interviewer lines. Speak returns immediately and replaces
// whatever is currently playing.
type Speaker interface {
	Speak(text string, lang interview.Language)
	Cancel()
}

// Listener is the active microphone session, if any.
type Listener interface {
	Abort()
}

// Resetter is implemented by per-session helpers that drop state on restart.
type Resetter interface {
	Reset()
}

// Archiver stores finished interviews.
type Archiver interface {
	Save(ctx context.Context, rec report.Record) error
}

// Options wires a session to its capabilities. Responder nil means script mode.
type Options struct {
	Responder     Responder
	Coach         Coach
	Reports       ReportMaker
	Scripts       ScriptProvider
	Archive       Archiver
	Events        EventSink
	FallbackDelay time.Duration
	Now           func() time.Time
}

// State is a read-only view of a session.
type State struct {
	ID         string                    `json:"id"`
	Phase      interview.Phase           `json:"phase"`
	Transcript []interview.Turn          `json:"transcript"`
	TurnIndex  int                       `json:"turnIndex"`
	Ended      bool                      `json:"ended"`
	Processing bool                      `json:"processing"`
	Settings   interview.Settings        `json:"settings"`
	Sentiment  interview.Sentiment       `json:"sentiment"`
	LastError  string                    `json:"lastError,omitempty"`
	Coaching   map[CoachingKind]Artifact `json:"coaching,omitempty"`
	VisionLog  int                       `json:"visionLogEntries"`
	Report     *report.Report            `json:"report,omitempty"`
	Band       report.Band               `json:"band,omitempty"`
	CreatedAt  time.Time                 `json:"createdAt"`
}

// Session 面试会话状态机，转录与阶段只能通过其方法修改。
type Session struct {
	id        string
	createdAt time.Time
	opts      Options
	events    *Broadcaster

	mu         sync.Mutex
	settings   interview.Settings
	phase      interview.Phase
	transcript *Transcript
	ended      bool
	processing bool
	epoch      uint64
	sentiment  interview.Sentiment
	diagnostic Diagnostic
	coaching   coachingState
	visionLog  []string
	report     *report.Report

	speaker  Speaker
	listener Listener
	helpers  []Resetter
}

// NewSession creates a session in the Welcome phase.
func NewSession(id string, settings interview.Settings, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Scripts == nil {
		opts.Scripts = DefaultScripts()
	}
	return &Session{
		id:         id,
		createdAt:  opts.Now().UTC(),
		opts:       opts,
		events:     NewBroadcaster(),
		settings:   settings.Normalized(),
		phase:      interview.PhaseWelcome,
		transcript: NewTranscript(opts.Now),
		sentiment:  interview.Neutral,
		coaching:   newCoachingState(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Subscribe streams session events until the returned func is called.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe(64)
}

// AttachSpeaker sets the output used for interviewer lines.
func (s *Session) AttachSpeaker(sp Speaker) {
	s.mu.Lock()
	s.speaker = sp
	s.mu.Unlock()
}

// AttachListener sets the microphone session aborted when the interview ends.
func (s *Session) AttachListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// AttachHelper registers state reset on Restart, such as the vision probe.
func (s *Session) AttachHelper(r Resetter) {
	s.mu.Lock()
	s.helpers = append(s.helpers, r)
	s.mu.Unlock()
}

// Settings returns the current settings.
func (s *Session) Settings() interview.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings replaces the settings used by subsequent calls. A language
// change aborts any listening session.
func (s *Session) UpdateSettings(settings interview.Settings) State {
	settings = settings.Normalized()

	s.mu.Lock()
	langChanged := settings.Language != s.settings.Language
	s.settings = settings
	listener := s.listener
	state := s.stateLocked()
	s.mu.Unlock()

	if langChanged && listener != nil {
		listener.Abort()
	}
	s.emit(EventState, state)
	return state
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Active reports whether the interview accepts input and probes.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == interview.PhaseActive && !s.ended
}

// Start begins a fresh interview and produces the opening interviewer turn.
func (s *Session) Start(ctx context.Context) (interview.Turn, error) {
	s.mu.Lock()
	if s.phase != interview.PhaseWelcome {
		s.mu.Unlock()
		return interview.Turn{}, ErrWrongPhase
	}
	s.phase = interview.PhaseActive
	s.transcript.Reset()
	s.ended = false
	s.report = nil
	s.visionLog = nil
	s.sentiment = interview.Neutral
	s.diagnostic = DiagnosticNone
	s.coaching = newCoachingState()
	s.epoch++
	s.processing = true
	epoch := s.epoch
	settings := s.settings
	speaker := s.speaker
	state := s.stateLocked()
	s.mu.Unlock()

	log.Printf("[interview] session=%s started scenario=%s language=%s questions=%d", s.id, settings.Scenario, settings.Language, settings.QuestionCount)
	s.emit(EventState, state)
	if speaker != nil {
		speaker.Speak(startingCue(settings.Language), settings.Language)
	}

	req := interview.ReplyRequest{
		Latest:   openingCue(settings),
		Settings: settings,
	}
	return s.respond(ctx, epoch, req)
}

// Submit records a candidate utterance and produces the interviewer reply.
func (s *Session) Submit(ctx context.Context, text string) (interview.Turn, error) {
	text = trimUtterance(text)

	s.mu.Lock()
	switch {
	case s.phase != interview.PhaseActive:
		s.mu.Unlock()
		return interview.Turn{}, ErrNotActive
	case s.ended:
		s.mu.Unlock()
		return interview.Turn{}, ErrInterviewEnded
	case s.processing:
		s.mu.Unlock()
		return interview.Turn{}, ErrBusy
	case text == "":
		s.mu.Unlock()
		return interview.Turn{}, ErrEmptyUtterance
	}

	candidate := s.transcript.Append(interview.Candidate, text)
	s.coaching.invalidate()
	turnIndex := s.transcript.TurnIndex()
	settings := s.settings
	if s.opts.Responder != nil && turnIndex >= settings.QuestionCount {
		s.ended = true
	}
	s.processing = true
	s.diagnostic = DiagnosticNone
	epoch := s.epoch
	req := interview.ReplyRequest{
		History:   s.transcript.Snapshot(),
		Latest:    text,
		TurnIndex: turnIndex,
		Settings:  settings,
	}
	state := s.stateLocked()
	s.mu.Unlock()

	s.emit(EventTurn, candidate)
	s.emit(EventState, state)
	return s.respond(ctx, epoch, req)
}

// respond runs the remote reply or the script fallback and appends the result.
func (s *Session) respond(ctx context.Context, epoch uint64, req interview.ReplyRequest) (interview.Turn, error) {
	var (
		text  string
		diag  Diagnostic
		ended bool
	)

	if s.opts.Responder == nil {
		diag = DiagnosticScriptMode
	} else {
		raw, err := s.opts.Responder.Reply(ctx, req)
		if err == nil {
			text = reply.Normalize(raw)
			if text == "" {
				err = ErrEmptyReply
			}
		}
		if err != nil {
			diag = Classify(err)
			log.Printf("[interview] session=%s remote reply failed (%s), using script: %v", s.id, diag.Label(), err)
		}
	}

	if diag != DiagnosticNone {
		s.emit(EventDiagnostic, map[string]string{"code": string(diag), "label": diag.Label()})
		// 调用方取消也要落到脚本回复，不能留下没有面试官回应的回答
		waitFallback(s.opts.FallbackDelay)
		lines := s.opts.Scripts.Script(req.Settings.Language)
		idx, scriptEnded := SelectFallback(req.TurnIndex, req.Settings.QuestionCount, len(lines))
		if idx < 0 {
			s.abandon(epoch)
			return interview.Turn{}, ErrEmptyReply
		}
		text = lines[idx]
		ended = scriptEnded
	}

	mood := sentiment.Classify(text)

	s.mu.Lock()
	if s.epoch != epoch || s.phase != interview.PhaseActive {
		s.mu.Unlock()
		return interview.Turn{}, ErrStale
	}
	turn := s.transcript.Append(interview.Interviewer, text)
	if ended {
		s.ended = true
	}
	s.sentiment = mood
	s.diagnostic = diag
	s.processing = false
	s.coaching.invalidate()
	closing := s.ended
	speaker, listener := s.speaker, s.listener
	lang := req.Settings.Language
	state := s.stateLocked()
	s.mu.Unlock()

	if closing && listener != nil {
		listener.Abort()
	}
	s.emit(EventTurn, turn)
	s.emit(EventSentiment, mood)
	s.emit(EventState, state)
	if speaker != nil {
		speaker.Speak(text, lang)
	}
	return turn, nil
}

// abandon clears the processing flag if the conversation did not move on.
func (s *Session) abandon(epoch uint64) {
	s.mu.Lock()
	if s.epoch == epoch {
		s.processing = false
	}
	s.mu.Unlock()
}

// EditLastExchange drops the last interviewer turn and the candidate turn
// before it so the candidate can answer again.
func (s *Session) EditLastExchange() (int, error) {
	s.mu.Lock()
	if s.phase != interview.PhaseActive {
		s.mu.Unlock()
		return 0, ErrNotActive
	}
	popped := 0
	if s.transcript.PopIf(interview.Interviewer) {
		popped++
	}
	if s.transcript.PopIf(interview.Candidate) {
		popped++
	}
	s.ended = false
	s.processing = false
	s.epoch++
	s.coaching.invalidate()
	speaker := s.speaker
	state := s.stateLocked()
	s.mu.Unlock()

	if speaker != nil {
		speaker.Cancel()
	}
	s.emit(EventTurnsPopped, popped)
	s.emit(EventState, state)
	return popped, nil
}

// ForceEnd ends the interview without a remote call.
func (s *Session) ForceEnd() (interview.Turn, error) {
	s.mu.Lock()
	if s.phase != interview.PhaseActive {
		s.mu.Unlock()
		return interview.Turn{}, ErrNotActive
	}
	if s.ended {
		s.mu.Unlock()
		return interview.Turn{}, ErrInterviewEnded
	}
	lang := s.settings.Language
	s.ended = true
	s.processing = false
	s.epoch++
	turn := s.transcript.Append(interview.Interviewer, forceEndNotice(lang))
	s.coaching.invalidate()
	speaker, listener := s.speaker, s.listener
	state := s.stateLocked()
	s.mu.Unlock()

	if listener != nil {
		listener.Abort()
	}
	s.emit(EventTurn, turn)
	s.emit(EventState, state)
	if speaker != nil {
		speaker.Speak(forceEndSpoken(lang), lang)
	}
	return turn, nil
}

// GenerateReport summarizes the interview and moves to Finished. The vision
// log is handed over and discarded.
func (s *Session) GenerateReport(ctx context.Context) (report.Report, error) {
	s.mu.Lock()
	if s.phase != interview.PhaseActive {
		s.mu.Unlock()
		return report.Report{}, ErrWrongPhase
	}
	s.phase = interview.PhaseSummarizing
	s.processing = false
	s.epoch++
	transcript := s.transcript.Snapshot()
	visionLog := s.visionLog
	s.visionLog = nil
	settings := s.settings
	speaker, listener := s.speaker, s.listener
	state := s.stateLocked()
	s.mu.Unlock()

	if speaker != nil {
		speaker.Cancel()
	}
	if listener != nil {
		listener.Abort()
	}
	s.emit(EventState, state)

	var rep report.Report
	if s.opts.Reports != nil {
		rep = s.opts.Reports.Generate(ctx, transcript, visionLog, settings.Language)
	} else {
		rep = report.Placeholder()
	}

	s.mu.Lock()
	s.phase = interview.PhaseFinished
	s.report = &rep
	turnCount := s.transcript.TurnIndex()
	state = s.stateLocked()
	s.mu.Unlock()

	if s.opts.Archive != nil {
		rec := report.Record{
			SessionID:   s.id,
			Language:    string(settings.Language),
			Scenario:    string(settings.Scenario),
			TurnCount:   turnCount,
			Report:      rep,
			Band:        report.BandFor(rep.OverallScore),
			CompletedAt: s.opts.Now().UTC(),
		}
		if err := s.opts.Archive.Save(ctx, rec); err != nil {
			log.Printf("[interview] session=%s archive failed: %v", s.id, err)
		}
	}

	s.emit(EventReport, rep)
	s.emit(EventState, state)
	return rep, nil
}

// Report returns the generated report.
func (s *Session) Report() (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return report.Report{}, ErrNoReport
	}
	return *s.report, nil
}

// Restart returns a finished session to Welcome and drops its report.
func (s *Session) Restart() (State, error) {
	s.mu.Lock()
	if s.phase != interview.PhaseFinished {
		s.mu.Unlock()
		return State{}, ErrWrongPhase
	}
	s.phase = interview.PhaseWelcome
	s.report = nil
	s.epoch++
	helpers := append([]Resetter(nil), s.helpers...)
	state := s.stateLocked()
	s.mu.Unlock()

	for _, h := range helpers {
		h.Reset()
	}
	s.emit(EventState, state)
	return state, nil
}

// Coaching returns the cached artifact of kind or generates it.
func (s *Session) Coaching(ctx context.Context, kind CoachingKind) (Artifact, error) {
	s.mu.Lock()
	if s.phase != interview.PhaseActive {
		s.mu.Unlock()
		return Artifact{}, ErrNotActive
	}
	if s.ended {
		s.mu.Unlock()
		return Artifact{}, ErrInterviewEnded
	}
	last, ok := s.transcript.LastInterviewer()
	if !ok {
		s.mu.Unlock()
		return Artifact{}, ErrNoInterviewerTurn
	}
	if art, ok := s.coaching.cache[kind]; ok {
		s.mu.Unlock()
		return art, nil
	}
	if s.coaching.inflight[kind] {
		s.mu.Unlock()
		return Artifact{}, ErrCoachingBusy
	}
	s.coaching.inflight[kind] = true
	version := s.coaching.version
	lang := s.settings.Language
	s.mu.Unlock()

	art := generateArtifact(ctx, s.opts.Coach, kind, last.Text, lang)

	s.mu.Lock()
	delete(s.coaching.inflight, kind)
	fresh := version == s.coaching.version
	if fresh {
		s.coaching.cache[kind] = art
	}
	s.mu.Unlock()

	if fresh {
		s.emit(EventCoaching, art)
	}
	return art, nil
}

// AppendVision records one probe result. Entries outside an active
// interview are dropped.
func (s *Session) AppendVision(entry string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != interview.PhaseActive || s.ended {
		return false
	}
	s.visionLog = append(s.visionLog, entry)
	return true
}

// VisionLog returns a copy of the pending vision log.
func (s *Session) VisionLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visionLog...)
}

// Publish forwards adapter events (speech, vision) to the session's subscribers.
func (s *Session) Publish(e Event) {
	e.SessionID = s.id
	if e.Timestamp.IsZero() {
		e.Timestamp = s.opts.Now().UTC()
	}
	s.events.Publish(e)
	if s.opts.Events != nil {
		s.opts.Events.Publish(e)
	}
}

func (s *Session) emit(t EventType, data any) {
	s.Publish(Event{Type: t, Data: data})
}

func (s *Session) stateLocked() State {
	st := State{
		ID:         s.id,
		Phase:      s.phase,
		Transcript: s.transcript.Snapshot(),
		TurnIndex:  s.transcript.TurnIndex(),
		Ended:      s.ended,
		Processing: s.processing,
		Settings:   s.settings,
		Sentiment:  s.sentiment,
		LastError:  s.diagnostic.Label(),
		Coaching:   s.coaching.snapshot(),
		VisionLog:  len(s.visionLog),
		CreatedAt:  s.createdAt,
	}
	if s.report != nil {
		rep := *s.report
		st.Report = &rep
		st.Band = report.BandFor(rep.OverallScore)
	}
	return st
}

func waitFallback(delay time.Duration) {
	if delay > 0 {
		time.Sleep(delay)
	}
}
