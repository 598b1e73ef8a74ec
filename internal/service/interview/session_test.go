package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/report"
)

type fakeResponder struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []interview.ReplyRequest
	block    chan struct{}
}

func (f *fakeResponder) Reply(ctx context.Context, req interview.ReplyRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return fmt.Sprintf("Question %d?", req.TurnIndex+1), nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
}

func (f *fakeSpeaker) Speak(text string, _ interview.Language) {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
}

func (f *fakeSpeaker) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

type fakeListener struct{ aborts int }

func (f *fakeListener) Abort() { f.aborts++ }

type fakeReports struct {
	transcript []interview.Turn
	visionLog  []string
}

func (f *fakeReports) Generate(_ context.Context, transcript []interview.Turn, visionLog []string, _ interview.Language) report.Report {
	f.transcript = transcript
	f.visionLog = visionLog
	return report.Report{OverallScore: 88, Recommendation: report.StrongHire}
}

type fakeResetter struct{ resets int }

func (f *fakeResetter) Reset() { f.resets++ }

type fakeArchive struct{ records []report.Record }

func (f *fakeArchive) Save(_ context.Context, rec report.Record) error {
	f.records = append(f.records, rec)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newScriptSession(t *testing.T, settings interview.Settings) *Session {
	t.Helper()
	return NewSession("s1", settings, Options{})
}

func TestSelectFallback(t *testing.T) {
	cases := []struct {
		turn      int
		wantIndex int
		wantEnded bool
	}{
		{turn: 0, wantIndex: 0},
		{turn: 1, wantIndex: 1},
		{turn: 2, wantIndex: 2},
		{turn: 3, wantIndex: 3},
		{turn: 4, wantIndex: 4},
		{turn: 5, wantIndex: 5, wantEnded: true},
		{turn: 9, wantIndex: 5, wantEnded: true},
	}
	for _, tc := range cases {
		idx, ended := SelectFallback(tc.turn, 5, 6)
		if idx != tc.wantIndex || ended != tc.wantEnded {
			t.Fatalf("SelectFallback(%d, 5, 6) = (%d, %v), want (%d, %v)", tc.turn, idx, ended, tc.wantIndex, tc.wantEnded)
		}
	}
}

func TestSelectFallbackScriptShorterThanCount(t *testing.T) {
	idx, ended := SelectFallback(5, 10, 6)
	if idx != 5 || !ended {
		t.Fatalf("expected final line once script runs out, got (%d, %v)", idx, ended)
	}
	idx, ended = SelectFallback(3, 3, 6)
	if idx != 5 || !ended {
		t.Fatalf("expected final line at question count, got (%d, %v)", idx, ended)
	}
}

func TestStartInScriptMode(t *testing.T) {
	speaker := &fakeSpeaker{}
	s := newScriptSession(t, interview.Settings{Language: interview.English})
	s.AttachSpeaker(speaker)

	turn, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	script := DefaultScripts()[interview.English]
	if turn.Text != script[0] || turn.Speaker != interview.Interviewer {
		t.Fatalf("unexpected opening turn %+v", turn)
	}

	state := s.State()
	if state.Phase != interview.PhaseActive || state.LastError != "Script Mode" || state.Processing {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(speaker.spoken) != 2 || speaker.spoken[0] != "Starting interview..." || speaker.spoken[1] != script[0] {
		t.Fatalf("unexpected speech %v", speaker.spoken)
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase on second start, got %v", err)
	}
}

func TestTurnIndexTracksCandidateTurns(t *testing.T) {
	s := NewSession("s1", interview.Settings{QuestionCount: 10}, Options{Responder: &fakeResponder{}})
	ctx := context.Background()
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 1; i <= 4; i++ {
		if _, err := s.Submit(ctx, fmt.Sprintf("answer %d", i)); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		state := s.State()
		if state.TurnIndex != i {
			t.Fatalf("after %d submits TurnIndex = %d", i, state.TurnIndex)
		}
		if len(state.Transcript) != 1+2*i {
			t.Fatalf("unexpected transcript length %d", len(state.Transcript))
		}
	}
}

func TestRemotePathEndsAtQuestionCount(t *testing.T) {
	responder := &fakeResponder{}
	s := NewSession("s1", interview.Settings{QuestionCount: 2}, Options{Responder: responder})
	ctx := context.Background()
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := s.Submit(ctx, "first"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.State().Ended {
		t.Fatal("ended too early")
	}
	if _, err := s.Submit(ctx, "second"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !s.State().Ended {
		t.Fatal("expected ended at question count")
	}

	before := len(s.State().Transcript)
	if _, err := s.Submit(ctx, "third"); !errors.Is(err, ErrInterviewEnded) {
		t.Fatalf("expected ErrInterviewEnded, got %v", err)
	}
	if after := len(s.State().Transcript); after != before {
		t.Fatalf("transcript changed after end: %d -> %d", before, after)
	}

	last := responder.requests[len(responder.requests)-1]
	if last.TurnIndex != 2 || !last.Final() {
		t.Fatalf("final request should carry turn 2 and be final: %+v", last)
	}
	if last.History[len(last.History)-1].Text != "second" {
		t.Fatal("history should include the latest candidate turn")
	}
}

func TestRemoteReplyIsNormalized(t *testing.T) {
	responder := &fakeResponder{replies: []string{"[SYSTEM: Turn 1] Cindy Wong: 嗯，你好！"}}
	s := NewSession("s1", interview.Settings{}, Options{Responder: responder})

	turn, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if turn.Text != "你好！" {
		t.Fatalf("reply not normalized: %q", turn.Text)
	}
	if s.State().Sentiment != interview.Positive {
		t.Fatalf("expected positive sentiment, got %s", s.State().Sentiment)
	}
}

func TestRemoteFailureFallsBackToScript(t *testing.T) {
	responder := &fakeResponder{err: errors.New("ark: status 429 too many requests")}
	s := NewSession("s1", interview.Settings{Language: interview.English}, Options{Responder: responder})
	ctx := context.Background()

	turn, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	script := DefaultScripts()[interview.English]
	if turn.Text != script[0] {
		t.Fatalf("expected first script line, got %q", turn.Text)
	}
	if got := s.State().LastError; got != "Quota Limit (Using Script)" {
		t.Fatalf("unexpected diagnostic %q", got)
	}

	turn, err = s.Submit(ctx, "hello")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if turn.Text != script[1] {
		t.Fatalf("expected second script line, got %q", turn.Text)
	}
	if len(responder.requests) != 2 {
		t.Fatalf("remote must be tried once per turn, got %d calls", len(responder.requests))
	}
}

func TestScriptModeEndsWithFinalLine(t *testing.T) {
	s := newScriptSession(t, interview.Settings{QuestionCount: 5, Language: interview.Cantonese})
	ctx := context.Background()
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	script := DefaultScripts()[interview.Cantonese]

	var last interview.Turn
	for i := 1; i <= 5; i++ {
		turn, err := s.Submit(ctx, "答案")
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		last = turn
		if i < 5 && s.State().Ended {
			t.Fatalf("ended early at turn %d", i)
		}
	}
	if last.Text != script[5] || !s.State().Ended {
		t.Fatalf("expected closing line and ended, got %q ended=%v", last.Text, s.State().Ended)
	}
}

func TestSubmitRejectedWhileProcessing(t *testing.T) {
	responder := &fakeResponder{}
	s := NewSession("s1", interview.Settings{}, Options{Responder: responder})
	ctx := context.Background()
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	block := make(chan struct{})
	responder.mu.Lock()
	responder.block = block
	responder.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "first")
		done <- err
	}()

	waitFor(t, func() bool { return s.State().Processing })
	if _, err := s.Submit(ctx, "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}

func TestEditDiscardsInFlightReply(t *testing.T) {
	responder := &fakeResponder{}
	s := NewSession("s1", interview.Settings{}, Options{Responder: responder})
	ctx := context.Background()
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	block := make(chan struct{})
	responder.mu.Lock()
	responder.block = block
	responder.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, "oops")
		done <- err
	}()
	waitFor(t, func() bool { return s.State().Processing })

	popped, err := s.EditLastExchange()
	if err != nil || popped != 1 {
		t.Fatalf("expected candidate turn popped, got %d %v", popped, err)
	}
	close(block)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if n := len(s.State().Transcript); n != 1 {
		t.Fatalf("stale reply leaked into transcript, len=%d", n)
	}
}

func TestEditLastExchange(t *testing.T) {
	speaker := &fakeSpeaker{}
	s := NewSession("s1", interview.Settings{QuestionCount: 1}, Options{Responder: &fakeResponder{}})
	s.AttachSpeaker(speaker)
	ctx := context.Background()
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Submit(ctx, "only answer"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !s.State().Ended {
		t.Fatal("expected ended after the only question")
	}

	popped, err := s.EditLastExchange()
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	state := s.State()
	if popped != 2 || len(state.Transcript) != 1 || state.TurnIndex != 0 || state.Ended {
		t.Fatalf("unexpected state after edit: popped=%d %+v", popped, state)
	}
	if speaker.cancels != 1 {
		t.Fatalf("expected speech cancelled, got %d", speaker.cancels)
	}

	popped, _ = s.EditLastExchange()
	if popped != 1 || len(s.State().Transcript) != 0 {
		t.Fatalf("expected lone interviewer turn popped, got %d", popped)
	}
}

func TestForceEnd(t *testing.T) {
	speaker := &fakeSpeaker{}
	listener := &fakeListener{}
	s := newScriptSession(t, interview.Settings{Language: interview.English})
	s.AttachSpeaker(speaker)
	s.AttachListener(listener)
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	turn, err := s.ForceEnd()
	if err != nil {
		t.Fatalf("ForceEnd: %v", err)
	}
	if turn.Text != "[System] Interview ended by user. Check report." {
		t.Fatalf("unexpected notice %q", turn.Text)
	}
	if !s.State().Ended || listener.aborts != 1 {
		t.Fatalf("expected ended and listener aborted")
	}
	if got := speaker.spoken[len(speaker.spoken)-1]; got != "Okay, ending the interview. You can view the report now." {
		t.Fatalf("unexpected closing speech %q", got)
	}
	if _, err := s.ForceEnd(); !errors.Is(err, ErrInterviewEnded) {
		t.Fatalf("expected ErrInterviewEnded, got %v", err)
	}
}

func TestReportLifecycle(t *testing.T) {
	reports := &fakeReports{}
	archive := &fakeArchive{}
	probe := &fakeResetter{}
	s := NewSession("s1", interview.Settings{}, Options{Reports: reports, Archive: archive})
	s.AttachHelper(probe)
	ctx := context.Background()

	if _, err := s.GenerateReport(ctx); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase before start, got %v", err)
	}
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.AppendVision("[10:00:00]: Good posture") {
		t.Fatal("vision entry rejected during active interview")
	}

	rep, err := s.GenerateReport(ctx)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if rep.OverallScore != 88 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(reports.visionLog) != 1 || len(reports.transcript) != 1 {
		t.Fatalf("report maker got wrong inputs: %+v", reports)
	}
	state := s.State()
	if state.Phase != interview.PhaseFinished || state.VisionLog != 0 || state.Band != report.BandStrongHire {
		t.Fatalf("unexpected finished state %+v", state)
	}
	if len(archive.records) != 1 || archive.records[0].Band != report.BandStrongHire {
		t.Fatalf("expected archived record, got %+v", archive.records)
	}
	if s.AppendVision("late") {
		t.Fatal("vision entry accepted after finish")
	}
	if _, err := s.Start(ctx); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase starting from finished, got %v", err)
	}

	if _, err := s.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if _, err := s.Report(); !errors.Is(err, ErrNoReport) {
		t.Fatalf("expected report dropped, got %v", err)
	}
	if probe.resets != 1 || s.State().Phase != interview.PhaseWelcome {
		t.Fatal("restart should reset helpers and return to welcome")
	}
}

func TestGenerateReportWithoutMakerUsesPlaceholder(t *testing.T) {
	s := newScriptSession(t, interview.Settings{})
	ctx := context.Background()
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rep, err := s.GenerateReport(ctx)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if rep.OverallScore != report.Placeholder().OverallScore {
		t.Fatalf("expected placeholder report, got %+v", rep)
	}
}

func TestUpdateSettingsLanguageAbortsListener(t *testing.T) {
	listener := &fakeListener{}
	s := newScriptSession(t, interview.Settings{Language: interview.Cantonese})
	s.AttachListener(listener)

	s.UpdateSettings(interview.Settings{Language: interview.Cantonese, QuestionCount: 3})
	if listener.aborts != 0 {
		t.Fatal("same language must not abort listening")
	}
	s.UpdateSettings(interview.Settings{Language: interview.English})
	if listener.aborts != 1 {
		t.Fatal("language change must abort listening")
	}
	if s.Settings().QuestionCount != interview.DefaultQuestionCount {
		t.Fatal("settings should be normalized")
	}
}

func TestEventsPublishedToSubscribers(t *testing.T) {
	s := newScriptSession(t, interview.Settings{})
	events, cancel := s.Subscribe()
	defer cancel()

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	seen := map[EventType]bool{}
	for len(events) > 0 {
		e := <-events
		if e.SessionID != "s1" {
			t.Fatalf("event missing session id: %+v", e)
		}
		seen[e.Type] = true
	}
	for _, want := range []EventType{EventState, EventTurn, EventSentiment, EventDiagnostic} {
		if !seen[want] {
			t.Fatalf("missing %s event, saw %v", want, seen)
		}
	}
}

// waitingResponder blocks until the caller gives up.
type waitingResponder struct{ started chan struct{} }

func (w *waitingResponder) Reply(ctx context.Context, _ interview.ReplyRequest) (string, error) {
	close(w.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCancelledReplyStillAppendsClosingLine(t *testing.T) {
	s := NewSession("s1", interview.Settings{QuestionCount: 1, Language: interview.English}, Options{})
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	responder := &waitingResponder{started: make(chan struct{})}
	s.opts.Responder = responder

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-responder.started
		cancel()
	}()

	turn, err := s.Submit(ctx, "my answer")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	script := DefaultScripts()[interview.English]
	if turn.Speaker != interview.Interviewer || turn.Text != script[len(script)-1] {
		t.Fatalf("expected closing script line, got %+v", turn)
	}

	state := s.State()
	if !state.Ended || state.Processing {
		t.Fatalf("expected ended and idle, got ended=%v processing=%v", state.Ended, state.Processing)
	}
	if len(state.Transcript) != 3 || state.Transcript[2].Speaker != interview.Interviewer {
		t.Fatalf("expected interviewer reply last, got %+v", state.Transcript)
	}
}
