package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
	session "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/speech"
	"github.com/zhouzirui/z-interview/backend/internal/service/vision"
)

type finalStream struct {
	text    string
	results chan speechmodel.Recognition
	once    sync.Once
}

func (s *finalStream) Write([]byte) error { return nil }

func (s *finalStream) Finish() error {
	s.once.Do(func() {
		if s.text != "" {
			s.results <- speechmodel.Recognition{Text: s.text, Final: true}
		}
		close(s.results)
	})
	return nil
}

func (s *finalStream) Results() <-chan speechmodel.Recognition { return s.results }
func (s *finalStream) Err() error                              { return nil }
func (s *finalStream) Close() error                            { s.once.Do(func() { close(s.results) }); return nil }

type stubRecognizer struct{ text string }

func (r stubRecognizer) Open(context.Context, speechmodel.RecognitionConfig) (speech.Stream, error) {
	return &finalStream{text: r.text, results: make(chan speechmodel.Recognition, 2)}, nil
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(context.Context, speechmodel.SynthesisRequest) (speechmodel.Synthesis, error) {
	return speechmodel.Synthesis{Audio: []byte("mp3"), Format: "mp3", Duration: time.Hour}, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeFrame(context.Context, []byte, []byte) (string, error) {
	return "Good posture", nil
}

func startedSession(t *testing.T) *session.Session {
	t.Helper()
	return session.NewSession("s1", interview.Settings{Language: interview.English}, session.Options{})
}

func TestStopListeningSubmitsRecognizedText(t *testing.T) {
	s := startedSession(t)
	rt := Factory{Recognizer: stubRecognizer{text: "I like helping people."}}.Attach(context.Background(), s)
	defer rt.Close()

	if err := rt.StartListening(context.Background()); !errors.Is(err, session.ErrNotActive) {
		t.Fatalf("expected ErrNotActive before start, got %v", err)
	}
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := rt.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	if err := rt.PushAudio(make([]byte, 320)); err != nil {
		t.Fatalf("PushAudio: %v", err)
	}
	if err := rt.StopListening(context.Background()); err != nil {
		t.Fatalf("StopListening: %v", err)
	}

	transcript := s.State().Transcript
	if len(transcript) != 3 {
		t.Fatalf("expected opening, answer and reply, got %d turns", len(transcript))
	}
	if transcript[1].Speaker != interview.Candidate || transcript[1].Text != "I like helping people." {
		t.Fatalf("unexpected candidate turn %+v", transcript[1])
	}
}

func TestStopListeningWithSilenceSubmitsNothing(t *testing.T) {
	s := startedSession(t)
	rt := Factory{Recognizer: stubRecognizer{}}.Attach(context.Background(), s)
	defer rt.Close()
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := rt.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	if err := rt.StopListening(context.Background()); err != nil {
		t.Fatalf("StopListening: %v", err)
	}
	if n := len(s.State().Transcript); n != 1 {
		t.Fatalf("expected only the opening turn, got %d", n)
	}
}

func TestDisabledCapabilities(t *testing.T) {
	rt := Factory{}.Attach(context.Background(), startedSession(t))
	defer rt.Close()

	if err := rt.StartListening(context.Background()); !errors.Is(err, ErrSpeechDisabled) {
		t.Fatalf("expected ErrSpeechDisabled, got %v", err)
	}
	if err := rt.EnableCamera(); !errors.Is(err, ErrVisionDisabled) {
		t.Fatalf("expected ErrVisionDisabled, got %v", err)
	}
	rt.DisableCamera()
	rt.PlaybackDone("missing")
}

func TestSpeakerReceivesInterviewerLines(t *testing.T) {
	s := startedSession(t)
	events, release := s.Subscribe()
	defer release()

	rt := Factory{Synthesizer: stubSynthesizer{}, Speech: &speechmodel.Config{}}.Attach(context.Background(), s)
	defer rt.Close()
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type == session.EventAudio {
				if e.SessionID != "s1" {
					t.Fatalf("audio event missing session id: %+v", e)
				}
				return
			}
		case <-deadline:
			t.Fatal("no audio event published")
		}
	}
}

func TestCameraToggleAndFrames(t *testing.T) {
	s := startedSession(t)
	rt := Factory{Analyzer: stubAnalyzer{}, Vision: vision.Config{InitialDelay: time.Hour, Interval: time.Hour}}.Attach(context.Background(), s)
	defer rt.Close()

	if err := rt.EnableCamera(); err != nil {
		t.Fatalf("EnableCamera: %v", err)
	}
	rt.PushFrame([]byte("jpeg"))
	if !rt.probe.Enabled() {
		t.Fatal("probe should be enabled")
	}
	rt.DisableCamera()
	if rt.probe.Enabled() {
		t.Fatal("probe should be disabled")
	}
}

type recordingAnalyzer struct {
	mu     sync.Mutex
	frames []string
}

func (a *recordingAnalyzer) AnalyzeFrame(_ context.Context, current, _ []byte) (string, error) {
	a.mu.Lock()
	a.frames = append(a.frames, string(current))
	a.mu.Unlock()
	return "Good posture", nil
}

func TestDisableCameraDropsBufferedFrame(t *testing.T) {
	s := startedSession(t)
	analyzer := &recordingAnalyzer{}
	rt := Factory{Analyzer: analyzer, Vision: vision.Config{InitialDelay: time.Hour, Interval: time.Hour}}.Attach(context.Background(), s)
	defer rt.Close()
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := rt.EnableCamera(); err != nil {
		t.Fatalf("EnableCamera: %v", err)
	}
	rt.PushFrame([]byte("frame-before-off"))
	rt.DisableCamera()
	if err := rt.EnableCamera(); err != nil {
		t.Fatalf("EnableCamera: %v", err)
	}

	if _, err := rt.frames.Capture(context.Background()); !errors.Is(err, vision.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame after re-enable, got %v", err)
	}
	rt.probe.Tick(context.Background())
	if len(analyzer.frames) != 0 {
		t.Fatalf("stale frame analyzed: %v", analyzer.frames)
	}
	if rt.probe.HasReference() {
		t.Fatal("stale frame must not become the reference")
	}

	rt.PushFrame([]byte("fresh"))
	rt.probe.Tick(context.Background())
	if len(analyzer.frames) != 1 || analyzer.frames[0] != "fresh" {
		t.Fatalf("expected fresh frame analyzed, got %v", analyzer.frames)
	}
}

func TestHubReusesAndRemovesRuntimes(t *testing.T) {
	hub := NewHub(context.Background(), Factory{})
	s := startedSession(t)

	first := hub.Attach(s)
	if second := hub.Attach(s); second != first {
		t.Fatal("expected the same runtime for the same session")
	}
	if got, ok := hub.Get("s1"); !ok || got != first {
		t.Fatal("Get should return the attached runtime")
	}
	hub.Remove("s1")
	if _, ok := hub.Get("s1"); ok {
		t.Fatal("runtime should be gone after Remove")
	}
}
