package speech

import (
	"context"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-interview/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
	session "github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

// AudioPayload carries synthesized audio to the client. Audio is base64 in JSON.
type AudioPayload struct {
	ID         string             `json:"id"`
	Text       string             `json:"text"`
	Language   interview.Language `json:"language"`
	Format     string             `json:"format"`
	Audio      []byte             `json:"audio"`
	DurationMs int64              `json:"durationMs"`
}

// SpeakingPayload marks the start or end of playback.
type SpeakingPayload struct {
	ID       string `json:"id"`
	Speaking bool   `json:"speaking"`
	Error    string `json:"error,omitempty"`
}

// Speaker plays one interviewer line at a time. A new line cancels the
// current one; playback ends on the client's ack or when the audio duration
// elapses.
type Speaker struct {
	syn    Synthesizer
	cfg    *speechmodel.Config
	events session.EventSink
	id     string
	format string

	mu       sync.Mutex
	current  string
	cancel   context.CancelFunc
	ack      chan struct{}
	speaking bool
}

// NewSpeaker binds a synthesizer to a session's event sink.
func NewSpeaker(syn Synthesizer, cfg *speechmodel.Config, events session.EventSink, id string) *Speaker {
	return &Speaker{syn: syn, cfg: cfg, events: events, id: id, format: "mp3"}
}

// Speak replaces whatever is playing with text.
func (s *Speaker) Speak(text string, lang interview.Language) {
	utterance := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	ack := make(chan struct{})

	s.mu.Lock()
	prev, prevCancel, wasSpeaking := s.current, s.cancel, s.speaking
	s.current, s.cancel, s.ack, s.speaking = utterance, cancel, ack, false
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}
	if wasSpeaking {
		s.publish(session.EventSpeaking, SpeakingPayload{ID: prev, Speaking: false})
	}

	go s.play(ctx, utterance, ack, text, lang)
}

func (s *Speaker) play(ctx context.Context, utterance string, ack <-chan struct{}, text string, lang interview.Language) {
	voice := s.cfg.VoiceFor(lang)
	req := speechmodel.SynthesisRequest{
		ID:       s.id,
		Text:     SpeechText(text),
		Voice:    voice,
		Language: string(lang),
		Format:   s.format,
	}
	if label, scale, ok := EmotionFor(voice, sentiment.Classify(text)); ok {
		req.Emotion, req.EmotionScale = label, scale
	}

	out, err := s.syn.Synthesize(ctx, req)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Printf("[speech] synthesis failed session=%s: %v", s.id, err)
		if s.finish(utterance) {
			s.publish(session.EventSpeaking, SpeakingPayload{ID: utterance, Speaking: false, Error: err.Error()})
		}
		return
	}

	duration := out.Duration
	if duration <= 0 {
		duration = estimateDuration(text)
	}

	s.mu.Lock()
	if s.current != utterance {
		s.mu.Unlock()
		return
	}
	s.speaking = true
	s.mu.Unlock()

	s.publish(session.EventAudio, AudioPayload{
		ID:         utterance,
		Text:       text,
		Language:   lang,
		Format:     out.Format,
		Audio:      out.Audio,
		DurationMs: duration.Milliseconds(),
	})
	s.publish(session.EventSpeaking, SpeakingPayload{ID: utterance, Speaking: true})

	// 客户端播放完成的确认可能丢失，按时长兜底并留出缓冲
	timer := time.NewTimer(duration + time.Second)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-ack:
	case <-timer.C:
	}

	if s.finish(utterance) {
		s.publish(session.EventSpeaking, SpeakingPayload{ID: utterance, Speaking: false})
	}
}

// finish clears the current utterance if it is still utterance.
func (s *Speaker) finish(utterance string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != utterance {
		return false
	}
	s.current, s.cancel, s.ack, s.speaking = "", nil, nil, false
	return true
}

// PlaybackDone is the client's ack that the audio finished playing.
func (s *Speaker) PlaybackDone(utterance string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == utterance && s.ack != nil {
		close(s.ack)
		s.ack = nil
	}
}

// Cancel stops synthesis or playback in progress.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	utterance, cancel, wasSpeaking := s.current, s.cancel, s.speaking
	s.current, s.cancel, s.ack, s.speaking = "", nil, nil, false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasSpeaking {
		s.publish(session.EventSpeaking, SpeakingPayload{ID: utterance, Speaking: false})
	}
}

// IsSpeaking reports whether audio is being played.
func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Reset implements the session helper contract.
func (s *Speaker) Reset() { s.Cancel() }

func (s *Speaker) publish(t session.EventType, data any) {
	if s.events == nil {
		return
	}
	s.events.Publish(session.Event{Type: t, Data: data})
}

// estimateDuration 服务端未返回时长时按字数估算。
func estimateDuration(text string) time.Duration {
	return time.Duration(utf8.RuneCountInString(text)) * 150 * time.Millisecond
}
