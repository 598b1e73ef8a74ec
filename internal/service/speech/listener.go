package speech

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
	session "github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

var (
	ErrAlreadyListening = errors.New("speech: already listening")
	ErrNotListening     = errors.New("speech: not listening")
)

// DefaultFinalWait bounds how long Stop waits for the recognizer's final result.
const DefaultFinalWait = 3 * time.Second

// ListeningPayload is the data of a listening event.
type ListeningPayload struct {
	Listening bool               `json:"listening"`
	Language  interview.Language `json:"language,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// PartialPayload is the data of a partial transcript event. It is display
// only; nothing is submitted until Stop.
type PartialPayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Listener turns one recognition stream into a single finalized utterance
// per listening session.
type Listener struct {
	rec       Recognizer
	events    session.EventSink
	id        string
	finalWait time.Duration

	mu       sync.Mutex
	stream   Stream
	lang     interview.Language
	text     string
	consumed chan struct{}
}

// NewListener binds a recognizer to a session's event sink.
func NewListener(rec Recognizer, events session.EventSink, id string) *Listener {
	return &Listener{rec: rec, events: events, id: id, finalWait: DefaultFinalWait}
}

// Listening reports whether a listening session is open.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stream != nil
}

// Start opens a listening session in lang. A failure leaves listening off.
func (l *Listener) Start(ctx context.Context, lang interview.Language) error {
	l.mu.Lock()
	if l.stream != nil {
		l.mu.Unlock()
		return ErrAlreadyListening
	}
	l.mu.Unlock()

	stream, err := l.rec.Open(ctx, speechmodel.RecognitionConfig{
		ID:         l.id,
		Language:   string(lang),
		Format:     "pcm",
		SampleRate: 16000,
	})
	if err != nil {
		log.Printf("[speech] listener start failed session=%s: %v", l.id, err)
		l.publish(session.EventListening, ListeningPayload{Listening: false, Language: lang, Error: err.Error()})
		return err
	}

	l.mu.Lock()
	if l.stream != nil {
		l.mu.Unlock()
		stream.Close()
		return ErrAlreadyListening
	}
	l.stream = stream
	l.lang = lang
	l.text = ""
	l.consumed = make(chan struct{})
	consumed := l.consumed
	l.mu.Unlock()

	go l.consume(stream, consumed)
	l.publish(session.EventListening, ListeningPayload{Listening: true, Language: lang})
	return nil
}

func (l *Listener) consume(stream Stream, consumed chan struct{}) {
	defer close(consumed)
	for r := range stream.Results() {
		l.mu.Lock()
		current := l.stream == stream
		if current && r.Text != "" {
			l.text = r.Text
		}
		l.mu.Unlock()
		if current {
			l.publish(session.EventPartial, PartialPayload{Text: r.Text, Final: r.Final})
		}
	}
	if err := stream.Err(); err != nil {
		log.Printf("[speech] recognition ended with error session=%s: %v", l.id, err)
	}
}

// PushAudio forwards a PCM chunk to the open session.
func (l *Listener) PushAudio(chunk []byte) error {
	l.mu.Lock()
	stream := l.stream
	l.mu.Unlock()
	if stream == nil {
		return ErrNotListening
	}
	return stream.Write(chunk)
}

// Stop ends the listening session and returns the finalized text, which may
// be empty. The caller submits it.
func (l *Listener) Stop(ctx context.Context) (string, error) {
	l.mu.Lock()
	stream, consumed := l.stream, l.consumed
	l.mu.Unlock()
	if stream == nil {
		return "", ErrNotListening
	}

	if err := stream.Finish(); err != nil {
		log.Printf("[speech] finish failed session=%s: %v", l.id, err)
	}

	wait := time.NewTimer(l.finalWait)
	defer wait.Stop()
	select {
	case <-consumed:
	case <-wait.C:
		log.Printf("[speech] final result timed out session=%s", l.id)
	case <-ctx.Done():
	}

	l.mu.Lock()
	if l.stream != stream {
		// aborted while waiting
		l.mu.Unlock()
		return "", ErrNotListening
	}
	text := l.text
	lang := l.lang
	l.stream = nil
	l.text = ""
	l.mu.Unlock()

	stream.Close()
	l.publish(session.EventListening, ListeningPayload{Listening: false, Language: lang})
	return text, nil
}

// Abort discards the open listening session, if any.
func (l *Listener) Abort() {
	l.mu.Lock()
	stream, lang := l.stream, l.lang
	l.stream = nil
	l.text = ""
	l.mu.Unlock()
	if stream == nil {
		return
	}
	stream.Close()
	l.publish(session.EventListening, ListeningPayload{Listening: false, Language: lang})
}

// Reset implements the session helper contract.
func (l *Listener) Reset() { l.Abort() }

func (l *Listener) publish(t session.EventType, data any) {
	if l.events == nil {
		return
	}
	l.events.Publish(session.Event{Type: t, Data: data})
}
