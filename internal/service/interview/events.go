package interview

import (
	"sync"
	"time"
)

// EventType names what changed in a session.
type EventType string

const (
	EventState       EventType = "state"
	EventTurn        EventType = "turn"
	EventTurnsPopped EventType = "turns_popped"
	EventSentiment   EventType = "sentiment"
	EventDiagnostic  EventType = "diagnostic"
	EventCoaching    EventType = "coaching"
	EventReport      EventType = "report"
	EventPartial     EventType = "partial_transcript"
	EventListening   EventType = "listening"
	EventSpeaking    EventType = "speaking"
	EventAudio       EventType = "audio"
	EventVision      EventType = "vision"
	EventVisionClear EventType = "vision_clear"
	EventCamera      EventType = "camera"
	EventError       EventType = "error"
)

// Event is pushed to the live socket and the SSE stream.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives session events. Implementations must not block.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Publish calls f.
func (f EventSinkFunc) Publish(e Event) { f(e) }

// Broadcaster fans events out to subscribers. Slow subscribers lose events
// rather than stall the session.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Publish delivers e to every subscriber with room in its buffer.
func (b *Broadcaster) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered event channel and a func that releases it.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
