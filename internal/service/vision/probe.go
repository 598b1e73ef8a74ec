package vision

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

var (
	ErrNoCamera = errors.New("camera not enabled")
	ErrNoFrame  = errors.New("no frame captured yet")
)

// Analyzer checks a frame, comparing it with reference when one is given.
type Analyzer interface {
	AnalyzeFrame(ctx context.Context, current, reference []byte) (string, error)
}

// Camera yields the most recent frame.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Log receives results for the report and gates probing on interview state.
type Log interface {
	AppendVision(entry string) bool
	Active() bool
}

// Config sets the probe cadence.
type Config struct {
	InitialDelay time.Duration
	Interval     time.Duration
	FeedbackTTL  time.Duration
}

// DefaultConfig mirrors the client cadence: first capture after 1s, then every 5s.
func DefaultConfig() Config {
	return Config{InitialDelay: time.Second, Interval: 5 * time.Second, FeedbackTTL: 4 * time.Second}
}

var warningMarkers = []string{"警告", "Warning", "Alert"}

// IsWarning reports whether an analysis result is a warning rather than feedback.
func IsWarning(result string) bool {
	for _, marker := range warningMarkers {
		if strings.Contains(result, marker) {
			return true
		}
	}
	return false
}

// Probe periodically checks camera frames for presence, gaze and identity.
type Probe struct {
	analyzer Analyzer
	log      Log
	events   interview.EventSink
	cfg      Config
	now      func() time.Time

	mu        sync.Mutex
	camera    Camera
	reference []byte
	feedback  string
	feedGen   uint64
	clear     *time.Timer

	inflight atomic.Bool
}

// NewProbe creates a disabled probe.
func NewProbe(analyzer Analyzer, sessionLog Log, events interview.EventSink, cfg Config) *Probe {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.FeedbackTTL <= 0 {
		cfg.FeedbackTTL = DefaultConfig().FeedbackTTL
	}
	return &Probe{analyzer: analyzer, log: sessionLog, events: events, cfg: cfg, now: time.Now}
}

// Enable turns the camera on. The reference frame, if any, is kept.
func (p *Probe) Enable(cam Camera) error {
	if cam == nil {
		return ErrNoCamera
	}
	p.mu.Lock()
	p.camera = cam
	p.mu.Unlock()
	p.publish(interview.EventCamera, map[string]bool{"enabled": true})
	return nil
}

// Disable turns the camera off.
func (p *Probe) Disable() {
	p.mu.Lock()
	p.camera = nil
	p.mu.Unlock()
	p.publish(interview.EventCamera, map[string]bool{"enabled": false})
}

// Enabled reports whether the camera is on.
func (p *Probe) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.camera != nil
}

// HasReference reports whether an identity baseline has been adopted.
func (p *Probe) HasReference() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reference != nil
}

// Feedback returns the transient feedback currently on display.
func (p *Probe) Feedback() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feedback
}

// Reset drops the reference frame and transient feedback.
func (p *Probe) Reset() {
	p.mu.Lock()
	p.reference = nil
	p.feedback = ""
	p.feedGen++
	if p.clear != nil {
		p.clear.Stop()
		p.clear = nil
	}
	p.mu.Unlock()
}

// Run ticks until ctx is done. Ticks that land while a capture is in flight
// are skipped.
func (p *Probe) Run(ctx context.Context) {
	if p.cfg.InitialDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.InitialDelay):
		}
	}
	go p.Tick(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go p.Tick(ctx)
		}
	}
}

// Tick performs one capture and analysis. It returns false when skipped.
func (p *Probe) Tick(ctx context.Context) bool {
	p.mu.Lock()
	cam := p.camera
	p.mu.Unlock()
	if cam == nil || !p.log.Active() {
		return false
	}
	if !p.inflight.CompareAndSwap(false, true) {
		return false
	}
	defer p.inflight.Store(false)

	frame, err := cam.Capture(ctx)
	if err != nil {
		log.Printf("[vision] capture failed: %v", err)
		return true
	}

	p.mu.Lock()
	reference := p.reference
	p.mu.Unlock()

	result, err := p.analyzer.AnalyzeFrame(ctx, frame, reference)
	if err != nil {
		log.Printf("[vision] analysis failed: %v", err)
		return true
	}
	result = strings.TrimSpace(result)
	warning := IsWarning(result)

	p.mu.Lock()
	if p.reference == nil && reference == nil && !warning {
		p.reference = frame
	}
	p.feedback = result
	p.feedGen++
	gen := p.feedGen
	if p.clear != nil {
		p.clear.Stop()
	}
	p.clear = time.AfterFunc(p.cfg.FeedbackTTL, func() { p.clearFeedback(gen) })
	p.mu.Unlock()

	entry := fmt.Sprintf("[%s]: %s", p.now().Format("15:04:05"), result)
	p.log.AppendVision(entry)
	p.publish(interview.EventVision, map[string]any{"feedback": result, "warning": warning})
	return true
}

// clearFeedback runs from the TTL timer. A timer that fired after newer
// feedback replaced its own leaves the newer one alone.
func (p *Probe) clearFeedback(gen uint64) {
	p.mu.Lock()
	if gen != p.feedGen {
		p.mu.Unlock()
		return
	}
	p.feedback = ""
	p.clear = nil
	p.mu.Unlock()
	p.publish(interview.EventVisionClear, nil)
}

func (p *Probe) publish(t interview.EventType, data any) {
	if p.events == nil {
		return
	}
	p.events.Publish(interview.Event{Type: t, Data: data})
}
