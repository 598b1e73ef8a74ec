package live

import (
	"context"
	"errors"
	"log"
	"sync"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
	session "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/speech"
	"github.com/zhouzirui/z-interview/backend/internal/service/vision"
)

var (
	ErrSpeechDisabled = errors.New("speech is not configured")
	ErrVisionDisabled = errors.New("vision is not configured")
)

// Factory builds the per-session voice and camera helpers. Nil capabilities
// leave the matching helper out.
type Factory struct {
	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
	Speech      *speechmodel.Config
	Analyzer    vision.Analyzer
	Vision      vision.Config
}

// Runtime 是单个会话的实时辅助组件：麦克风、语音播放与摄像头检测。
type Runtime struct {
	session  *session.Session
	listener *speech.Listener
	speaker  *speech.Speaker
	probe    *vision.Probe
	frames   *vision.FrameBuffer
	cancel   context.CancelFunc
}

// Attach wires helpers into s and starts the probe loop.
func (f Factory) Attach(ctx context.Context, s *session.Session) *Runtime {
	ctx, cancel := context.WithCancel(ctx)
	rt := &Runtime{session: s, frames: &vision.FrameBuffer{}, cancel: cancel}

	if f.Recognizer != nil {
		rt.listener = speech.NewListener(f.Recognizer, s, s.ID())
		s.AttachListener(rt.listener)
		s.AttachHelper(rt.listener)
	}
	if f.Synthesizer != nil {
		rt.speaker = speech.NewSpeaker(f.Synthesizer, f.Speech, s, s.ID())
		s.AttachSpeaker(rt.speaker)
		s.AttachHelper(rt.speaker)
	}
	if f.Analyzer != nil {
		rt.probe = vision.NewProbe(f.Analyzer, s, s, f.Vision)
		s.AttachHelper(rt.probe)
		go rt.probe.Run(ctx)
	}
	return rt
}

// Session returns the session the runtime serves.
func (r *Runtime) Session() *session.Session { return r.session }

// StartListening opens a microphone session in the current interview language.
func (r *Runtime) StartListening(ctx context.Context) error {
	if r.listener == nil {
		return ErrSpeechDisabled
	}
	if !r.session.Active() {
		return session.ErrNotActive
	}
	return r.listener.Start(ctx, r.session.Settings().Language)
}

// PushAudio forwards a PCM chunk to the open microphone session.
func (r *Runtime) PushAudio(chunk []byte) error {
	if r.listener == nil {
		return ErrSpeechDisabled
	}
	return r.listener.PushAudio(chunk)
}

// StopListening closes the microphone session and submits what was heard.
// Empty recognition is not an error and submits nothing.
func (r *Runtime) StopListening(ctx context.Context) error {
	if r.listener == nil {
		return ErrSpeechDisabled
	}
	text, err := r.listener.Stop(ctx)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	_, err = r.session.Submit(ctx, text)
	return err
}

// PlaybackDone acknowledges that the client finished playing an utterance.
func (r *Runtime) PlaybackDone(utterance string) {
	if r.speaker != nil {
		r.speaker.PlaybackDone(utterance)
	}
}

// EnableCamera starts probing frames pushed with PushFrame.
func (r *Runtime) EnableCamera() error {
	if r.probe == nil {
		return ErrVisionDisabled
	}
	return r.probe.Enable(r.frames)
}

// DisableCamera stops probing and drops the buffered frame. The reference
// frame is kept.
func (r *Runtime) DisableCamera() {
	if r.probe != nil {
		r.probe.Disable()
	}
	r.frames.Clear()
}

// PushFrame stores the latest camera frame.
func (r *Runtime) PushFrame(jpeg []byte) {
	r.frames.Push(jpeg)
}

// Suspend drops audio in progress and turns the camera off. Used when the
// client disconnects; the session itself keeps going.
func (r *Runtime) Suspend() {
	if r.listener != nil {
		r.listener.Abort()
	}
	if r.speaker != nil {
		r.speaker.Cancel()
	}
	if r.probe != nil && r.probe.Enabled() {
		r.probe.Disable()
	}
	r.frames.Clear()
}

// Close stops the probe loop and any audio in progress.
func (r *Runtime) Close() {
	r.cancel()
	r.Suspend()
}

// Hub keeps one runtime per session.
type Hub struct {
	factory Factory
	ctx     context.Context

	mu       sync.Mutex
	runtimes map[string]*Runtime
}

// NewHub creates a hub whose runtimes live until ctx is done or Remove.
func NewHub(ctx context.Context, factory Factory) *Hub {
	return &Hub{factory: factory, ctx: ctx, runtimes: make(map[string]*Runtime)}
}

// Attach returns the runtime for s, creating it on first use.
func (h *Hub) Attach(s *session.Session) *Runtime {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rt, ok := h.runtimes[s.ID()]; ok {
		return rt
	}
	rt := h.factory.Attach(h.ctx, s)
	h.runtimes[s.ID()] = rt
	log.Printf("[live] runtime attached session=%s", s.ID())
	return rt
}

// Get returns the runtime for id, if any.
func (h *Hub) Get(id string) (*Runtime, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rt, ok := h.runtimes[id]
	return rt, ok
}

// Remove closes and forgets the runtime for id.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	rt, ok := h.runtimes[id]
	delete(h.runtimes, id)
	h.mu.Unlock()
	if ok {
		rt.Close()
	}
}
