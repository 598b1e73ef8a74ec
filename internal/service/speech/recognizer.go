package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

// ASREndpoint 双向流式识别接口。
const ASREndpoint = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_async"

const (
	// 16kHz 16bit 单声道 200ms
	chunkSize = 6400
	// 序号 1 由 full client request 占用
	firstAudioSequence int32 = 2
)

// ErrStreamClosed is returned when writing to a finished or closed stream.
var ErrStreamClosed = errors.New("speech: recognition stream closed")

// Recognizer opens streaming recognition sessions.
type Recognizer interface {
	Open(ctx context.Context, cfg speechmodel.RecognitionConfig) (Stream, error)
}

// Stream is one recognition session. Results is closed after the final
// result or on error; Err reports why.
type Stream interface {
	Write(audio []byte) error
	Finish() error
	Results() <-chan speechmodel.Recognition
	Err() error
	Close() error
}

// VolcengineRecognizer 火山引擎流式 ASR 客户端。
type VolcengineRecognizer struct {
	cfg      *speechmodel.Config
	dialer   *websocket.Dialer
	endpoint string
}

// NewVolcengineRecognizer creates a client; endpoint empty means ASREndpoint.
func NewVolcengineRecognizer(cfg *speechmodel.Config, endpoint string) *VolcengineRecognizer {
	if endpoint == "" {
		endpoint = ASREndpoint
	}
	return &VolcengineRecognizer{
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		endpoint: endpoint,
	}
}

type asrRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate"`
		Bits     int    `json:"bits"`
		Channel  int    `json:"channel"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn"`
		EnablePunc     bool   `json:"enable_punc"`
		ShowUtterances bool   `json:"show_utterances"`
		ResultType     string `json:"result_type"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text     string `json:"text"`
	Definite bool   `json:"definite"`
}

type asrServerMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// Open dials the recognizer and sends the session parameters.
func (r *VolcengineRecognizer) Open(ctx context.Context, cfg speechmodel.RecognitionConfig) (Stream, error) {
	resource := "volc.bigasr.sauc.duration"
	if r.cfg != nil && r.cfg.ConcurrentMode {
		resource = "volc.bigasr.sauc.concurrent"
	}
	header, err := authHeader(r.cfg, resource, cfg.ID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := r.dialer.DialContext(ctx, r.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("connect asr: %w", err)
	}
	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[speech] asr connected logid=%s", logid)
		}
	}

	body, err := json.Marshal(buildASRRequest(cfg))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("marshal asr request: %w", err)
	}
	if err := writeFrame(conn, body, GzipCompression); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send asr request: %w", err)
	}

	s := &volcStream{
		conn:    conn,
		seq:     firstAudioSequence,
		results: make(chan speechmodel.Recognition, 16),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func buildASRRequest(cfg speechmodel.RecognitionConfig) *asrRequest {
	req := &asrRequest{}
	req.User.UID = cfg.ID
	req.Audio.Language = cfg.Language
	req.Audio.Format = cfg.Format
	if req.Audio.Format == "" {
		req.Audio.Format = "pcm"
	}
	req.Audio.Codec = "raw"
	req.Audio.Rate = cfg.SampleRate
	if req.Audio.Rate <= 0 {
		req.Audio.Rate = 16000
	}
	req.Audio.Bits = 16
	req.Audio.Channel = 1

	req.Request.ModelName = "bigmodel"
	req.Request.EnableITN = true
	req.Request.EnablePunc = true
	req.Request.ShowUtterances = true
	req.Request.ResultType = "full"
	req.Request.EndWindowSize = 800
	return req
}

type volcStream struct {
	conn *websocket.Conn

	mu       sync.Mutex
	pending  []byte
	seq      int32
	finished bool
	closed   bool
	err      error

	results chan speechmodel.Recognition
	quit    chan struct{}
	done    chan struct{}
}

func (s *volcStream) Results() <-chan speechmodel.Recognition { return s.results }

func (s *volcStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Write buffers audio and sends every full chunk.
func (s *volcStream) Write(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.closed {
		return ErrStreamClosed
	}
	s.pending = append(s.pending, audio...)
	for len(s.pending) >= chunkSize {
		if err := s.sendLocked(s.pending[:chunkSize], false); err != nil {
			return err
		}
		s.pending = s.pending[chunkSize:]
	}
	return nil
}

// Finish flushes buffered audio as the last packet.
func (s *volcStream) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.closed {
		return nil
	}
	s.finished = true
	err := s.sendLocked(s.pending, true)
	s.pending = nil
	return err
}

func (s *volcStream) sendLocked(chunk []byte, last bool) error {
	frame, err := newAudioFrame(chunk, s.seq, last, GzipCompression)
	if err != nil {
		return err
	}
	data, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("send audio chunk: %w", err)
	}
	s.seq++
	return nil
}

func (s *volcStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	err := s.conn.Close()
	<-s.done
	return err
}

func (s *volcStream) fail(err error) {
	s.mu.Lock()
	if s.err == nil && !s.closed {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *volcStream) readLoop() {
	defer close(s.done)
	defer close(s.results)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("read asr response: %w", err))
			return
		}
		frame, err := ReadFrame(bytes.NewReader(data))
		if err != nil {
			s.fail(fmt.Errorf("decode asr frame: %w", err))
			return
		}
		payload, err := frame.Body()
		if err != nil {
			s.fail(fmt.Errorf("decompress asr frame: %w", err))
			return
		}

		switch frame.Type {
		case ErrorMessage:
			s.fail(fmt.Errorf("asr error %d: %s", frame.ErrorCode, payload))
			return
		case FullServerResponse:
			var msg asrServerMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				log.Printf("[speech] asr payload not json: %v", err)
				continue
			}
			if msg.Code != 0 && msg.Code != 20000000 {
				s.fail(fmt.Errorf("asr api error %d: %s", msg.Code, msg.Message))
				return
			}
			text := msg.Result.Text
			if text == "" {
				text = joinUtterances(msg.Result.Utterances)
			}
			result := speechmodel.Recognition{
				Text:     strings.TrimSpace(text),
				Final:    frame.Last(),
				Duration: time.Duration(msg.AudioInfo.Duration) * time.Millisecond,
			}
			select {
			case s.results <- result:
			case <-s.quit:
				return
			}
			if result.Final {
				return
			}
		}
	}
}

func joinUtterances(us []asrUtterance) string {
	parts := make([]string, 0, len(us))
	for _, u := range us {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
