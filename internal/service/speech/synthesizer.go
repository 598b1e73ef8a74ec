package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

// TTSEndpoint 单向流式合成接口。
const TTSEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// ErrEmptyAudio is returned when the server finishes without sending audio.
var ErrEmptyAudio = errors.New("speech: synthesis returned no audio")

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req speechmodel.SynthesisRequest) (speechmodel.Synthesis, error)
}

// VolcengineSynthesizer 火山引擎 TTS WebSocket 客户端。
type VolcengineSynthesizer struct {
	cfg      *speechmodel.Config
	dialer   *websocket.Dialer
	endpoint string
}

// NewVolcengineSynthesizer creates a client; endpoint empty means TTSEndpoint.
func NewVolcengineSynthesizer(cfg *speechmodel.Config, endpoint string) *VolcengineSynthesizer {
	if endpoint == "" {
		endpoint = TTSEndpoint
	}
	return &VolcengineSynthesizer{
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		endpoint: endpoint,
	}
}

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format       string  `json:"format"`
	SampleRate   int     `json:"sample_rate"`
	SpeedRatio   float32 `json:"speed_ratio,omitempty"`
	VolumeRatio  float32 `json:"volume_ratio,omitempty"`
	Emotion      string  `json:"emotion,omitempty"`
	EmotionScale float32 `json:"emotion_scale,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// Synthesize tries the requested voice and then the locale fallbacks; a
// resource/speaker mismatch moves on to the next candidate, any other error stops.
func (s *VolcengineSynthesizer) Synthesize(ctx context.Context, req speechmodel.SynthesisRequest) (speechmodel.Synthesis, error) {
	if strings.TrimSpace(req.Text) == "" {
		return speechmodel.Synthesis{}, fmt.Errorf("speech: synthesis text is empty")
	}
	if req.Format == "" {
		req.Format = "mp3"
	}

	var lastErr error
	for _, voice := range voiceCandidates(req.Voice, interview.ParseLanguage(req.Language)) {
		for _, resource := range resourceCandidates(voice) {
			out, err := s.synthesizeOnce(ctx, req, voice, resource)
			if err == nil {
				if voice != req.Voice {
					log.Printf("[speech] fallback voice %s used for %s", voice, req.Voice)
				}
				return out, nil
			}
			if !isResourceMismatch(err) {
				return speechmodel.Synthesis{}, err
			}
			log.Printf("[speech] voice %s resource %s mismatch: %v", voice, resource, err)
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("speech: no voice candidates for %q", req.Language)
	}
	return speechmodel.Synthesis{}, lastErr
}

func (s *VolcengineSynthesizer) synthesizeOnce(ctx context.Context, req speechmodel.SynthesisRequest, voice, resource string) (speechmodel.Synthesis, error) {
	connectID := uuid.NewString()
	header, err := authHeader(s.cfg, resource, connectID)
	if err != nil {
		return speechmodel.Synthesis{}, err
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.endpoint, header)
	if err != nil {
		return speechmodel.Synthesis{}, fmt.Errorf("connect tts: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[speech] tts connected logid=%s", logid)
		}
	}

	// 取消时关闭连接以打断阻塞的读取
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	body, err := json.Marshal(s.buildRequest(req, voice))
	if err != nil {
		return speechmodel.Synthesis{}, fmt.Errorf("marshal tts request: %w", err)
	}
	if err := writeFrame(conn, body, NoCompression); err != nil {
		return speechmodel.Synthesis{}, fmt.Errorf("send tts request: %w", err)
	}

	var (
		audio    bytes.Buffer
		reqID    = connectID
		duration time.Duration
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return speechmodel.Synthesis{}, ctx.Err()
			}
			return speechmodel.Synthesis{}, fmt.Errorf("read tts response: %w", err)
		}
		frame, err := ReadFrame(bytes.NewReader(data))
		if err != nil {
			return speechmodel.Synthesis{}, fmt.Errorf("decode tts frame: %w", err)
		}
		payload, err := frame.Body()
		if err != nil {
			return speechmodel.Synthesis{}, fmt.Errorf("decompress tts frame: %w", err)
		}

		switch frame.Type {
		case ErrorMessage:
			return speechmodel.Synthesis{}, fmt.Errorf("tts error %d: %s", frame.ErrorCode, payload)
		case AudioOnlyServerResponse:
			audio.Write(payload)
		case FullServerResponse:
			if len(payload) > 0 {
				var msg ttsServerMessage
				if err := json.Unmarshal(payload, &msg); err != nil {
					log.Printf("[speech] tts payload not json: %v", err)
				} else {
					if msg.Code != 0 && msg.Code != 3000 && msg.Code != 20000000 {
						return speechmodel.Synthesis{}, fmt.Errorf("tts api error %d: %s", msg.Code, msg.Message)
					}
					if msg.ReqID != "" {
						reqID = msg.ReqID
					}
					if ms, err := strconv.ParseInt(msg.Addition.Duration, 10, 64); err == nil {
						duration = time.Duration(ms) * time.Millisecond
					}
					if msg.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(msg.Data)
						if err != nil {
							return speechmodel.Synthesis{}, fmt.Errorf("decode tts audio: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}
		default:
			log.Printf("[speech] unexpected tts frame type %d", frame.Type)
		}

		if frame.Finished() {
			break
		}
	}

	if audio.Len() == 0 {
		return speechmodel.Synthesis{}, ErrEmptyAudio
	}
	return speechmodel.Synthesis{
		Audio:     audio.Bytes(),
		Format:    req.Format,
		Duration:  duration,
		RequestID: reqID,
	}, nil
}

func (s *VolcengineSynthesizer) buildRequest(req speechmodel.SynthesisRequest, voice string) *ttsRequest {
	out := &ttsRequest{}
	out.User.UID = req.ID
	if out.User.UID == "" {
		out.User.UID = uuid.NewString()
	}
	out.ReqParams.Speaker = voice
	out.ReqParams.Text = req.Text
	out.ReqParams.Language = req.Language
	out.ReqParams.Additions = `{"disable_markdown_filter":false}`
	out.ReqParams.AudioParams = ttsAudioParams{
		Format:     req.Format,
		SampleRate: 24000,
	}
	if s.cfg != nil {
		if s.cfg.Speed > 0 && s.cfg.Speed != 1 {
			out.ReqParams.AudioParams.SpeedRatio = s.cfg.Speed
		}
		if s.cfg.Volume > 0 && s.cfg.Volume != 1 {
			out.ReqParams.AudioParams.VolumeRatio = s.cfg.Volume
		}
	}
	if req.Emotion != "" && supportsEmotion(voice) {
		out.ReqParams.AudioParams.Emotion = req.Emotion
		out.ReqParams.AudioParams.EmotionScale = req.EmotionScale
	}
	return out
}

func writeFrame(conn *websocket.Conn, body []byte, c Compression) error {
	frame, err := newRequestFrame(body, c)
	if err != nil {
		return err
	}
	data, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}
