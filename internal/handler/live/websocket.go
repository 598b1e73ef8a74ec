package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	interviewModel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	liveService "github.com/zhouzirui/z-interview/backend/internal/service/live"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 实时面试通道：麦克风音频、摄像头画面与会话事件。
type WebSocketHandler struct {
	sessions *interviewService.Manager
	hub      *liveService.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(sessions *interviewService.Manager, hub *liveService.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		hub:      hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// AudioMessage carries a PCM chunk (16 kHz, 16-bit mono), base64 in JSON.
type AudioMessage struct {
	Audio []byte `json:"audio"`
}

// TextMessage is a typed answer.
type TextMessage struct {
	Text string `json:"text"`
}

// FrameMessage carries a JPEG camera frame, base64 in JSON.
type FrameMessage struct {
	Image []byte `json:"image"`
}

// CameraMessage toggles the vision probe.
type CameraMessage struct {
	Enabled bool `json:"enabled"`
}

// PlaybackMessage acknowledges that an utterance finished playing.
type PlaybackMessage struct {
	ID string `json:"id"`
}

// ConfigMessage updates interview settings. Absent fields are kept.
type ConfigMessage struct {
	QuestionCount *int    `json:"questionCount,omitempty"`
	Scenario      *string `json:"scenario,omitempty"`
	Language      *string `json:"language,omitempty"`
	Background    *string `json:"background,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection serializes writes; gorilla allows one concurrent writer.
type connection struct {
	conn      *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *connection) send(msg outgoingMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write failed session=%s: %v", c.sessionID, err)
	}
}

func (c *connection) sendInfo(msgType string, data interface{}) {
	c.send(outgoingMessage{Type: msgType, SessionID: c.sessionID, Data: data, Timestamp: time.Now().UnixMilli()})
}

func (c *connection) sendError(message string) {
	c.send(outgoingMessage{
		Type:      "error",
		SessionID: c.sessionID,
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	rt := h.hub.Attach(session)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	conn := &connection{conn: ws, sessionID: sessionID}
	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer rt.Suspend()

	events, release := session.Subscribe()
	defer release()
	go h.forwardEvents(ctx, conn, events)

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	go h.pingLoop(ctx, ws)

	conn.sendInfo("connected", session.State())

	for {
		kind, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		// 二进制消息直接视为麦克风音频
		if kind == websocket.BinaryMessage {
			h.pushAudio(conn, rt, payload)
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			conn.sendError("invalid message")
			continue
		}
		if msg.SessionID != "" && msg.SessionID != sessionID {
			conn.sendError("session mismatch")
			continue
		}
		h.handleMessage(ctx, conn, rt, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *connection, rt *liveService.Runtime, msg *inboundMessage) {
	session := rt.Session()

	switch msg.Type {
	case "listen_start":
		if err := rt.StartListening(ctx); err != nil {
			conn.sendError(err.Error())
		}
	case "audio":
		var audio AudioMessage
		if err := json.Unmarshal(msg.Data, &audio); err != nil {
			conn.sendError("invalid audio payload")
			return
		}
		h.pushAudio(conn, rt, audio.Audio)
	case "listen_stop":
		// 识别收尾与回复生成可能较慢，不阻塞读循环
		go func() {
			if err := rt.StopListening(ctx); err != nil && !errors.Is(err, context.Canceled) {
				conn.sendError(err.Error())
			}
		}()
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			conn.sendError("invalid text payload")
			return
		}
		go func() {
			if _, err := session.Submit(ctx, text.Text); err != nil && !errors.Is(err, context.Canceled) {
				conn.sendError(err.Error())
			}
		}()
	case "frame":
		var frame FrameMessage
		if err := json.Unmarshal(msg.Data, &frame); err != nil || len(frame.Image) == 0 {
			conn.sendError("invalid frame payload")
			return
		}
		rt.PushFrame(frame.Image)
	case "camera":
		var camera CameraMessage
		if err := json.Unmarshal(msg.Data, &camera); err != nil {
			conn.sendError("invalid camera payload")
			return
		}
		if !camera.Enabled {
			rt.DisableCamera()
			return
		}
		if err := rt.EnableCamera(); err != nil {
			conn.sendError(err.Error())
			conn.sendInfo(string(interviewService.EventCamera), map[string]bool{"enabled": false})
		}
	case "playback_done":
		var ack PlaybackMessage
		if err := json.Unmarshal(msg.Data, &ack); err != nil {
			conn.sendError("invalid playback payload")
			return
		}
		rt.PlaybackDone(ack.ID)
	case "config":
		var cfg ConfigMessage
		if err := json.Unmarshal(msg.Data, &cfg); err != nil {
			conn.sendError("invalid config payload")
			return
		}
		settings, err := applyConfig(session.Settings(), cfg)
		if err != nil {
			conn.sendError(err.Error())
			return
		}
		session.UpdateSettings(settings)
		log.Printf("[websocket] config applied session=%s language=%s scenario=%s questions=%d", session.ID(), settings.Language, settings.Scenario, settings.QuestionCount)
	default:
		conn.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *WebSocketHandler) pushAudio(conn *connection, rt *liveService.Runtime, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if err := rt.PushAudio(chunk); err != nil {
		conn.sendError(err.Error())
	}
}

// applyConfig overlays the set fields on base. An out-of-range question
// count rejects the whole message, same as the REST settings payload.
func applyConfig(base interviewModel.Settings, cfg ConfigMessage) (interviewModel.Settings, error) {
	if cfg.QuestionCount != nil {
		n := *cfg.QuestionCount
		if n < 1 || n > interviewModel.MaxQuestionCount {
			return base, fmt.Errorf("questionCount must be between 1 and %d", interviewModel.MaxQuestionCount)
		}
		base.QuestionCount = n
	}
	if cfg.Scenario != nil {
		base.Scenario = interviewModel.ParseScenario(*cfg.Scenario)
	}
	if cfg.Language != nil {
		base.Language = interviewModel.ParseLanguage(*cfg.Language)
	}
	if cfg.Background != nil {
		base.Background = *cfg.Background
	}
	return base, nil
}

// forwardEvents 将会话事件推送给客户端
func (h *WebSocketHandler) forwardEvents(ctx context.Context, conn *connection, events <-chan interviewService.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			conn.send(outgoingMessage{
				Type:      string(e.Type),
				SessionID: e.SessionID,
				Data:      e.Data,
				Timestamp: e.Timestamp.UnixMilli(),
			})
		}
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
