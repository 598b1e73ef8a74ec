package speech

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-interview/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	speechsvc "github.com/zhouzirui/z-interview/backend/internal/service/speech"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

const (
	maxUploadSize  = 32 << 20
	wavHeaderSize  = 44
	asrChunkSize   = 6400
	asrSampleRate  = 16000
	defaultTTSType = "mp3"
)

// Handler 一次性语音接口：上传录音转写、按文本合成语音。
// 实时链路走 /ws，这里服务于回放与调试。
type Handler struct {
	recognizer  speechsvc.Recognizer
	synthesizer speechsvc.Synthesizer
	cfg         *speechmodel.Config
	sessions    *interviewService.Manager
}

// New 创建语音处理器，recognizer 或 synthesizer 为 nil 时对应接口返回 503。
func New(rec speechsvc.Recognizer, syn speechsvc.Synthesizer, cfg *speechmodel.Config, sessions *interviewService.Manager) *Handler {
	return &Handler{
		recognizer:  rec,
		synthesizer: syn,
		cfg:         cfg,
		sessions:    sessions,
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/transcribe", h.handleTranscribe)
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Get("/health", h.handleHealth)
	})
}

type transcribeResponse struct {
	Text     string `json:"text"`
	Duration int64  `json:"durationMs"`
}

// handleTranscribe 处理语音转文本请求 (multipart: audio, language)
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.recognizer == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech recognition not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}
	if inferAudioFormat(header.Filename) == "wav" && len(audio) > wavHeaderSize {
		audio = audio[wavHeaderSize:]
	}
	if len(audio) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	lang := h.resolveLanguage(r.FormValue("language"), r.FormValue("sessionId"))
	result, err := transcribe(r.Context(), h.recognizer, audio, lang)
	if err != nil {
		log.Printf("[speech] ASR error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, transcribeResponse{Text: result.Text, Duration: result.Duration.Milliseconds()})
}

// transcribe pushes a whole PCM clip through one recognition stream.
func transcribe(ctx context.Context, rec speechsvc.Recognizer, audio []byte, lang interview.Language) (speechmodel.Recognition, error) {
	stream, err := rec.Open(ctx, speechmodel.RecognitionConfig{
		Language:   string(lang),
		Format:     "pcm",
		SampleRate: asrSampleRate,
	})
	if err != nil {
		return speechmodel.Recognition{}, err
	}
	defer stream.Close()

	writeErr := make(chan error, 1)
	go func() {
		for start := 0; start < len(audio); start += asrChunkSize {
			end := min(start+asrChunkSize, len(audio))
			if err := stream.Write(audio[start:end]); err != nil {
				writeErr <- err
				return
			}
		}
		writeErr <- stream.Finish()
	}()

	var last speechmodel.Recognition
	for res := range stream.Results() {
		last = res
	}
	if err := stream.Err(); err != nil {
		return speechmodel.Recognition{}, err
	}
	if err := <-writeErr; err != nil {
		return speechmodel.Recognition{}, err
	}
	last.Text = strings.TrimSpace(last.Text)
	return last, nil
}

type synthesizeRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	Voice     string `json:"voice"`
	Format    string `json:"format"`
	SessionID string `json:"sessionId"`
}

// handleSynthesize 处理文本转语音请求，返回音频二进制
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if h.synthesizer == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech synthesis not configured")
		return
	}

	var req synthesizeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := speechsvc.SpeechText(req.Text)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	lang := h.resolveLanguage(req.Language, req.SessionID)
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = h.cfg.VoiceFor(lang)
	}
	format := req.Format
	if format == "" {
		format = defaultTTSType
	}

	synthReq := speechmodel.SynthesisRequest{
		ID:       req.SessionID,
		Text:     text,
		Voice:    voice,
		Language: string(lang),
		Format:   format,
	}
	if label, scale, ok := speechsvc.EmotionFor(voice, sentiment.Classify(req.Text)); ok {
		synthReq.Emotion, synthReq.EmotionScale = label, scale
	}

	out, err := h.synthesizer.Synthesize(r.Context(), synthReq)
	if err != nil {
		log.Printf("[speech] TTS error: %v", err)
		status := http.StatusBadGateway
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		utils.RespondError(w, status, "speech synthesis failed")
		return
	}
	if out.Format != "" {
		format = out.Format
	}

	w.Header().Set("Content-Type", "audio/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Audio)))
	w.Header().Set("Content-Disposition", "attachment; filename=speech."+format)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Audio); err != nil {
		log.Printf("failed to write audio response: %v", err)
	}
}

// resolveLanguage prefers the explicit value, then the session's setting.
func (h *Handler) resolveLanguage(raw, sessionID string) interview.Language {
	if raw = strings.TrimSpace(raw); raw != "" {
		return interview.ParseLanguage(raw)
	}
	if h.sessions != nil && sessionID != "" {
		if s, err := h.sessions.Get(sessionID); err == nil {
			return s.Settings().Language
		}
	}
	return interview.Cantonese
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "speech",
		"asr":     h.recognizer != nil,
		"tts":     h.synthesizer != nil,
		"voices": map[interview.Language]string{
			interview.Cantonese: h.cfg.VoiceFor(interview.Cantonese),
			interview.English:   h.cfg.VoiceFor(interview.English),
		},
	})
}

// inferAudioFormat 从文件名推断音频格式
func inferAudioFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pcm", ".raw":
		return "pcm"
	default:
		return "wav"
	}
}
