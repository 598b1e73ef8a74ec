package interview

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	interviewModel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/report"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/live"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

// History lists archived interviews, newest first.
type History interface {
	List(ctx context.Context, limit int) ([]report.Record, error)
}

// Handler 面试会话的HTTP处理器
type Handler struct {
	sessions *interviewService.Manager
	history  History
	hub      *live.Hub
}

// New 创建面试处理器。history 与 hub 可以为空。
func New(sessions *interviewService.Manager, history History, hub *live.Hub) *Handler {
	return &Handler{
		sessions: sessions,
		history:  history,
		hub:      hub,
	}
}

// RegisterRoutes 注册面试相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/", h.handleGetSession)
		s.Delete("/", h.handleDeleteSession)
		s.Put("/settings", h.handleUpdateSettings)
		s.Post("/start", h.handleStart)
		s.Post("/answers", h.handleSubmit)
		s.Post("/edit", h.handleEdit)
		s.Post("/end", h.handleEnd)
		s.Post("/coaching/{kind}", h.handleCoaching)
		s.Post("/report", h.handleGenerateReport)
		s.Get("/report", h.handleGetReport)
		s.Post("/restart", h.handleRestart)
		s.Get("/events", h.handleEvents)
	})
	r.Get("/history", h.handleHistory)
}

type settingsPayload struct {
	QuestionCount *int    `json:"questionCount"`
	Scenario      *string `json:"scenario"`
	Language      *string `json:"language"`
	Background    *string `json:"background"`
}

func (p settingsPayload) validate() error {
	if p.QuestionCount != nil && (*p.QuestionCount < 1 || *p.QuestionCount > interviewModel.MaxQuestionCount) {
		return errors.New("questionCount must be between 1 and " + strconv.Itoa(interviewModel.MaxQuestionCount))
	}
	return nil
}

// apply overlays the fields present in the payload on base.
func (p settingsPayload) apply(base interviewModel.Settings) interviewModel.Settings {
	if p.QuestionCount != nil {
		base.QuestionCount = *p.QuestionCount
	}
	if p.Scenario != nil {
		base.Scenario = interviewModel.ParseScenario(*p.Scenario)
	}
	if p.Language != nil {
		base.Language = interviewModel.ParseLanguage(*p.Language)
	}
	if p.Background != nil {
		base.Background = *p.Background
	}
	return base
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := payload.validate(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := h.sessions.Create(payload.apply(interviewModel.Settings{}))
	if h.hub != nil {
		h.hub.Attach(session)
	}
	log.Printf("[interview] session created id=%s", session.ID())
	utils.RespondJSON(w, http.StatusCreated, session.State())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.State())
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if h.hub != nil {
		h.hub.Remove(session.ID())
	}
	h.sessions.Delete(session.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload settingsPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := payload.validate(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, session.UpdateSettings(payload.apply(session.Settings())))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	turn, err := session.Start(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turnResponse{Turn: turn, State: session.State()})
}

type turnResponse struct {
	Turn  interviewModel.Turn    `json:"turn"`
	State interviewService.State `json:"state"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := session.Submit(r.Context(), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turnResponse{Turn: turn, State: session.State()})
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	popped, err := session.EditLastExchange()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"popped": popped,
		"state":  session.State(),
	})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	turn, err := session.ForceEnd()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turnResponse{Turn: turn, State: session.State()})
}

func (h *Handler) handleCoaching(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	kind, ok := interviewService.ParseCoachingKind(chi.URLParam(r, "kind"))
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "unknown coaching kind")
		return
	}

	art, err := session.Coaching(r.Context(), kind)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, art)
}

type reportResponse struct {
	Report report.Report `json:"report"`
	Band   report.Band   `json:"band"`
}

func (h *Handler) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	rep, err := session.GenerateReport(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, reportResponse{Report: rep, Band: report.BandFor(rep.OverallScore)})
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	rep, err := session.Report()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, reportResponse{Report: rep, Band: report.BandFor(rep.OverallScore)})
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	state, err := session.Restart()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "history unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.history.List(r.Context(), limit)
	if err != nil {
		log.Printf("[interview] list history failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []report.Record{}
	}
	utils.RespondJSON(w, http.StatusOK, records)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*interviewService.Session, bool) {
	session, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	return session, true
}

// respondServiceError 将会话错误映射为HTTP状态码
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interviewService.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, interviewService.ErrEmptyUtterance):
		status = http.StatusBadRequest
	case errors.Is(err, interviewService.ErrBusy),
		errors.Is(err, interviewService.ErrCoachingBusy),
		errors.Is(err, interviewService.ErrNotActive),
		errors.Is(err, interviewService.ErrWrongPhase),
		errors.Is(err, interviewService.ErrInterviewEnded),
		errors.Is(err, interviewService.ErrNoInterviewerTurn),
		errors.Is(err, interviewService.ErrStale):
		status = http.StatusConflict
	case errors.Is(err, interviewService.ErrNoReport):
		status = http.StatusNotFound
	case errors.Is(err, interviewService.ErrEmptyReply):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Printf("[interview] unexpected error: %v", err)
	}
	utils.RespondError(w, status, err.Error())
}
