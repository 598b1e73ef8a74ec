package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

// Handler 面试官列表的HTTP处理器
type Handler struct {
	personas persona.Store
}

// New 创建persona处理器
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/interviewers", h.handleListInterviewers)
	r.Get("/interviewers/{id}", h.handleGetInterviewer)
}

// handleListInterviewers 列出面试官，可按 language / scenario 过滤
func (h *Handler) handleListInterviewers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	items := h.personas.List()

	if raw := query.Get("language"); raw != "" {
		lang := interview.ParseLanguage(raw)
		items = lo.Filter(items, func(p persona.Persona, _ int) bool { return p.Language == lang })
	}
	if raw := query.Get("scenario"); raw != "" {
		scenario := interview.ParseScenario(raw)
		items = lo.Filter(items, func(p persona.Persona, _ int) bool { return p.Scenario == scenario })
	}

	utils.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetInterviewer(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personas.FindByID(chi.URLParam(r, "id"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "interviewer not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
