package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	interviewHandler "github.com/zhouzirui/z-interview/backend/internal/handler/interview"
	liveHandler "github.com/zhouzirui/z-interview/backend/internal/handler/live"
	"github.com/zhouzirui/z-interview/backend/internal/handler/persona"
	speechHandler "github.com/zhouzirui/z-interview/backend/internal/handler/speech"
	personaModel "github.com/zhouzirui/z-interview/backend/internal/model/persona"
	speechModel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	liveService "github.com/zhouzirui/z-interview/backend/internal/service/live"
	speechService "github.com/zhouzirui/z-interview/backend/internal/service/speech"
	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

// Deps are the services the HTTP surface is built on. History, Recognizer
// and Synthesizer may be nil.
type Deps struct {
	Personas    personaModel.Store
	Sessions    *interviewService.Manager
	Live        *liveService.Hub
	History     interviewHandler.History
	Recognizer  speechService.Recognizer
	Synthesizer speechService.Synthesizer
	Speech      *speechModel.Config
	CORSOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(deps.CORSOrigins)))

	personaHandler := persona.New(deps.Personas)
	sessionHandler := interviewHandler.New(deps.Sessions, deps.History, deps.Live)
	socketHandler := liveHandler.NewWebSocketHandler(deps.Sessions, deps.Live)
	voiceHandler := speechHandler.New(deps.Recognizer, deps.Synthesizer, deps.Speech, deps.Sessions)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		socketHandler.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}
