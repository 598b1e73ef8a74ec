package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/handler"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/live"
	"github.com/zhouzirui/z-interview/backend/internal/service/report"
	"github.com/zhouzirui/z-interview/backend/internal/service/speech"
	"github.com/zhouzirui/z-interview/backend/internal/service/vision"
	"github.com/zhouzirui/z-interview/backend/internal/store/history"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Built-in interviewers and scripts, optionally overridden by the content file
	personaStore := persona.NewMemoryStore(persona.Seed())
	scripts := interviewService.DefaultScripts()
	content, err := config.LoadContent(cfg.Interview.ContentFile)
	if err != nil {
		log.Fatalf("failed to load interview content: %v", err)
	}
	content.Apply(personaStore, scripts)

	aiService := newAIService(ctx, cfg.AI, personaStore)

	opts := interviewService.Options{
		Scripts:       scripts,
		FallbackDelay: cfg.Interview.FallbackDelay,
		Reports:       report.NewGenerator(nil),
	}
	if aiService != nil {
		opts.Responder = aiService
		opts.Coach = aiService
		opts.Reports = report.NewGenerator(aiService)
	}

	deps := handler.Deps{
		Personas:    personaStore,
		Speech:      &cfg.Speech,
		CORSOrigins: cfg.Server.CORSOrigins,
	}

	archive, err := history.Open(ctx, cfg.Interview.HistoryDB)
	if err != nil {
		log.Printf("warning: failed to open history database: %v", err)
		log.Println("continuing without interview history")
	} else {
		defer archive.Close()
		opts.Archive = archive
		deps.History = archive
		log.Printf("Interview history stored in %s", cfg.Interview.HistoryDB)
	}

	factory := live.Factory{
		Speech: &cfg.Speech,
		Vision: vision.Config{
			InitialDelay: cfg.Interview.VisionInitialDelay,
			Interval:     cfg.Interview.VisionInterval,
			FeedbackTTL:  cfg.Interview.VisionFeedbackTTL,
		},
	}
	if cfg.Speech.Enabled() {
		factory.Recognizer = speech.NewVolcengineRecognizer(&cfg.Speech, "")
		factory.Synthesizer = speech.NewVolcengineSynthesizer(&cfg.Speech, "")
		deps.Recognizer = factory.Recognizer
		deps.Synthesizer = factory.Synthesizer
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("语音服务凭证未配置，跳过语音功能初始化")
	}
	if aiService != nil {
		factory.Analyzer = aiService
	}

	deps.Sessions = interviewService.NewManager(opts, cfg.Interview.Defaults)
	deps.Live = live.NewHub(ctx, factory)

	router := handler.NewRouter(deps)

	startServer(ctx, cfg.Server, router)
}

// newAIService returns nil when Ark is not configured; the interview then runs on scripts.
func newAIService(ctx context.Context, cfg config.AIConfig, personas *persona.MemoryStore) *ai.Service {
	if !cfg.Enabled() {
		log.Println("Ark 凭证未配置，面试将以脚本模式运行")
		return nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		log.Printf("warning: failed to create chat model: %v", err)
		return nil
	}
	visionModel, err := cfg.NewVisionModel(ctx)
	if err != nil {
		log.Printf("warning: failed to create vision model, using chat model: %v", err)
		visionModel = nil
	}

	svc, err := ai.NewService(ctx, chatModel, visionModel, personas)
	if err != nil {
		log.Printf("warning: failed to initialize AI service: %v", err)
		log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		return nil
	}
	log.Println("AI service initialized successfully")
	return svc
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Z Interview backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
