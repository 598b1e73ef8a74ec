package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/console"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/report"
	"github.com/zhouzirui/z-interview/backend/internal/store/history"
)

func main() {
	language := flag.String("lang", "", "面试语言 zh-HK 或 en-US，默认使用配置")
	scenario := flag.String("scenario", "", "standard 或 advanced")
	questions := flag.Int("questions", 0, "问题数量")
	logPath := flag.String("log", "", "日志输出文件，默认丢弃")
	flag.Parse()

	// 全屏界面下日志会破坏渲染
	log.SetOutput(io.Discard)
	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "console")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	personaStore := persona.NewMemoryStore(persona.Seed())
	scripts := interviewService.DefaultScripts()
	content, err := config.LoadContent(cfg.Interview.ContentFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load interview content: %v\n", err)
		os.Exit(1)
	}
	content.Apply(personaStore, scripts)

	opts := interviewService.Options{
		Scripts:       scripts,
		FallbackDelay: cfg.Interview.FallbackDelay,
		Reports:       report.NewGenerator(nil),
	}
	if svc := newAIService(ctx, cfg.AI, personaStore); svc != nil {
		opts.Responder = svc
		opts.Coach = svc
		opts.Reports = report.NewGenerator(svc)
	}

	if archive, err := history.Open(ctx, cfg.Interview.HistoryDB); err == nil {
		defer archive.Close()
		opts.Archive = archive
	} else {
		log.Printf("history disabled: %v", err)
	}

	settings := cfg.Interview.Defaults
	if *language != "" {
		settings.Language = interview.ParseLanguage(*language)
	}
	if *scenario != "" {
		settings.Scenario = interview.ParseScenario(*scenario)
	}
	if *questions > 0 {
		settings.QuestionCount = *questions
	}

	session := interviewService.NewSession(uuid.NewString(), settings, opts)

	p := tea.NewProgram(console.New(ctx, session), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		os.Exit(1)
	}
}

func newAIService(ctx context.Context, cfg config.AIConfig, personas *persona.MemoryStore) *ai.Service {
	if !cfg.Enabled() {
		log.Println("Ark not configured, running in script mode")
		return nil
	}
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		log.Printf("chat model unavailable: %v", err)
		return nil
	}
	svc, err := ai.NewService(ctx, chatModel, nil, personas)
	if err != nil {
		log.Printf("AI service unavailable: %v", err)
		return nil
	}
	return svc
}
