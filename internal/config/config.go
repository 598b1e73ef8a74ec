package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Speech    speechmodel.Config
	Interview InterviewConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	iv, err := loadInterviewConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Speech: speech, Interview: iv}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := getEnvOrDefault("PORT", "8080")
	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}
	addr := port
	if !strings.Contains(port, ":") {
		addr = ":" + port
	}

	return ServerConfig{
		Addr:        addr,
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
	}, nil
}

// AIConfig 描述 Ark 大模型配置，VisionModel 为空时复用 Model。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	VisionModel string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。没有密钥时面试以脚本模式运行。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建对话模型。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	return c.newModel(ctx, c.Model)
}

// NewVisionModel 创建视觉模型；未单独配置时返回对话模型同款。
func (c AIConfig) NewVisionModel(ctx context.Context) (model.ChatModel, error) {
	name := c.VisionModel
	if name == "" {
		name = c.Model
	}
	return c.newModel(ctx, name)
}

func (c AIConfig) newModel(ctx context.Context, name string) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     name,
		MaxTokens: c.MaxTokens,
	}
	if c.Temperature != nil {
		v := float32(*c.Temperature)
		cfg.Temperature = &v
	}
	if c.TopP != nil {
		v := float32(*c.TopP)
		cfg.TopP = &v
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		VisionModel: strings.TrimSpace(os.Getenv("ARK_VISION_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func loadSpeechConfig() (speechmodel.Config, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return speechmodel.Config{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return speechmodel.Config{}, err
	}
	ttsSpeed := float32(1.0)
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return speechmodel.Config{}, err
	}
	ttsVolume := float32(1.0)
	if volume != nil {
		ttsVolume = *volume
	}

	concurrent, err := parseBoolEnv("SPEECH_ASR_CONCURRENT", false)
	if err != nil {
		return speechmodel.Config{}, err
	}

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if accessToken == "" {
		accessToken = apiKey
	}

	return speechmodel.Config{
		AppID:          strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken:    accessToken,
		APIKey:         apiKey,
		ConcurrentMode: concurrent,
		CantoneseVoice: getEnvOrDefault("SPEECH_VOICE_ZH_HK", speechmodel.DefaultCantoneseVoice),
		EnglishVoice:   getEnvOrDefault("SPEECH_VOICE_EN_US", speechmodel.DefaultEnglishVoice),
		Speed:          ttsSpeed,
		Volume:         ttsVolume,
		Timeout:        timeoutSeconds,
	}, nil
}

// InterviewConfig 面试默认设置与视觉探测节奏。
type InterviewConfig struct {
	Defaults      interview.Settings
	FallbackDelay time.Duration

	VisionInitialDelay time.Duration
	VisionInterval     time.Duration
	VisionFeedbackTTL  time.Duration

	ContentFile string
	HistoryDB   string
}

func loadInterviewConfig() (InterviewConfig, error) {
	count, err := parseOptionalIntEnv("INTERVIEW_QUESTION_COUNT")
	if err != nil {
		return InterviewConfig{}, err
	}
	questions := interview.DefaultQuestionCount
	if count != nil && *count > 0 {
		questions = *count
	}

	cfg := InterviewConfig{
		Defaults: interview.Settings{
			QuestionCount: questions,
			Language:      interview.ParseLanguage(getEnvOrDefault("INTERVIEW_LANGUAGE", string(interview.Cantonese))),
			Scenario:      interview.ParseScenario(getEnvOrDefault("INTERVIEW_SCENARIO", string(interview.ScenarioStandard))),
		},
		ContentFile: strings.TrimSpace(os.Getenv("INTERVIEW_CONTENT_FILE")),
		HistoryDB:   getEnvOrDefault("HISTORY_DB", "interviews.db"),
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"INTERVIEW_FALLBACK_DELAY", time.Second, &cfg.FallbackDelay},
		{"VISION_INITIAL_DELAY", time.Second, &cfg.VisionInitialDelay},
		{"VISION_INTERVAL", 5 * time.Second, &cfg.VisionInterval},
		{"VISION_FEEDBACK_TTL", 4 * time.Second, &cfg.VisionFeedbackTTL},
	}
	for _, d := range durations {
		v, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return InterviewConfig{}, err
		}
		*d.dest = v
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv accepts Go durations ("1500ms") or bare seconds ("5").
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return d, nil
}

func lookupTrimmed(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	return value, value != ""
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}
	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}
	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	value, ok := lookupTrimmed(key)
	if !ok {
		return nil, nil
	}
	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
