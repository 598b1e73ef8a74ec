package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-interview/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
	"github.com/zhouzirui/z-interview/backend/internal/service/speech"
)

// 16 kHz 16-bit mono，每 200ms 一包
const (
	chunkSize     = 6400
	chunkInterval = 200 * time.Millisecond
	wavHeaderSize = 44
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	if !cfg.Speech.Enabled() {
		log.Fatal("语音服务未启用，请先在环境变量中配置 SPEECH_APP_ID 与 SPEECH_ACCESS_TOKEN")
	}

	mode := flag.String("mode", "", "测试模式: asr 或 tts")
	audioPath := flag.String("audio", "", "ASR 输入音频文件路径 (16kHz 16bit 单声道 pcm/wav)")
	text := flag.String("text", "", "TTS 输入文本")
	outputPath := flag.String("out", "", "TTS 输出音频文件路径 (默认根据格式自动生成)")
	format := flag.String("format", "mp3", "TTS 输出格式")
	language := flag.String("lang", "", "语言代码 zh-HK 或 en-US，默认使用面试配置")
	voice := flag.String("voice", "", "TTS 声音 ID，默认按语言选择")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		log.Fatal("请通过 -mode=asr 或 -mode=tts 指定测试模式")
	}

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	lang := cfg.Interview.Defaults.Language
	if *language != "" {
		lang = interview.ParseLanguage(*language)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		rec := speech.NewVolcengineRecognizer(&cfg.Speech, "")
		runASR(ctx, rec, sessionID, *audioPath, lang)
	case "tts":
		syn := speech.NewVolcengineSynthesizer(&cfg.Speech, "")
		runTTS(ctx, syn, &cfg.Speech, sessionID, *text, *voice, *format, lang, *outputPath)
	}
}

func runASR(ctx context.Context, rec speech.Recognizer, sessionID, audioPath string, lang interview.Language) {
	if audioPath == "" {
		log.Fatal("ASR 模式需要通过 -audio 指定音频文件路径")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("读取音频文件失败: %v", err)
	}
	if strings.EqualFold(filepath.Ext(audioPath), ".wav") && len(audio) > wavHeaderSize {
		audio = audio[wavHeaderSize:]
	}

	log.Printf("开始进行 ASR 测试: session=%s language=%s bytes=%d", sessionID, lang, len(audio))

	stream, err := rec.Open(ctx, speechmodel.RecognitionConfig{
		ID:         sessionID,
		Language:   string(lang),
		Format:     "pcm",
		SampleRate: 16000,
	})
	if err != nil {
		log.Fatalf("ASR 连接失败: %v", err)
	}
	defer stream.Close()

	go func() {
		for start := 0; start < len(audio); start += chunkSize {
			end := min(start+chunkSize, len(audio))
			if err := stream.Write(audio[start:end]); err != nil {
				log.Printf("发送音频失败: %v", err)
				return
			}
			time.Sleep(chunkInterval)
		}
		if err := stream.Finish(); err != nil {
			log.Printf("结束音频流失败: %v", err)
		}
	}()

	var final speechmodel.Recognition
	for r := range stream.Results() {
		log.Printf("ASR 中间结果: final=%v text=%q", r.Final, r.Text)
		final = r
	}
	if err := stream.Err(); err != nil {
		log.Fatalf("ASR 调用失败: %v", err)
	}

	log.Printf("ASR 识别成功: text=%q duration=%s", final.Text, final.Duration)
}

func runTTS(ctx context.Context, syn speech.Synthesizer, cfg *speechmodel.Config, sessionID, text, voice, format string, lang interview.Language, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("TTS 模式需要通过 -text 提供待合成文本")
	}

	if voice == "" {
		voice = cfg.VoiceFor(lang)
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	req := speechmodel.SynthesisRequest{
		ID:       sessionID,
		Text:     speech.SpeechText(text),
		Voice:    voice,
		Language: string(lang),
		Format:   format,
	}
	mood := sentiment.Classify(text)
	if label, scale, ok := speech.EmotionFor(voice, mood); ok {
		req.Emotion, req.EmotionScale = label, scale
	}

	log.Printf("开始进行 TTS 测试: session=%s voice=%s format=%s mood=%s", sessionID, voice, format, mood)

	out, err := syn.Synthesize(ctx, req)
	if err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}

	if err := os.WriteFile(outputPath, out.Audio, 0o644); err != nil {
		log.Fatalf("写入音频文件失败: %v", err)
	}

	log.Printf("TTS 合成成功: 输出文件 %s, 时长=%s", outputPath, out.Duration)
}
