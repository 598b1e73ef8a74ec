package speech

import "github.com/zhouzirui/z-interview/backend/internal/model/interview"

// Config 火山引擎语音配置，ASR 与 TTS 共用同一组凭证。
type Config struct {
	AppID          string `json:"appId"`
	AccessToken    string `json:"accessToken"`
	APIKey         string `json:"apiKey,omitempty"` // 兼容旧配置
	ConcurrentMode bool   `json:"concurrentMode"`   // ASR 并发版，false 为小时版

	CantoneseVoice string  `json:"cantoneseVoice"`
	EnglishVoice   string  `json:"englishVoice"`
	Speed          float32 `json:"speed"`
	Volume         float32 `json:"volume"`

	Timeout int `json:"timeout"` // seconds
}

// Default voices per locale.
const (
	DefaultCantoneseVoice = "zh_female_yueyunv_mars_bigtts"
	DefaultEnglishVoice   = "en_female_candice_emo_v2_mars_bigtts"
)

// Enabled reports whether credentials are present.
func (c *Config) Enabled() bool {
	if c == nil {
		return false
	}
	return c.AppID != "" && (c.AccessToken != "" || c.APIKey != "")
}

// VoiceFor returns the configured voice for a locale.
func (c *Config) VoiceFor(lang interview.Language) string {
	if lang == interview.English {
		if c != nil && c.EnglishVoice != "" {
			return c.EnglishVoice
		}
		return DefaultEnglishVoice
	}
	if c != nil && c.CantoneseVoice != "" {
		return c.CantoneseVoice
	}
	return DefaultCantoneseVoice
}
