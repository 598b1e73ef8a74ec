package speech

import (
	"regexp"
	"strings"

	"github.com/zhouzirui/z-interview/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

// 支持情绪参数的音色；名称带 _emo_ 的音色同样视为支持。
var emotionVoices = map[string]struct{}{
	"en_female_candice_emo_v2_mars_bigtts":      {},
	"en_female_skye_emo_v2_mars_bigtts":         {},
	"en_male_glen_emo_v2_mars_bigtts":           {},
	"zh_female_gaolengyujie_emo_v2_mars_bigtts": {},
	"zh_male_junlangnanyou_emo_v2_mars_bigtts":  {},
}

// Fallback voices tried after the configured one, per locale.
var localeVoices = map[interview.Language][]string{
	interview.Cantonese: {"zh_female_yueyunv_mars_bigtts", "zh_male_guozhoudege_moon_bigtts", "zh_female_vv_uranus_bigtts"},
	interview.English:   {"en_female_candice_emo_v2_mars_bigtts", "en_female_amy_jupiter_bigtts"},
}

var acronymPattern = regexp.MustCompile(`\bAIA\b`)

// SpeechText prepares an interviewer line for the synthesizer only; the
// transcript keeps the original text.
func SpeechText(text string) string {
	return strings.TrimSpace(acronymPattern.ReplaceAllString(text, " A. I. A. "))
}

// EmotionFor returns the TTS emotion parameters for a line, or ok=false when
// the voice has no emotion support or the line is neutral.
func EmotionFor(voice string, mood interview.Sentiment) (label string, scale float32, ok bool) {
	if mood == interview.Neutral || mood == "" || !supportsEmotion(voice) {
		return "", 0, false
	}
	emo, scale := sentiment.VoiceFor(mood)
	return string(emo), scale, true
}

func supportsEmotion(voice string) bool {
	v := strings.ToLower(strings.TrimSpace(voice))
	if v == "" {
		return false
	}
	if _, ok := emotionVoices[v]; ok {
		return true
	}
	return strings.Contains(v, "_emo_")
}

// voiceCandidates lists the requested voice, then the locale defaults, without duplicates.
func voiceCandidates(requested string, lang interview.Language) []string {
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		for _, existing := range out {
			if strings.EqualFold(existing, v) {
				return
			}
		}
		out = append(out, v)
	}
	add(requested)
	for _, v := range localeVoices[lang] {
		add(v)
	}
	return out
}

// resourceCandidates picks the TTS resource ids to try for a voice.
func resourceCandidates(voice string) []string {
	const (
		classic = "volc.service_type.10029"
		mega    = "volc.megatts.default"
		seed    = "seed-tts-2.0"
	)
	if strings.HasPrefix(voice, "S_") {
		return []string{mega}
	}
	v := strings.ToLower(voice)
	for _, hint := range []string{"bigtts", "seed", "megatts", "uranus", "jupiter", "mars", "moon"} {
		if strings.Contains(v, hint) {
			return []string{seed, classic}
		}
	}
	return []string{classic, seed}
}

func isResourceMismatch(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched")
}
