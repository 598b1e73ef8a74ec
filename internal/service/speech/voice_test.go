package speech

import (
	"testing"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

func TestSpeechText(t *testing.T) {
	cases := map[string]string{
		"Welcome to AIA.":       "Welcome to  A. I. A. .",
		"歡迎加入AIA團隊":             "歡迎加入 A. I. A. 團隊",
		"The AIAL fund is new.": "The AIAL fund is new.",
	}
	for in, want := range cases {
		if got := SpeechText(in); got != want {
			t.Fatalf("SpeechText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmotionFor(t *testing.T) {
	label, scale, ok := EmotionFor("en_female_candice_emo_v2_mars_bigtts", interview.Positive)
	if !ok || label != "happy" || scale != 3 {
		t.Fatalf("positive: %q %v %v", label, scale, ok)
	}
	label, _, ok = EmotionFor("zh_male_junlangnanyou_emo_v2_mars_bigtts", interview.Serious)
	if !ok || label != "magnetic" {
		t.Fatalf("serious: %q %v", label, ok)
	}
	if _, _, ok := EmotionFor("zh_female_yueyunv_mars_bigtts", interview.Positive); ok {
		t.Fatal("voice without emotion support should not get emotion")
	}
	if _, _, ok := EmotionFor("en_female_candice_emo_v2_mars_bigtts", interview.Neutral); ok {
		t.Fatal("neutral lines carry no emotion")
	}
}

func TestVoiceCandidates(t *testing.T) {
	got := voiceCandidates("EN_FEMALE_AMY_JUPITER_BIGTTS", interview.English)
	if len(got) != 2 || got[0] != "EN_FEMALE_AMY_JUPITER_BIGTTS" || got[1] != "en_female_candice_emo_v2_mars_bigtts" {
		t.Fatalf("unexpected candidates %v", got)
	}
	if got := voiceCandidates("", interview.Cantonese); got[0] != "zh_female_yueyunv_mars_bigtts" {
		t.Fatalf("cantonese default first, got %v", got)
	}
}

func TestResourceCandidates(t *testing.T) {
	cases := []struct {
		voice string
		first string
	}{
		{"S_custom123", "volc.megatts.default"},
		{"zh_female_yueyunv_mars_bigtts", "seed-tts-2.0"},
		{"BV700_streaming", "volc.service_type.10029"},
	}
	for _, tc := range cases {
		if got := resourceCandidates(tc.voice); got[0] != tc.first {
			t.Fatalf("resourceCandidates(%s) = %v", tc.voice, got)
		}
	}
}
