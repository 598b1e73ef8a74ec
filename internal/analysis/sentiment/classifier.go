package sentiment

import (
	"strings"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

// VoiceEmotion 是合成语音可以接受的情绪标签。
type VoiceEmotion string

const (
	VoiceNeutral  VoiceEmotion = "neutral"
	VoiceHappy    VoiceEmotion = "happy"
	VoiceMagnetic VoiceEmotion = "magnetic"
)

var keywordBuckets = map[interview.Sentiment][]string{
	interview.Positive: {
		"好", "多謝", "不錯", "唔錯", "ok", "excellent", "good", "great",
		"歡迎", "感謝", "收到", "agree", "correct", "happy", "glad",
	},
	interview.Serious: {
		"點解", "原因", "解釋", "why", "explain", "elaborate", "detail",
		"reason", "challenge", "difficult", "fail", "？", "?",
	},
}

// bucket order matters: positive wins when both match.
var bucketOrder = []interview.Sentiment{
	interview.Positive,
	interview.Serious,
}

// Classify 根据面试官回复中的关键词给出表情提示。
func Classify(text string) interview.Sentiment {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return interview.Neutral
	}

	for _, label := range bucketOrder {
		for _, word := range keywordBuckets[label] {
			if strings.Contains(normalized, word) {
				return label
			}
		}
	}
	return interview.Neutral
}

// VoiceFor 将表情提示映射为合成语音的情绪与强度。
func VoiceFor(s interview.Sentiment) (VoiceEmotion, float32) {
	switch s {
	case interview.Positive:
		return VoiceHappy, 3
	case interview.Serious:
		return VoiceMagnetic, 3.5
	default:
		return VoiceNeutral, 3
	}
}
