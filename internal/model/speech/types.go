package speech

import "time"

// SynthesisRequest 一次语音合成请求。
type SynthesisRequest struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`
	Language     string  `json:"language"`
	Format       string  `json:"format"` // mp3, ogg_opus, pcm
	Emotion      string  `json:"emotion,omitempty"`
	EmotionScale float32 `json:"emotionScale,omitempty"`
}

// Synthesis is the audio produced for one utterance.
type Synthesis struct {
	Audio     []byte        `json:"-"`
	Format    string        `json:"format"`
	Duration  time.Duration `json:"duration"`
	RequestID string        `json:"requestId,omitempty"`
}

// RecognitionConfig describes the audio the client will stream.
type RecognitionConfig struct {
	ID         string `json:"id"`
	Language   string `json:"language"`
	Format     string `json:"format"` // pcm, wav, ogg
	SampleRate int    `json:"sampleRate"`
}

// Recognition is one update from the recognizer. Text is the full running
// transcript of the listening session, not a delta.
type Recognition struct {
	Text     string        `json:"text"`
	Final    bool          `json:"final"`
	Duration time.Duration `json:"duration,omitempty"`
}
