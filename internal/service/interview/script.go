package interview

import "github.com/zhouzirui/z-interview/backend/internal/model/interview"

// ScriptProvider supplies the fixed interviewer lines used in script mode.
type ScriptProvider interface {
	Script(lang interview.Language) []string
}

// StaticScripts is a ScriptProvider backed by a map; missing languages fall
// back to the Cantonese script.
type StaticScripts map[interview.Language][]string

// Script returns the lines for lang.
func (s StaticScripts) Script(lang interview.Language) []string {
	if lines, ok := s[lang]; ok && len(lines) > 0 {
		return lines
	}
	return s[interview.Cantonese]
}

// DefaultScripts 内置的后备面试脚本。
func DefaultScripts() StaticScripts {
	return StaticScripts{
		interview.Cantonese: {
			"Hello! 我係 Cindy，歡迎來到 AIA。不如你輕鬆啲，簡單自我介紹下？",
			"收到。咁我想問下，點解你會對保險或者財富管理行業有興趣嘅？",
			"明白。咁你有冇聽過 MDRT (百萬圓桌會)？你對自己嘅收入目標係點樣？",
			"做呢行有時會面對好多拒絕 (Rejection)，如果個客拒絕你，你會點處理？",
			"多謝你嘅分享。最後，你有冇咩問題想問番我？",
			"好嘅，今日傾住咁多先。多謝你參與面試，我哋會盡快聯絡你！(面試結束)",
		},
		interview.English: {
			"Hello! I'm Cindy. Welcome to AIA. Why don't you start by introducing yourself?",
			"Got it. Why are you interested in the insurance or wealth management industry?",
			"I see. Have you heard of MDRT? What are your income goals?",
			"This industry involves rejection. How would you handle a client rejecting your proposal?",
			"Thanks for sharing. Finally, do you have any questions for me?",
			"Alright, let's wrap up here. Thank you for your time. We will contact you soon!",
		},
	}
}

// SelectFallback picks the script line for turnIndex. The final line is used,
// and ended reported, once the configured count or the script's second to last
// line is reached.
func SelectFallback(turnIndex, questionCount, scriptLen int) (index int, ended bool) {
	if scriptLen <= 0 {
		return -1, true
	}
	if turnIndex >= questionCount || turnIndex >= scriptLen-1 {
		return scriptLen - 1, true
	}
	return min(turnIndex, scriptLen-2), false
}
