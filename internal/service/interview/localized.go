package interview

import (
	"strings"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

func startingCue(lang interview.Language) string {
	if lang == interview.English {
		return "Starting interview..."
	}
	return "面試準備中..."
}

func openingCue(settings interview.Settings) string {
	advanced := settings.Scenario == interview.ScenarioAdvanced
	if settings.Language == interview.English {
		if advanced {
			return "Interview starting. Please lead the discussion in English."
		}
		return "Interview starting. Please introduce yourself in English."
	}
	if advanced {
		return "面試開始，請用廣東話主持面試。"
	}
	return "面試開始，請用廣東話同我打招呼。"
}

func forceEndNotice(lang interview.Language) string {
	if lang == interview.English {
		return "[System] Interview ended by user. Check report."
	}
	return "[系統] 面試已由用戶結束。請點擊「報告」查看評估。"
}

func forceEndSpoken(lang interview.Language) string {
	if lang == interview.English {
		return "Okay, ending the interview. You can view the report now."
	}
	return "好嘅，面試到此為止。你可以睇下面試報告。"
}

func trimUtterance(text string) string {
	return strings.TrimSpace(text)
}
