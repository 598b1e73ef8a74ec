package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
)

// TurnMarker tells the model where in the interview this reply sits.
func TurnMarker(req interview.ReplyRequest) string {
	count := req.Settings.Normalized().QuestionCount
	switch {
	case req.Opening():
		return "[SYSTEM: Start conversation]"
	case req.TurnIndex >= count:
		return "[SYSTEM: FINAL Turn. Say goodbye.]"
	default:
		return fmt.Sprintf("[SYSTEM: Turn %d of %d]", req.TurnIndex, count)
	}
}

// buildSystemPrompt 组合面试官设定、候选人背景与回合标记。
func buildSystemPrompt(p persona.Persona, req interview.ReplyRequest) string {
	var builder strings.Builder
	builder.WriteString(strings.TrimSpace(p.SystemPrompt))

	if background := strings.TrimSpace(req.Settings.Background); background != "" {
		builder.WriteString("\n\n**CANDIDATE BACKGROUND INFO:**\n\"")
		builder.WriteString(background)
		builder.WriteString("\"\n\nINSTRUCTION: Use this background info to ask personalized questions relevant to their experience.")
	}

	builder.WriteString("\n")
	builder.WriteString(TurnMarker(req))
	return builder.String()
}

func summaryPrompt(lang interview.Language) string {
	return strings.ReplaceAll(summaryPromptTemplate, "{language}", lang.ReportLabel())
}

func coachingPrompt(template, question string, lang interview.Language) string {
	out := strings.ReplaceAll(template, "{lastQuestion}", question)
	return strings.ReplaceAll(out, "{language}", lang.Label())
}

func formatTranscript(turns []interview.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		role := "Interviewer"
		if t.Speaker == interview.Candidate {
			role = "Candidate"
		}
		lines = append(lines, role+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}

const summaryPromptTemplate = `Role: Senior Hiring Manager at AIA.
Task: Generate a comprehensive "Interview Assessment Report".
Language: **{language}**.

SCORING RULES:
1. Score each metric from 1-10.
2. Calculate "overall_score" (0-100) based on the performance.
3. Determine "hiring_recommendation" strictly from "overall_score":
   - 85-100: "Strong Hire"
   - 70-84: "Hire"
   - 50-69: "Conditional"
   - 0-49: "Reject"

Output strictly one valid JSON object:
{
  "overall_score": number,
  "hiring_recommendation": "Strong Hire" | "Hire" | "Conditional" | "Reject",
  "metrics": {
    "communication": number,
    "sales_potential": number,
    "resilience": number,
    "professionalism": number,
    "ambition": number,
    "client_focus": number
  },
  "key_strengths": ["..."],
  "areas_for_improvement": ["..."],
  "detailed_analysis": "A paragraph citing specific examples from the chat.",
  "vision_analysis_summary": "A short paragraph on visual presence if visual logs are provided, otherwise an empty string.",
  "next_steps": "Clear action item."
}`

const hintPromptTemplate = `Context: The user is an insurance agent candidate answering an interview question.
Current Question from Interviewer: "{lastQuestion}"
Task: Provide 3 short, punchy bullet points in **{language}** that would make a GREAT answer.
Format: Output strictly as a JSON Array of strings.
Example: ["Point 1", "Point 2", "Point 3"]`

const intentPromptTemplate = `Context: An interview for a Financial Planner position at AIA.
Current Question: "{lastQuestion}"
Task: Explain the hidden intent of this question in 1 short sentence ({language}). What competency is the interviewer testing?`

const modelAnswerPromptTemplate = `Context: An interview for a Financial Planner position at AIA.
Current Question: "{lastQuestion}"
Task: Provide a Gold Standard (10/10) response in **{language}**.
Tone: Confident, professional, ambitious, and client-focused.
Length: 1-2 powerful sentences.
Output: Just the spoken response text.`

const vocabularyPromptTemplate = `Context: Interview for AIA Financial Planner.
Current Question: "{lastQuestion}"
Task: List 5 powerful, professional keywords or short phrases ({language}) that the candidate should use in their answer.
Format: Output strictly as a JSON Array of strings.`

// VisionPrompt 引导视觉模型按优先级输出警告或一句反馈。
const VisionPrompt = `Analyze the provided image(s) of a candidate during an online interview.

CHECKS (priority order):
1. NO HUMAN: check if a human face is clearly visible.
   - If no: output strictly "⚠️ 警告：鏡頭前未檢測到面試者！ (Warning: No face detected)"
2. GAZE: check if the person is looking towards the camera.
   - If looking away: output strictly "⚠️ 警告：請保持眼神接觸！ (Warning: Maintain eye contact)"
3. IDENTITY: when two images are given, the first is the reference and the second the current frame.
   - If different people: output strictly "⚠️ 警告：檢測到使用者身分不符！ (Warning: Identity mismatch)"

FEEDBACK (only if all checks pass):
- 1 sentence of constructive feedback on facial expression or professional presence.
- Colloquial Cantonese (廣東話) if the user looks Asian, otherwise English.

Output: just the 1 sentence string.`
