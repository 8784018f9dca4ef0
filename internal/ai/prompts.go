package ai

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
)

// Prompt and generation limits
const (
	// PromptTokenCeiling bounds the estimated input token count
	PromptTokenCeiling = 8000
	// SystemPromptReserve is the fixed allowance held back for the system prompt
	SystemPromptReserve = 600
	// ThreadMessageLimit caps how many messages are fetched for analysis
	ThreadMessageLimit = 10
	// DefaultTemperature favors consistency over creativity
	DefaultTemperature float32 = 0.3
	// MaxCompletionTokens bounds the generated output
	MaxCompletionTokens = 2000
)

// EstimateTokens estimates the token count of a string as ceil(runes / 3).
// A conservative fixed ratio rather than a real tokenizer, so the estimate
// stays stable for mixed Hebrew/English text.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 2) / 3
}

// ThreadMessage is one conversation message rendered into the prompt
type ThreadMessage struct {
	Direction  models.EmailDirection
	From       string
	OccurredAt time.Time
	Text       string
}

// AnalysisPromptParams carries the context rendered into the user prompt
type AnalysisPromptParams struct {
	LeadName       string
	CaseType       string
	CurrentSummary string
	KnownFacts     map[string]interface{}
	MissingFields  []models.RequiredField
	Thread         []ThreadMessage
}

// BuildSystemPrompt returns the fixed assistant instruction block.
func BuildSystemPrompt() string {
	return `אתה עוזר משפטי ממוחשב במערכת "Payroll Check" – מערכת לבדיקת זכויות עובדים.
תפקידך:
1. לסכם את השיחה עם הפונה.
2. לחלץ עובדות מהשיחה (תאריכים, שמות, סכומים, נתונים רלוונטיים).
3. לנסח אימייל תשובה מנומס ומקצועי בעברית, שכולל שאלות ממוקדות למילוי מידע חסר.

כללים חשובים:
- כתוב תמיד בעברית.
- הטון: מקצועי, אמפתי, ברור.
- אל תספק מסקנות משפטיות סופיות. תמיד הדגש שמדובר בבדיקה ראשונית.
- שאל רק שאלות שרלוונטיות למידע החסר שקיבלת ברשימה.
- היה תמציתי. השתמש בנקודות (bullets) לשאלות.
- אם הפונה שאל שאלה דחופה, הכר בה וציין שאנו בודקים.
- אל תמציא מידע שלא קיים בשיחה.

פלט: ענה אך ורק ב-JSON תקין לפי הפורמט שתקבל.`
}

// BuildAnalysisPrompt renders the user prompt. The conversation thread is
// trimmed newest-first to fit the token budget, then rendered oldest-first.
func BuildAnalysisPrompt(params AnalysisPromptParams) string {
	base := renderAnalysisPrompt(params, nil)
	threadBudget := PromptTokenCeiling - SystemPromptReserve - EstimateTokens(base)

	selected := selectThreadWithinBudget(params.Thread, threadBudget)
	return renderAnalysisPrompt(params, selected)
}

// selectThreadWithinBudget walks the thread newest to oldest, keeping
// messages while the running token estimate fits, and returns the kept
// messages back in chronological order. When nothing fits, the single most
// recent message is kept so the model always sees some conversation.
func selectThreadWithinBudget(thread []ThreadMessage, budget int) []ThreadMessage {
	if len(thread) == 0 {
		return nil
	}

	used := 0
	kept := 0
	for i := len(thread) - 1; i >= 0; i-- {
		m := thread[i]
		cost := EstimateTokens(m.Text) + EstimateTokens(m.From) + EstimateTokens(m.OccurredAt.Format(time.RFC3339))
		if used+cost > budget {
			break
		}
		used += cost
		kept++
	}

	if kept == 0 {
		kept = 1
	}
	return thread[len(thread)-kept:]
}

func renderAnalysisPrompt(params AnalysisPromptParams, thread []ThreadMessage) string {
	summary := params.CurrentSummary
	if summary == "" {
		summary = "(אין סיכום עדיין)"
	}

	facts := renderKnownFacts(params.KnownFacts)
	if facts == "" {
		facts = "(אין עובדות עדיין)"
	}

	missing := renderMissingFields(params.MissingFields)
	if missing == "" {
		missing = "(אין מידע חסר)"
	}

	return fmt.Sprintf(`## פרטי התיק
שם הפונה: %s
סוג תיק: %s

## סיכום נוכחי
%s

## עובדות ידועות
%s

## מידע חסר – שאל רק על אלה:
%s

## שרשור השיחה (מהישן לחדש)
%s

## הנחיות פלט
ענה ב-JSON בלבד, בדיוק בפורמט הזה:
{
  "case_summary": "סיכום מעודכן של התיק",
  "extracted_facts": { "key": "ערך שחולץ מהשיחה" },
  "risk_flags": ["דגל סיכון אם רלוונטי"],
  "suggested_subject": "נושא המייל המוצע",
  "suggested_reply_text": "גוף המייל המוצע בטקסט רגיל",
  "suggested_reply_html": null,
  "questions": ["שאלה 1", "שאלה 2"]
}

חשוב: ב-questions כלול רק שאלות שמתאימות לשדות החסרים מהרשימה למעלה.`,
		params.LeadName, params.CaseType, summary, facts, missing, renderThread(thread))
}

// renderKnownFacts renders facts as key:value lines in sorted key order so
// the prompt is deterministic across runs.
func renderKnownFacts(facts map[string]interface{}) string {
	keys := make([]string, 0, len(facts))
	for k, v := range facts {
		if !isKnownValue(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %v", k, facts[k]))
	}
	return strings.Join(lines, "\n")
}

func renderMissingFields(fields []models.RequiredField) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("  - %s (%s): %q", f.Label, f.Key, f.Question))
	}
	return strings.Join(lines, "\n")
}

func renderThread(thread []ThreadMessage) string {
	parts := make([]string, 0, len(thread))
	for _, m := range thread {
		label := "מערכת"
		if m.Direction == models.DirectionInbound {
			label = "פונה"
		}
		text := m.Text
		if text == "" {
			text = "(אין טקסט)"
		}
		parts = append(parts, fmt.Sprintf("[%s] (%s):\n%s", label, m.OccurredAt.Format(time.RFC3339), text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
