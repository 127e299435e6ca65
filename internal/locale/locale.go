// Package locale holds the user-facing wording for each supported
// language: the analysis prompt, failure prefixes, address placeholders,
// and formatter labels.
package locale

import "strings"

// Supported locale codes.
const (
	English = "en"
	Russian = "ru"
)

// Strings is the set of localized texts used across the application.
type Strings struct {
	// AnalysisPrompt is a fmt template taking sender, recipient, subject,
	// and body, in that order.
	AnalysisPrompt string

	// AnalyzeErrorPrefix precedes the cause when annotation fails.
	AnalyzeErrorPrefix string

	// AskErrorPrefix precedes the cause when an ad-hoc question fails.
	AskErrorPrefix string

	// AnalysisUnavailable replaces a missing or blank analysis.
	AnalysisUnavailable string

	// UnknownSender and UnknownRecipient stand in for addresses a message
	// does not carry.
	UnknownSender    string
	UnknownRecipient string

	SummaryLabel  string
	IntentLabel   string
	ToneLabel     string
	PriorityLabel string
	ActionLabel   string
}

var english = Strings{
	AnalysisPrompt: `You are an intelligent assistant that analyzes incoming email.

Analyze the following email and report on each point:
1. A short summary of the email (3 sentences)
2. The main intent of the email (request, complaint, offer, advertisement, etc.)
3. The tone of the email (friendly, neutral, irritated, etc.)
4. Priority (high, medium, low)
5. Recommended action (reply, forward, ignore, etc.)

Email details:
- Sender: %s
- Recipient: %s
- Subject: %s
- Body:
%s

Respond strictly in JSON format:
{
  "summary": "...",
  "intent": "...",
  "tone": "...",
  "priority": "...",
  "action": "..."
}
`,
	AnalyzeErrorPrefix:  "Error analyzing email",
	AskErrorPrefix:      "Error querying the assistant",
	AnalysisUnavailable: "Analysis unavailable",
	UnknownSender:       "Unknown sender",
	UnknownRecipient:    "Unknown recipient",
	SummaryLabel:        "📝 Summary",
	IntentLabel:         "🎯 Intent",
	ToneLabel:           "😊 Tone",
	PriorityLabel:       "⚡ Priority",
	ActionLabel:         "✅ Recommended action",
}

var russian = Strings{
	AnalysisPrompt: `Ты — интеллектуальный ассистент, анализирующий входящие письма.

Проанализируй следующее письмо и сделай выводы по пунктам:
1. Краткое содержание письма (в 3 предложениях)
2. Основная цель письма (запрос, жалоба, предложение, реклама и т.д.)
3. Тональность письма (дружелюбная, нейтральная, раздражённая и т.д.)
4. Приоритет (высокий, средний, низкий)
5. Рекомендуемое действие (ответить, переслать, проигнорировать и т.п.)

Информация о письме:
- Отправитель: %s
- Получатель: %s
- Тема: %s
- Текст письма:
%s

Ответь строго в формате JSON:
{
  "summary": "...",
  "intent": "...",
  "tone": "...",
  "priority": "...",
  "action": "..."
}
`,
	AnalyzeErrorPrefix:  "Ошибка при анализе письма",
	AskErrorPrefix:      "Ошибка при запросе к ассистенту",
	AnalysisUnavailable: "Анализ недоступен",
	UnknownSender:       "Неизвестный отправитель",
	UnknownRecipient:    "Неизвестный получатель",
	SummaryLabel:        "📝 Краткое содержание",
	IntentLabel:         "🎯 Цель письма",
	ToneLabel:           "😊 Тональность",
	PriorityLabel:       "⚡ Приоритет",
	ActionLabel:         "✅ Рекомендация",
}

// For returns the texts for code. Unknown codes fall back to English.
func For(code string) Strings {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case Russian:
		return russian
	default:
		return english
	}
}

// Supported reports whether code names a known locale.
func Supported(code string) bool {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case English, Russian:
		return true
	default:
		return false
	}
}
