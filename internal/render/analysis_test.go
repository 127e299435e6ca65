package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxdigest/internal/model"
)

const fullAnalysis = `{
  "summary": "Это тестовое письмо",
  "intent": "Информирование",
  "tone": "Нейтральная",
  "priority": "Высокий",
  "action": "Ответить"
}`

func TestFormatAnalysis_AllFieldsRussian(t *testing.T) {
	got := FormatAnalysis(fullAnalysis, "ru")

	assert.Equal(t, strings.Join([]string{
		"📝 Краткое содержание:\nЭто тестовое письмо",
		"🎯 Цель письма:\nИнформирование",
		"😊 Тональность:\nНейтральная",
		"⚡ Приоритет:\nВысокий",
		"✅ Рекомендация:\nОтветить",
	}, "\n\n"), got)
}

func TestFormatAnalysis_English(t *testing.T) {
	got := FormatAnalysis(`{"summary":"Quarterly numbers","action":"Reply"}`, "en")
	assert.Equal(t, "📝 Summary:\nQuarterly numbers\n\n✅ Recommended action:\nReply", got)
}

func TestFormatAnalysis_Blank(t *testing.T) {
	assert.Equal(t, "Анализ недоступен", FormatAnalysis("", "ru"))
	assert.Equal(t, "Анализ недоступен", FormatAnalysis("   \n", "ru"))
	assert.Equal(t, "Analysis unavailable", FormatAnalysis("", "en"))
}

func TestFormatAnalysis_SkipsMissingAndBlankFields(t *testing.T) {
	got := FormatAnalysis(`{"summary":"Partial data","intent":"","tone":null,"priority":"low"}`, "en")

	assert.Contains(t, got, "Partial data")
	assert.Contains(t, got, "⚡ Priority:\nlow")
	assert.NotContains(t, got, "Intent")
	assert.NotContains(t, got, "Tone")
	assert.NotContains(t, got, "Recommended action")
}

func TestFormatAnalysis_InvalidJSONReturnedVerbatim(t *testing.T) {
	in := "Error analyzing email: API Error"
	assert.Equal(t, in, FormatAnalysis(in, "en"))

	broken := `{"summary": "unterminated`
	assert.Equal(t, broken, FormatAnalysis(broken, "en"))
}

func TestFormatAnalysis_CodeFence(t *testing.T) {
	in := "```json\n{\"summary\":\"Fenced\"}\n```"
	assert.Equal(t, "📝 Summary:\nFenced", FormatAnalysis(in, "en"))
}

func TestFormatAnalysis_NumericAndBooleanValues(t *testing.T) {
	got := FormatAnalysis(`{"priority": 1, "action": true, "intent": {"nested": "x"}}`, "en")
	assert.Equal(t, "⚡ Priority:\n1\n\n✅ Recommended action:\ntrue", got)
}

func TestExtractPriority(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lower-cased", in: `{"summary":"Test","priority":"HIGH"}`, want: "high"},
		{name: "russian", in: fullAnalysis, want: "высокий"},
		{name: "missing", in: `{"summary":"Test"}`, want: UnknownPriority},
		{name: "blank", in: `{"priority":"  "}`, want: UnknownPriority},
		{name: "invalid json", in: "not json", want: UnknownPriority},
		{name: "empty", in: "", want: UnknownPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPriority(tt.in))
		})
	}
}

func TestMessages(t *testing.T) {
	analysis := `{"summary":"Budget approved","priority":"medium"}`
	msgs := []model.Message{
		{From: "alice@example.com", To: "bob@example.com", Subject: "Budget", Analysis: &analysis},
		{From: "Unknown sender", To: "bob@example.com"},
	}

	var buf bytes.Buffer
	require.NoError(t, Messages(&buf, msgs, "en", 0))

	out := buf.String()
	assert.Contains(t, out, "2 messages")
	assert.Contains(t, out, "Budget approved")
	assert.Contains(t, out, "[medium]")
	assert.Contains(t, out, "(no subject)")
	assert.Contains(t, out, "Analysis unavailable")
	assert.Less(t, strings.Index(out, "Budget approved"), strings.Index(out, "(no subject)"))
}

func TestMessages_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Messages(&buf, nil, "en", 0))
	assert.Contains(t, buf.String(), "No messages.")
}

func TestRuns(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	runs := []model.FetchRun{{
		Folder:     "INBOX",
		Outcome:    model.RunOutcomeConnectionError,
		Error:      "dial: connection refused",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}}

	var buf bytes.Buffer
	require.NoError(t, Runs(&buf, runs))
	out := buf.String()
	assert.Contains(t, out, "INBOX")
	assert.Contains(t, out, "connection_error")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "1.5s")
}
