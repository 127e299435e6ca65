package locale

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	assert.Equal(t, "Analysis unavailable", For("en").AnalysisUnavailable)
	assert.Equal(t, "Анализ недоступен", For(" RU ").AnalysisUnavailable)
	assert.Equal(t, For(English), For("de"))
	assert.Equal(t, For(English), For(""))
}

func TestFor_AddressPlaceholders(t *testing.T) {
	assert.Equal(t, "Unknown sender", For(English).UnknownSender)
	assert.Equal(t, "Unknown recipient", For(English).UnknownRecipient)
	assert.Equal(t, "Неизвестный отправитель", For(Russian).UnknownSender)
	assert.Equal(t, "Неизвестный получатель", For(Russian).UnknownRecipient)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("en"))
	assert.True(t, Supported("Ru"))
	assert.False(t, Supported("de"))
	assert.False(t, Supported(""))
}

func TestAnalysisPromptTakesFourFields(t *testing.T) {
	for _, code := range []string{English, Russian} {
		t.Run(code, func(t *testing.T) {
			prompt := fmt.Sprintf(For(code).AnalysisPrompt, "from@x", "to@x", "Subj", "Body text")
			assert.Contains(t, prompt, "from@x")
			assert.Contains(t, prompt, "to@x")
			assert.Contains(t, prompt, "Subj")
			assert.Contains(t, prompt, "Body text")
			assert.NotContains(t, prompt, "%!")
		})
	}
}
