package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nhle/inboxdigest/internal/locale"
	"github.com/nhle/inboxdigest/internal/logging"
	"github.com/nhle/inboxdigest/internal/model"
)

// Annotator attaches an Answering Service analysis to messages. A failed
// request never affects other messages: the message still receives an
// Analysis describing the failure.
type Annotator struct {
	answerer Answerer
	texts    locale.Strings
	logger   *slog.Logger
}

// NewAnnotator creates an Annotator that asks answerer using the prompt
// and failure wording of the given locale.
func NewAnnotator(answerer Answerer, localeCode string, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{
		answerer: answerer,
		texts:    locale.For(localeCode),
		logger:   logger,
	}
}

// BuildPrompt embeds the sender, recipient, subject, and body of msg
// verbatim in the analysis prompt.
func (a *Annotator) BuildPrompt(msg model.Message) string {
	return fmt.Sprintf(a.texts.AnalysisPrompt, msg.From, msg.To, msg.Subject, msg.Body)
}

// Annotate returns a copy of msg with Analysis set. On success the answer
// is stored verbatim; on failure Analysis holds the localized error prefix
// and cause, and the *ProviderError is returned alongside.
func (a *Annotator) Annotate(ctx context.Context, msg model.Message) (model.Message, error) {
	answer, err := a.answerer.Ask(ctx, a.BuildPrompt(msg))
	if err != nil {
		perr := asProviderError(err)
		a.logger.Warn("annotation failed",
			logging.Sender(msg.From),
			"error", perr.Detail(),
		)
		return msg.WithAnalysis(a.texts.AnalyzeErrorPrefix + ": " + perr.Error()), perr
	}
	return msg.WithAnalysis(answer), nil
}

// Asker answers ad-hoc questions, turning failures into a readable text.
type Asker struct {
	answerer Answerer
	texts    locale.Strings
}

// NewAsker creates an Asker using the failure wording of the given locale.
func NewAsker(answerer Answerer, localeCode string) *Asker {
	return &Asker{answerer: answerer, texts: locale.For(localeCode)}
}

// Ask returns the answer to question. On failure the returned text is the
// localized prefix followed by the cause, and the error is non-nil.
func (a *Asker) Ask(ctx context.Context, question string) (string, error) {
	answer, err := a.answerer.Ask(ctx, question)
	if err != nil {
		perr := asProviderError(err)
		return a.texts.AskErrorPrefix + ": " + perr.Error(), perr
	}
	return answer, nil
}

func asProviderError(err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return &ProviderError{Provider: "unknown", Err: err}
}
