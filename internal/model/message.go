package model

// Message is the normalized representation of one mailbox item after
// decoding and annotation. It has value semantics: two messages are the
// same message when their fields are equal.
type Message struct {
	// From is the first sender address, or the localized unknown-sender
	// placeholder.
	From string `json:"from"`

	// To is the first To recipient address, or the localized
	// unknown-recipient placeholder.
	To string `json:"to"`

	// Subject is the decoded subject line. It may be empty.
	Subject string `json:"subject"`

	// Body is the plain-text body of the message. It may be empty.
	Body string `json:"body"`

	// Analysis holds the Answering Service response, a formatted
	// rendering of it, or an error description. It is nil until the
	// message has been annotated.
	Analysis *string `json:"analysis"`
}

// WithAnalysis returns a copy of m with Analysis set to text.
func (m Message) WithAnalysis(text string) Message {
	m.Analysis = &text
	return m
}

// AnalysisText returns the analysis text, or "" when the message has not
// been annotated.
func (m Message) AnalysisText() string {
	if m.Analysis == nil {
		return ""
	}
	return *m.Analysis
}

// Equal reports whether m and other hold the same field values.
func (m Message) Equal(other Message) bool {
	if m.From != other.From || m.To != other.To ||
		m.Subject != other.Subject || m.Body != other.Body {
		return false
	}
	if (m.Analysis == nil) != (other.Analysis == nil) {
		return false
	}
	return m.Analysis == nil || *m.Analysis == *other.Analysis
}
