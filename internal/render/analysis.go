// Package render turns enriched messages into human-readable output.
package render

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nhle/inboxdigest/internal/locale"
)

// UnknownPriority is returned by ExtractPriority when no priority can be read.
const UnknownPriority = "unknown"

// analysisField pairs a JSON key with its display label.
type analysisField struct {
	key   string
	label string
}

func fieldsFor(texts locale.Strings) []analysisField {
	return []analysisField{
		{key: "summary", label: texts.SummaryLabel},
		{key: "intent", label: texts.IntentLabel},
		{key: "tone", label: texts.ToneLabel},
		{key: "priority", label: texts.PriorityLabel},
		{key: "action", label: texts.ActionLabel},
	}
}

// FormatAnalysis renders a JSON analysis as labelled sections separated by
// blank lines. Blank input yields the localized "analysis unavailable"
// text; input that is not a JSON object (such as an error description) is
// returned unchanged. Missing or blank fields are skipped.
func FormatAnalysis(analysis, localeCode string) string {
	texts := locale.For(localeCode)

	if strings.TrimSpace(analysis) == "" {
		return texts.AnalysisUnavailable
	}

	root, ok := parseObject(analysis)
	if !ok {
		return analysis
	}

	var sections []string
	for _, f := range fieldsFor(texts) {
		value := fieldText(root, f.key)
		if strings.TrimSpace(value) == "" {
			continue
		}
		sections = append(sections, f.label+":\n"+value)
	}

	if len(sections) == 0 {
		return texts.AnalysisUnavailable
	}
	return strings.Join(sections, "\n\n")
}

// ExtractPriority returns the lower-cased priority from a JSON analysis, or
// UnknownPriority when it is absent, blank, or the input is not JSON.
func ExtractPriority(analysis string) string {
	root, ok := parseObject(analysis)
	if !ok {
		return UnknownPriority
	}

	priority := strings.ToLower(strings.TrimSpace(fieldText(root, "priority")))
	if priority == "" {
		return UnknownPriority
	}
	return priority
}

// parseObject decodes s as a JSON object. A surrounding Markdown code
// fence, which chat models often add, is ignored.
func parseObject(s string) (map[string]json.RawMessage, bool) {
	s = stripCodeFence(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &root); err != nil {
		return nil, false
	}
	return root, true
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// Drop the info string ("json") on the opening fence line.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// fieldText returns the textual value of a scalar field. Objects, arrays,
// null, and missing keys yield "".
func fieldText(root map[string]json.RawMessage, key string) string {
	raw, ok := root[key]
	if !ok {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
