package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message"
	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/inboxdigest/internal/locale"
	"github.com/nhle/inboxdigest/internal/model"
)

// defaultContentType is assumed for entities without a Content-Type
// header (RFC 2045 section 5.2).
const defaultContentType = "text/plain"

// Decoder converts raw protocol messages into normalized model.Message
// values. Decoding never fails outward: problems are reported as a
// DecodeAnomaly next to a message holding placeholder or empty fields.
type Decoder struct {
	unknownSender    string
	unknownRecipient string
}

// NewDecoder creates a message decoder whose address placeholders are
// worded for localeCode. Unknown codes fall back to English.
func NewDecoder(localeCode string) *Decoder {
	texts := locale.For(localeCode)
	return &Decoder{
		unknownSender:    texts.UnknownSender,
		unknownRecipient: texts.UnknownRecipient,
	}
}

// Decode normalizes raw. The returned message is always usable; the error,
// when non-nil, is a *DecodeAnomaly listing what was degraded.
func (d *Decoder) Decode(raw RawMessage) (model.Message, error) {
	var reasons []string

	entity, err := readEntity(raw.Content)
	if err != nil {
		reasons = append(reasons, err.Error())
	}

	msg := model.Message{
		From: d.unknownSender,
		To:   d.unknownRecipient,
	}

	switch {
	case raw.Envelope != nil:
		msg.Subject = raw.Envelope.Subject
		msg.From = firstOr(raw.Envelope.From, d.unknownSender)
		msg.To = firstOr(raw.Envelope.To, d.unknownRecipient)
	case entity != nil:
		header := mail.Header{Header: entity.Header}
		msg.Subject = headerSubject(header)
		msg.From = firstAddress(header, "From", d.unknownSender)
		msg.To = firstAddress(header, "To", d.unknownRecipient)
	default:
		reasons = append(reasons, "no envelope or headers")
	}

	if entity != nil {
		body, reason := resolveBody(entity)
		msg.Body = body
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	if len(reasons) > 0 {
		return msg, &DecodeAnomaly{SeqNum: raw.SeqNum, Reasons: reasons}
	}
	return msg, nil
}

// readEntity parses content as an RFC 5322 message. Unknown charsets and
// transfer encodings still yield a usable entity.
func readEntity(content []byte) (*message.Entity, error) {
	if len(content) == 0 {
		return nil, errors.New("empty content")
	}

	entity, err := message.Read(bytes.NewReader(content))
	if err != nil {
		if entity != nil && (message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)) {
			return entity, nil
		}
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	return entity, nil
}

// resolveBody returns the plain-text body of entity and, when something
// was degraded, a reason. Single-part text content is used verbatim;
// multipart content yields the first part whose Content-Type contains
// text/plain.
func resolveBody(entity *message.Entity) (string, string) {
	mr := entity.MultipartReader()
	if mr == nil {
		contentType := entity.Header.Get("Content-Type")
		if contentType == "" {
			contentType = defaultContentType
		}
		if !strings.HasPrefix(mediaType(contentType), "text/") {
			return "", fmt.Sprintf("unexpected content type %q", contentType)
		}

		body, err := io.ReadAll(entity.Body)
		if err != nil {
			return "", fmt.Sprintf("reading body: %v", err)
		}
		return string(body), ""
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", ""
		}
		if err != nil && (part == nil || !(message.IsUnknownCharset(err) || message.IsUnknownEncoding(err))) {
			return "", fmt.Sprintf("reading multipart: %v", err)
		}

		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = defaultContentType
		}
		if !strings.Contains(strings.ToLower(contentType), "text/plain") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Sprintf("reading text/plain part: %v", err)
		}
		return string(body), ""
	}
}

// mediaType returns the lower-cased media type of a Content-Type value,
// falling back to the raw value when it cannot be parsed.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// headerSubject returns the decoded Subject header, or its raw value when
// it contains malformed encoded words.
func headerSubject(h mail.Header) string {
	subject, err := h.Subject()
	if err != nil {
		return h.Get("Subject")
	}
	return subject
}

// firstAddress returns the first address of the named header field, or
// fallback when the field is absent, empty, or unparsable.
func firstAddress(h mail.Header, field, fallback string) string {
	addrs, err := h.AddressList(field)
	if err != nil || len(addrs) == 0 {
		return fallback
	}
	return firstOr([]string{formatAddress(addrs[0].Name, addrs[0].Address)}, fallback)
}

// firstOr returns the first non-empty entry of list, or fallback.
func firstOr(list []string, fallback string) string {
	if len(list) == 0 || list[0] == "" {
		return fallback
	}
	return list[0]
}

// formatAddress renders a mailbox as "Name <addr>" or just "addr". The
// name is shown as decoded, without quoting or re-encoding.
func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	if addr == "" {
		return name
	}
	return name + " <" + addr + ">"
}
