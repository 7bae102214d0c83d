// Package metadata seals markdown batch reports with a trailing comment block
// holding the validation verdict, the batch id and a SHA-256 of the report body.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// TagStart opens the metadata block.
	TagStart = "<!-- METADATA_START"
	// TagEnd closes the metadata block.
	TagEnd = "METADATA_END -->"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata is the parsed content of a report's block.
type Metadata struct {
	LastModify time.Time
	Batch      string
	Hash       string
	Validation bool
}

var blockPattern = regexp.MustCompile(`(?s)<!--\s*METADATA_START\s*\n(.*?)\n\s*METADATA_END\s*-->`)

// field binds one "KEY: value" line of the block to a Metadata field.
// An empty rendered value leaves the line out.
type field struct {
	key    string
	render func(m *Metadata) string
	parse  func(m *Metadata, v string)
}

// fields are written in this order.
var fields = []field{
	{
		key: "VALIDATION",
		render: func(m *Metadata) string {
			if m.Validation {
				return "TRUE"
			}

			return "FALSE"
		},
		parse: func(m *Metadata, v string) { m.Validation = strings.EqualFold(v, "TRUE") },
	},
	{
		key: "LAST_MODIFY",
		render: func(m *Metadata) string {
			if m.LastModify.IsZero() {
				return ""
			}

			return m.LastModify.UTC().Format(time.RFC3339)
		},
		parse: func(m *Metadata, v string) {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				m.LastModify = t
			}
		},
	},
	{
		key:    "BATCH",
		render: func(m *Metadata) string { return m.Batch },
		parse:  func(m *Metadata, v string) { m.Batch = v },
	},
	{
		key:    "HASH",
		render: func(m *Metadata) string { return m.Hash },
		parse:  func(m *Metadata, v string) { m.Hash = v },
	},
}

func lookupField(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}

	return field{}, false
}

// parseBlock reads the lines between the tags. Unknown keys and lines
// without a colon are ignored; a value may itself contain colons.
func parseBlock(raw string) *Metadata {
	m := &Metadata{}

	for line := range strings.Lines(raw) {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		if f, known := lookupField(strings.TrimSpace(key)); known {
			f.parse(m, strings.TrimSpace(val))
		}
	}

	return m
}

// block renders m between the tags.
func (m *Metadata) block() string {
	var sb strings.Builder

	sb.WriteString(TagStart + "\n")

	for _, f := range fields {
		if v := f.render(m); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", f.key, v)
		}
	}

	sb.WriteString(TagEnd)

	return sb.String()
}

// body drops every metadata block and the trailing newlines, leaving the
// text that is hashed.
func body(content string) string {
	return strings.TrimRight(blockPattern.ReplaceAllString(content, ""), "\n")
}

func digest(body string) string {
	sum := sha256.Sum256([]byte(body))

	return hex.EncodeToString(sum[:])
}

// Extract returns the parsed block of content, or nil when there is none,
// together with the report body.
func Extract(content string) (*Metadata, string) {
	match := blockPattern.FindStringSubmatch(content)
	if match == nil {
		return nil, body(content)
	}

	return parseBlock(match[1]), body(content)
}

// CalculateHash returns the hex SHA-256 of content without its metadata block.
func CalculateHash(content string) string {
	return digest(body(content))
}

// Sign replaces any metadata block with a fresh one stamped now.
// validated is TRUE when the batch produced no errors.
func Sign(content string, validated bool, batch string) string {
	return SignAt(content, validated, batch, time.Now())
}

// SignAt is Sign with an explicit timestamp.
func SignAt(content string, validated bool, batch string, now time.Time) string {
	text := body(content)

	m := &Metadata{
		LastModify: now,
		Batch:      batch,
		Hash:       digest(text),
		Validation: validated,
	}

	return text + "\n\n" + m.block()
}

// Verify reports whether the body of content still matches the hash in its block.
func Verify(content string) (bool, error) {
	meta, text := Extract(content)
	if meta == nil {
		return false, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	if got := digest(text); got != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, got)
	}

	return true, nil
}
