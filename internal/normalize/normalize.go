// Package normalize canonicalizes raw form question text so that different
// phrasings of the same field become comparable. It is a pure function of its
// input: no configuration, no state, no I/O.
package normalize

import (
	"regexp"
	"strings"
)

// NormalizedQuestion is the comparable form of a raw question string.
// Canonical holds the cleaned lower-case text (empty for blank input).
// Topic is set only when the text resolves against the closed topic
// vocabulary; an empty Topic is a normal outcome, not an error.
type NormalizedQuestion struct {
	Canonical string
	Topic     string
}

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes raw question text and attempts topic resolution.
// Emphasis markers and required-field asterisks are stripped first, then the
// text is lower-cased and reduced to letters, digits and single spaces.
// Punctuation acts as a separator, so hyphenated and spaced spellings of the
// same field share a canonical form. Topic resolution runs exact match, then
// substring match over the topic table in declaration order, then the
// keyword-group fallback.
func Normalize(raw string) NormalizedQuestion {
	text := strings.NewReplacer("*", "", "•", "").Replace(raw)
	text = strings.ToLower(strings.TrimSpace(text))
	text = nonAlnum.ReplaceAllString(text, " ")
	text = whitespace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return NormalizedQuestion{}
	}
	return NormalizedQuestion{Canonical: text, Topic: resolveTopic(text)}
}

func resolveTopic(canonical string) string {
	// Exact match against topic names and variants.
	for _, def := range topicTable {
		if canonical == def.Topic {
			return def.Topic
		}
		for _, v := range def.Variants {
			if canonical == v {
				return def.Topic
			}
		}
	}

	// Substring match, first declared topic wins.
	for _, def := range topicTable {
		if strings.Contains(canonical, def.Topic) {
			return def.Topic
		}
		for _, v := range def.Variants {
			if strings.Contains(canonical, v) {
				return def.Topic
			}
		}
	}

	// Keyword fallback in fixed group priority.
	for _, group := range keywordGroups {
		for _, kw := range group.Keywords {
			if strings.Contains(canonical, kw) {
				return group.Topic
			}
		}
	}

	return ""
}
