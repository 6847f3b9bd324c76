// Package formparser extracts answerable questions from rendered Google
// Forms HTML.
package formparser

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/formpilot/formpilot/internal/resolve"
)

// Form is the parsed view of one form page.
type Form struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Questions   []resolve.Question `json:"questions"`
}

var (
	requiredMarker = regexp.MustCompile(`[•*]`)
	leadingNumber  = regexp.MustCompile(`^\d+\.\s*`)
	whitespace     = regexp.MustCompile(`\s+`)
)

var (
	sanitizeOnce sync.Once
	sanitizer    *bluemonday.Policy
)

// sanitize strips every HTML tag, leaving plain text.
func sanitize(s string) string {
	sanitizeOnce.Do(func() {
		sanitizer = bluemonday.StrictPolicy()
	})
	return sanitizer.Sanitize(s)
}

// Parse extracts the question list from a rendered form page. Question IDs
// are positional and stable for the lifetime of one parse.
func Parse(html string) (Form, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Form{}, fmt.Errorf("failed to parse form html: %w", err)
	}

	var form Form
	form.Title = cleanText(doc.Find(`div[role="heading"][aria-level="1"]`).First().Text())
	if form.Title == "" {
		form.Title = cleanText(doc.Find("title").First().Text())
	}

	items := doc.Find(`div[role="listitem"]`)
	if items.Length() == 0 {
		// Older form markup without ARIA roles.
		items = doc.Find(".freebirdFormviewerComponentsQuestionBaseRoot")
	}

	items.Each(func(i int, sel *goquery.Selection) {
		text := questionText(sel)
		if text == "" {
			return
		}
		form.Questions = append(form.Questions, resolve.Question{
			ID:   fmt.Sprintf("q_%d", len(form.Questions)),
			Text: text,
			Type: questionType(sel),
		})
	})

	if len(form.Questions) == 0 {
		return form, fmt.Errorf("no questions found in form")
	}
	return form, nil
}

func questionText(sel *goquery.Selection) string {
	heading := sel.Find(`div[role="heading"]`).First()
	if heading.Length() == 0 {
		heading = sel.Find(".freebirdFormviewerComponentsQuestionBaseTitle").First()
	}
	// Sanitize the inner HTML rather than the text so script/style bodies
	// are dropped, not flattened into the label.
	if inner, err := heading.Html(); err == nil {
		return cleanText(inner)
	}
	return cleanText(heading.Text())
}

// cleanText strips markup leftovers, required-field markers and leading
// numbering from a raw question label.
func cleanText(s string) string {
	s = html.UnescapeString(sanitize(s))
	s = requiredMarker.ReplaceAllString(s, "")
	s = leadingNumber.ReplaceAllString(strings.TrimSpace(s), "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func questionType(sel *goquery.Selection) resolve.QuestionType {
	switch {
	case sel.Find(`div[role="radiogroup"]`).Length() > 0:
		return resolve.TypeSingleChoice
	case sel.Find(`div[role="checkbox"], div[role="group"] div[role="checkbox"]`).Length() > 0:
		return resolve.TypeMultipleChoice
	case sel.Find(`input[type="date"]`).Length() > 0:
		return resolve.TypeDate
	case sel.Find(`input[type="time"]`).Length() > 0:
		return resolve.TypeTime
	case sel.Find(`input[type="text"], textarea`).Length() > 0:
		return resolve.TypeText
	default:
		return resolve.TypeUnknown
	}
}
