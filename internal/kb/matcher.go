// Package kb matches incoming questions against a user's stored
// question/answer pairs. Entries are read-only input; the matcher never
// mutates them and never assumes stored questions are unique.
package kb

import (
	"strings"
	"time"

	"github.com/formpilot/formpilot/internal/normalize"
)

// Entry is one stored question/answer pair owned by a single user.
type Entry struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rule identifies which comparison produced a match, highest priority first.
type Rule int

const (
	RuleExact Rule = iota
	RuleTopic
	RuleContains
)

func (r Rule) String() string {
	switch r {
	case RuleExact:
		return "exact"
	case RuleTopic:
		return "topic"
	case RuleContains:
		return "contains"
	default:
		return "unknown"
	}
}

// Match records which stored entry answered an incoming question.
type Match struct {
	EntryID  string
	Question string
	Answer   string
	Rule     Rule
}

// Find scans entries in insertion order and returns the first entry that
// satisfies the highest-priority rule: equal canonical text, then a shared
// non-empty topic, then bidirectional substring containment. A miss is a
// normal outcome, not an error.
func Find(nq normalize.NormalizedQuestion, entries []Entry) (Match, bool) {
	if nq.Canonical == "" || len(entries) == 0 {
		return Match{}, false
	}

	norms := make([]normalize.NormalizedQuestion, len(entries))
	for i, e := range entries {
		norms[i] = normalize.Normalize(e.Question)
	}

	for i, e := range entries {
		if norms[i].Canonical != "" && norms[i].Canonical == nq.Canonical {
			return Match{EntryID: e.ID, Question: e.Question, Answer: e.Answer, Rule: RuleExact}, true
		}
	}

	if nq.Topic != "" {
		for i, e := range entries {
			if norms[i].Topic == nq.Topic {
				return Match{EntryID: e.ID, Question: e.Question, Answer: e.Answer, Rule: RuleTopic}, true
			}
		}
	}

	for i, e := range entries {
		stored := norms[i].Canonical
		if stored == "" {
			continue
		}
		if strings.Contains(nq.Canonical, stored) || strings.Contains(stored, nq.Canonical) {
			return Match{EntryID: e.ID, Question: e.Question, Answer: e.Answer, Rule: RuleContains}, true
		}
	}

	return Match{}, false
}
