package resolve

import (
	"context"

	"github.com/formpilot/formpilot/internal/kb"
)

// QuestionType is the declared input type of an extracted form question.
type QuestionType string

const (
	TypeText           QuestionType = "text"
	TypeSingleChoice   QuestionType = "single_choice"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeDate           QuestionType = "date"
	TypeTime           QuestionType = "time"
	TypeUnknown        QuestionType = "unknown"
)

// Question is one extracted form question. It is immutable once built; the
// ID only needs to be stable within a single resolution batch.
type Question struct {
	ID   string       `json:"id"`
	Text string       `json:"text"`
	Type QuestionType `json:"type,omitempty"`
}

// Source tags the tier that produced an answer.
type Source string

const (
	SourceKnowledgeBase  Source = "knowledge_base"
	SourceAIPrimary      Source = "ai_primary"
	SourceAISecondary    Source = "ai_secondary"
	SourceStaticFallback Source = "static_fallback"
	SourceUnresolved     Source = "unresolved"
)

// AnswerResult is the outcome for a single question. When Source is
// SourceUnresolved the answer is empty and Error explains why; for every
// other source the answer is non-empty and Error is empty.
type AnswerResult struct {
	QuestionID      string `json:"question_id"`
	Question        string `json:"question"`
	MatchedQuestion string `json:"matched_question,omitempty"`
	Answer          string `json:"answer"`
	Source          Source `json:"source"`
	Error           string `json:"error,omitempty"`
}

// Batch holds the results for one resolution call, one result per input
// question in input order.
type Batch struct {
	ID      string         `json:"batch_id"`
	Results []AnswerResult `json:"results"`
}

// Request bundles the inputs for one resolution batch. Entries are a
// read-only snapshot of the caller's knowledge base, fetched once per batch.
// UserContext carries optional profile hints forwarded to generation
// backends.
type Request struct {
	Questions   []Question
	Entries     []kb.Entry
	UserContext string
}

// Backend is one answer-generation tier. Generate returns the generated
// answer, or an error when the provider failed, timed out, or produced a
// malformed response. Adapters translate provider-specific failures into a
// single error shape; the resolver never inspects provider error details
// beyond the message.
type Backend interface {
	Tag() Source
	Generate(ctx context.Context, question string, userContext string) (string, error)
}
