package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/formpilot/formpilot/internal/kb"
)

// fakeBackend answers or fails per question text.
type fakeBackend struct {
	tag      Source
	answers  map[string]string
	err      error
	fixed    string
	delay    time.Duration
	calls    atomic.Int64
	honorCtx bool
}

func (f *fakeBackend) Tag() Source { return f.tag }

func (f *fakeBackend) Generate(ctx context.Context, question, _ string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		if f.honorCtx {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		} else {
			time.Sleep(f.delay)
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if f.fixed != "" {
		return f.fixed, nil
	}
	if a, ok := f.answers[question]; ok {
		return a, nil
	}
	return "", errors.New("no canned answer")
}

func TestResolveKnowledgeBaseHit(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{tag: SourceAIPrimary, fixed: "generated"}
	r := New([]Backend{backend}, time.Second, 2, nil)

	batch := r.Resolve(context.Background(), Request{
		Questions: []Question{{ID: "q_0", Text: "What is your Mobile No.?"}},
		Entries:   []kb.Entry{{ID: "e1", Question: "Contact Number", Answer: "555-1234"}},
	})

	if len(batch.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(batch.Results))
	}
	res := batch.Results[0]
	if res.Source != SourceKnowledgeBase || res.Answer != "555-1234" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.MatchedQuestion != "Contact Number" {
		t.Fatalf("expected matched question provenance, got %q", res.MatchedQuestion)
	}
	if got := backend.calls.Load(); got != 0 {
		t.Fatalf("backend must not be called on a knowledge-base hit, got %d calls", got)
	}
}

func TestResolveFallbackOrdering(t *testing.T) {
	t.Parallel()
	primary := &fakeBackend{tag: SourceAIPrimary, err: errors.New("rate limited")}
	secondary := &fakeBackend{tag: SourceAISecondary, fixed: "from secondary"}
	r := New([]Backend{primary, secondary}, time.Second, 2, nil)

	batch := r.Resolve(context.Background(), Request{
		Questions: []Question{{Text: "Describe your ideal project"}},
	})

	res := batch.Results[0]
	if res.Source != SourceAISecondary || res.Answer != "from secondary" {
		t.Fatalf("expected secondary to answer, got %+v", res)
	}
	if res.Error != "" {
		t.Fatalf("successful result must carry no residual error, got %q", res.Error)
	}
	if primary.calls.Load() != 1 || secondary.calls.Load() != 1 {
		t.Fatalf("unexpected call counts: primary=%d secondary=%d", primary.calls.Load(), secondary.calls.Load())
	}
}

func TestResolveExhaustion(t *testing.T) {
	t.Parallel()
	primary := &fakeBackend{tag: SourceAIPrimary, err: errors.New("boom")}
	secondary := &fakeBackend{tag: SourceAISecondary, err: errors.New("also down")}
	r := New([]Backend{primary, secondary}, time.Second, 2, nil)

	batch := r.Resolve(context.Background(), Request{
		Questions: []Question{{Text: "Describe your ideal project"}},
	})

	res := batch.Results[0]
	if res.Source != SourceUnresolved {
		t.Fatalf("expected unresolved, got %s", res.Source)
	}
	if res.Answer != "" {
		t.Fatalf("unresolved result must have empty answer, got %q", res.Answer)
	}
	if !strings.Contains(res.Error, "also down") {
		t.Fatalf("expected last backend error surfaced, got %q", res.Error)
	}
}

func TestResolveNoBackendsConfigured(t *testing.T) {
	t.Parallel()
	r := New(nil, time.Second, 2, nil)
	batch := r.Resolve(context.Background(), Request{
		Questions: []Question{{Text: "Describe your ideal project"}},
	})
	res := batch.Results[0]
	if res.Source != SourceUnresolved || res.Answer != "" || res.Error == "" {
		t.Fatalf("expected apologetic unresolved result, got %+v", res)
	}
}

func TestResolveOrderPreservedUnderConcurrency(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{tag: SourceAIPrimary, answers: map[string]string{}}
	var questions []Question
	for i := 0; i < 40; i++ {
		text := fmt.Sprintf("unique question zq%d", i)
		backend.answers[text] = fmt.Sprintf("answer %d", i)
		questions = append(questions, Question{Text: text})
	}
	// Uneven latency to shuffle completion order.
	backend.delay = 2 * time.Millisecond

	r := New([]Backend{backend}, time.Second, 8, nil)
	batch := r.Resolve(context.Background(), Request{Questions: questions})

	if len(batch.Results) != len(questions) {
		t.Fatalf("expected %d results, got %d", len(questions), len(batch.Results))
	}
	for i, res := range batch.Results {
		if res.Question != questions[i].Text {
			t.Fatalf("result %d out of order: got %q want %q", i, res.Question, questions[i].Text)
		}
		if res.QuestionID != fmt.Sprintf("q_%d", i) {
			t.Fatalf("result %d has id %q", i, res.QuestionID)
		}
		want := fmt.Sprintf("answer %d", i)
		if res.Answer != want {
			t.Fatalf("result %d: got answer %q want %q", i, res.Answer, want)
		}
	}
}

func TestResolveIsolation(t *testing.T) {
	t.Parallel()
	// Backend fails for one specific question and answers the rest.
	backend := &fakeBackend{tag: SourceAIPrimary, answers: map[string]string{
		"first unique zq": "one",
		"third unique zq": "three",
	}}
	r := New([]Backend{backend}, time.Second, 2, nil)

	batch := r.Resolve(context.Background(), Request{Questions: []Question{
		{Text: "first unique zq"},
		{Text: "second unique zq"}, // no canned answer -> failure
		{Text: "third unique zq"},
	}})

	if batch.Results[0].Source != SourceAIPrimary || batch.Results[0].Answer != "one" {
		t.Fatalf("question 0 affected by sibling failure: %+v", batch.Results[0])
	}
	if batch.Results[1].Source != SourceUnresolved || batch.Results[1].Error == "" {
		t.Fatalf("question 1 should be unresolved: %+v", batch.Results[1])
	}
	if batch.Results[2].Source != SourceAIPrimary || batch.Results[2].Answer != "three" {
		t.Fatalf("question 2 affected by sibling failure: %+v", batch.Results[2])
	}
}

func TestResolveBackendTimeout(t *testing.T) {
	t.Parallel()
	slow := &fakeBackend{tag: SourceAIPrimary, fixed: "too late", delay: 500 * time.Millisecond, honorCtx: true}
	fast := &fakeBackend{tag: SourceAISecondary, fixed: "on time"}
	r := New([]Backend{slow, fast}, 20*time.Millisecond, 2, nil)

	batch := r.Resolve(context.Background(), Request{
		Questions: []Question{{Text: "anything unique zq"}},
	})

	res := batch.Results[0]
	if res.Source != SourceAISecondary || res.Answer != "on time" {
		t.Fatalf("expected fallback after timeout, got %+v", res)
	}
}

func TestResolveEmptyAnswerTreatedAsFailure(t *testing.T) {
	t.Parallel()
	// A static fallback with no canned reply returns an empty string without
	// an error; that still counts as unresolved.
	empty := &fakeBackend{tag: SourceStaticFallback, fixed: ""}
	empty.answers = map[string]string{"anything unique zq": ""}
	r := New([]Backend{empty}, time.Second, 2, nil)

	batch := r.Resolve(context.Background(), Request{
		Questions: []Question{{Text: "anything unique zq"}},
	})
	res := batch.Results[0]
	if res.Source != SourceUnresolved || res.Answer != "" || res.Error == "" {
		t.Fatalf("empty completion must resolve to unresolved, got %+v", res)
	}
}

// gateBackend reports every call on entered, answers fast questions
// immediately and holds slow questions until the context is cancelled.
type gateBackend struct {
	tag     Source
	entered chan string
	calls   atomic.Int64
}

func (g *gateBackend) Tag() Source { return g.tag }

func (g *gateBackend) Generate(ctx context.Context, question, _ string) (string, error) {
	g.calls.Add(1)
	g.entered <- question
	if strings.HasPrefix(question, "slow") {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "fast answer", nil
}

func TestResolveCancellationKeepsCompletedResults(t *testing.T) {
	t.Parallel()
	primary := &gateBackend{tag: SourceAIPrimary, entered: make(chan string, 2)}
	secondary := &fakeBackend{tag: SourceAISecondary, fixed: "never reached"}
	r := New([]Backend{primary, secondary}, time.Minute, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Batch, 1)
	go func() {
		done <- r.Resolve(ctx, Request{Questions: []Question{
			{Text: "fast unique zq"},
			{Text: "slow unique zq"},
		}})
	}()

	// Wait until both questions are in flight before cancelling.
	seen := map[string]bool{}
	for len(seen) < 2 {
		seen[<-primary.entered] = true
	}
	cancel()
	batch := <-done

	if res := batch.Results[0]; res.Source != SourceAIPrimary || res.Answer != "fast answer" {
		t.Fatalf("completed result must survive cancellation: %+v", res)
	}
	if res := batch.Results[1]; res.Source != SourceUnresolved || res.Answer != "" || res.Error == "" {
		t.Fatalf("in-flight question should come back unresolved: %+v", res)
	}
	if got := secondary.calls.Load(); got != 0 {
		t.Fatalf("cancellation must stop further backend calls, got %d", got)
	}
}

func TestResolveEmptyBatch(t *testing.T) {
	t.Parallel()
	r := New(nil, time.Second, 2, nil)
	batch := r.Resolve(context.Background(), Request{})
	if len(batch.Results) != 0 {
		t.Fatalf("expected empty result set, got %d", len(batch.Results))
	}
	if batch.ID == "" {
		t.Fatal("batch id must be assigned even for empty batches")
	}
}

func TestResolveBlankQuestionText(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{tag: SourceAIPrimary, fixed: "never used"}
	r := New([]Backend{backend}, time.Second, 2, nil)
	batch := r.Resolve(context.Background(), Request{
		Questions: []Question{{Text: "   "}},
	})
	res := batch.Results[0]
	if res.Source != SourceUnresolved || res.Error == "" {
		t.Fatalf("blank question should be unresolved with error, got %+v", res)
	}
	if backend.calls.Load() != 0 {
		t.Fatal("blank question must not reach generation backends")
	}
}
