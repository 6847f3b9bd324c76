// Package resolve orchestrates tiered answer resolution: knowledge-base
// lookup first, then an ordered chain of generation backends, with
// per-question isolation so one failure never aborts the batch.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formpilot/formpilot/internal/kb"
	"github.com/formpilot/formpilot/internal/normalize"
	"github.com/formpilot/formpilot/internal/telemetry"
)

// apology is returned when a question cannot be answered and no backend
// produced a more specific error.
const apology = "No answer found in knowledge base. Please add this question to your knowledge base."

const (
	defaultBackendTimeout = 30 * time.Second
	defaultWorkers        = 4
)

// Resolver runs resolution batches against a fixed ordered backend chain.
type Resolver struct {
	backends  []Backend
	timeout   time.Duration
	workers   int
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

// New builds a Resolver. backends are tried in the given order after a
// knowledge-base miss; timeout bounds each individual backend call.
func New(backends []Backend, timeout time.Duration, workers int, tele *telemetry.Telemetry) *Resolver {
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Resolver{
		backends:  backends,
		timeout:   timeout,
		workers:   workers,
		logger:    log.New(log.Writer(), "[RESOLVE] ", log.LstdFlags),
		telemetry: tele,
	}
}

// Resolve processes every question in the request independently and returns
// exactly one result per question, in input order. Questions are dispatched
// on a bounded worker pool; results land in a preallocated slice indexed by
// input position so concurrency cannot reorder the batch. Cancelling ctx
// stops new backend calls but keeps results already produced.
func (r *Resolver) Resolve(ctx context.Context, req Request) Batch {
	start := time.Now()
	results := make([]AnswerResult, len(req.Questions))

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for i, q := range req.Questions {
		if q.ID == "" {
			q.ID = fmt.Sprintf("q_%d", i)
		}
		wg.Add(1)
		go func(i int, q Question) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = AnswerResult{
					QuestionID: q.ID,
					Question:   q.Text,
					Source:     SourceUnresolved,
					Error:      "resolution cancelled",
				}
				return
			}
			results[i] = r.resolveOne(ctx, q, req.Entries, req.UserContext)
		}(i, q)
	}
	wg.Wait()

	batch := Batch{ID: uuid.New().String(), Results: results}
	for _, res := range results {
		r.telemetry.RecordResolution(string(res.Source))
	}
	r.telemetry.ObserveBatch(len(results), time.Since(start))
	r.logger.Printf("batch %s: resolved %d questions in %s", batch.ID, len(results), time.Since(start))
	return batch
}

// resolveOne runs the full tier chain for a single question.
func (r *Resolver) resolveOne(ctx context.Context, q Question, entries []kb.Entry, userContext string) AnswerResult {
	res := AnswerResult{QuestionID: q.ID, Question: q.Text, Source: SourceUnresolved}

	nq := normalize.Normalize(q.Text)
	if nq.Canonical == "" {
		res.Error = "question text is empty"
		return res
	}

	if m, ok := kb.Find(nq, entries); ok {
		res.Source = SourceKnowledgeBase
		res.Answer = m.Answer
		res.MatchedQuestion = m.Question
		return res
	}

	var lastErr string
	for _, b := range r.backends {
		if ctx.Err() != nil {
			lastErr = "resolution cancelled"
			break
		}
		answer, err := r.generate(ctx, b, q.Text, userContext)
		if err != nil {
			lastErr = err.Error()
			r.telemetry.RecordBackendFailure(string(b.Tag()))
			r.logger.Printf("question %s: backend %s failed: %v", q.ID, b.Tag(), err)
			continue
		}
		if answer == "" {
			lastErr = fmt.Sprintf("%s returned an empty answer", b.Tag())
			continue
		}
		res.Source = b.Tag()
		res.Answer = answer
		return res
	}

	if lastErr == "" {
		lastErr = apology
	}
	res.Error = lastErr
	return res
}

// generate invokes one backend under the per-call timeout. A deadline expiry
// is reported the same way as any other provider failure.
func (r *Resolver) generate(ctx context.Context, b Backend, question, userContext string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	answer, err := b.Generate(callCtx, question, userContext)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%s: generation timed out after %s", b.Tag(), r.timeout)
		}
		return "", err
	}
	return answer, nil
}
