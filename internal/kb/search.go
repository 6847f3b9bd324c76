package kb

import (
	"fmt"

	"github.com/blevesearch/bleve"
)

// SearchIndex is a transient in-memory full-text index over one user's
// entries. It backs the knowledge-base search endpoint and plays no part in
// answer resolution, which uses Find.
type SearchIndex struct {
	idx bleve.Index
}

type indexedEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewSearchIndex builds an in-memory index over the given entries.
func NewSearchIndex(entries []Entry) (*SearchIndex, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("kb: creating search index: %w", err)
	}
	for _, e := range entries {
		if err := idx.Index(e.ID, indexedEntry{Question: e.Question, Answer: e.Answer}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("kb: indexing entry %s: %w", e.ID, err)
		}
	}
	return &SearchIndex{idx: idx}, nil
}

// Hit is one search result, identified by entry id.
type Hit struct {
	EntryID string  `json:"entry_id"`
	Score   float64 `json:"score"`
}

// Search runs a match query over indexed questions and answers.
func (s *SearchIndex) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("kb: search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{EntryID: h.ID, Score: h.Score})
	}
	return hits, nil
}

// Close releases the underlying index.
func (s *SearchIndex) Close() error {
	return s.idx.Close()
}
