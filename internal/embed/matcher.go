package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// DefaultFloorThreshold rejects matches below this similarity even when no
// better stage exists. Distinct from the orchestrator's acceptance threshold.
const DefaultFloorThreshold = 0.85

// topK is the number of neighbors considered for the vote.
const topK = 5

// Config holds configuration for the embedding matcher.
type Config struct {
	// FloorThreshold is the minimum similarity for any result at all.
	// Zero means DefaultFloorThreshold.
	FloorThreshold float64
}

// Matcher classifies transactions by nearest-neighbor vote over the corpus
// of previously labeled transactions.
type Matcher struct {
	store    service.Store
	embedder Embedder
	logger   *slog.Logger
	corpus   []corpusEntry
	floor    float64
	mu       sync.RWMutex
}

type corpusEntry struct {
	vector      []float64
	accountName string
	accountID   int64
}

// NewMatcher creates an embedding matcher. The corpus is loaded lazily on
// first use and refreshed explicitly via Reload.
func NewMatcher(store service.Store, embedder Embedder, cfg Config, logger *slog.Logger) *Matcher {
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	floor := cfg.FloorThreshold
	if floor == 0 {
		floor = DefaultFloorThreshold
	}
	return &Matcher{
		store:    store,
		embedder: embedder,
		logger:   logger,
		floor:    floor,
	}
}

// Name reports the method tag this stage produces.
func (m *Matcher) Name() model.Method {
	return model.MethodEmbedding
}

// Reload rebuilds the corpus from the store. Results are deterministic for a
// fixed corpus snapshot; they change as the corpus grows.
func (m *Matcher) Reload(ctx context.Context) error {
	examples, err := m.store.GetLabeledExamples(ctx)
	if err != nil {
		return fmt.Errorf("failed to load labeled examples: %w", err)
	}

	corpus := make([]corpusEntry, 0, len(examples))
	for _, ex := range examples {
		txn := model.Transaction{Description: ex.Description}
		corpus = append(corpus, corpusEntry{
			vector:      m.embedder.Embed(txn.NormalizedDescription()),
			accountName: ex.AccountName,
			accountID:   ex.AccountID,
		})
	}

	m.mu.Lock()
	m.corpus = corpus
	m.mu.Unlock()

	m.logger.Debug("embedding corpus reloaded", "size", len(corpus))
	return nil
}

// AttemptClassify finds the top-K nearest labeled transactions by cosine
// similarity and returns the similarity-weighted majority account. Returns
// nil when the best neighbor falls below the floor threshold.
func (m *Matcher) AttemptClassify(ctx context.Context, txn model.Transaction) (*model.StageResult, error) {
	m.mu.RLock()
	loaded := m.corpus != nil
	m.mu.RUnlock()

	if !loaded {
		if err := m.Reload(ctx); err != nil {
			return nil, err
		}
	}

	query := m.embedder.Embed(txn.NormalizedDescription())

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.corpus) == 0 {
		return nil, nil
	}

	type neighbor struct {
		accountName string
		accountID   int64
		similarity  float64
	}

	neighbors := make([]neighbor, 0, len(m.corpus))
	for i := range m.corpus {
		entry := &m.corpus[i]
		neighbors = append(neighbors, neighbor{
			accountName: entry.accountName,
			accountID:   entry.accountID,
			similarity:  CosineSimilarity(query, entry.vector),
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].similarity > neighbors[j].similarity
	})

	if neighbors[0].similarity < m.floor {
		return nil, nil
	}

	k := topK
	if k > len(neighbors) {
		k = len(neighbors)
	}

	// Similarity-weighted vote over the top K
	votes := make(map[int64]float64, k)
	names := make(map[int64]string, k)
	for _, n := range neighbors[:k] {
		if n.similarity < m.floor {
			break
		}
		votes[n.accountID] += n.similarity
		names[n.accountID] = n.accountName
	}

	var winner int64
	var best float64
	var total float64
	for id, weight := range votes {
		total += weight
		if weight > best || (weight == best && id < winner) {
			winner = id
			best = weight
		}
	}

	confidence := neighbors[0].similarity * (best / total)

	m.logger.Debug("embedding match",
		"transaction_id", txn.ID,
		"account", names[winner],
		"similarity", neighbors[0].similarity,
		"confidence", confidence)

	return &model.StageResult{
		Method:          model.MethodEmbedding,
		AccountID:       winner,
		AccountName:     names[winner],
		Confidence:      confidence,
		SimilarityScore: neighbors[0].similarity,
	}, nil
}
