package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
)

type memoryRecord struct {
	vector   []float32
	metadata map[string]interface{}
	seq      int
}

// MemoryIndex is an in-process cosine index used when no database is
// configured and in tests.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	seq     int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]memoryRecord)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]interface{}) error {
	if id == "" {
		return goerr.New("record id is required")
	}
	meta := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	vec := append([]float32(nil), vector...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.records[id] = memoryRecord{vector: vec, metadata: meta, seq: m.seq}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	matches := make([]models.Match, 0, len(m.records))
	for id, rec := range m.records {
		if len(rec.vector) != len(vector) {
			continue
		}
		matches = append(matches, models.Match{
			ID:       id,
			Score:    cosine(vector, rec.vector),
			Metadata: copyMeta(rec.metadata),
		})
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) List(ctx context.Context, limit int) ([]models.Match, error) {
	m.mu.RLock()
	type entry struct {
		match models.Match
		seq   int
	}
	entries := make([]entry, 0, len(m.records))
	for id, rec := range m.records {
		entries = append(entries, entry{models.Match{ID: id, Metadata: copyMeta(rec.metadata)}, rec.seq})
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })

	out := make([]models.Match, 0, len(entries))
	for _, e := range entries {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, e.match)
	}
	return out, nil
}

// Len reports the number of stored records.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryIndex) Close() {}

func copyMeta(meta map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
