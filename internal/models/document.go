package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Document is a raw page produced by the crawler, before chunking.
type Document struct {
	URL      string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// Chunk is the unit of embedding and retrieval in the documents index.
type Chunk struct {
	Content    string `json:"content"`
	SourceURL  string `json:"url"`
	Title      string `json:"title"`
	ChunkIndex int    `json:"chunk_index"`
}

// ID is stable across re-ingestion so an unchanged chunk overwrites itself.
func (c Chunk) ID() string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d", c.SourceURL, c.ChunkIndex)))
	return hex.EncodeToString(sum[:])
}

// Metadata is the flat payload stored next to the chunk vector.
func (c Chunk) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"content":     c.Content,
		"url":         c.SourceURL,
		"title":       c.Title,
		"chunk_index": c.ChunkIndex,
	}
}

// Match is a ranked hit returned by a vector index.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]interface{}
}

// RetrievalResult is one matched chunk as seen by the query pipeline.
type RetrievalResult struct {
	Content        string  `json:"content"`
	SourceURL      string  `json:"url"`
	Title          string  `json:"title"`
	RelevanceScore float32 `json:"relevance_score"`
}

// Citation references one source document backing an answer.
type Citation struct {
	DocumentTitle string `json:"doc"`
	SourceURL     string `json:"url"`
}

// Retrieval is what the retriever hands to the answer synthesizer.
type Retrieval struct {
	Contexts   []string
	Citations  []Citation
	Sources    []RetrievalResult
	MatchCount int
}

func (r Retrieval) Empty() bool {
	return len(r.Contexts) == 0
}

// MetaString reads a string value from flat metadata.
func MetaString(meta map[string]interface{}, key string) string {
	if v, ok := meta[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// MetaFloat reads a numeric value from flat metadata, tolerating the
// float64/int/json.Number variations different stores return.
func MetaFloat(meta map[string]interface{}, key string) (float64, bool) {
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
