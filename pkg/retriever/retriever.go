// Package retriever turns a query into grounded context and citations.
package retriever

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
	"github.com/xhad/copilot/pkg/logging"
)

const DefaultTopK = 5

type Config struct {
	Product string
	TopK    int
	Logger  *slog.Logger
}

type Retriever struct {
	embedder types.Embedder
	index    types.VectorIndex
	config   Config
}

func New(embedder types.Embedder, index types.VectorIndex, config Config) *Retriever {
	if config.Product == "" {
		config.Product = "Atlan"
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	config.Logger = logging.OrDefault(config.Logger)
	return &Retriever{embedder: embedder, index: index, config: config}
}

// Retrieve embeds the query and collects the nearest chunks. Every match
// contributes content; only the first match per URL contributes a citation.
// topK <= 0 uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (models.Retrieval, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return models.Retrieval{}, goerr.Wrap(err, "failed to embed query")
	}

	matches, err := r.index.Query(ctx, vector, topK)
	if err != nil {
		return models.Retrieval{}, goerr.Wrap(err, "failed to query document index", goerr.V("top_k", topK))
	}

	var result models.Retrieval
	result.MatchCount = len(matches)
	seen := make(map[string]bool, len(matches))

	for _, m := range matches {
		content := models.MetaString(m.Metadata, "content")
		url := models.MetaString(m.Metadata, "url")
		if content == "" || url == "" {
			r.config.Logger.Debug("skipping match without content or url", "id", m.ID)
			continue
		}
		title := models.MetaString(m.Metadata, "title")

		result.Contexts = append(result.Contexts, content)
		result.Sources = append(result.Sources, models.RetrievalResult{
			Content:        content,
			SourceURL:      url,
			Title:          title,
			RelevanceScore: m.Score,
		})

		if seen[url] {
			continue
		}
		seen[url] = true
		if title == "" {
			title = r.config.Product + " Documentation"
		}
		result.Citations = append(result.Citations, models.Citation{DocumentTitle: title, SourceURL: url})
	}

	r.config.Logger.Debug("retrieved context",
		"matches", result.MatchCount,
		"contexts", len(result.Contexts),
		"citations", len(result.Citations),
	)
	return result, nil
}
