// Package gate decides whether a query belongs to the product domain.
package gate

import (
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/pkg/taxonomy"
)

type Gate struct {
	taxonomy *taxonomy.Taxonomy
}

func New(tx *taxonomy.Taxonomy) *Gate {
	if tx == nil {
		tx = taxonomy.Default("")
	}
	return &Gate{taxonomy: tx}
}

// InDomain is deterministic and fails open: anything not positively
// identified as off-topic is answered.
func (g *Gate) InDomain(query string, c models.Classification) bool {
	tx := g.taxonomy

	if taxonomy.ContainsAny(query, tx.DomainKeywords) {
		return true
	}
	if taxonomy.ContainsAny(c.TopicReasoning, tx.DomainKeywords) {
		return true
	}
	if tx.IsTechnical(c.Topic) {
		return true
	}
	if c.Topic == models.TopicGeneral {
		if taxonomy.ContainsAny(c.TopicReasoning, tx.OutOfDomainKeywords) {
			return false
		}
		// the query was already checked for domain keywords above
		return false
	}
	return true
}
