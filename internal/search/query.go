package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// Field names in the Bleve mapping.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldBody        = "body"
	fieldTags        = "tags"
	fieldNodeID      = "node_id"
	fieldTypeKey     = "type_key"
	fieldArchived    = "archived"
)

// fieldBoosts mirrors the FTS5 column weights: title first, then tags,
// description, and body.
var fieldBoosts = []struct {
	field string
	boost float64
}{
	{fieldTitle, 3.0},
	{fieldTags, 2.0},
	{fieldDescription, 1.5},
	{fieldBody, 1.0},
}

// buildQuery requires every token in at least one text field, either as a
// stemmed match or as a prefix, then applies the filters.
func buildQuery(q store.SearchQuery) query.Query {
	must := make([]query.Query, 0, len(q.Tokens)+3)

	for _, tok := range q.Tokens {
		alts := make([]query.Query, 0, 2*len(fieldBoosts))
		for _, fb := range fieldBoosts {
			mq := bleve.NewMatchQuery(tok)
			mq.SetField(fb.field)
			mq.SetBoost(fb.boost)
			alts = append(alts, mq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(fb.field)
			pq.SetBoost(fb.boost / 2)
			alts = append(alts, pq)
		}
		must = append(must, bleve.NewDisjunctionQuery(alts...))
	}

	if !q.IncludeArchived {
		bq := bleve.NewBoolFieldQuery(false)
		bq.SetField(fieldArchived)
		must = append(must, bq)
	}
	if q.NodeID != nil {
		tq := bleve.NewTermQuery(docID(*q.NodeID))
		tq.SetField(fieldNodeID)
		must = append(must, tq)
	}
	if q.TypeKey != "" {
		tq := bleve.NewTermQuery(q.TypeKey)
		tq.SetField(fieldTypeKey)
		must = append(must, tq)
	}

	return bleve.NewConjunctionQuery(must...)
}
