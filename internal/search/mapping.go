package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for entry documents.
// Text fields use English stemming; filters are exact keywords.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{fieldTitle, fieldDescription, fieldBody, fieldTags} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = en.AnalyzerName
		fm.Store = false
		fm.IncludeTermVectors = field == fieldTitle
		docMapping.AddFieldMappingsAt(field, fm)
	}

	nodeMapping := bleve.NewTextFieldMapping()
	nodeMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(fieldNodeID, nodeMapping)

	typeMapping := bleve.NewTextFieldMapping()
	typeMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(fieldTypeKey, typeMapping)

	docMapping.AddFieldMappingsAt(fieldArchived, bleve.NewBooleanFieldMapping())

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
