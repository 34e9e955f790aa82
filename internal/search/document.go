// Package search provides the full-text engines behind entry search: an FTS5
// table maintained inside the entry's own transaction, and an optional Bleve
// index staged through transaction hooks.
package search

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// SnippetLength is the maximum number of runes in a search snippet.
const SnippetLength = 200

// maxTokens bounds the number of terms taken from a query.
const maxTokens = 32

// Tokenize splits user input into lowercase letter/digit runs, dropping
// duplicates. Operators and punctuation never reach the engine.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
		if len(tokens) == maxTokens {
			break
		}
	}
	return tokens
}

// Snippet returns the first SnippetLength runes of description, with "..."
// appended when it was cut.
func Snippet(description string) string {
	description = strings.TrimSpace(description)
	runes := []rune(description)
	if len(runes) <= SnippetLength {
		return description
	}
	return strings.TrimRightFunc(string(runes[:SnippetLength]), unicode.IsSpace) + "..."
}

// docID is the Bleve document id for an entry.
func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// toMap converts the document to the field names of the Bleve mapping.
func toMap(d *store.SearchDocument) map[string]any {
	return map[string]any{
		"title":       d.Title,
		"description": d.Description,
		"body":        d.Body,
		"tags":        d.Tags,
		"node_id":     docID(d.NodeID),
		"type_key":    d.TypeKey,
		"archived":    d.Archived,
	}
}
