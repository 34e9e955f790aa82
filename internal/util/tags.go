package util

import "strings"

// NormalizeTagName trims a tag and collapses inner whitespace. Commas are the
// column separator and become spaces. Display casing is kept.
func NormalizeTagName(name string) string {
	name = strings.ReplaceAll(name, ",", " ")
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
}

// DedupeTags normalizes names and drops duplicates by slug, keeping the first
// spelling seen. Names that slugify to nothing are dropped.
func DedupeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = NormalizeTagName(n)
		slug := Slugify(n)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, n)
	}
	return out
}

// SplitTagString parses the comma-joined tag column.
func SplitTagString(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return DedupeTags(strings.Split(s, ","))
}

// JoinTags builds the comma-joined tag column.
func JoinTags(names []string) string {
	return strings.Join(names, ",")
}
