// Package search filters the loaded feed by fuzzy matching.
package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/reel/internal/domain"
)

// Field names which part of a record matched
type Field string

const (
	FieldTitle  Field = "title"
	FieldTag    Field = "tag"
	FieldAuthor Field = "author"
)

// Result is one matching record
type Result struct {
	Index          int // Position in the searched slice (feed index)
	Record         domain.VideoRecord
	Field          Field
	MatchedIndexes []int // Character positions in the title, for highlighting
	Score          int   // Title: higher is better. Tag/author: edit distance, lower is better
}

// titleIndex implements sahilm/fuzzy.Source over record titles
type titleIndex struct {
	lowerTitles []string
}

func (idx titleIndex) String(i int) string { return idx.lowerTitles[i] }

func (idx titleIndex) Len() int { return len(idx.lowerTitles) }

// Filter ranks records against query. Title matches come first in fuzzy score
// order; records whose title does not match are then checked against their
// tags and author name.
func Filter(records []domain.VideoRecord, query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(records) == 0 {
		return nil
	}

	idx := titleIndex{lowerTitles: make([]string, len(records))}
	for i, r := range records {
		idx.lowerTitles[i] = strings.ToLower(r.Title)
	}

	matched := make(map[int]bool)
	results := make([]Result, 0)
	for _, m := range sfuzzy.FindFrom(query, idx) {
		matched[m.Index] = true
		results = append(results, Result{
			Index:          m.Index,
			Record:         records[m.Index],
			Field:          FieldTitle,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}

	var secondary []Result
	for i, r := range records {
		if matched[i] {
			continue
		}
		if ranks := fuzzy.RankFindFold(query, r.Tags); len(ranks) > 0 {
			sort.Sort(ranks)
			secondary = append(secondary, Result{Index: i, Record: r, Field: FieldTag, Score: ranks[0].Distance})
			continue
		}
		if r.AuthorName != "" && fuzzy.MatchFold(query, r.AuthorName) {
			dist := fuzzy.RankMatchFold(query, r.AuthorName)
			secondary = append(secondary, Result{Index: i, Record: r, Field: FieldAuthor, Score: dist})
		}
	}
	sort.SliceStable(secondary, func(a, b int) bool {
		return secondary[a].Score < secondary[b].Score
	})

	return append(results, secondary...)
}
