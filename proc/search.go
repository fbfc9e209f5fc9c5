package proc

import (
	"slices"
	"strings"

	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

const (
	exactMatchScore   = 100
	partialMatchScore = 1
)

type ScoredTrack struct {
	Name  string
	Score int
}

var separatorReplacer = strings.NewReplacer("_", " ", "-", " ")

// NormalizeQuery lowercases a token and maps '_' and '-' to spaces.
func NormalizeQuery(token string) string {
	return collapseSpaces(separatorReplacer.Replace(strings.ToLower(token)))
}

// NormalizeName is NormalizeQuery applied to a file name without its
// extension.
func NormalizeName(name string) string {
	return NormalizeQuery(sys.RemoveExtension(name))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' }), " ")
}

// Rank scores every name against the query tokens. The result always holds
// every name, ordered by score descending; equal scores keep catalog order.
// A top score of 0 means nothing matched.
func Rank(names []string, query []string) []ScoredTrack {
	tokens := lo.FilterMap(query, func(t string, _ int) (string, bool) {
		t = NormalizeQuery(t)
		return t, t != ""
	})

	scored := lo.Map(names, func(name string, _ int) ScoredTrack {
		value := NormalizeName(name)
		score := 0
		for _, token := range tokens {
			if value == token {
				score += exactMatchScore
			} else if strings.Contains(value, token) {
				score += partialMatchScore
			}
		}
		return ScoredTrack{Name: name, Score: score}
	})

	slices.SortStableFunc(scored, func(a, b ScoredTrack) int {
		return b.Score - a.Score
	})
	return scored
}

// TopMatches returns the leading run of entries sharing the best score, or
// nil when the best score is 0.
func TopMatches(ranked []ScoredTrack) []ScoredTrack {
	if len(ranked) == 0 || ranked[0].Score == 0 {
		return nil
	}
	best := ranked[0].Score
	end := slices.IndexFunc(ranked, func(s ScoredTrack) bool { return s.Score != best })
	if end < 0 {
		end = len(ranked)
	}
	return ranked[:end]
}

// FindByName resolves a user-typed track name to its catalog entry. The
// comparison ignores case, the extension and repeated spaces.
func FindByName(names []string, query string) (string, bool) {
	want := collapseSpaces(strings.ToLower(strings.TrimSpace(query)))
	if want == "" {
		return "", false
	}
	return lo.Find(names, func(name string) bool {
		return collapseSpaces(strings.ToLower(sys.RemoveExtension(name))) == want
	})
}
