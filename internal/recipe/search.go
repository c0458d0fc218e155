package recipe

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/homestead/homestead/internal/model"
)

// Fold lowercases s, removes soft hyphens and strips combining diacritics.
func Fold(s string) string {
	s = strings.ReplaceAll(s, "&shy;", "")
	s = strings.ReplaceAll(s, "\u00ad", "")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Filter narrows a brief list. Zero values disable a criterion.
type Filter struct {
	Query    string
	Category string
	Tags     []string
	Icon     string
	Seasons  []int

	// FavoritesOnly restricts results to FavoriteIDs. An empty set yields nothing.
	FavoritesOnly bool
	FavoriteIDs   []string
}

// Apply returns the briefs that satisfy every criterion, preserving order.
func (f Filter) Apply(briefs []*model.BriefRecipe) []*model.BriefRecipe {
	terms := searchTerms(f.Query)

	out := make([]*model.BriefRecipe, 0, len(briefs))
	for _, b := range briefs {
		if f.matches(b, terms) {
			out = append(out, b)
		}
	}
	return out
}

func (f Filter) matches(b *model.BriefRecipe, terms []string) bool {
	if f.Category != "" && b.Category != f.Category {
		return false
	}
	for _, tag := range f.Tags {
		if !slices.Contains(b.Tags, tag) {
			return false
		}
	}
	if f.Icon != "" && b.Icon != f.Icon {
		return false
	}
	if len(f.Seasons) > 0 && !slices.ContainsFunc(b.Season, func(m int) bool { return slices.Contains(f.Seasons, m) }) {
		return false
	}
	if f.FavoritesOnly && !slices.Contains(f.FavoriteIDs, b.ID) {
		return false
	}
	if len(terms) == 0 {
		return true
	}

	haystack := Fold(b.Name + " " + b.Description + " " + strings.Join(b.Tags, " "))
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func searchTerms(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	return strings.Fields(Fold(q))
}

// ParseList splits a comma separated query value, dropping blanks.
func ParseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
