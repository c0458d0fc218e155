package recipe

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/homestead/homestead/internal/model"
)

var (
	// Recipe text may carry light inline markup such as <br>, <em> or links.
	contentPolicy = bluemonday.UGCPolicy()
	stripPolicy   = bluemonday.StrictPolicy()
)

// StripHTML removes tags and soft hyphens and decodes entities, producing plain text.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "&shy;", "")
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\u00ad", "")
	return strings.TrimSpace(s)
}

// SanitizeHTML removes unsafe markup while keeping formatting tags and entities.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}
	return contentPolicy.Sanitize(s)
}

// Sanitize cleans every free-text field of r in place, including its English translation.
func Sanitize(r *model.Recipe) {
	r.Name = SanitizeHTML(r.Name)
	r.Description = SanitizeHTML(r.Description)
	r.Preamble = SanitizeHTML(r.Preamble)
	r.Addendum = SanitizeHTML(r.Addendum)
	r.Note = SanitizeHTML(r.Note)
	r.Icon = StripHTML(r.Icon)
	r.ShortName = StripHTML(r.ShortName)
	r.Category = StripHTML(r.Category)
	for i := range r.Tags {
		r.Tags[i] = StripHTML(r.Tags[i])
	}
	sanitizeSections(r.Ingredients, r.Instructions)

	if t := r.Translations.EN; t != nil {
		t.ShortName = StripHTML(t.ShortName)
		t.Name = SanitizeHTML(t.Name)
		t.Description = SanitizeHTML(t.Description)
		t.Preamble = SanitizeHTML(t.Preamble)
		t.Addendum = SanitizeHTML(t.Addendum)
		t.Note = SanitizeHTML(t.Note)
		t.Category = StripHTML(t.Category)
		for i := range t.Tags {
			t.Tags[i] = StripHTML(t.Tags[i])
		}
		sanitizeSections(t.Ingredients, t.Instructions)
	}
}

func sanitizeSections(ingredients []model.IngredientSection, instructions []model.InstructionSection) {
	for i := range ingredients {
		ingredients[i].Name = SanitizeHTML(ingredients[i].Name)
		for j := range ingredients[i].List {
			ing := &ingredients[i].List[j]
			ing.Name = SanitizeHTML(ing.Name)
			ing.Unit = StripHTML(ing.Unit)
			ing.Amount = StripHTML(ing.Amount)
		}
	}
	for i := range instructions {
		instructions[i].Name = SanitizeHTML(instructions[i].Name)
		for j := range instructions[i].Steps {
			instructions[i].Steps[j] = SanitizeHTML(instructions[i].Steps[j])
		}
	}
}
