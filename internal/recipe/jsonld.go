package recipe

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/homestead/homestead/internal/model"
)

// HowToStep is a schema.org instruction step.
type HowToStep struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// ImageObject is a schema.org image reference.
type ImageObject struct {
	Type   string `json:"@type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Person is a schema.org author.
type Person struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// JSONLD is a schema.org Recipe document.
type JSONLD struct {
	Context            string      `json:"@context"`
	Type               string      `json:"@type"`
	Name               string      `json:"name"`
	Description        string      `json:"description,omitempty"`
	Author             Person      `json:"author"`
	DatePublished      string      `json:"datePublished,omitempty"`
	DateModified       string      `json:"dateModified,omitempty"`
	RecipeCategory     string      `json:"recipeCategory,omitempty"`
	Keywords           string      `json:"keywords,omitempty"`
	Image              ImageObject `json:"image"`
	RecipeYield        string      `json:"recipeYield,omitempty"`
	PrepTime           string      `json:"prepTime,omitempty"`
	CookTime           string      `json:"cookTime,omitempty"`
	TotalTime          string      `json:"totalTime,omitempty"`
	RecipeIngredient   []string    `json:"recipeIngredient"`
	RecipeInstructions []HowToStep `json:"recipeInstructions"`
	URL                string      `json:"url"`
}

var (
	minutesPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:min|minuten?)`)
	hoursPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:h|stunden?|std)`)
)

// ISODuration converts free text like "30 min" or "1,5 h" into an ISO 8601 duration.
// It returns "" when nothing recognizable is found.
func ISODuration(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		return fmt.Sprintf("PT%dM", int(math.Round(v)))
	}
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		v, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if v == math.Trunc(v) {
			return fmt.Sprintf("PT%dH", int(v))
		}
		return fmt.Sprintf("PT%dM", int(math.Round(v*60)))
	}
	return ""
}

// BuildJSONLD renders r as structured data for the page under baseURL/lang.
func BuildJSONLD(r *model.Recipe, baseURL string, lang model.Lang, author string) *JSONLD {
	baseURL = strings.TrimRight(baseURL, "/")

	doc := &JSONLD{
		Context:        "https://schema.org",
		Type:           "Recipe",
		Name:           StripHTML(r.Name),
		Description:    StripHTML(r.Description),
		Author:         Person{Type: "Person", Name: author},
		RecipeCategory: r.Category,
		Keywords:       strings.Join(r.Tags, ", "),
		Image: ImageObject{
			Type:   "ImageObject",
			URL:    fmt.Sprintf("%s/static/rezepte/full/%s.webp", baseURL, imageName(r)),
			Width:  1200,
			Height: 800,
		},
		RecipeYield:        r.Portions,
		PrepTime:           ISODuration(r.Preparation),
		CookTime:           ISODuration(r.Cooking),
		TotalTime:          ISODuration(r.TotalTime),
		RecipeIngredient:   []string{},
		RecipeInstructions: []HowToStep{},
		URL:                fmt.Sprintf("%s/%s/%s", baseURL, lang, r.ShortName),
	}
	if !r.DateCreated.IsZero() {
		doc.DatePublished = r.DateCreated.UTC().Format(time.RFC3339)
	}
	if !r.DateModified.IsZero() {
		doc.DateModified = r.DateModified.UTC().Format(time.RFC3339)
	}

	for _, section := range r.Ingredients {
		for _, ing := range section.List {
			if ing.Name == "" {
				continue
			}
			text := StripHTML(ing.Name)
			if ing.Amount != "" {
				text = strings.TrimSpace(strings.Join(strings.Fields(ing.Amount+" "+ing.Unit+" "+text), " "))
			}
			doc.RecipeIngredient = append(doc.RecipeIngredient, text)
		}
	}

	stepLabel, bakeLabel := "Schritt", "Backen"
	if lang.IsEnglish() {
		stepLabel, bakeLabel = "Step", "Bake"
	}
	for _, section := range r.Instructions {
		for i, step := range section.Steps {
			doc.RecipeInstructions = append(doc.RecipeInstructions, HowToStep{
				Type: "HowToStep",
				Name: fmt.Sprintf("%s %d", stepLabel, i+1),
				Text: StripHTML(step),
			})
		}
	}

	if text := bakingText(r.Baking, lang); text != "" {
		doc.RecipeInstructions = append(doc.RecipeInstructions, HowToStep{
			Type: "HowToStep",
			Name: bakeLabel,
			Text: bakeLabel + " " + text,
		})
	}
	return doc
}

func bakingText(b model.Baking, lang model.Lang) string {
	if b.Temperature == "" && b.Length == "" {
		return ""
	}
	at, during := "bei", "für"
	if lang.IsEnglish() {
		at, during = "at", "for"
	}

	var parts []string
	if b.Temperature != "" {
		parts = append(parts, at+" "+b.Temperature)
	}
	if b.Length != "" {
		parts = append(parts, during+" "+b.Length)
	}
	if b.Mode != "" {
		parts = append(parts, b.Mode)
	}
	return strings.Join(parts, " ")
}

func imageName(r *model.Recipe) string {
	if r.GermanShortName != "" {
		return r.GermanShortName
	}
	return r.ShortName
}
