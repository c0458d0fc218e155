package recipe

import (
	"context"

	"github.com/homestead/homestead/internal/model"
)

// MaxReferenceDepth bounds how many levels of base recipes are embedded.
const MaxReferenceDepth = 3

// Lookup fetches a recipe by ID. It returns (nil, nil) when the recipe does not exist.
type Lookup func(ctx context.Context, id string) (*model.Recipe, error)

// ResolveReferences fills ResolvedRecipe on every reference section of r, up to
// MaxReferenceDepth levels. Missing targets and cycles are left unresolved. English views
// resolve the referenced recipe's translation when it has one.
func ResolveReferences(ctx context.Context, r *model.Recipe, lang model.Lang, lookup Lookup) error {
	return resolve(ctx, r, lang, lookup, 1, map[string]bool{r.ID: true})
}

func resolve(ctx context.Context, r *model.Recipe, lang model.Lang, lookup Lookup, depth int, seen map[string]bool) error {
	if depth > MaxReferenceDepth {
		return nil
	}

	cache := make(map[string]*model.Recipe)
	fetch := func(id string) (*model.Recipe, error) {
		if ref, ok := cache[id]; ok {
			return ref, nil
		}
		if seen[id] {
			return nil, nil
		}
		ref, err := lookup(ctx, id)
		if err != nil || ref == nil {
			return nil, err
		}
		if lang.IsEnglish() && ref.Translations.EN != nil {
			ref = Overlay(ref)
		} else {
			cp := *ref
			ref = &cp
		}

		next := make(map[string]bool, len(seen)+1)
		for k := range seen {
			next[k] = true
		}
		next[id] = true
		if err := resolve(ctx, ref, lang, lookup, depth+1, next); err != nil {
			return nil, err
		}
		cache[id] = ref
		return ref, nil
	}

	if len(r.Ingredients) > 0 {
		sections := make([]model.IngredientSection, len(r.Ingredients))
		copy(sections, r.Ingredients)
		for i := range sections {
			if sections[i].Type != model.SectionReference || sections[i].BaseRecipeRef == "" {
				continue
			}
			ref, err := fetch(sections[i].BaseRecipeRef)
			if err != nil {
				return err
			}
			sections[i].ResolvedRecipe = trimReference(ref)
		}
		r.Ingredients = sections
	}

	if len(r.Instructions) > 0 {
		sections := make([]model.InstructionSection, len(r.Instructions))
		copy(sections, r.Instructions)
		for i := range sections {
			if sections[i].Type != model.SectionReference || sections[i].BaseRecipeRef == "" {
				continue
			}
			ref, err := fetch(sections[i].BaseRecipeRef)
			if err != nil {
				return err
			}
			sections[i].ResolvedRecipe = trimReference(ref)
		}
		r.Instructions = sections
	}
	return nil
}

// trimReference keeps the fields an embedding page needs.
func trimReference(r *model.Recipe) *model.Recipe {
	if r == nil {
		return nil
	}
	return &model.Recipe{
		ID:              r.ID,
		ShortName:       r.ShortName,
		Name:            r.Name,
		Ingredients:     r.Ingredients,
		Instructions:    r.Instructions,
		GermanShortName: r.GermanShortName,
	}
}

// References reports whether r embeds the recipe with id in any section.
func References(r *model.Recipe, id string) bool {
	for _, s := range r.Ingredients {
		if s.Type == model.SectionReference && s.BaseRecipeRef == id {
			return true
		}
	}
	for _, s := range r.Instructions {
		if s.Type == model.SectionReference && s.BaseRecipeRef == id {
			return true
		}
	}
	if t := r.Translations.EN; t != nil {
		for _, s := range t.Ingredients {
			if s.Type == model.SectionReference && s.BaseRecipeRef == id {
				return true
			}
		}
		for _, s := range t.Instructions {
			if s.Type == model.SectionReference && s.BaseRecipeRef == id {
				return true
			}
		}
	}
	return false
}

// InlineReference replaces the sections of r that embed base with base's own
// sections, so r stays complete once base is gone. Nested references of base
// are dropped. It reports whether r changed.
func InlineReference(r, base *model.Recipe) bool {
	changed := false

	var ingredients []model.IngredientSection
	for _, s := range r.Ingredients {
		if s.Type == model.SectionReference && s.BaseRecipeRef == base.ID {
			changed = true
			for _, own := range base.Ingredients {
				if own.Type != model.SectionReference {
					ingredients = append(ingredients, own)
				}
			}
			continue
		}
		ingredients = append(ingredients, s)
	}

	var instructions []model.InstructionSection
	for _, s := range r.Instructions {
		if s.Type == model.SectionReference && s.BaseRecipeRef == base.ID {
			changed = true
			for _, own := range base.Instructions {
				if own.Type != model.SectionReference {
					instructions = append(instructions, own)
				}
			}
			continue
		}
		instructions = append(instructions, s)
	}

	if changed {
		r.Ingredients = ingredients
		r.Instructions = instructions
	}
	return changed
}
