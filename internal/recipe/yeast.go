package recipe

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/homestead/homestead/internal/model"
)

const (
	unitGram  = "g"
	unitPinch = "Prise"
)

// YeastToggles reads the y0, y1, ... query flags. Presence toggles the N-th
// yeast ingredient, the value is ignored.
func YeastToggles(q url.Values) map[int]bool {
	toggles := make(map[int]bool)
	for key := range q {
		if !strings.HasPrefix(key, "y") {
			continue
		}
		n, err := strconv.Atoi(key[1:])
		if err != nil || n < 0 {
			continue
		}
		toggles[n] = true
	}
	return toggles
}

// Multiplier parses the multiplier query parameter, defaulting to 1.
func Multiplier(q url.Values) float64 {
	raw := q.Get("multiplier")
	if raw == "" {
		return 1
	}
	m, err := strconv.ParseFloat(raw, 64)
	if err != nil || m <= 0 {
		return 1
	}
	return m
}

func yeastKind(name string) (fresh, dry bool) {
	switch strings.ToLower(name) {
	case "frischhefe", "fresh yeast":
		return true, false
	case "trockenhefe", "dry yeast":
		return false, true
	}
	return false, false
}

// SwapYeast converts toggled yeast ingredients between fresh and dry. Yeast
// ingredients are counted in document order across all sections. The recipe's
// ingredient lists are copied before they are changed.
func SwapYeast(r *model.Recipe, toggles map[int]bool, english bool) {
	if len(toggles) == 0 || len(r.Ingredients) == 0 {
		return
	}

	sections := make([]model.IngredientSection, len(r.Ingredients))
	copy(sections, r.Ingredients)

	counter := 0
	for si := range sections {
		list := make([]model.Ingredient, len(sections[si].List))
		copy(list, sections[si].List)
		sections[si].List = list

		for ii, ing := range list {
			fresh, dry := yeastKind(ing.Name)
			if !fresh && !dry {
				continue
			}
			if toggles[counter] {
				list[ii] = convertYeast(ing, fresh, english)
			}
			counter++
		}
	}
	r.Ingredients = sections
}

func convertYeast(ing model.Ingredient, fresh, english bool) model.Ingredient {
	amount, _ := strconv.ParseFloat(strings.ReplaceAll(ing.Amount, ",", "."), 64)
	out := ing

	if fresh {
		out.Name = "Trockenhefe"
		if english {
			out.Name = "Dry yeast"
		}
		switch {
		case ing.Unit == unitPinch:
			out.Unit = unitPinch
		case ing.Unit == unitGram && amount == 1:
			out.Amount = "1"
			out.Unit = unitPinch
		default:
			out.Amount = formatAmount(amount / 3)
			out.Unit = unitGram
		}
		return out
	}

	out.Name = "Frischhefe"
	if english {
		out.Name = "Fresh yeast"
	}
	if ing.Unit == unitPinch {
		out.Amount = "1"
	} else {
		out.Amount = formatAmount(amount * 3)
	}
	out.Unit = unitGram
	return out
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
