package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxTitleLength = 80

var ErrInvalidDrink = errors.New("invalid drink")

type Ingredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

type Recipe []Ingredient

type Drink struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Recipe Recipe `json:"recipe"`
}

// ShortIngredient is the public view of an ingredient: it never exposes the name.
type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

type ShortDrink struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

type LongDrink struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Recipe []Ingredient `json:"recipe"`
}

func (d Drink) Short() ShortDrink {
	recipe := make([]ShortIngredient, 0, len(d.Recipe))
	for _, ingredient := range d.Recipe {
		recipe = append(recipe, ShortIngredient{Color: ingredient.Color, Parts: ingredient.Parts})
	}
	return ShortDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

func (d Drink) Long() LongDrink {
	recipe := make([]Ingredient, 0, len(d.Recipe))
	recipe = append(recipe, d.Recipe...)
	return LongDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

func (d Drink) Validate() error {
	if err := ValidateTitle(d.Title); err != nil {
		return err
	}
	return d.Recipe.Validate()
}

func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDrink)
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidDrink, MaxTitleLength)
	}
	return nil
}

func (r Recipe) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("%w: recipe needs at least one ingredient", ErrInvalidDrink)
	}
	for i, ingredient := range r {
		if strings.TrimSpace(ingredient.Name) == "" {
			return fmt.Errorf("%w: ingredient %d: name is required", ErrInvalidDrink, i)
		}
		if strings.TrimSpace(ingredient.Color) == "" {
			return fmt.Errorf("%w: ingredient %d: color is required", ErrInvalidDrink, i)
		}
		if ingredient.Parts < 1 {
			return fmt.Errorf("%w: ingredient %d: parts must be at least 1", ErrInvalidDrink, i)
		}
	}
	return nil
}

// Clone returns a recipe that shares no backing array with r.
func (r Recipe) Clone() Recipe {
	if r == nil {
		return nil
	}
	return append(Recipe(nil), r...)
}

// DrinkPatch replaces only the fields that are set.
type DrinkPatch struct {
	Title  *string
	Recipe *Recipe
}

func (p DrinkPatch) Empty() bool {
	return p.Title == nil && p.Recipe == nil
}

func (p DrinkPatch) Validate() error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Recipe != nil {
		if err := p.Recipe.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p DrinkPatch) Apply(d Drink) Drink {
	out := Drink{ID: d.ID, Title: d.Title, Recipe: d.Recipe.Clone()}
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Recipe != nil {
		out.Recipe = p.Recipe.Clone()
	}
	return out
}

// SampleDrink is the row seeded when the store is reset.
func SampleDrink() Drink {
	return Drink{
		Title:  "water",
		Recipe: Recipe{{Name: "water", Color: "blue", Parts: 1}},
	}
}
