package models

type Style struct {
	StyleID               string   `json:"style_id" yaml:"id"`
	Name                  string   `json:"name" yaml:"name" validate:"required"`
	Category              string   `json:"category" yaml:"category" validate:"required,style_category"`
	Description           string   `json:"description" yaml:"description"`
	PriceRange            string   `json:"price_range" yaml:"price_range"`
	BasePrice             float64  `json:"base_price" yaml:"base_price" validate:"gte=0"`
	DurationMinutes       int      `json:"duration_minutes" yaml:"duration_minutes" validate:"gt=0"`
	Images                []string `json:"images" yaml:"images"`
	Featured              bool     `json:"featured" yaml:"featured"`
	Trending              bool     `json:"trending" yaml:"trending"`
	Hidden                bool     `json:"hidden" yaml:"hidden"`
	RecommendedExtensions string   `json:"recommended_extensions" yaml:"recommended_extensions"`
}

var StyleCategories = []string{
	"Knotless",
	"Box Braids",
	"Cornrows",
	"Twists",
	"Lemonade Braids",
	"Fulani/Tribal",
	"Faux Locs",
	"Boho Braids",
}

func IsStyleCategory(value string) bool {
	for _, category := range StyleCategories {
		if category == value {
			return true
		}
	}
	return false
}

type StylePatch struct {
	Name                  *string   `json:"name,omitempty"`
	Category              *string   `json:"category,omitempty"`
	Description           *string   `json:"description,omitempty"`
	PriceRange            *string   `json:"price_range,omitempty"`
	BasePrice             *float64  `json:"base_price,omitempty"`
	DurationMinutes       *int      `json:"duration_minutes,omitempty"`
	Images                *[]string `json:"images,omitempty"`
	Featured              *bool     `json:"featured,omitempty"`
	Trending              *bool     `json:"trending,omitempty"`
	Hidden                *bool     `json:"hidden,omitempty"`
	RecommendedExtensions *string   `json:"recommended_extensions,omitempty"`
}

// Apply returns a copy of s with every non-nil field of p written over it.
func (p StylePatch) Apply(s Style) Style {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.PriceRange != nil {
		s.PriceRange = *p.PriceRange
	}
	if p.BasePrice != nil {
		s.BasePrice = *p.BasePrice
	}
	if p.DurationMinutes != nil {
		s.DurationMinutes = *p.DurationMinutes
	}
	if p.Images != nil {
		s.Images = append([]string(nil), (*p.Images)...)
	}
	if p.Featured != nil {
		s.Featured = *p.Featured
	}
	if p.Trending != nil {
		s.Trending = *p.Trending
	}
	if p.Hidden != nil {
		s.Hidden = *p.Hidden
	}
	if p.RecommendedExtensions != nil {
		s.RecommendedExtensions = *p.RecommendedExtensions
	}
	return s
}
