package domain

import "strings"

// Category is the cuisine classification of a restaurant, stored as its Korean label.
type Category string

const (
	CategoryKorean        Category = "한식"
	CategoryChinese       Category = "중식"
	CategoryJapanese      Category = "일식"
	CategoryWestern       Category = "양식"
	CategorySnack         Category = "분식"
	CategoryCafe          Category = "카페"
	CategoryUncategorized Category = "기타"
)

// Categories lists the enumerated categories in display order.
var Categories = []Category{
	CategoryKorean,
	CategoryChinese,
	CategoryJapanese,
	CategoryWestern,
	CategorySnack,
	CategoryCafe,
}

// categoryAliases maps looser user and dataset spellings onto the enumeration.
var categoryAliases = map[string]Category{
	"korean":   CategoryKorean,
	"chinese":  CategoryChinese,
	"japanese": CategoryJapanese,
	"western":  CategoryWestern,
	"snack":    CategorySnack,
	"cafe":     CategoryCafe,
	"한국음식":     CategoryKorean,
	"중국집":      CategoryChinese,
	"중국음식":     CategoryChinese,
	"일본음식":     CategoryJapanese,
	"초밥":       CategoryJapanese,
	"이탈리안":     CategoryWestern,
	"파스타":      CategoryWestern,
	"떡볶이":      CategorySnack,
	"커피":       CategoryCafe,
	"디저트":      CategoryCafe,
}

// ParseCategory normalizes a label. Unknown or empty labels yield CategoryUncategorized.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if s == string(c) {
			return c
		}
	}
	if c, ok := categoryAliases[strings.ToLower(s)]; ok {
		return c
	}
	return CategoryUncategorized
}

// Known reports whether c is one of the enumerated categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// POI is a single restaurant record. It is created outside this service and read-only here.
type POI struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Category   Category   `json:"category"`
	Coordinate Coordinate `json:"coordinate"`
	Address    string     `json:"address"`
	Score      float64    `json:"score"`
}

// RankedResult pairs a POI with its distance from the search origin.
type RankedResult struct {
	POI        POI     `json:"poi"`
	DistanceKm float64 `json:"distance_km"`
}

// SearchRequest is the per-call input to a nearby search. An empty Category means all.
type SearchRequest struct {
	Origin   *Coordinate
	RadiusKm float64
	Category Category
}
