package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// CategoryAll is the catalog pseudo-category meaning "no category filter".
const CategoryAll = "전체"

// CatalogCategories are the search categories, in display order.
var CatalogCategories = []string{CategoryAll, "영양식품", "즉석식품", "곡물가공품", "음료", "유제품", "과자,떡,빵", "면류"}

// RecommendCategories are the categories accepted by the recommendation endpoint.
var RecommendCategories = []string{"건강 보충식", "즉석식품", "곡물가공품", "음료", "유제품", "과자,떡,빵", "면류"}

// CategoryDescriptions are short explanations shown next to search categories.
var CategoryDescriptions = map[string]string{
	"영양식품":   "영양 보충식, 환자식, 노인 맞춤 영양 간식 등 건강 보조 성격의 식품들.",
	"즉석식품":   "간편하게 조리·섭취할 수 있는 죽, 즉석국, 레토르트 식품 등.",
	"곡물가공품":  "곡류 가공품, 오트밀, 현미 등 곡물 기반 가공식품.",
	"음료":     "건강 음료, 곡물 음료, 두유 등 마실 수 있는 형태.",
	"유제품":    "치즈, 우유, 요구르트 등 낙농 기반 제품.",
	"과자,떡,빵": "전통 떡, 빵, 크래커 같은 간식류.",
	"면류":     "국수, 보리국수 같은 면 종류.",
}

// Badges are the hashtag filters the catalog understands.
var Badges = []string{"저당", "저염", "부드러움", "고단백", "고식이섬유", "카페인없음", "간편섭취", "영양보충"}

// IsAllCategory reports whether c means "every category".
func IsAllCategory(c string) bool {
	c = strings.TrimSpace(c)
	return c == "" || c == CategoryAll || strings.EqualFold(c, "all")
}

// Snack is one catalog item as listed by search.
type Snack struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Brand    string   `json:"brand,omitempty"`
	Image    string   `json:"image,omitempty"`
	Category string   `json:"category,omitempty"`
	Badges   []string `json:"badges,omitempty"`
}

type snackWire struct {
	ID            *FlexID  `json:"id"`
	SnackID       *FlexID  `json:"snackId"`
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Manufacturer  string   `json:"manufacturer"`
	Image         string   `json:"image"`
	ImageURL      string   `json:"imageUrl"`
	Category      string   `json:"category"`
	SnackCategory string   `json:"snackCategory"`
	Hashtags      []string `json:"hashtags"`
	Badges        []string `json:"badges"`
}

func (w snackWire) snack() Snack {
	badges := w.Hashtags
	if len(badges) == 0 {
		badges = w.Badges
	}
	return Snack{
		ID:       firstID(w.ID, w.SnackID),
		Name:     w.Name,
		Brand:    firstString(w.Manufacturer, w.Brand),
		Image:    firstString(w.ImageURL, w.Image),
		Category: firstString(w.SnackCategory, w.Category),
		Badges:   badges,
	}
}

// UnmarshalJSON maps id, name, manufacturer, imageUrl, snackCategory and hashtags onto the canonical fields.
func (s *Snack) UnmarshalJSON(b []byte) error {
	var w snackWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = w.snack()
	return nil
}

// Favorite returns the favorites entry for s.
func (s Snack) Favorite() FavoriteItem {
	return FavoriteItem{ID: s.ID, Name: s.Name, Brand: s.Brand, Image: s.Image, Category: s.Category}
}

// SnackPage is one page of search results.
type SnackPage struct {
	Items         []Snack `json:"items"`
	Page          int     `json:"page"`
	TotalPages    int     `json:"totalPages"`
	TotalElements int     `json:"totalElements"`
}

// HasNext reports whether a page after this one exists.
func (p SnackPage) HasNext() bool { return p.Page+1 < p.TotalPages }

// HasPrev reports whether a page before this one exists.
func (p SnackPage) HasPrev() bool { return p.Page > 0 }

// SnackQuery selects one page of the catalog.
type SnackQuery struct {
	Page     int
	Size     int
	Keyword  string
	Category string
	Hashtags []string
}

// Recommendation is a catalog item picked for the user.
type Recommendation struct {
	Snack
	AllergyInfo string `json:"allergyInfo,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// UnmarshalJSON decodes the catalog fields and the recommendation extras.
func (r *Recommendation) UnmarshalJSON(b []byte) error {
	var w struct {
		snackWire
		AllergyInfo string `json:"allergyInfo"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Recommendation{Snack: w.snack(), AllergyInfo: w.AllergyInfo, Reason: w.Reason}
	return nil
}

// FlexString is a text field the backend sometimes sends as a number.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		*f = FlexString(b)
	}
	return nil
}

// Nutrition holds per-serving nutrition facts. Missing values stay nil.
type Nutrition struct {
	EnergyKcal    *float64 `json:"energyKcal,omitempty"`
	ProteinG      *float64 `json:"proteinG,omitempty"`
	FatG          *float64 `json:"fatG,omitempty"`
	CarbohydrateG *float64 `json:"carbohydrateG,omitempty"`
	SugarG        *float64 `json:"sugarG,omitempty"`
	DietaryFiberG *float64 `json:"dietaryFiberG,omitempty"`
	SodiumMg      *float64 `json:"sodiumMg,omitempty"`
	CalciumMg     *float64 `json:"calciumMg,omitempty"`
	PotassiumMg   *float64 `json:"potassiumMg,omitempty"`
	IronMg        *float64 `json:"ironMg,omitempty"`
	VitaminARAEUg *float64 `json:"vitaminARAEUg,omitempty"`
	VitaminCMg    *float64 `json:"vitaminCMg,omitempty"`
	CholesterolMg *float64 `json:"cholesterolMg,omitempty"`
	SaturatedFatG *float64 `json:"saturatedFatG,omitempty"`
	TransFatG     *float64 `json:"transFatG,omitempty"`
}

// NutritionRow is one labelled line of a nutrition table.
type NutritionRow struct {
	Label string
	Value float64
}

// String formats the value without trailing zeros.
func (r NutritionRow) String() string {
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// Rows lists the present facts in label order, skipping missing ones.
func (n Nutrition) Rows() []NutritionRow {
	all := []struct {
		label string
		v     *float64
	}{
		{"에너지(kcal)", n.EnergyKcal},
		{"단백질(g)", n.ProteinG},
		{"지방(g)", n.FatG},
		{"탄수화물(g)", n.CarbohydrateG},
		{"당류(g)", n.SugarG},
		{"식이섬유(g)", n.DietaryFiberG},
		{"나트륨(mg)", n.SodiumMg},
		{"칼슘(mg)", n.CalciumMg},
		{"칼륨(mg)", n.PotassiumMg},
		{"철(mg)", n.IronMg},
		{"비타민A(µg RAE)", n.VitaminARAEUg},
		{"비타민C(mg)", n.VitaminCMg},
		{"콜레스테롤(mg)", n.CholesterolMg},
		{"포화지방(g)", n.SaturatedFatG},
		{"트랜스지방(g)", n.TransFatG},
	}

	rows := make([]NutritionRow, 0, len(all))
	for _, r := range all {
		if r.v != nil {
			rows = append(rows, NutritionRow{Label: r.label, Value: *r.v})
		}
	}
	return rows
}

// SnackDetail is a catalog item with serving and nutrition facts.
type SnackDetail struct {
	Snack
	ServingSize string `json:"servingSize,omitempty"`
	FoodWeight  string `json:"foodWeight,omitempty"`
	FoodCode    string `json:"foodCode,omitempty"`
	Nutrition
}

// UnmarshalJSON decodes the catalog fields alongside serving and nutrition facts.
func (d *SnackDetail) UnmarshalJSON(b []byte) error {
	var w struct {
		snackWire
		ServingSize FlexString `json:"servingSize"`
		FoodWeight  FlexString `json:"foodWeight"`
		FoodCode    FlexString `json:"foodCode"`
		Nutrition
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*d = SnackDetail{
		Snack:       w.snack(),
		ServingSize: string(w.ServingSize),
		FoodWeight:  string(w.FoodWeight),
		FoodCode:    string(w.FoodCode),
		Nutrition:   w.Nutrition,
	}
	return nil
}

// NutritionRows lists the nutrition facts that are present.
func (d SnackDetail) NutritionRows() []NutritionRow {
	return d.Nutrition.Rows()
}
