package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Promotion categories.
const (
	PromotionCategoryPlay  = "연극"
	PromotionCategoryOther = "기타"
)

// PromotionKind describes promotion listings.
var PromotionKind = Kind{
	Name:         "promotion",
	Plural:       "promotions",
	NumberField:  "promotion_number",
	BulkField:    "promotionNumbers",
	Categories:   []string{PromotionCategoryPlay, PromotionCategoryOther},
	SearchFields: []string{"title", "tag", "play_title"},
}

// Promotion advertises a performance or event.
type Promotion struct {
	Item            `bson:",inline"`
	PromotionNumber int64          `gorm:"uniqueIndex;not null" bson:"promotion_number" json:"promotion_number"`
	ImageURL        pq.StringArray `gorm:"column:image_url;type:text[]" bson:"image_url" json:"image_url"`
	StartDate       time.Time      `gorm:"not null" bson:"start_date" json:"start_date"`
	EndDate         time.Time      `gorm:"not null" bson:"end_date" json:"end_date"`
	PlayTitle       string         `bson:"play_title" json:"play_title,omitempty"`
	Runtime         int            `bson:"runtime" json:"runtime,omitempty"`
	Location        string         `bson:"location" json:"location,omitempty"`
	Host            string         `bson:"host" json:"host,omitempty"`
}

func (*Promotion) Kind() Kind { return PromotionKind }

func (p *Promotion) Number() int64 { return p.PromotionNumber }

func (p *Promotion) SetNumber(n int64) { p.PromotionNumber = n }

type promotionDetails struct {
	ImageURL  *[]string `json:"image_url"`
	StartDate *string   `json:"start_date"`
	EndDate   *string   `json:"end_date"`
	PlayTitle *string   `json:"play_title"`
	Runtime   *int      `json:"runtime"`
	Location  *string   `json:"location"`
	Host      *string   `json:"host"`
}

// ApplyDetails copies the promotion fields present in body onto p.
func (p *Promotion) ApplyDetails(body []byte) error {
	var d promotionDetails
	if err := json.Unmarshal(body, &d); err != nil {
		return err
	}
	if d.ImageURL != nil {
		p.ImageURL = pq.StringArray(*d.ImageURL)
	}
	if d.StartDate != nil {
		t, err := ParseDate(*d.StartDate)
		if err != nil {
			return fmt.Errorf("start_date: %w", err)
		}
		p.StartDate = t
	}
	if d.EndDate != nil {
		t, err := ParseDate(*d.EndDate)
		if err != nil {
			return fmt.Errorf("end_date: %w", err)
		}
		p.EndDate = t
	}
	if d.PlayTitle != nil {
		p.PlayTitle = *d.PlayTitle
	}
	if d.Runtime != nil {
		p.Runtime = *d.Runtime
	}
	if d.Location != nil {
		p.Location = *d.Location
	}
	if d.Host != nil {
		p.Host = *d.Host
	}
	return nil
}

func (p *Promotion) Details() map[string]any {
	return map[string]any{
		"image_url":  p.ImageURL,
		"start_date": p.StartDate,
		"end_date":   p.EndDate,
		"play_title": p.PlayTitle,
		"runtime":    p.Runtime,
		"location":   p.Location,
		"host":       p.Host,
	}
}

// ParseDate accepts RFC 3339 timestamps and plain calendar dates.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
