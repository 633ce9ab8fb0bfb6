// Package model defines the record types shared by all pipeline stages.
package model

import "time"

// Source identifies which upstream dataset a record came from.
type Source string

// Record sources.
const (
	SourceKaggle       Source = "kaggle"
	SourceEncyclopedia Source = "encyclopedia"
)

// Unknown is the placeholder for name-derived key components that could
// not be extracted. It keeps surname/given_name/title non-empty so they
// can participate in join keys without null branches downstream.
const Unknown = "unk"

// Passenger is one passenger record from a single source. Nullable
// numeric and long-text fields are pointers; string fields use "" for
// absent values, with ExtractionNotes recording what went missing.
type Passenger struct {
	Source   Source `json:"source"`
	SourceID string `json:"source_id"`

	FullName  string `json:"full_name"`
	Surname   string `json:"surname"`
	GivenName string `json:"given_name"`
	Title     string `json:"title"`
	Sex       string `json:"sex"`

	Age     *float64 `json:"age,omitempty"`
	AgeText string   `json:"age_text,omitempty"`
	Pclass  int      `json:"pclass"` // 1, 2, 3, or 0 for unknown

	Ticket   string   `json:"ticket,omitempty"`
	Fare     *float64 `json:"fare,omitempty"`
	FareText string   `json:"fare_text,omitempty"`
	Cabin    string   `json:"cabin,omitempty"`
	Embarked string   `json:"embarked,omitempty"`
	Boat     string   `json:"boat,omitempty"`
	BodyText string   `json:"body_text,omitempty"`

	SibSp *int `json:"sibsp,omitempty"`
	Parch *int `json:"parch,omitempty"`

	Survived *bool `json:"survived,omitempty"` // nil for unlabeled test rows

	HomeDest      string `json:"home_dest,omitempty"`
	Nationality   string `json:"nationality,omitempty"`
	MaritalStatus string `json:"marital_status,omitempty"`
	Occupation    string `json:"occupation,omitempty"`

	Biography *string `json:"biography,omitempty"`
	PhotoURL  string  `json:"photo_url,omitempty"`

	BlockingKey     string `json:"blocking_key"`
	ExtractionNotes string `json:"extraction_notes,omitempty"`
}

// RawPage is one cached scrape result. Immutable once written; the
// existence of a row for a URL is the "already fetched" signal.
type RawPage struct {
	URL       string    `json:"url"`
	RawHTML   string    `json:"raw_html"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
