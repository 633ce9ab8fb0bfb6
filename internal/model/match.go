package model

// MatchMethod describes how a candidate pairing was found.
type MatchMethod string

// Match methods.
const (
	MethodExactKey  MatchMethod = "exact_key"
	MethodFuzzyName MatchMethod = "fuzzy_name"
)

// Candidate is one proposed pairing between a left-side and a
// right-side record. Multiple candidates may exist per left record;
// at most one carries Selected.
type Candidate struct {
	ID       string      `json:"id"`
	LeftID   string      `json:"left_id"`
	RightID  string      `json:"right_id"`
	Method   MatchMethod `json:"method"`
	Score    float64     `json:"score"` // 0-100
	Selected bool        `json:"selected"`

	// Ambiguous marks exact-key ties left for manual review.
	Ambiguous bool `json:"ambiguous"`
}

// Reconciled is one merged output row. The Kaggle-origin age is kept
// beside the externally corrected age; disagreements are never
// overwritten, only measured.
type Reconciled struct {
	PassengerID int    `json:"passenger_id"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	GivenName   string `json:"given_name"`
	Title       string `json:"title"`
	Sex         string `json:"sex"`
	Pclass      int    `json:"pclass"`

	KaggleAge    *float64 `json:"kaggle_age,omitempty"`
	CorrectedAge *float64 `json:"corrected_age,omitempty"`
	AgeDiff      *float64 `json:"age_diff,omitempty"`

	Ticket   string   `json:"ticket,omitempty"`
	Fare     *float64 `json:"fare,omitempty"`
	Cabin    string   `json:"cabin,omitempty"`
	Embarked string   `json:"embarked,omitempty"`
	Boat     string   `json:"boat,omitempty"`
	HomeDest string   `json:"home_dest,omitempty"`

	SibSp *int `json:"sibsp,omitempty"`
	Parch *int `json:"parch,omitempty"`

	Survived  *bool   `json:"survived,omitempty"`
	Biography *string `json:"biography,omitempty"`

	MatchMethod MatchMethod `json:"match_method,omitempty"` // "" when unmatched
	MatchScore  float64     `json:"match_score"`

	// UniqueKey detects same-identity duplicates; colliding rows are
	// both kept and flagged, never fused.
	UniqueKey   string `json:"unique_key"`
	Speculation bool   `json:"speculation"`
	Notes       string `json:"notes,omitempty"`
}
