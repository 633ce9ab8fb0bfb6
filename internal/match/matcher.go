// Package match joins passenger records across sources: an exact
// equality join on blocking keys first, then a fuzzy name-similarity
// fallback for records no key could place.
package match

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/normalize"
)

// TiePolicy resolves exact-phase key collisions where several right
// records share one blocking key.
type TiePolicy string

// Tie policies.
const (
	// TieFirst deterministically selects the candidate with the lowest
	// source ID.
	TieFirst TiePolicy = "first"
	// TieReview selects nothing and flags all tied candidates for
	// manual review.
	TieReview TiePolicy = "review"
)

// DefaultThreshold is the minimum fuzzy score a candidate must exceed
// to be accepted.
const DefaultThreshold = 80.0

// Config controls matcher behavior.
type Config struct {
	Threshold float64
	Tie       TiePolicy
	Scorer    Scorer
}

// Matcher pairs left-side records against a right-side record set.
type Matcher struct {
	cfg Config
}

// New creates a Matcher, applying defaults for unset config fields.
func New(cfg Config) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Tie == "" {
		cfg.Tie = TieReview
	}
	if cfg.Scorer == nil {
		cfg.Scorer = LevenshteinScorer{}
	}
	return &Matcher{cfg: cfg}
}

// Result holds all candidates plus the selected best match per left
// record. Left records with no acceptable candidate are absent from
// Best.
type Result struct {
	Candidates []model.Candidate
	Best       map[string]string // left source ID -> right source ID
	Ambiguous  []string          // left source IDs with unresolved exact ties
}

// Match runs both phases over every left record. Output is
// deterministic for identical inputs and threshold: candidate
// evaluation never depends on iteration order, only tie-break logging
// does.
func (m *Matcher) Match(left, right []model.Passenger) Result {
	log := zap.L().With(zap.String("component", "matcher"))

	byKey := make(map[string][]*model.Passenger, len(right))
	for i := range right {
		r := &right[i]
		byKey[r.BlockingKey] = append(byKey[r.BlockingKey], r)
	}
	cleanedRight := make([]string, len(right))
	for i := range right {
		cleanedRight[i] = normalize.CleanName(right[i].FullName)
	}

	res := Result{Best: make(map[string]string)}
	var exact, fuzzy, ambiguous, unmatched int

	for i := range left {
		l := &left[i]

		if sharers := byKey[l.BlockingKey]; len(sharers) > 0 {
			n := m.exactPhase(l, sharers, &res)
			if n == 1 || m.cfg.Tie == TieFirst {
				exact++
			} else {
				ambiguous++
			}
			continue
		}

		if m.fuzzyPhase(l, right, cleanedRight, &res) {
			fuzzy++
		} else {
			unmatched++
		}
	}

	log.Info("matching complete",
		zap.Int("left", len(left)),
		zap.Int("exact", exact),
		zap.Int("fuzzy", fuzzy),
		zap.Int("ambiguous", ambiguous),
		zap.Int("unmatched", unmatched),
	)
	return res
}

// exactPhase records candidates for every right record sharing the
// left record's blocking key and applies the tie policy when there is
// more than one. Returns the sharer count.
func (m *Matcher) exactPhase(l *model.Passenger, sharers []*model.Passenger, res *Result) int {
	if len(sharers) == 1 {
		res.Candidates = append(res.Candidates, model.Candidate{
			ID:       uuid.New().String(),
			LeftID:   l.SourceID,
			RightID:  sharers[0].SourceID,
			Method:   model.MethodExactKey,
			Score:    100,
			Selected: true,
		})
		res.Best[l.SourceID] = sharers[0].SourceID
		return 1
	}

	ids := make([]string, len(sharers))
	for i, s := range sharers {
		ids[i] = s.SourceID
	}
	sort.Strings(ids)

	selected := ""
	if m.cfg.Tie == TieFirst {
		selected = ids[0]
		res.Best[l.SourceID] = selected
	} else {
		res.Ambiguous = append(res.Ambiguous, l.SourceID)
		zap.L().Warn("exact-key tie left for review",
			zap.String("left_id", l.SourceID),
			zap.String("key", l.BlockingKey),
			zap.Strings("right_ids", ids),
		)
	}

	for _, id := range ids {
		res.Candidates = append(res.Candidates, model.Candidate{
			ID:        uuid.New().String(),
			LeftID:    l.SourceID,
			RightID:   id,
			Method:    model.MethodExactKey,
			Score:     100,
			Selected:  id == selected && selected != "",
			Ambiguous: selected == "",
		})
	}
	return len(sharers)
}

// fuzzyPhase scores the left record's cleaned name against every right
// record and accepts the single best candidate only when its score
// exceeds the threshold. Ties on score break toward the lowest source
// ID so the outcome does not depend on input ordering.
func (m *Matcher) fuzzyPhase(l *model.Passenger, right []model.Passenger, cleanedRight []string, res *Result) bool {
	name := normalize.CleanName(l.FullName)

	bestScore := -1.0
	bestIdx := -1
	for i := range right {
		score := m.cfg.Scorer.Score(name, cleanedRight[i])
		if score > bestScore || (score == bestScore && bestIdx >= 0 && right[i].SourceID < right[bestIdx].SourceID) {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore <= m.cfg.Threshold {
		return false
	}

	res.Candidates = append(res.Candidates, model.Candidate{
		ID:       uuid.New().String(),
		LeftID:   l.SourceID,
		RightID:  right[bestIdx].SourceID,
		Method:   model.MethodFuzzyName,
		Score:    bestScore,
		Selected: true,
	})
	res.Best[l.SourceID] = right[bestIdx].SourceID
	return true
}
