package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/normalize"
)

func passenger(id, name, sex string, pclass int, age float64) model.Passenger {
	p := model.Passenger{
		SourceID: id,
		FullName: name,
		Sex:      sex,
		Pclass:   pclass,
		Age:      model.Float(age),
	}
	normalize.DeriveKeyFields(&p, normalize.DefaultGivenNameLen, normalize.DefaultSurnameLen)
	return p
}

func TestMatch_ExactKey(t *testing.T) {
	left := []model.Passenger{passenger("k:1", "Braund, Mr. Owen Harris", "male", 3, 22)}
	right := []model.Passenger{passenger("e:braund", "Braund, Mr. Owen Harris", "male", 3, 22)}

	res := New(Config{}).Match(left, right)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, model.MethodExactKey, res.Candidates[0].Method)
	assert.Equal(t, 100.0, res.Candidates[0].Score)
	assert.True(t, res.Candidates[0].Selected)
	assert.Equal(t, "e:braund", res.Best["k:1"])
}

// A scorer that rates everything a perfect match. If the fuzzy phase
// ran for a record that has an exact-key candidate, this would win and
// the assertion on method would fail.
type alwaysPerfect struct{}

func (alwaysPerfect) Score(_, _ string) float64 { return 100 }

func TestMatch_ExactBeatsFuzzy(t *testing.T) {
	left := []model.Passenger{passenger("k:1", "Braund, Mr. Owen Harris", "male", 3, 22)}
	right := []model.Passenger{
		passenger("e:braund", "Braund, Mr. Owen Harris", "male", 3, 22),
		passenger("e:other", "Brand, Mr. Owen Harry", "male", 3, 22),
	}
	res := New(Config{Scorer: alwaysPerfect{}, Tie: TieFirst}).Match(left, right)
	require.Contains(t, res.Best, "k:1")
	assert.Equal(t, "e:braund", res.Best["k:1"])
	for _, c := range res.Candidates {
		assert.Equal(t, model.MethodExactKey, c.Method)
	}
}

type fixedScorer struct{ score float64 }

func (f fixedScorer) Score(_, _ string) float64 { return f.score }

func TestMatch_FuzzyBelowThresholdRejected(t *testing.T) {
	left := []model.Passenger{passenger("k:1", "Braund, Mr. Owen Harris", "male", 3, 22)}
	right := []model.Passenger{passenger("e:x", "Completely Different, Mr. Name", "male", 1, 60)}

	res := New(Config{Threshold: 80, Scorer: fixedScorer{score: 79}}).Match(left, right)
	assert.Empty(t, res.Best)
	assert.Empty(t, res.Candidates)
}

func TestMatch_FuzzyAtThresholdRejected(t *testing.T) {
	left := []model.Passenger{passenger("k:1", "Braund, Mr. Owen Harris", "male", 3, 22)}
	right := []model.Passenger{passenger("e:x", "Nobody, Mr. Else", "male", 1, 60)}

	res := New(Config{Threshold: 80, Scorer: fixedScorer{score: 80}}).Match(left, right)
	assert.Empty(t, res.Best)
}

func TestMatch_FuzzyAboveThresholdAccepted(t *testing.T) {
	// Slight spelling difference plus an age mismatch: the blocking
	// keys differ, so only the fuzzy phase can pair these.
	left := []model.Passenger{passenger("k:1", "Andersson, Miss. Erna Alexandra", "female", 3, 17)}
	right := []model.Passenger{
		passenger("e:and", "Andersson, Miss. Erna Alexandra", "female", 3, 16),
		passenger("e:far", "Farthing, Mr. John", "male", 1, 60),
	}

	res := New(Config{}).Match(left, right)
	require.Contains(t, res.Best, "k:1")
	assert.Equal(t, "e:and", res.Best["k:1"])
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, model.MethodFuzzyName, res.Candidates[0].Method)
	assert.Greater(t, res.Candidates[0].Score, 80.0)
}

func TestMatch_TieReviewSelectsNothing(t *testing.T) {
	left := []model.Passenger{passenger("k:1", "Kelly, Mr. James", "male", 3, 34)}
	right := []model.Passenger{
		passenger("e:kelly2", "Kelly, Mr. James", "male", 3, 34),
		passenger("e:kelly1", "Kelly, Mr. James", "male", 3, 34),
	}

	res := New(Config{Tie: TieReview}).Match(left, right)
	assert.Empty(t, res.Best)
	assert.Equal(t, []string{"k:1"}, res.Ambiguous)
	require.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		assert.True(t, c.Ambiguous)
		assert.False(t, c.Selected)
	}
}

func TestMatch_TieFirstIsDeterministic(t *testing.T) {
	left := []model.Passenger{passenger("k:1", "Kelly, Mr. James", "male", 3, 34)}
	right := []model.Passenger{
		passenger("e:kelly2", "Kelly, Mr. James", "male", 3, 34),
		passenger("e:kelly1", "Kelly, Mr. James", "male", 3, 34),
	}

	res := New(Config{Tie: TieFirst}).Match(left, right)
	assert.Equal(t, "e:kelly1", res.Best["k:1"])

	// Reversed right-side order must select the same record.
	right[0], right[1] = right[1], right[0]
	res = New(Config{Tie: TieFirst}).Match(left, right)
	assert.Equal(t, "e:kelly1", res.Best["k:1"])
}

func TestLevenshteinScorer_Bounds(t *testing.T) {
	s := LevenshteinScorer{}
	assert.Equal(t, 100.0, s.Score("kelly, james", "kelly, james"))
	assert.Less(t, s.Score("kelly, james", "zzzzzz"), 30.0)
}
