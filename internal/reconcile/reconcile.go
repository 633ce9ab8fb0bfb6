// Package reconcile merges matched cross-source record pairs into
// unified rows, keeping provenance for conflicting fields and flagging
// same-identity duplicates instead of fusing them.
package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/normalize"
)

// Reconciler merges Kaggle records with their matched encyclopedia
// records.
type Reconciler struct{}

// New creates a Reconciler.
func New() *Reconciler { return &Reconciler{} }

// Run merges every Kaggle record with its matched encyclopedia record
// (nil match yields a Kaggle-only row), then flags unique-key
// collisions. The output is regenerated from scratch on every run.
func (r *Reconciler) Run(kaggle []model.Passenger, encyclopedia map[string]*model.Passenger, best map[string]string, candidates []model.Candidate) []model.Reconciled {
	scoreByLeft := make(map[string]*model.Candidate, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.Selected {
			scoreByLeft[c.LeftID] = c
		}
	}

	rows := make([]model.Reconciled, 0, len(kaggle))
	for i := range kaggle {
		k := &kaggle[i]
		var ext *model.Passenger
		if rightID, ok := best[k.SourceID]; ok {
			ext = encyclopedia[rightID]
		}
		rows = append(rows, Merge(k, ext, scoreByLeft[k.SourceID]))
	}

	flagged := FlagDuplicates(rows)
	zap.L().Info("reconciliation complete",
		zap.Int("rows", len(rows)),
		zap.Int("speculative", flagged),
	)
	return rows
}

// Merge combines one Kaggle record with its matched encyclopedia
// record. Field rule: prefer the non-empty, non-null value. Ages from
// both sources are always retained under distinct fields, never
// overwritten; their difference is computed for inspection.
func Merge(k *model.Passenger, ext *model.Passenger, cand *model.Candidate) model.Reconciled {
	row := model.Reconciled{
		PassengerID: passengerID(k.SourceID),
		Name:        k.FullName,
		Surname:     k.Surname,
		GivenName:   k.GivenName,
		Title:       k.Title,
		Sex:         k.Sex,
		Pclass:      k.Pclass,
		KaggleAge:   k.Age,
		Ticket:      k.Ticket,
		Fare:        k.Fare,
		Cabin:       k.Cabin,
		Embarked:    k.Embarked,
		SibSp:       k.SibSp,
		Parch:       k.Parch,
		Survived:    k.Survived,
	}

	if cand != nil {
		row.MatchMethod = cand.Method
		row.MatchScore = cand.Score
	}

	if ext != nil {
		row.CorrectedAge = ext.Age
		row.Boat = ext.Boat
		row.Biography = ext.Biography
		row.HomeDest = firstNonEmpty(ext.HomeDest, row.HomeDest)
		row.Ticket = firstNonEmpty(row.Ticket, ext.Ticket)
		row.Cabin = firstNonEmpty(row.Cabin, ext.Cabin)
		row.Embarked = firstNonEmpty(row.Embarked, ext.Embarked)
		if row.Fare == nil {
			row.Fare = ext.Fare
		}
		if row.Survived == nil {
			row.Survived = ext.Survived
		}
		if row.KaggleAge != nil && ext.Age != nil {
			diff := math.Abs(*row.KaggleAge - *ext.Age)
			row.AgeDiff = &diff
			if diff > 0 {
				row.Notes = appendNote(row.Notes, fmt.Sprintf("Age conflict: kaggle=%.1f external=%.1f.", *row.KaggleAge, *ext.Age))
			}
		}
	}

	// Corrected age falls back to the Kaggle age so the unique key is
	// stable for unmatched rows.
	keyAge := row.CorrectedAge
	if keyAge == nil {
		keyAge = row.KaggleAge
	}
	// The boarding component is the embarkation port; home/destination
	// only stands in when the port is unknown.
	row.UniqueKey = UniqueKey(row.Name, keyAge, firstNonEmpty(row.Embarked, row.HomeDest), row.Ticket)
	return row
}

// UniqueKey builds the same-identity detection key from the lowercased
// name, corrected age, boarding point, and ticket.
func UniqueKey(name string, age *float64, boarded, ticket string) string {
	ageStr := "na"
	if age != nil {
		ageStr = strconv.FormatFloat(*age, 'f', -1, 64)
	}
	return strings.Join([]string{strings.ToLower(name), ageStr, boarded, ticket}, "_")
}

// FlagDuplicates marks rows that may describe the same real
// individual: full unique-key collisions, and shared names whose other
// key components disagree (two distinct same-named passengers, like
// the two James Kellys). Colliding rows are all kept — a flagged
// duplicate beats a wrongly fused one. Returns the number of rows
// flagged.
func FlagDuplicates(rows []model.Reconciled) int {
	byKey := make(map[string][]int, len(rows))
	byName := make(map[string][]int, len(rows))
	for i := range rows {
		byKey[rows[i].UniqueKey] = append(byKey[rows[i].UniqueKey], i)
		byName[normalize.CleanName(rows[i].Name)] = append(byName[normalize.CleanName(rows[i].Name)], i)
	}

	flagged := 0
	mark := func(i, groupSize int, key string) {
		if rows[i].Speculation {
			return
		}
		rows[i].Speculation = true
		rows[i].Notes = appendNote(rows[i].Notes, "Possible duplicate identity; left for review.")
		flagged++
		zap.L().Warn("duplicate identity flagged",
			zap.String("key", key),
			zap.Int("group_size", groupSize),
		)
	}

	for key, idxs := range byKey {
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			mark(i, len(idxs), key)
		}
	}
	for name, idxs := range byName {
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			mark(i, len(idxs), name)
		}
	}
	return flagged
}

func passengerID(sourceID string) int {
	if i := strings.LastIndex(sourceID, ":"); i >= 0 {
		sourceID = sourceID[i+1:]
	}
	n, err := strconv.Atoi(sourceID)
	if err != nil {
		return 0
	}
	return n
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + " " + note
}
