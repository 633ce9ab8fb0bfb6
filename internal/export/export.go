// Package export writes the reconciled dataset to CSV and XLSX and reads
// CSV back for verification.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/titanic-linkage/internal/model"
)

// Header is the flat export column order, shared by CSV and XLSX.
var Header = []string{
	"passenger_id", "name", "surname", "given_name", "title", "sex", "pclass",
	"kaggle_age", "corrected_age", "age_diff",
	"ticket", "fare", "cabin", "embarked", "boat", "home_dest",
	"sibsp", "parch", "survived", "biography",
	"match_method", "match_score", "unique_key", "speculation", "notes",
}

// WriteCSV writes rows to path with the standard header.
func WriteCSV(path string, rows []model.Reconciled) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, r := range rows {
		if err := w.Write(record(r)); err != nil {
			return eris.Wrapf(err, "export: write row %d", r.PassengerID)
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush csv")
}

// WriteXLSX writes rows to a single-sheet workbook at path.
func WriteXLSX(path string, rows []model.Reconciled) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Reconciled")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range Header {
		header.AddCell().Value = name
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range record(r) {
			row.AddCell().Value = v
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// ReadCSV loads a file written by WriteCSV. Used to verify exports
// round-trip.
func ReadCSV(path string) ([]model.Reconciled, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	if len(all) == 0 {
		return nil, eris.Errorf("export: %s has no header", path)
	}
	if len(all[0]) != len(Header) {
		return nil, eris.Errorf("export: %s has %d columns, want %d", path, len(all[0]), len(Header))
	}

	rows := make([]model.Reconciled, 0, len(all)-1)
	for _, rec := range all[1:] {
		rows = append(rows, parseRecord(rec))
	}
	return rows, nil
}

func record(r model.Reconciled) []string {
	return []string{
		strconv.Itoa(r.PassengerID),
		r.Name, r.Surname, r.GivenName, r.Title, r.Sex,
		strconv.Itoa(r.Pclass),
		floatField(r.KaggleAge), floatField(r.CorrectedAge), floatField(r.AgeDiff),
		r.Ticket, floatField(r.Fare), r.Cabin, r.Embarked, r.Boat, r.HomeDest,
		intField(r.SibSp), intField(r.Parch), boolField(r.Survived), strField(r.Biography),
		string(r.MatchMethod),
		strconv.FormatFloat(r.MatchScore, 'f', -1, 64),
		r.UniqueKey,
		strconv.FormatBool(r.Speculation),
		r.Notes,
	}
}

func parseRecord(rec []string) model.Reconciled {
	r := model.Reconciled{
		Name: rec[1], Surname: rec[2], GivenName: rec[3], Title: rec[4], Sex: rec[5],
		Ticket: rec[10], Cabin: rec[12], Embarked: rec[13], Boat: rec[14], HomeDest: rec[15],
		MatchMethod: model.MatchMethod(rec[20]),
		UniqueKey:   rec[22],
		Notes:       rec[24],
	}
	r.PassengerID, _ = strconv.Atoi(rec[0])
	r.Pclass, _ = strconv.Atoi(rec[6])
	r.KaggleAge = parseFloat(rec[7])
	r.CorrectedAge = parseFloat(rec[8])
	r.AgeDiff = parseFloat(rec[9])
	r.Fare = parseFloat(rec[11])
	r.SibSp = parseInt(rec[16])
	r.Parch = parseInt(rec[17])
	if rec[18] != "" {
		r.Survived = model.Bool(rec[18] == "true")
	}
	if rec[19] != "" {
		r.Biography = &rec[19]
	}
	r.MatchScore, _ = strconv.ParseFloat(rec[21], 64)
	r.Speculation = rec[23] == "true"
	return r
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func boolField(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func strField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return model.Float(v)
}

func parseInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return model.Int(v)
}
