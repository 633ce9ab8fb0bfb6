// Package kaggle loads the competition train/test CSVs into the kaggle
// passenger table.
package kaggle

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/titanic-linkage/internal/fetcher"
	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/normalize"
	"github.com/sells-group/titanic-linkage/internal/store"
)

// requiredColumns must all be present in every input file. Survived is
// additionally required in the labeled (train) file.
var requiredColumns = []string{
	"PassengerId", "Pclass", "Name", "Sex", "Age",
	"SibSp", "Parch", "Ticket", "Fare", "Cabin", "Embarked",
}

// Importer reads the Kaggle CSVs and replaces the kaggle passenger table.
type Importer struct {
	store        store.Store
	givenNameLen int
	surnameLen   int
}

// New creates an Importer. Zero name lengths fall back to the defaults.
func New(st store.Store, givenNameLen, surnameLen int) *Importer {
	if givenNameLen <= 0 {
		givenNameLen = normalize.DefaultGivenNameLen
	}
	if surnameLen <= 0 {
		surnameLen = normalize.DefaultSurnameLen
	}
	return &Importer{store: st, givenNameLen: givenNameLen, surnameLen: surnameLen}
}

// Run imports both files and replaces the table in one shot. Test rows
// get a nil Survived since the competition withholds their labels. A
// missing expected column is fatal; a malformed field value is not.
func (im *Importer) Run(ctx context.Context, trainPath, testPath string) (int, error) {
	var recs []model.Passenger
	for _, in := range []struct {
		path    string
		labeled bool
	}{
		{trainPath, true},
		{testPath, false},
	} {
		if in.path == "" {
			continue
		}
		fileRecs, err := im.loadFile(ctx, in.path, in.labeled)
		if err != nil {
			return 0, err
		}
		recs = append(recs, fileRecs...)
	}

	if err := im.store.ReplacePassengers(ctx, model.SourceKaggle, recs); err != nil {
		return 0, err
	}
	zap.L().Info("kaggle import complete", zap.Int("records", len(recs)))
	return len(recs), nil
}

func (im *Importer) loadFile(ctx context.Context, path string, labeled bool) ([]model.Passenger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "kaggle: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	// Cancel the stream on early return so the reader goroutine exits.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var recs []model.Passenger
	var col map[string]int
	for row := range rows {
		if col == nil {
			col, err = columnIndex(<-headerCh, labeled)
			if err != nil {
				return nil, eris.Wrapf(err, "kaggle: %s", path)
			}
		}
		recs = append(recs, im.parseRow(row, col, labeled))
	}
	if err := <-errs; err != nil {
		return nil, eris.Wrapf(err, "kaggle: read %s", path)
	}

	// Empty file or header-only file still needs the schema check.
	if col == nil {
		select {
		case header := <-headerCh:
			if _, err := columnIndex(header, labeled); err != nil {
				return nil, eris.Wrapf(err, "kaggle: %s", path)
			}
		default:
			return nil, eris.Errorf("kaggle: %s is empty", path)
		}
	}

	return recs, nil
}

// columnIndex validates the header against the expected schema and maps
// column names to positions.
func columnIndex(header []string, labeled bool) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	required := requiredColumns
	if labeled {
		required = append([]string{"Survived"}, required...)
	}
	var missing []string
	for _, name := range required {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("missing expected columns: %s", strings.Join(missing, ", "))
	}
	return col, nil
}

func (im *Importer) parseRow(row []string, col map[string]int, labeled bool) model.Passenger {
	field := func(name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	p := model.Passenger{
		Source:   model.SourceKaggle,
		SourceID: string(model.SourceKaggle) + ":" + field("PassengerId"),
		FullName: field("Name"),
		Sex:      strings.ToLower(field("Sex")),
		AgeText:  field("Age"),
		Ticket:   field("Ticket"),
		FareText: field("Fare"),
		Cabin:    field("Cabin"),
		Embarked: field("Embarked"),
	}

	if v, err := strconv.Atoi(field("Pclass")); err == nil {
		p.Pclass = v
	}
	if v, err := strconv.ParseFloat(field("Age"), 64); err == nil {
		p.Age = model.Float(v)
	}
	if v, err := strconv.ParseFloat(field("Fare"), 64); err == nil {
		p.Fare = model.Float(v)
	}
	if v, err := strconv.Atoi(field("SibSp")); err == nil {
		p.SibSp = model.Int(v)
	}
	if v, err := strconv.Atoi(field("Parch")); err == nil {
		p.Parch = model.Int(v)
	}
	if labeled {
		if v, err := strconv.Atoi(field("Survived")); err == nil {
			p.Survived = model.Bool(v == 1)
		}
	}

	normalize.DeriveKeyFields(&p, im.givenNameLen, im.surnameLen)
	return p
}
