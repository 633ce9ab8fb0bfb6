package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/titanic-linkage/internal/model"
)

func sampleRows() []model.Reconciled {
	bio := "Owen Harris Braund was born in Bridgerule, Devon."
	return []model.Reconciled{
		{
			PassengerID:  1,
			Name:         "Braund, Mr. Owen Harris",
			Surname:      "braund",
			GivenName:    "owen",
			Title:        "mr",
			Sex:          "male",
			Pclass:       3,
			KaggleAge:    model.Float(22),
			CorrectedAge: model.Float(22),
			Ticket:       "A/5 21171",
			Fare:         model.Float(7.25),
			Embarked:     "S",
			SibSp:        model.Int(1),
			Parch:        model.Int(0),
			Survived:     model.Bool(false),
			Biography:    &bio,
			MatchMethod:  model.MethodExactKey,
			MatchScore:   100,
			UniqueKey:    "braund, mr. owen harris_22_S_A/5 21171",
		},
		{
			PassengerID:  696,
			Name:         "Kelly, Mr. James",
			Surname:      "kelly",
			GivenName:    "jame",
			Title:        "mr",
			Sex:          "male",
			Pclass:       3,
			KaggleAge:    model.Float(44),
			CorrectedAge: model.Float(44),
			Ticket:       "363592",
			Fare:         model.Float(8.05),
			UniqueKey:    "kelly, mr. james_44_S_363592",
			Speculation:  true,
			Notes:        "Possible duplicate identity; left for review.",
		},
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciled.csv")
	want := sampleRows()
	require.NoError(t, WriteCSV(path, want))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range want {
		assert.Equal(t, want[i].PassengerID, got[i].PassengerID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Ticket, got[i].Ticket)
		assert.Equal(t, want[i].UniqueKey, got[i].UniqueKey)
		assert.Equal(t, want[i].Speculation, got[i].Speculation)
		assert.Equal(t, want[i].MatchMethod, got[i].MatchMethod)

		require.NotNil(t, got[i].KaggleAge)
		assert.InDelta(t, *want[i].KaggleAge, *got[i].KaggleAge, 1e-9)
		require.NotNil(t, got[i].Fare)
		assert.InDelta(t, *want[i].Fare, *got[i].Fare, 1e-9)
	}

	assert.Nil(t, got[1].Survived, "empty survived stays null")
	assert.Nil(t, got[1].Biography)
	require.NotNil(t, got[0].Biography)
	assert.Equal(t, *want[0].Biography, *got[0].Biography)
}

func TestWriteCSV_NullFieldsStayEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciled.csv")
	require.NoError(t, WriteCSV(path, []model.Reconciled{{PassengerID: 9, Name: "Unknown"}}))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].KaggleAge)
	assert.Nil(t, got[0].Fare)
	assert.Nil(t, got[0].SibSp)
	assert.Nil(t, got[0].Survived)
	assert.Equal(t, model.MatchMethod(""), got[0].MatchMethod)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciled.xlsx")
	require.NoError(t, WriteXLSX(path, sampleRows()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Reconciled", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "passenger_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Braund, Mr. Owen Harris", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "true", sheet.Rows[2].Cells[23].String())
}
