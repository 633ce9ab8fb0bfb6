package kaggle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/store"
)

type captureStore struct {
	mu   sync.Mutex
	recs []model.Passenger
}

func (c *captureStore) Migrate(ctx context.Context) error { return nil }
func (c *captureStore) Close() error                      { return nil }
func (c *captureStore) GetRawPage(ctx context.Context, url string) (*model.RawPage, error) {
	return nil, nil
}
func (c *captureStore) PutRawPage(ctx context.Context, page model.RawPage) error { return nil }
func (c *captureStore) ListRawPages(ctx context.Context) ([]model.RawPage, error) {
	return nil, nil
}
func (c *captureStore) ReplacePassengers(ctx context.Context, source model.Source, recs []model.Passenger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = recs
	return nil
}
func (c *captureStore) ListPassengers(ctx context.Context, source model.Source) ([]model.Passenger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recs, nil
}
func (c *captureStore) ReplaceCandidates(ctx context.Context, cands []model.Candidate) error {
	return nil
}
func (c *captureStore) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return nil, nil
}
func (c *captureStore) ReplaceReconciled(ctx context.Context, rows []model.Reconciled) error {
	return nil
}
func (c *captureStore) ListReconciled(ctx context.Context) ([]model.Reconciled, error) {
	return nil, nil
}
func (c *captureStore) Counts(ctx context.Context) (*store.Counts, error) {
	return &store.Counts{}, nil
}

const trainCSV = `PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
1,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5 21171,7.25,,S
2,1,1,"Cumings, Mrs. John Bradley (Florence Briggs Thayer)",female,38,1,0,PC 17599,71.2833,C85,C
6,0,3,"Moran, Mr. James",male,,0,0,330877,8.4583,,Q
`

const testCSV = `PassengerId,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
892,3,"Kelly, Mr. James",male,34.5,0,0,330911,7.8292,,Q
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_ImportsTrainAndTest(t *testing.T) {
	st := &captureStore{}
	im := New(st, 0, 0)

	n, err := im.Run(context.Background(), writeFile(t, "train.csv", trainCSV), writeFile(t, "test.csv", testCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, st.recs, 4)

	braund := st.recs[0]
	assert.Equal(t, "kaggle:1", braund.SourceID)
	assert.Equal(t, "Braund, Mr. Owen Harris", braund.FullName)
	assert.Equal(t, 3, braund.Pclass)
	require.NotNil(t, braund.Age)
	assert.InDelta(t, 22.0, *braund.Age, 1e-9)
	require.NotNil(t, braund.Survived)
	assert.False(t, *braund.Survived)
	assert.Equal(t, "3_m_owen_braund_22", braund.BlockingKey)

	moran := st.recs[2]
	assert.Nil(t, moran.Age, "blank age stays null")
	assert.Equal(t, "3_m_jame_moran_-1", moran.BlockingKey)

	kelly := st.recs[3]
	assert.Equal(t, "kaggle:892", kelly.SourceID)
	assert.Nil(t, kelly.Survived, "test rows are unlabeled")
	require.NotNil(t, kelly.Age)
	assert.InDelta(t, 34.5, *kelly.Age, 1e-9)
}

func TestRun_MissingColumnIsFatal(t *testing.T) {
	bad := `PassengerId,Survived,Name,Sex
1,0,"Braund, Mr. Owen Harris",male
`
	st := &captureStore{}
	im := New(st, 0, 0)

	_, err := im.Run(context.Background(), writeFile(t, "train.csv", bad), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing expected columns")
	assert.Contains(t, err.Error(), "Pclass")
	assert.Empty(t, st.recs)
}

func TestRun_TrainRequiresSurvivedColumn(t *testing.T) {
	st := &captureStore{}
	im := New(st, 0, 0)

	_, err := im.Run(context.Background(), writeFile(t, "train.csv", testCSV), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Survived")
}
