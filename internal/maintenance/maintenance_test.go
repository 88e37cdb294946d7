package maintenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnindex/internal/index"
)

// fakeStore is an in-memory IndexStore used so these tests never touch
// chromem-go.
type fakeStore struct {
	records map[string]index.Record
}

func newFakeStore(records ...index.Record) *fakeStore {
	fs := &fakeStore{records: make(map[string]index.Record)}
	for _, r := range records {
		fs.records[r.ID] = r
	}
	return fs
}

func (f *fakeStore) Iterate(ctx context.Context, filter map[string]string, batchSize int, fn func([]index.Record) error) error {
	var batch []index.Record
	for _, r := range f.records {
		batch = append(batch, r)
	}
	return fn(batch)
}

func (f *fakeStore) Get(ctx context.Context, ids []string) ([]index.Record, error) {
	var out []index.Record
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateMetadata(ctx context.Context, ids []string, metadatas []map[string]string) error {
	for i, id := range ids {
		r := f.records[id]
		r.Metadata = metadatas[i]
		f.records[id] = r
	}
	return nil
}

func (f *fakeStore) Count() int {
	return len(f.records)
}

func newMaintainer(t *testing.T, store IndexStore) *Maintainer {
	t.Helper()
	m, err := Open(store, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestScanOutOfRangeFindsClampViolation(t *testing.T) {
	store := newFakeStore(index.Record{
		ID:      "t1",
		Content: "hi",
		Metadata: map[string]string{
			"solution_quality_score": "5.5",
		},
	})
	m := newMaintainer(t, store)

	issues, err := m.Scan(context.Background(), IssueOutOfRange)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "solution_quality_score", issues[0].Field)
	assert.Equal(t, "3", issues[0].Expected)
	assert.True(t, issues[0].Patchable)
}

func TestScanMissingFieldFindsMissingContentHash(t *testing.T) {
	store := newFakeStore(index.Record{
		ID:       "t1",
		Content:  "hello world",
		Metadata: map[string]string{},
	})
	m := newMaintainer(t, store)

	issues, err := m.Scan(context.Background(), IssueMissingField)
	require.NoError(t, err)

	var gotHash, gotBoost bool
	for _, iss := range issues {
		if iss.Field == "content_hash" {
			gotHash = true
		}
		if iss.Field == "realtime_learning_boost" {
			gotBoost = true
		}
	}
	assert.True(t, gotHash)
	assert.True(t, gotBoost)
}

func TestScanMissingChainLinkFlagsUnpairedSolution(t *testing.T) {
	store := newFakeStore(index.Record{
		ID:      "t1",
		Content: "fixed it",
		Metadata: map[string]string{
			"role":                "assistant",
			"is_solution_attempt": "true",
		},
	})
	m := newMaintainer(t, store)

	issues, err := m.Scan(context.Background(), IssueMissingChainLink)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.False(t, issues[0].Patchable)
}

func TestApplyPatchesMetadataAndSkipsUnderDryRun(t *testing.T) {
	store := newFakeStore(index.Record{
		ID:      "t1",
		Content: "hi",
		Metadata: map[string]string{
			"solution_quality_score": "5.5",
			"role":                   "assistant",
		},
	})
	m := newMaintainer(t, store)

	issues, err := m.Scan(context.Background(), IssueOutOfRange)
	require.NoError(t, err)

	n, err := m.Apply(context.Background(), issues, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "5.5", store.records["t1"].Metadata["solution_quality_score"])

	n, err = m.Apply(context.Background(), issues, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "3", store.records["t1"].Metadata["solution_quality_score"])
	assert.Equal(t, "assistant", store.records["t1"].Metadata["role"])
}

func TestSnapshotAndRollbackRestoresMetadata(t *testing.T) {
	store := newFakeStore(index.Record{
		ID:      "t1",
		Content: "hi",
		Metadata: map[string]string{"solution_quality_score": "1.5"},
	})
	m := newMaintainer(t, store)

	handle, err := m.Snapshot(context.Background(), []string{"t1"})
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	require.NoError(t, store.UpdateMetadata(context.Background(), []string{"t1"}, []map[string]string{
		{"solution_quality_score": "2.9"},
	}))
	assert.Equal(t, "2.9", store.records["t1"].Metadata["solution_quality_score"])

	require.NoError(t, m.Rollback(context.Background(), handle))
	assert.Equal(t, "1.5", store.records["t1"].Metadata["solution_quality_score"])
}

func TestRollbackUnknownHandleErrors(t *testing.T) {
	m := newMaintainer(t, newFakeStore())
	err := m.Rollback(context.Background(), "no-such-handle")
	assert.Error(t, err)
}

func TestHealthReportComputesPopulationAndViolationRates(t *testing.T) {
	store := newFakeStore(
		index.Record{ID: "t1", Content: "a", Metadata: map[string]string{
			"solution_quality_score": "1.5", "primary_topic": "debugging",
		}},
		index.Record{ID: "t2", Content: "b", Metadata: map[string]string{
			"solution_quality_score": "9.0",
		}},
	)
	m := newMaintainer(t, store)

	report, err := m.HealthReport(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.SampledRecords)
	assert.Equal(t, 2, report.TotalRecords)
	assert.GreaterOrEqual(t, report.CompositeScore, 0.0)
	assert.LessOrEqual(t, report.CompositeScore, 1.0)

	var qualityField FieldHealth
	for _, f := range report.Fields {
		if f.Field == "solution_quality_score" {
			qualityField = f
		}
	}
	assert.Equal(t, 1.0, qualityField.PopulationRate)
	assert.InDelta(t, 0.5, qualityField.RangeViolationRate, 0.001)
}
