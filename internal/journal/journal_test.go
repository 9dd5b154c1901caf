package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_AppliesPragmasAndSchema(t *testing.T) {
	j := openTestJournal(t)

	var mode string
	require.NoError(t, j.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, j.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	version, err := j.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j1, err := Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, j1.RegisterFeature(ctx, FeatureRecord{ID: "f-1", Name: "Feature[Initialized]"}))
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	features, err := j2.ListFeatures(ctx)
	require.NoError(t, err)
	assert.Len(t, features, 1)
}

func TestWriteTransition_IdempotentAndOrdered(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.RegisterFeature(ctx, FeatureRecord{ID: "f-1", Name: "Feature[Initialized]"}))

	for _, seq := range []int64{2, 0, 1} {
		require.NoError(t, j.WriteTransition(ctx, Transition{
			FeatureID: "f-1",
			Seq:       seq,
			Cause:     "Load",
			State:     "Loading",
			Payload:   json.RawMessage(`{"state":"Loading"}`),
		}))
	}
	require.NoError(t, j.WriteTransition(ctx, Transition{
		FeatureID: "f-1", Seq: 1, Cause: "Data", State: "Success",
	}), "duplicate seq is ignored")

	got, err := j.ReadTransitions(ctx, "f-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{0, 1, 2}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
	assert.Equal(t, "Loading", got[1].State, "first write wins")
	assert.JSONEq(t, `{"state":"Loading"}`, string(got[1].Payload))
}

func TestWriteTransition_RequiresRegisteredFeature(t *testing.T) {
	j := openTestJournal(t)

	err := j.WriteTransition(context.Background(), Transition{FeatureID: "ghost", Seq: 0, State: "Initialized"})
	assert.Error(t, err)
}

func TestWriteTransition_RejectsInvalidPayload(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.RegisterFeature(ctx, FeatureRecord{ID: "f-1", Name: "x"}))

	err := j.WriteTransition(ctx, Transition{FeatureID: "f-1", Payload: json.RawMessage(`{`)})
	assert.Error(t, err)
}

func TestReadTransitions_Empty(t *testing.T) {
	j := openTestJournal(t)

	got, err := j.ReadTransitions(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListFeatures_CountsTransitions(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.RegisterFeature(ctx, FeatureRecord{ID: "b", Name: "Feature[B]"}))
	require.NoError(t, j.RegisterFeature(ctx, FeatureRecord{ID: "a", Name: "Feature[A]"}))
	require.NoError(t, j.RegisterFeature(ctx, FeatureRecord{ID: "a", Name: "renamed"}))
	require.NoError(t, j.WriteTransition(ctx, Transition{FeatureID: "b", Seq: 0, State: "Initialized"}))
	require.NoError(t, j.WriteTransition(ctx, Transition{FeatureID: "b", Seq: 1, State: "Loading"}))

	features, err := j.ListFeatures(ctx)
	require.NoError(t, err)
	assert.Equal(t, []FeatureRecord{
		{ID: "a", Name: "Feature[A]", Transitions: 0},
		{ID: "b", Name: "Feature[B]", Transitions: 2},
	}, features)
}
