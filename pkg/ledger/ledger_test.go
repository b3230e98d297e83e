package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndList(t *testing.T) {
	l := New("run-1")

	rec, err := l.Record(KindUser, "00u1", "persistence/create-user", &Reversal{
		Steps: []Call{{Method: "DELETE", Path: "/users/00u1"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "run-1", rec.RunID)
	assert.False(t, rec.CreatedAt.IsZero())

	_, err = l.Record(KindRole, "ra1", "persistence/create-admin-user", nil)
	require.NoError(t, err)

	assert.Len(t, l.List(Filter{}), 2)
	assert.Len(t, l.List(Filter{Kind: KindUser}), 1)
	assert.Len(t, l.List(Filter{Module: "persistence/create-admin-user"}), 1)
	assert.Empty(t, l.List(Filter{Kind: KindZone}))
}

func TestRecordRequiresRemoteID(t *testing.T) {
	l := New("run-1")
	_, err := l.Record(KindUser, "", "persistence/create-user", nil)
	assert.Error(t, err)
	assert.Zero(t, l.Len())
}

func TestMarkReversedIsTerminal(t *testing.T) {
	l := New("run-1")
	rec, err := l.Record(KindUser, "00u1", "persistence/create-user", nil)
	require.NoError(t, err)

	require.NoError(t, l.MarkReversed(rec.ID))
	assert.True(t, rec.Reversed)
	require.NotNil(t, rec.ReversedAt)
	first := *rec.ReversedAt

	// Marking again is a no-op, not an error, and keeps the original time.
	require.NoError(t, l.MarkReversed(rec.ID))
	assert.Equal(t, first, *rec.ReversedAt)

	assert.Empty(t, l.Unreversed(Filter{}))
	assert.Len(t, l.List(Filter{}), 1)

	assert.ErrorIs(t, l.MarkReversed("nope"), ErrUnknownRecord)
}

func TestConcurrentRecordingKeepsEveryArtifact(t *testing.T) {
	l := New("run-1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := l.ForModule(fmt.Sprintf("discovery/mod-%d", n))
			for j := 0; j < 25; j++ {
				_, err := rec.Created(KindUser, fmt.Sprintf("00u-%d-%d", n, j), nil)
				assert.NoError(t, err)
			}
			assert.Len(t, rec.Records(), 25)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 200, l.Len())
}

func TestRecorderAttributesDuplicateModuleRuns(t *testing.T) {
	l := New("run-1")

	first := l.ForModule("persistence/create-user")
	second := l.ForModule("persistence/create-user")

	_, err := first.Created(KindUser, "00u1", nil)
	require.NoError(t, err)
	_, err = second.Created(KindUser, "00u2", nil)
	require.NoError(t, err)
	_, err = first.Created(KindUser, "00u3", nil)
	require.NoError(t, err)

	ids := func(records []*Record) []string {
		out := make([]string, len(records))
		for i, r := range records {
			out[i] = r.RemoteID
		}
		return out
	}

	assert.Equal(t, []string{"00u1", "00u3"}, ids(first.Records()))
	assert.Equal(t, []string{"00u2"}, ids(second.Records()))

	// The shared ledger still sees everything, in creation order.
	assert.Equal(t, []string{"00u1", "00u2", "00u3"}, ids(l.List(Filter{})))
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")

	store, err := OpenFileStore(path)
	require.NoError(t, err)

	l := NewPersistent("run-7", store)
	user, err := l.Record(KindUser, "00u1", "persistence/create-user", &Reversal{
		Description: "deactivate and delete user eve",
		Steps: []Call{
			{Method: "POST", Path: "/users/00u1/lifecycle/deactivate"},
			{Method: "DELETE", Path: "/users/00u1"},
		},
	})
	require.NoError(t, err)
	_, err = l.Record(KindRole, "ra1", "persistence/create-admin-user", nil)
	require.NoError(t, err)
	require.NoError(t, l.MarkReversed(user.ID))
	require.NoError(t, store.Close())

	loaded, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "run-7", loaded.RunID())
	require.Equal(t, 2, loaded.Len())

	records := loaded.List(Filter{})
	assert.Equal(t, "00u1", records[0].RemoteID)
	assert.True(t, records[0].Reversed)
	require.NotNil(t, records[0].Reversal)
	assert.Len(t, records[0].Reversal.Steps, 2)

	unreversed := loaded.Unreversed(Filter{})
	require.Len(t, unreversed, 1)
	assert.Equal(t, KindRole, unreversed[0].Kind)
}

func TestLoadFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json\n"), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}
