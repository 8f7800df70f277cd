package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), Profiles, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_MergeAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Merge(ctx, Profiles, "u1", Document{"name": "Ada", "year": 2}))
	require.NoError(t, m.Merge(ctx, Profiles, "u1", Document{"major": "CS"}))

	doc, err := m.Get(ctx, Profiles, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.String("name"))
	assert.Equal(t, "CS", doc.String("major"))
	assert.Equal(t, "u1", doc.String(IDField))

	// Returned documents are copies.
	doc["name"] = "changed"
	again, err := m.Get(ctx, Profiles, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.String("name"))
}

func TestMemory_QueryFiltersAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i, campus := range []string{"north", "south", "north", "north"} {
		_, err := m.Append(ctx, Events, Document{"campusId": campus, "n": i})
		require.NoError(t, err)
	}

	docs, err := m.Query(ctx, Events, []Filter{Eq("campusId", "north")}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	n0, _ := docs[0].Int("n")
	n2, _ := docs[2].Int("n")
	assert.Equal(t, 0, n0)
	assert.Equal(t, 3, n2)

	docs, err = m.Query(ctx, Events, []Filter{Eq("campusId", "north")}, 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = m.Query(ctx, Events, []Filter{Eq("n", 1.0)}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "south", docs[0].String("campusId"))

	docs, err = m.Query(ctx, "empty", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_AppendGeneratesIDs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a, err := m.Append(ctx, Matches, Document{"score": 1})
	require.NoError(t, err)
	b, err := m.Append(ctx, Matches, Document{"score": 2})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, m.Len(Matches))
}

func TestMemory_CancelledContextIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().Get(ctx, Profiles, "x")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMemory_Seed(t *testing.T) {
	seed := `{
		"profiles": {"b": {"uid": "b"}, "a": {"uid": "a"}},
		"events": {"e1": {"title": "Hack night"}}
	}`
	m := NewMemory()
	require.NoError(t, m.Seed(strings.NewReader(seed)))

	docs, err := m.Query(context.Background(), Profiles, nil, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].String("uid"))

	ev, err := m.Get(context.Background(), Events, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Hack night", ev.String("title"))

	require.Error(t, m.Seed(strings.NewReader("not json")))
}

func TestOffline(t *testing.T) {
	ctx := context.Background()
	var s Store = Offline{}
	_, err := s.Get(ctx, Profiles, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.Query(ctx, Profiles, nil, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.Append(ctx, Matches, Document{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Merge(ctx, Profiles, "x", Document{}), ErrUnavailable)
}
