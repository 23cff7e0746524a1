package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_LatestWins(t *testing.T) {
	f := NewFeed(nil)
	defer f.Close()

	f.Publish(Snapshot{Records: []Record{{ID: "1"}}})
	f.Publish(Snapshot{Records: []Record{{ID: "2"}}})

	got := <-f.Snapshots()
	require.Len(t, got.Records, 1)
	assert.Equal(t, "2", got.Records[0].ID)

	select {
	case s := <-f.Snapshots():
		t.Fatalf("unexpected extra snapshot %+v", s)
	default:
	}
}

func TestFeed_CloseIdempotentAndCallsHook(t *testing.T) {
	calls := 0
	f := NewFeed(func() { calls++ })

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Equal(t, 1, calls)

	f.Publish(Snapshot{})
	_, ok := <-f.Snapshots()
	assert.False(t, ok, "channel must be closed")

	select {
	case <-f.Done():
	default:
		t.Fatal("Done must be closed")
	}
}

type sample struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Owner *string `json:"owner"`
}

func TestEncodeDecode(t *testing.T) {
	owner := "u1"
	fields, err := Encode(sample{Name: "a", Count: 3, Owner: &owner})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "a", "count": float64(3), "owner": "u1"}, fields)

	var back sample
	require.NoError(t, Decode(Record{ID: "x", Fields: fields}, &back))
	assert.Equal(t, "a", back.Name)
	assert.Equal(t, 3, back.Count)
	require.NotNil(t, back.Owner)
	assert.Equal(t, "u1", *back.Owner)
}

func TestDecode_TypeMismatch(t *testing.T) {
	var s sample
	err := Decode(Record{ID: "x", Fields: map[string]any{"count": "many"}}, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode record x")
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(map[string]any{"n": 2, "nested": map[string]int{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(2), "nested": map[string]any{"a": float64(1)}}, got)

	empty, err := Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMatches(t *testing.T) {
	fields := map[string]any{"adminId": "a1", "n": float64(2), "gone": nil}

	assert.True(t, Matches(fields, nil))
	assert.True(t, Matches(fields, []Filter{{"adminId", "a1"}}))
	assert.True(t, Matches(fields, []Filter{{"n", 2}}))
	assert.False(t, Matches(fields, []Filter{{"adminId", "a2"}}))
	assert.False(t, Matches(fields, []Filter{{"missing", "x"}}))
	assert.True(t, Matches(fields, []Filter{{"missing", nil}}))
	assert.True(t, Matches(fields, []Filter{{"gone", nil}}))
	assert.False(t, Matches(fields, []Filter{{"adminId", nil}}))
}

func TestSortRecords(t *testing.T) {
	recs := []Record{
		{ID: "c", Fields: map[string]any{"date": "2024-03-01"}},
		{ID: "a", Fields: map[string]any{"date": "2024-01-01"}},
		{ID: "b", Fields: map[string]any{}},
		{ID: "d", Fields: map[string]any{"date": "2024-01-01"}},
	}

	SortRecords(recs, Order{Field: "date"})
	assert.Equal(t, []string{"b", "a", "d", "c"}, ids(recs))

	SortRecords(recs, Order{Field: "date", Desc: true})
	assert.Equal(t, []string{"c", "a", "d", "b"}, ids(recs))

	SortRecords(recs, Order{})
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(recs))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, compare(nil, nil))
	assert.Less(t, compare(nil, "a"), 0)
	assert.Less(t, compare(false, true), 0)
	assert.Less(t, compare(float64(1), 2), 0)
	assert.Greater(t, compare("b", "a"), 0)
	assert.Less(t, compare(float64(9), "a"), 0)
}

func TestQueryHelpers(t *testing.T) {
	q := Where("events", "ownerId", "u1").Ordered("date", false)
	assert.Equal(t, Query{
		Collection: "events",
		Filters:    []Filter{{Field: "ownerId", Value: "u1"}},
		OrderBy:    Order{Field: "date"},
	}, q)
}

func ids(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
