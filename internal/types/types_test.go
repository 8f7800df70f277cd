package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_Location(t *testing.T) {
	p := Profile{UID: "u1", LocationLat: FloatPtr(37.87)}
	_, ok := p.Location()
	assert.False(t, ok, "missing longitude")

	p.LocationLng = FloatPtr(-122.27)
	pt, ok := p.Location()
	require.True(t, ok)
	assert.Equal(t, 37.87, pt.Lat)
	assert.Equal(t, -122.27, pt.Lng)
}

func TestProfile_JSONFieldNames(t *testing.T) {
	p := Profile{UID: "u1", Year: IntPtr(2), PhotoURL: "https://x/p.png", LocationLat: FloatPtr(1), LocationLng: FloatPtr(2)}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"uid":"u1"`)
	assert.Contains(t, s, `"year":2`)
	assert.Contains(t, s, `"photoUrl":"https://x/p.png"`)
	assert.Contains(t, s, `"locationLat":1`)
	assert.NotContains(t, s, `"bio"`)
}

func TestConnections_Excluded(t *testing.T) {
	c := Connections{Accepted: []string{"a"}, Pending: []string{"b"}, Blocked: []string{"c", "a"}}
	ex := c.Excluded()
	assert.Len(t, ex, 3)
	assert.True(t, ex["a"])
	assert.True(t, ex["c"])
	assert.False(t, ex["d"])
}

func TestFlags(t *testing.T) {
	flags := []Flag{
		{Kind: FlagSpam, Confidence: 0.8, Source: RuleKeywordMatch},
		{Kind: FlagPhishing, Confidence: 0.9, Source: RuleRegexPattern},
	}
	assert.Equal(t, 0.9, MaxConfidence(flags))
	assert.Equal(t, 0.0, MaxConfidence(nil))
	assert.True(t, HasKind(flags, FlagExplicit, FlagPhishing))
	assert.False(t, HasKind(flags, FlagExplicit))

	data, err := json.Marshal(flags[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"flag":"spam","confidence":0.8,"rule":"keyword_match"}`, string(data))
}
