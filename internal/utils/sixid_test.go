package utils

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSixID_StringParse(t *testing.T) {
	id := NewSixID()
	s := id.String()
	assert.Len(t, s, 10)

	parsed, err := ParseSixID(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseSixID_Lenient(t *testing.T) {
	id := SixID{0, 0, 0, 0, 0, 1}
	s := id.String()

	lower, err := ParseSixID(" " + s[:5] + "-" + s[5:] + " ")
	require.NoError(t, err)
	assert.Equal(t, id, lower)

	// O and 0 are interchangeable in Crockford Base32.
	oh, err := ParseSixID("OOOOOOOO04")
	require.NoError(t, err)
	zero, err := ParseSixID("0000000004")
	require.NoError(t, err)
	assert.Equal(t, zero, oh)
}

func TestParseSixID_Invalid(t *testing.T) {
	for _, s := range []string{"", "short", "TOOLONG12345", "UUUUUUUUUU"} {
		_, err := ParseSixID(s)
		assert.Error(t, err, s)
		assert.True(t, errors.Is(err, ErrInvalidSixID), s)
	}
}

func TestSixID_BSON(t *testing.T) {
	type doc struct {
		ID    SixID  `bson:"_id"`
		Ref   *SixID `bson:"ref,omitempty"`
		Other SixID  `bson:"other,omitempty"`
	}

	in := doc{ID: NewSixID()}
	raw, err := bson.Marshal(in)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.NotContains(t, m, "ref")
	assert.NotContains(t, m, "other")

	var out doc
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Nil(t, out.Ref)
}

func TestSixID_JSON(t *testing.T) {
	id := NewSixID()
	data, err := json.Marshal(map[string]SixID{"id": id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(data))

	var out map[string]SixID
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, id, out["id"])
}

func TestNewSixIDHook(t *testing.T) {
	original := NewSixIDHook
	defer func() { NewSixIDHook = original }()

	forced := SixID{1, 2, 3, 4, 5, 6}
	NewSixIDHook = func() (SixID, bool) { return forced, true }
	assert.Equal(t, forced, NewSixID())
}
