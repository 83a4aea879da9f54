package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot_IndexesByAgentID(t *testing.T) {
	payload := []byte(`{
		"1": {"is_turn": true, "text": "your move", "orientation": "3", "image": "aGk="},
		"2": {"is_turn": false, "orientation": 1}
	}`)

	snap, err := DecodeSnapshot(payload)
	require.NoError(t, err)
	require.Len(t, snap, 2)

	one := snap["1"]
	assert.Equal(t, "1", one.AgentID)
	assert.True(t, one.IsTurn)
	assert.Equal(t, "your move", one.Text)
	assert.Equal(t, OrientationLeft, one.Orientation)
	assert.Equal(t, "aGk=", one.Image)

	two := snap["2"]
	assert.Equal(t, "2", two.AgentID)
	assert.Equal(t, OrientationRight, two.Orientation)
}

func TestDecodeSnapshot_ControlFlags(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"1": {"game_started": true}}`))
	require.NoError(t, err)
	assert.True(t, snap["1"].GameStarted)
	assert.False(t, snap["1"].EndGame)

	snap, err = DecodeSnapshot([]byte(`{"1": {"end_game": true}}`))
	require.NoError(t, err)
	assert.True(t, snap["1"].EndGame)
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `hello`},
		{name: "truncated", payload: `{"1": {"is_turn": tr`},
		{name: "null", payload: `null`},
		{name: "array", payload: `[1,2,3]`},
		{name: "agent not an object", payload: `{"1": 5}`},
		{name: "empty", payload: ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tc.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedSnapshot), "want ErrMalformedSnapshot, got %v", err)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, len(tc.payload), decodeErr.Size)
		})
	}
}

func TestOrientation_UnrecognizedDefaultsToUp(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Orientation
	}{
		{name: "string 0", raw: `"0"`, want: OrientationUp},
		{name: "string 2", raw: `"2"`, want: OrientationDown},
		{name: "number 1", raw: `1`, want: OrientationRight},
		{name: "out of range", raw: `"7"`, want: OrientationUp},
		{name: "negative", raw: `-1`, want: OrientationUp},
		{name: "word", raw: `"left"`, want: OrientationUp},
		{name: "null", raw: `null`, want: OrientationUp},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var o Orientation
			require.NoError(t, o.UnmarshalJSON([]byte(tc.raw)))
			assert.Equal(t, tc.want, o)
		})
	}
}

func TestOrientation_QuarterTurns(t *testing.T) {
	assert.Equal(t, 0, OrientationUp.QuarterTurns())
	assert.Equal(t, 1, OrientationRight.QuarterTurns())
	assert.Equal(t, 2, OrientationDown.QuarterTurns())
	assert.Equal(t, 3, OrientationLeft.QuarterTurns())
	assert.Equal(t, 0, Orientation(9).QuarterTurns())
}
