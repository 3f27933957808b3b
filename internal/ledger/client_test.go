package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const studentIntroProgram = "HdE95RSVsdb315jfJtaykXhXY478h53X6okDupVfY9yf"

func TestParseHandle(t *testing.T) {
	h, err := ParseHandle(studentIntroProgram)
	require.NoError(t, err)
	assert.Equal(t, studentIntroProgram, h.String())

	_, err = ParseHandle("abc")
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	_, err = ParseHandle("0OIl")
	assert.True(t, errors.Is(err, ErrInvalidHandle))
}

func TestHandleText(t *testing.T) {
	h := MustParseHandle(studentIntroProgram)
	text, err := h.MarshalText()
	require.NoError(t, err)

	var back Handle
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, h, back)
}

func TestApplySlice(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5}

	assert.Equal(t, []byte{1, 2, 3}, ApplySlice(data, DataSlice{Offset: 1, Length: 3}))
	assert.Equal(t, []byte{4, 5}, ApplySlice(data, DataSlice{Offset: 4, Length: 12}))
	assert.Equal(t, []byte{}, ApplySlice(data, DataSlice{Offset: 10, Length: 2}))
}

func TestMemcmpFilter(t *testing.T) {
	data := []byte("xxxxxann....")

	var none *MemcmpFilter
	assert.True(t, none.Matches(data))
	assert.True(t, (&MemcmpFilter{Offset: 5, Bytes: []byte("an")}).Matches(data))
	assert.False(t, (&MemcmpFilter{Offset: 4, Bytes: []byte("an")}).Matches(data))
	assert.False(t, (&MemcmpFilter{Offset: 11, Bytes: []byte("..")}).Matches(data))
}
