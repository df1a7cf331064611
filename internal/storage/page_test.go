package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuannm99/relic/internal/value"
)

func TestPageInsertReadTuple(t *testing.T) {
	p := NewPage(7)
	require.Equal(t, uint32(7), p.PageID())
	require.False(t, p.IsUninitialized())

	row := EncodeRow([]value.Value{value.NewInt(42), value.NewVarchar("hi")})
	slot, err := p.InsertTuple(row)
	require.NoError(t, err)
	require.Equal(t, 0, slot)
	require.Equal(t, uint16(1), p.RowCount())

	got, err := p.ReadTuple(slot)
	require.NoError(t, err)
	vals, err := DecodeRow(got)
	require.NoError(t, err)
	require.Equal(t, value.NewInt(42), vals[0])
	require.Equal(t, value.NewVarchar("hi"), vals[1])
}

func TestPageUpdateTupleInPlace(t *testing.T) {
	p := NewPage(0)
	row := EncodeRow([]value.Value{value.NewVarchar("abcdef")})
	slot, err := p.InsertTuple(row)
	require.NoError(t, err)

	shorter := EncodeRow([]value.Value{value.NewVarchar("ab")})
	require.NoError(t, p.UpdateTuple(slot, shorter))

	got, err := p.ReadTuple(slot)
	require.NoError(t, err)
	vals, err := DecodeRow(got)
	require.NoError(t, err)
	require.Equal(t, value.NewVarchar("ab"), vals[0])
}

func TestPageUpdateTupleTooLargeReturnsNoSpace(t *testing.T) {
	p := NewPage(0)
	row := EncodeRow([]value.Value{value.NewVarchar("ab")})
	slot, err := p.InsertTuple(row)
	require.NoError(t, err)

	grown := EncodeRow([]value.Value{value.NewVarchar("much longer than before")})
	err = p.UpdateTuple(slot, grown)
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestPageDeleteTupleTombstones(t *testing.T) {
	p := NewPage(0)
	row := EncodeRow([]value.Value{value.NewInt(1)})
	slot, err := p.InsertTuple(row)
	require.NoError(t, err)

	require.NoError(t, p.DeleteTuple(slot))
	require.False(t, p.IsLiveSlot(slot))
	_, err = p.ReadTuple(slot)
	require.ErrorIs(t, err, ErrTombstoned)

	// slot indices of later inserts are unaffected
	row2 := EncodeRow([]value.Value{value.NewInt(2)})
	slot2, err := p.InsertTuple(row2)
	require.NoError(t, err)
	require.Equal(t, 1, slot2)
}

func TestPageInsertNoSpaceWhenFull(t *testing.T) {
	p := NewPage(0)
	big := make([]byte, PageSize-HeaderSize-SlotSize)
	_, err := p.InsertTuple(big)
	require.NoError(t, err)

	_, err = p.InsertTuple([]byte{1})
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestPageInsertTupleTooLarge(t *testing.T) {
	p := NewPage(0)
	huge := make([]byte, PageSize)
	_, err := p.InsertTuple(huge)
	require.ErrorIs(t, err, ErrTupleTooLarge)
}
