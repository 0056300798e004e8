package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_EncodedSize(t *testing.T) {
	control := Entry{Kind: EntryKindCheckpoint}
	assert.Equal(t, 17, control.EncodedSize())

	data := Entry{Kind: EntryKindInsert, Payload: make([]byte, 63)}
	assert.Equal(t, 80, data.EncodedSize())

	assert.Equal(t, 97, TotalEncodedSize([]Entry{control, data}))
	assert.Zero(t, TotalEncodedSize(nil))
}

func TestNewEntry_DropsPayloadForControlKinds(t *testing.T) {
	e := NewEntry(EntryKindTransactionBegin, []byte("ignored"), 3, 12.5)
	assert.Nil(t, e.Payload)
	assert.Equal(t, uint64(3), e.TransactionID)
	assert.Equal(t, 12.5, e.Timestamp)

	d := NewEntry(EntryKindDelete, []byte("k"), 0, 1)
	assert.Equal(t, []byte("k"), d.Payload)
}

func TestEntryKind_ParseAndString(t *testing.T) {
	testCases := []struct {
		input    string
		expected EntryKind
	}{
		{"insert", EntryKindInsert},
		{"SET", EntryKindSet},
		{" delete ", EntryKindDelete},
		{"checkpoint", EntryKindCheckpoint},
		{"begin", EntryKindTransactionBegin},
		{"commit", EntryKindTransactionCommit},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			k, err := ParseEntryKind(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, k)
			assert.True(t, k.Valid())
		})
	}

	_, err := ParseEntryKind("upsert")
	assert.ErrorIs(t, err, ErrInvalidEntryKind)

	assert.False(t, EntryKind(0).Valid())
	assert.Equal(t, "EntryKind(9)", EntryKind(9).String())
}

func TestSegmentFileName(t *testing.T) {
	assert.Equal(t, "wal1.log", FormatSegmentFileName(1))
	assert.Equal(t, "wal120.log", FormatSegmentFileName(120))

	seq, err := ParseSegmentFileName("wal42.log")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seq)

	for _, name := range []string{"wal.log", "wal0.log", "wal01.log", "walx.log", "wal3.log.tmp", "wal-1.log", "log3.log", "wal3.wal", "CHECKPOINT"} {
		_, err := ParseSegmentFileName(name)
		assert.Error(t, err, name)
	}
}
