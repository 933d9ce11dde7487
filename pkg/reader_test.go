package decoder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []Event {
	return []Event{
		{TriggerID: 7, Timestamp: 200, Hits: []Hit{{ID: 3, Timestamp: 100, ADC: 10}, {ID: 7, Timestamp: 200, ADC: 20}}},
		{TriggerID: 2, Timestamp: 0, Hits: []Hit{}},
		{TriggerID: 1, Timestamp: 55, Hits: []Hit{{ID: 1, Timestamp: 55, ADC: 4095}}},
	}
}

func encodeSample(t *testing.T, metadata ...[]byte) []byte {
	t.Helper()
	data, err := EncodeFile(sampleEvents(), metadata...)
	require.NoError(t, err)
	return data
}

func readWithCursor(r *EventReader) []Event {
	events := []Event{}
	event := NewEvent()
	for r.NextEvent(event) {
		events = append(events, event.Clone())
	}
	return events
}

func TestEventReaderCursor(t *testing.T) {
	reader := NewEventReader()
	require.NoError(t, reader.BindBytes("sample", encodeSample(t, []byte("run=1"))))
	assert.Equal(t, HeaderValidated, reader.State())
	assert.Equal(t, uint64(3), reader.NumberOfEvents())
	assert.Equal(t, 1, reader.MetadataCount())
	assert.Equal(t, "run=1", reader.MetadataString(0))
	assert.Equal(t, "sample", reader.Filename())

	events := readWithCursor(reader)
	assert.Empty(t, cmp.Diff(sampleEvents(), events, cmpopts.EquateEmpty()))
	assert.NoError(t, reader.Err())
	assert.Equal(t, Exhausted, reader.State())

	// Exhausted stays exhausted
	event := NewEvent()
	assert.False(t, reader.NextEvent(event))
	assert.NoError(t, reader.Err())
}

func TestEventReaderBulkMatchesCursor(t *testing.T) {
	reader := NewEventReader()
	require.NoError(t, reader.BindBytes("sample", encodeSample(t)))

	bulk, err := reader.ReadAllEvents()
	require.NoError(t, err)
	cursor := readWithCursor(reader)
	assert.Empty(t, cmp.Diff(bulk, cursor, cmpopts.EquateEmpty()))
	assert.Len(t, bulk, 3)

	// Bulk decoding does not depend on the cursor
	again, err := reader.ReadAllEvents()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(bulk, again, cmpopts.EquateEmpty()))
}

func TestEventReaderHeaderCountIsAdvisory(t *testing.T) {
	tests := []struct {
		name     string
		declared uint64
	}{
		{"fewer declared", 1},
		{"more declared", 1000},
		{"absurd count", ^uint64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeSample(t)
			copy(data[MagicSize:], appendUint64(nil, tt.declared))

			reader := NewEventReader()
			require.NoError(t, reader.BindBytes("sample", data))
			assert.Equal(t, tt.declared, reader.NumberOfEvents())

			events, err := reader.ReadAllEvents()
			require.NoError(t, err)
			assert.Len(t, events, 3)
			assert.Len(t, readWithCursor(reader), 3)
		})
	}
}

func TestEventReaderTruncatedTail(t *testing.T) {
	data := encodeSample(t)
	// drop the last byte of the last record
	data = data[:len(data)-1]

	reader := NewEventReader()
	require.NoError(t, reader.BindBytes("sample", data))

	events, err := reader.ReadAllEvents()
	require.NoError(t, err)
	assert.Len(t, events, 2)

	cursor := readWithCursor(reader)
	assert.NoError(t, reader.Err())
	assert.Empty(t, cmp.Diff(events, cursor, cmpopts.EquateEmpty()))
}

func TestEventReaderCorruptRecord(t *testing.T) {
	data := encodeSample(t)
	data = append(data, ReservedMultiplicity, 0, 0)

	reader := NewEventReader()
	require.NoError(t, reader.BindBytes("sample", data))

	events, err := reader.ReadAllEvents()
	assert.Len(t, events, 3)
	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))

	cursor := readWithCursor(reader)
	assert.Len(t, cursor, 3)
	require.Error(t, reader.Err())
	assert.True(t, errors.As(reader.Err(), &formatErr))
	assert.Equal(t, Exhausted, reader.State())
}

func TestEventReaderEventUntouchedAtEnd(t *testing.T) {
	reader := NewEventReader()
	require.NoError(t, reader.BindBytes("empty", AppendDataMagic(AppendFileHeader(nil, 0))))

	event := &Event{TriggerID: 5, Timestamp: 9, Hits: []Hit{{ID: 5, Timestamp: 9}}}
	before := event.Clone()
	assert.False(t, reader.NextEvent(event))
	assert.Empty(t, cmp.Diff(before, *event, cmpopts.EquateEmpty()))
}

func TestEventReaderStates(t *testing.T) {
	reader := NewEventReader()
	assert.Equal(t, Unbound, reader.State())
	assert.False(t, reader.IsMapped())

	t.Run("unbound operations fail", func(t *testing.T) {
		var stateErr *StateError

		_, err := reader.ReadAllEvents()
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, Unbound, stateErr.State)

		assert.False(t, reader.NextEvent(NewEvent()))
		assert.True(t, errors.As(reader.Err(), &stateErr))

		assert.Error(t, reader.Rewind())
	})

	t.Run("failed bind leaves reader unbound", func(t *testing.T) {
		reader := NewEventReader()
		err := reader.BindBytes("bad", []byte("not an event file"))
		require.Error(t, err)
		assert.Equal(t, Unbound, reader.State())
	})

	t.Run("double bind fails", func(t *testing.T) {
		reader := NewEventReader()
		require.NoError(t, reader.BindBytes("sample", encodeSample(t)))

		var stateErr *StateError
		err := reader.BindBytes("sample", encodeSample(t))
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, HeaderValidated, stateErr.State)
	})

	t.Run("rewind and close", func(t *testing.T) {
		reader := NewEventReader()
		require.NoError(t, reader.BindBytes("sample", encodeSample(t)))
		assert.Len(t, readWithCursor(reader), 3)

		require.NoError(t, reader.Rewind())
		assert.Equal(t, HeaderValidated, reader.State())
		assert.Len(t, readWithCursor(reader), 3)

		require.NoError(t, reader.Close())
		assert.Equal(t, Unbound, reader.State())
		assert.Equal(t, "", reader.Filename())

		// A closed reader can be bound again
		require.NoError(t, reader.BindBytes("other", encodeSample(t)))
		assert.Equal(t, "other", reader.Filename())
	})
}

func TestEventReaderMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.evt")
	require.NoError(t, os.WriteFile(path, encodeSample(t, []byte("abcd"), []byte("12345678")), 0o644))

	for _, strategy := range []Strategy{StrategyAuto, StrategyMmap, StrategyRead} {
		t.Run(strategy.String(), func(t *testing.T) {
			reader := NewEventReader()
			defer reader.Close()

			require.NoError(t, reader.MapFile(path, strategy))
			assert.True(t, reader.IsMapped())
			assert.Equal(t, path, reader.Filename())
			assert.Equal(t, 2, reader.MetadataCount())
			assert.Equal(t, []byte("12345678"), reader.Metadata(1))

			events, err := reader.ReadAllEvents()
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(sampleEvents(), events, cmpopts.EquateEmpty()))
		})
	}
}

func TestEventReaderMapFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		reader := NewEventReader()
		err := reader.MapFile(filepath.Join(dir, "missing.evt"), StrategyAuto)
		var bindErr *BindError
		require.True(t, errors.As(err, &bindErr))
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, Unbound, reader.State())
	})

	t.Run("directory", func(t *testing.T) {
		reader := NewEventReader()
		err := reader.MapFile(dir, StrategyAuto)
		assert.ErrorIs(t, err, ErrNotRegularFile)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.evt")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		reader := NewEventReader()
		err := reader.MapFile(path, StrategyMmap)
		var truncationErr *TruncationError
		require.True(t, errors.As(err, &truncationErr))
		assert.Equal(t, "header", truncationErr.Stage)
		assert.Equal(t, Unbound, reader.State())
	})

	t.Run("bad magic", func(t *testing.T) {
		path := filepath.Join(dir, "bad.evt")
		data := encodeSample(t)
		data[0] ^= 0xff
		require.NoError(t, os.WriteFile(path, data, 0o644))

		reader := NewEventReader()
		err := reader.MapFile(path, StrategyRead)
		var formatErr *FormatError
		require.True(t, errors.As(err, &formatErr))
		assert.Equal(t, "header", formatErr.Stage)
	})
}
