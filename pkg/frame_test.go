package decoder

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFrameMinimalFile(t *testing.T) {
	data := AppendDataMagic(AppendFileHeader(nil, 0))
	require.Len(t, data, 24)

	frame, err := ScanFrame(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), frame.EventCount)
	assert.Empty(t, frame.Metadata)
	assert.Equal(t, 24, frame.DataOffset)
}

func TestScanFrameMetadataBlocks(t *testing.T) {
	data := AppendFileHeader(nil, 3)
	data = AppendMetadata(data, []byte("abcd"))
	data = AppendMetadata(data, []byte("12345678"))
	data = AppendDataMagic(data)

	frame, err := ScanFrame(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), frame.EventCount)
	require.Len(t, frame.Metadata, 2)
	assert.Equal(t, []byte("abcd"), frame.Metadata[0])
	assert.Equal(t, []byte("12345678"), frame.Metadata[1])
	assert.Equal(t, 16+20+24+8, frame.DataOffset)
}

func TestScanFrameEmptyMetadata(t *testing.T) {
	data := AppendDataMagic(AppendMetadata(AppendFileHeader(nil, 0), nil))

	frame, err := ScanFrame(data)
	require.NoError(t, err)
	require.Len(t, frame.Metadata, 1)
	assert.Empty(t, frame.Metadata[0])
}

func TestScanFrameMetadataIsCopied(t *testing.T) {
	data := AppendDataMagic(AppendMetadata(AppendFileHeader(nil, 0), []byte("xy")))

	frame, err := ScanFrame(data)
	require.NoError(t, err)
	data[MetadataHeaderSize+EventHeaderSize] = 'z'
	assert.Equal(t, []byte("xy"), frame.Metadata[0])
}

func TestScanFrameErrors(t *testing.T) {
	validHeader := AppendFileHeader(nil, 1)

	badHeader := appendUint64(nil, 0x0102030405060708)
	badHeader = appendUint64(badHeader, 1)

	hugeMetadata := appendUint64(append([]byte{}, validHeader...), META_MAGIC)
	hugeMetadata = appendUint64(hugeMetadata, ^uint64(0))

	tests := []struct {
		name      string
		data      []byte
		stage     string
		truncated bool
	}{
		{"empty", nil, "header", true},
		{"short header", validHeader[:10], "header", true},
		{"bad header magic", badHeader, "header", false},
		{"missing data magic", validHeader, "data magic", true},
		{"partial data magic", append(append([]byte{}, validHeader...), 0x54, 0x41), "data magic", true},
		{"unknown block", appendUint64(append([]byte{}, validHeader...), 42), "data magic", false},
		{"short metadata header", appendUint64(append([]byte{}, validHeader...), META_MAGIC), "metadata", true},
		{"metadata payload past end", AppendMetadata(append([]byte{}, validHeader...), []byte("abcd"))[:16+16+2], "metadata", true},
		{"metadata size overflow", hugeMetadata, "metadata", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ScanFrame(tt.data)
			require.Error(t, err)

			var truncationErr *TruncationError
			var formatErr *FormatError
			if tt.truncated {
				require.True(t, errors.As(err, &truncationErr), "got %v", err)
				assert.Equal(t, tt.stage, truncationErr.Stage)
			} else {
				require.True(t, errors.As(err, &formatErr), "got %v", err)
				assert.Equal(t, tt.stage, formatErr.Stage)
			}
		})
	}
}

func TestEncodeFileRejectsLargeMultiplicity(t *testing.T) {
	event := Event{Hits: make([]Hit, MaxMultiplicity+1)}
	_, err := EncodeFile([]Event{event})
	assert.Error(t, err)
}

func TestMagicValues(t *testing.T) {
	assert.Equal(t, "SOCOEVNT", string(binary.BigEndian.AppendUint64(nil, EVENT_MAGIC)))
	assert.Equal(t, "METADATA", string(binary.BigEndian.AppendUint64(nil, META_MAGIC)))
	assert.Equal(t, "\x00SOCODAT", string(binary.BigEndian.AppendUint64(nil, DATA_MAGIC)))
}
