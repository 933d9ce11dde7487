package decoder

import "encoding/binary"

// Magic numbers. They spell "SOCOEVNT", "METADATA" and "\0SOCODAT" when
// read as big endian ASCII.
const (
	EVENT_MAGIC uint64 = 0x534F434F45564E54
	META_MAGIC  uint64 = 0x4D45544144415441
	DATA_MAGIC  uint64 = 0x00534F434F444154
)

const (
	MagicSize = 8

	// EventHeader: magic(8) event_count(8)
	EventHeaderSize = 16

	// MetadataBlockHeader: magic(8) payload size(8)
	MetadataHeaderSize = 16

	// multiplicity(1)
	MultiplicitySize = 1

	// trigger id(2)
	TriggerIDSize = 2
)

// Integers are stored in the byte order of the acquisition hosts, which is
// little endian.
var byteOrder = binary.LittleEndian

type EventHeader struct {
	Magic      uint64
	EventCount uint64
}

type MetadataBlockHeader struct {
	Magic uint64
	Size  uint64
}

// fits reports whether n bytes starting at offset are inside a buffer of
// length size.
func fits(offset int, n uint64, size int) bool {
	if offset < 0 || offset > size {
		return false
	}
	return n <= uint64(size-offset)
}

func readUint16(data []byte, offset int) (uint16, bool) {
	if !fits(offset, 2, len(data)) {
		return 0, false
	}
	return byteOrder.Uint16(data[offset : offset+2]), true
}

func readUint64(data []byte, offset int) (uint64, bool) {
	if !fits(offset, 8, len(data)) {
		return 0, false
	}
	return byteOrder.Uint64(data[offset : offset+8]), true
}

func appendUint16(dst []byte, v uint16) []byte {
	return byteOrder.AppendUint16(dst, v)
}

func appendUint64(dst []byte, v uint64) []byte {
	return byteOrder.AppendUint64(dst, v)
}

// AppendFileHeader appends an EventHeader declaring eventCount events.
func AppendFileHeader(dst []byte, eventCount uint64) []byte {
	dst = appendUint64(dst, EVENT_MAGIC)
	return appendUint64(dst, eventCount)
}

// AppendMetadata appends a metadata block holding payload.
func AppendMetadata(dst []byte, payload []byte) []byte {
	dst = appendUint64(dst, META_MAGIC)
	dst = appendUint64(dst, uint64(len(payload)))
	return append(dst, payload...)
}

// AppendDataMagic appends the marker that starts the record stream.
func AppendDataMagic(dst []byte) []byte {
	return appendUint64(dst, DATA_MAGIC)
}

// EncodeFile builds a complete file image: header, metadata blocks, data
// marker and one record per event.
func EncodeFile(events []Event, metadata ...[]byte) ([]byte, error) {
	buf := AppendFileHeader(nil, uint64(len(events)))
	for _, m := range metadata {
		buf = AppendMetadata(buf, m)
	}
	buf = AppendDataMagic(buf)
	var err error
	for i := range events {
		buf, err = events[i].AppendBinary(buf)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}
