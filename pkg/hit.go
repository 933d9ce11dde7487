package decoder

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// HitSize is the encoded size of a Hit: id(2) timestamp(8) adc(2).
const HitSize = 12

// Hit is one detector channel reading.
type Hit struct {
	ID        uint16
	Timestamp uint64
	ADC       uint16
}

func (h Hit) Equal(o Hit) bool {
	return h.ID == o.ID && h.Timestamp == o.Timestamp && h.ADC == o.ADC
}

// Less orders hits by timestamp.
func (h Hit) Less(o Hit) bool {
	return h.Timestamp < o.Timestamp
}

// ShiftTimestamp moves the hit back in time by shift ticks. The shift must be
// strictly smaller than the current timestamp.
func (h *Hit) ShiftTimestamp(shift uint64) error {
	if shift >= h.Timestamp {
		return fmt.Errorf("cannot shift timestamp %d of channel %d by %d: underflow",
			h.Timestamp, h.ID, shift)
	}
	h.Timestamp -= shift
	return nil
}

// AppendBinary appends the on-disk representation of the hit to dst.
func (h Hit) AppendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, h.ID)
	dst = binary.LittleEndian.AppendUint64(dst, h.Timestamp)
	dst = binary.LittleEndian.AppendUint16(dst, h.ADC)
	return dst
}

func SortHitsByTimestamp(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Less(hits[j])
	})
}
