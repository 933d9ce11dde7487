package decoder

import "fmt"

// ReservedMultiplicity never appears in a valid record.
const ReservedMultiplicity = 255

// RecordSize returns the number of bytes following the multiplicity byte of a
// record holding multiplicity hits.
func RecordSize(multiplicity int) uint64 {
	return TriggerIDSize + HitSize*uint64(multiplicity)
}

// DecodeEvent decodes the record starting at position into event and returns
// the position of the next record.
//
// It returns false with a nil error at the end of the stream, which is either
// the end of the buffer or a trailing record that does not fit in it. In both
// cases event is left untouched.
func DecodeEvent(data []byte, position int, event *Event) (int, bool, error) {
	if position >= len(data) {
		return position, false, nil
	}

	multiplicity := int(data[position])
	if multiplicity == ReservedMultiplicity {
		return position, false, &FormatError{Stage: "record", Offset: position,
			Reason: fmt.Sprintf("reserved multiplicity %d", multiplicity)}
	}

	start := position + MultiplicitySize
	size := RecordSize(multiplicity)
	if !fits(start, size, len(data)) {
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Discarding incomplete record at offset %d: %d of %d bytes present",
				position, len(data)-position, MultiplicitySize+size)
			logger.Info(message, "record")
		}
		return position, false, nil
	}

	// Only now is the whole record known to be present
	event.Reset()
	pos := start
	event.TriggerID, _ = readUint16(data, pos)
	pos += TriggerIDSize

	if cap(event.Hits) < multiplicity {
		event.Hits = make([]Hit, 0, multiplicity)
	}
	matched := false
	for i := 0; i < multiplicity; i++ {
		hit, ok := readHit(data, pos)
		if !ok {
			// Unreachable after the size check above
			return position, false, &TruncationError{Stage: "record", Offset: pos,
				Need: HitSize, Have: len(data) - pos}
		}
		if !matched && hit.ID == event.TriggerID {
			event.Timestamp = hit.Timestamp
			matched = true
		}
		event.Hits = append(event.Hits, hit)
		pos += HitSize
	}

	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Event at offset %d: trigger %d, multiplicity %d, timestamp %d",
			position, event.TriggerID, multiplicity, event.Timestamp)
		logger.Info(message, "record")
	}
	return pos, true, nil
}

func readHit(data []byte, position int) (Hit, bool) {
	if !fits(position, HitSize, len(data)) {
		return Hit{}, false
	}
	hit := Hit{}
	hit.ID, _ = readUint16(data, position)
	hit.Timestamp, _ = readUint64(data, position+2)
	hit.ADC, _ = readUint16(data, position+10)
	return hit, true
}
