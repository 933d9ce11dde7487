package decoder

import (
	"fmt"
	"math"
)

// NoTrigger is the trigger id of an event that has not been assigned one.
const NoTrigger uint16 = math.MaxUint16

// MaxMultiplicity is the largest number of hits a record can hold. The
// multiplicity byte value 255 is reserved.
const MaxMultiplicity = 254

type Event struct {
	TriggerID uint16
	// Timestamp of the hit whose id matches TriggerID, 0 if none does.
	Timestamp uint64
	Hits      []Hit
}

func NewEvent() *Event {
	return &Event{TriggerID: NoTrigger}
}

// Reset clears the event keeping the hits backing array for reuse.
func (e *Event) Reset() {
	e.TriggerID = NoTrigger
	e.Timestamp = 0
	e.Hits = e.Hits[:0]
}

func (e *Event) Clone() Event {
	hits := make([]Hit, len(e.Hits))
	copy(hits, e.Hits)
	return Event{TriggerID: e.TriggerID, Timestamp: e.Timestamp, Hits: hits}
}

// TriggerHit returns the first hit recorded by the trigger channel.
func (e *Event) TriggerHit() (Hit, bool) {
	for _, hit := range e.Hits {
		if hit.ID == e.TriggerID {
			return hit, true
		}
	}
	return Hit{}, false
}

// UpdateTimestamp sets the event timestamp from its trigger hit.
func (e *Event) UpdateTimestamp() {
	e.Timestamp = 0
	if hit, ok := e.TriggerHit(); ok {
		e.Timestamp = hit.Timestamp
	}
}

// AppendBinary appends the record representation of the event to dst:
// multiplicity(1) trigger id(2) hits(12 each).
func (e *Event) AppendBinary(dst []byte) ([]byte, error) {
	if len(e.Hits) > MaxMultiplicity {
		return dst, fmt.Errorf("event with %d hits exceeds multiplicity limit %d",
			len(e.Hits), MaxMultiplicity)
	}
	dst = append(dst, uint8(len(e.Hits)))
	dst = appendUint16(dst, e.TriggerID)
	for _, hit := range e.Hits {
		dst = hit.AppendBinary(dst)
	}
	return dst, nil
}

func (e *Event) Equal(o *Event) bool {
	if e.TriggerID != o.TriggerID || e.Timestamp != o.Timestamp || len(e.Hits) != len(o.Hits) {
		return false
	}
	for i := range e.Hits {
		if !e.Hits[i].Equal(o.Hits[i]) {
			return false
		}
	}
	return true
}
