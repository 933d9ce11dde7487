package decoder

import "fmt"

type ReaderState int

const (
	Unbound ReaderState = iota
	HeaderValidated
	Exhausted
)

func (s ReaderState) String() string {
	switch s {
	case Unbound:
		return "Unbound"
	case HeaderValidated:
		return "HeaderValidated"
	case Exhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// EventReader decodes the events of one file. It is not safe for concurrent
// use; independent readers may run in parallel.
type EventReader struct {
	source Source
	data   []byte
	frame  Frame
	next   int
	state  ReaderState
	err    error
}

func NewEventReader() *EventReader {
	return &EventReader{}
}

// MapFile binds the reader to the file at path.
func (r *EventReader) MapFile(path string, strategy Strategy) error {
	if r.state != Unbound {
		return &StateError{Op: "MapFile", State: r.state}
	}
	source, err := OpenMappedSource(path, strategy)
	if err != nil {
		return err
	}
	if err := r.Bind(source); err != nil {
		source.Close()
		return err
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Mapped %s: %d bytes, mmap %t", path, source.Len(), source.IsMapped())
		logger.Info(message, "reader")
	}
	return nil
}

// BindBytes binds the reader to a buffer already in memory.
func (r *EventReader) BindBytes(name string, data []byte) error {
	return r.Bind(NewMemorySource(name, data))
}

// Bind takes ownership of source and validates its framing. On error the
// reader stays Unbound and the caller keeps ownership of source.
func (r *EventReader) Bind(source Source) error {
	if r.state != Unbound {
		return &StateError{Op: "Bind", State: r.state}
	}
	data := source.Bytes()
	frame, err := ScanFrame(data)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", source.Path(), err)
	}
	r.source = source
	r.data = data
	r.frame = frame
	r.next = frame.DataOffset
	r.state = HeaderValidated
	r.err = nil
	return nil
}

// ReadAllEvents decodes every record from the first one, independently of
// the cursor used by NextEvent. If a corrupt record is found the events
// decoded before it are returned along with the error.
func (r *EventReader) ReadAllEvents() ([]Event, error) {
	if r.state == Unbound {
		return nil, &StateError{Op: "ReadAllEvents", State: r.state}
	}

	// The declared count is only a hint
	hint := r.frame.EventCount
	if maxRecords := uint64(len(r.data)-r.frame.DataOffset) / (MultiplicitySize + TriggerIDSize); hint > maxRecords {
		hint = maxRecords
	}
	events := make([]Event, 0, hint)

	position := r.frame.DataOffset
	for {
		event := Event{}
		next, ok, err := DecodeEvent(r.data, position, &event)
		if err != nil {
			return events, fmt.Errorf("error reading %s: %w", r.Filename(), err)
		}
		if !ok {
			break
		}
		events = append(events, event)
		position = next
	}
	return events, nil
}

// NextEvent decodes the next record into event and reports whether there was
// one. At the end of the stream event is left untouched; Err distinguishes a
// corrupt record from a normal end.
func (r *EventReader) NextEvent(event *Event) bool {
	if r.state != HeaderValidated {
		if r.state == Unbound && r.err == nil {
			r.err = &StateError{Op: "NextEvent", State: r.state}
		}
		return false
	}
	next, ok, err := DecodeEvent(r.data, r.next, event)
	if err != nil {
		r.err = fmt.Errorf("error reading %s: %w", r.Filename(), err)
	}
	if !ok {
		r.state = Exhausted
		return false
	}
	r.next = next
	return true
}

// Err returns the error that stopped NextEvent, if any.
func (r *EventReader) Err() error {
	return r.err
}

// Rewind moves the cursor back to the first record.
func (r *EventReader) Rewind() error {
	if r.state == Unbound {
		return &StateError{Op: "Rewind", State: r.state}
	}
	r.next = r.frame.DataOffset
	r.state = HeaderValidated
	r.err = nil
	return nil
}

// Close releases the source and returns the reader to Unbound.
func (r *EventReader) Close() error {
	source := r.source
	*r = EventReader{}
	if source == nil {
		return nil
	}
	return source.Close()
}

func (r *EventReader) MetadataCount() int { return len(r.frame.Metadata) }

// Metadata returns the payload of the n-th metadata block.
func (r *EventReader) Metadata(n int) []byte { return r.frame.Metadata[n] }

func (r *EventReader) MetadataString(n int) string { return string(r.frame.Metadata[n]) }

// NumberOfEvents returns the event count declared in the header.
func (r *EventReader) NumberOfEvents() uint64 { return r.frame.EventCount }

func (r *EventReader) Filename() string {
	if r.source == nil {
		return ""
	}
	return r.source.Path()
}

func (r *EventReader) IsMapped() bool { return r.state != Unbound }

func (r *EventReader) State() ReaderState { return r.state }

// Offset returns the position of the next record NextEvent will decode.
func (r *EventReader) Offset() int { return r.next }
