package decoder

import "fmt"

// Frame is the result of scanning the file preamble.
type Frame struct {
	EventCount uint64
	Metadata   [][]byte
	// DataOffset is the offset of the first event record.
	DataOffset int
}

// ScanFrame validates the header, collects the metadata blocks and locates
// the start of the record stream.
func ScanFrame(data []byte) (Frame, error) {
	frame := Frame{}

	position, err := readEventHeader(data, 0, &frame)
	if err != nil {
		return frame, err
	}

	for {
		magic, ok := readUint64(data, position)
		if !ok {
			return frame, &TruncationError{Stage: "data magic", Offset: position,
				Need: MagicSize, Have: len(data) - position}
		}

		switch magic {
		case META_MAGIC:
			position, err = readMetadataBlock(data, position, &frame)
			if err != nil {
				return frame, err
			}
		case DATA_MAGIC:
			position += MagicSize
			frame.DataOffset = position
			if configuration.Verbosity > 1 {
				message := fmt.Sprintf("Data starts at offset %d", position)
				logger.Info(message, "frame")
			}
			return frame, nil
		default:
			return frame, &FormatError{Stage: "data magic", Offset: position, Magic: magic}
		}
	}
}

func readEventHeader(data []byte, position int, frame *Frame) (int, error) {
	if !fits(position, EventHeaderSize, len(data)) {
		return position, &TruncationError{Stage: "header", Offset: position,
			Need: EventHeaderSize, Have: len(data) - position}
	}
	header := EventHeader{}
	header.Magic, _ = readUint64(data, position)
	header.EventCount, _ = readUint64(data, position+MagicSize)
	if header.Magic != EVENT_MAGIC {
		return position, &FormatError{Stage: "header", Offset: position, Magic: header.Magic}
	}
	frame.EventCount = header.EventCount
	position += EventHeaderSize

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Declared events: %d", header.EventCount)
		logger.Info(message, "frame")
	}
	return position, nil
}

func readMetadataBlock(data []byte, position int, frame *Frame) (int, error) {
	if !fits(position, MetadataHeaderSize, len(data)) {
		return position, &TruncationError{Stage: "metadata", Offset: position,
			Need: MetadataHeaderSize, Have: len(data) - position}
	}
	header := MetadataBlockHeader{}
	header.Magic, _ = readUint64(data, position)
	header.Size, _ = readUint64(data, position+MagicSize)

	start := position + MetadataHeaderSize
	if !fits(start, header.Size, len(data)) {
		return position, &TruncationError{Stage: "metadata", Offset: start,
			Need: header.Size, Have: len(data) - start}
	}
	end := start + int(header.Size)

	payload := make([]byte, header.Size)
	copy(payload, data[start:end])
	frame.Metadata = append(frame.Metadata, payload)

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Metadata block %d: %d bytes at offset %d",
			len(frame.Metadata)-1, header.Size, position)
		logger.Info(message, "frame")
	}
	return end, nil
}
