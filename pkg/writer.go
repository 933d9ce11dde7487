package decoder

import (
	"errors"
	"fmt"

	"gonum.org/v1/hdf5"
)

// rows buffered before they are appended to the tables
const flushSize = 4096

// Writer stores decoded events, hits, metadata and histograms of one input
// file in an HDF5 file. HDF5 calls are not reentrant: callers running several
// writers must serialize them.
type Writer struct {
	File            *hdf5.File
	Filename        string
	RunGroup        *hdf5.Group
	HitsGroup       *hdf5.Group
	MetadataGroup   *hdf5.Group
	HistogramsGroup *hdf5.Group
	EventTable      *hdf5.Dataset
	HitTable        *hdf5.Dataset
	RunInfoTable    *hdf5.Dataset
	EvtCounter      int
	HitCounter      int
	WriteHits       bool

	events        []EventDataHDF5
	hits          []HitHDF5
	eventsWritten int
	hitsWritten   int
}

func NewWriter(filename string, compressionLevel int, writeHits bool) (*Writer, error) {
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating file: %s", filename), "writer")
	}

	writer := &Writer{Filename: filename, WriteHits: writeHits}
	var err error
	if writer.File, err = openFile(filename); err != nil {
		return nil, err
	}
	if err := writer.create(compressionLevel); err != nil {
		writer.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) create(compressionLevel int) error {
	var err error
	if w.RunGroup, err = createGroup(w.File, "Run"); err != nil {
		return err
	}
	if w.HitsGroup, err = createGroup(w.File, "Hits"); err != nil {
		return err
	}
	if w.MetadataGroup, err = createGroup(w.File, "Metadata"); err != nil {
		return err
	}
	if w.HistogramsGroup, err = createGroup(w.File, "Histograms"); err != nil {
		return err
	}
	if w.EventTable, err = createTable(w.RunGroup, "events", EventDataHDF5{}, compressionLevel); err != nil {
		return err
	}
	if w.RunInfoTable, err = createTable(w.RunGroup, "runInfo", RunInfoHDF5{}, compressionLevel); err != nil {
		return err
	}
	if w.WriteHits {
		if w.HitTable, err = createTable(w.HitsGroup, "hits", HitHDF5{}, compressionLevel); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent buffers an event and its hits. energies holds one value per hit
// or is nil when the event was not calibrated.
func (w *Writer) WriteEvent(event *Event, energies []float64) error {
	w.events = append(w.events, EventDataHDF5{
		evt_number:   uint32(w.EvtCounter),
		trigger_id:   event.TriggerID,
		multiplicity: uint16(len(event.Hits)),
		timestamp:    event.Timestamp,
		first_hit:    uint64(w.HitCounter),
	})

	if w.WriteHits {
		for i, hit := range event.Hits {
			energy := -1.0
			if energies != nil {
				energy = energies[i]
			}
			w.hits = append(w.hits, HitHDF5{
				evt_number: uint32(w.EvtCounter),
				channel:    hit.ID,
				adc:        hit.ADC,
				timestamp:  hit.Timestamp,
				energy:     energy,
			})
		}
		w.HitCounter += len(event.Hits)
	}
	w.EvtCounter++

	if len(w.events) >= flushSize || len(w.hits) >= flushSize {
		return w.Flush()
	}
	return nil
}

func (w *Writer) Flush() error {
	if err := writeArrayToTable(w.EventTable, &w.events, w.eventsWritten); err != nil {
		return fmt.Errorf("error writing events: %w", err)
	}
	w.eventsWritten += len(w.events)
	w.events = w.events[:0]

	if w.HitTable != nil {
		if err := writeArrayToTable(w.HitTable, &w.hits, w.hitsWritten); err != nil {
			return fmt.Errorf("error writing hits: %w", err)
		}
		w.hitsWritten += len(w.hits)
	}
	w.hits = w.hits[:0]
	return nil
}

// WriteRunInfo records the declared and decoded event counts.
func (w *Writer) WriteRunInfo(declared uint64, metadataBlocks int) error {
	info := RunInfoHDF5{
		declared_events: declared,
		decoded_events:  uint64(w.EvtCounter),
		metadata_blocks: uint32(metadataBlocks),
	}
	return writeEntryToTable(w.RunInfoTable, info, 0)
}

// WriteMetadata stores each metadata payload as a byte dataset.
func (w *Writer) WriteMetadata(metadata [][]byte) error {
	for i, payload := range metadata {
		name := fmt.Sprintf("entry_%d", i)
		var data interface{}
		if len(payload) > 0 {
			data = &payload
		}
		dims := []uint{uint(len(payload))}
		if err := createFixedArray(w.MetadataGroup, name, hdf5.T_NATIVE_UINT8, dims, data); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) WriteHistograms(set *HistogramSet) error {
	for _, channel := range set.ChannelIDs() {
		h := set.Channels[channel]
		name := fmt.Sprintf("channel_%d", channel)
		dims := []uint{uint(h.Bins)}
		if err := createFixedArray(w.HistogramsGroup, name, hdf5.T_NATIVE_UINT32, dims, &h.Counts); err != nil {
			return err
		}
	}
	m := set.Matrix
	dims := []uint{uint(m.Bins), uint(m.Bins)}
	return createFixedArray(w.HistogramsGroup, "matrix", hdf5.T_NATIVE_UINT32, dims, &m.Counts)
}

func (w *Writer) Close() error {
	var errs []error

	if w.EventTable != nil {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.EventTable != nil {
		if err := w.EventTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing event table: %w", err))
		}
	}
	if w.HitTable != nil {
		if err := w.HitTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing hit table: %w", err))
		}
	}
	if w.RunInfoTable != nil {
		if err := w.RunInfoTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run info table: %w", err))
		}
	}
	for name, group := range map[string]*hdf5.Group{
		"run":        w.RunGroup,
		"hits":       w.HitsGroup,
		"metadata":   w.MetadataGroup,
		"histograms": w.HistogramsGroup,
	} {
		if group == nil {
			continue
		}
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", name, err))
		}
	}
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}
	*w = Writer{Filename: w.Filename}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
