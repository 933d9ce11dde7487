package decoder

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// hdf5Mu serializes every call into the HDF5 library across workers.
var hdf5Mu sync.Mutex

// FileResult reports the outcome of converting one input file.
type FileResult struct {
	Input      string
	Output     string
	Declared   uint64
	Events     int
	Misaligned int
	Histograms *HistogramSet
	Stage      string
	Err        error
}

type Summary struct {
	Results    []FileResult
	Histograms *HistogramSet
	Failed     int
}

// Pipeline converts input files using a shared, read-only configuration and
// calibration. Each file gets its own reader, calibrator and writer.
type Pipeline struct {
	Config       Configuration
	Calibrations map[uint16]Calibration
	TimeOffsets  map[uint16]uint64
}

type fileJob struct {
	index int
	input string
}

// OutputFilename returns the HDF5 file name for input: inside outputDir when
// given, else next to the input.
func OutputFilename(input string, outputDir string) string {
	if outputDir != "" {
		return BuildFilename(Basename(input), outputDir, ".h5")
	}
	return StripExtension(input) + ".h5"
}

// ProcessFiles converts files with a pool of Config.Threads workers. A failing
// file does not stop the others. Files not started when ctx is cancelled are
// reported with the context error.
func (p *Pipeline) ProcessFiles(ctx context.Context, files []string) Summary {
	threads := p.Config.Threads
	if threads < 1 {
		threads = 1
	}
	if threads > len(files) {
		threads = len(files)
	}

	jobs := make(chan fileJob)
	results := make(chan indexedResult, len(files))

	var wg sync.WaitGroup
	for w := 1; w <= threads; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(id, jobs, results)
		}(w)
	}

	dispatched := make([]bool, len(files))
	go func() {
		defer close(jobs)
		for i, input := range files {
			select {
			case <-ctx.Done():
				return
			case jobs <- fileJob{index: i, input: input}:
				dispatched[i] = true
			}
		}
	}()

	wg.Wait()
	close(results)

	summary := Summary{
		Results:    make([]FileResult, len(files)),
		Histograms: NewHistogramSet(p.Config.HistogramBins, p.Config.HistogramMax, p.Config.MatrixBins),
	}
	for r := range results {
		summary.Results[r.index] = r.result
	}
	for i, input := range files {
		if !dispatched[i] {
			summary.Results[i] = FileResult{Input: input, Stage: "dispatch", Err: ctx.Err()}
		}
	}
	for _, result := range summary.Results {
		if result.Err != nil {
			summary.Failed++
		}
		if result.Histograms != nil {
			if err := summary.Histograms.Merge(result.Histograms); err != nil {
				logger.Error(fmt.Errorf("error merging histograms of %s: %w", result.Input, err).Error())
			}
		}
	}
	return summary
}

type indexedResult struct {
	index  int
	result FileResult
}

func (p *Pipeline) worker(id int, jobs <-chan fileJob, results chan<- indexedResult) {
	for job := range jobs {
		if p.Config.Verbosity > 0 {
			message := fmt.Sprintf("Worker %d processing %s", id, job.input)
			logger.Info(message, "workers")
		}
		result := p.processJob(job)
		if result.Err != nil {
			errMessage := fmt.Errorf("%s failed at %s: %w", result.Input, result.Stage, result.Err)
			logger.Error(errMessage.Error())
		}
		results <- indexedResult{index: job.index, result: result}
	}
}

func (p *Pipeline) processJob(job fileJob) (result FileResult) {
	result.Input = job.input
	defer func() {
		if r := recover(); r != nil {
			result.Stage = "panic"
			result.Err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()
	output := OutputFilename(job.input, p.Config.OutputDir)
	return p.ProcessFile(job.input, output, p.Config.DitherSeed+uint64(job.index))
}

// ProcessFile decodes input and writes it to output.
func (p *Pipeline) ProcessFile(input string, output string, seed uint64) FileResult {
	result := FileResult{Input: input, Output: output}

	reader := NewEventReader()
	defer reader.Close()
	if err := reader.MapFile(input, p.Config.Strategy); err != nil {
		result.Stage = bindStage(err)
		result.Err = err
		return result
	}
	result.Declared = reader.NumberOfEvents()

	var writer *Writer
	if p.Config.WriteData {
		hdf5Mu.Lock()
		w, err := NewWriter(output, p.Config.CompressionLevel, p.Config.WriteHits)
		hdf5Mu.Unlock()
		if err != nil {
			result.Stage = "writer"
			result.Err = err
			return result
		}
		writer = w
	}

	calibrator := NewCalibrator(p.Calibrations, p.TimeOffsets, seed)
	if p.Config.Calibrate && p.Config.WriteHistograms {
		result.Histograms = NewHistogramSet(p.Config.HistogramBins, p.Config.HistogramMax, p.Config.MatrixBins)
	}

	var energies []float64
	handle := func(event *Event) error {
		var e []float64
		if p.Config.Calibrate {
			if err := calibrator.Align(event); err != nil {
				result.Misaligned++
				if p.Config.Verbosity > 1 {
					logger.Info(fmt.Sprintf("%s: %v", input, err), "workers")
				}
			}
			energies = calibrator.Energies(event, energies)
			e = energies
			if result.Histograms != nil {
				result.Histograms.FillEvent(event, energies)
			}
		}
		result.Events++
		if writer == nil {
			return nil
		}
		hdf5Mu.Lock()
		defer hdf5Mu.Unlock()
		return writer.WriteEvent(event, e)
	}

	decodeErr, writeErr := p.decode(reader, handle)
	switch {
	case writeErr != nil:
		result.Stage = "writer"
		result.Err = writeErr
	case decodeErr != nil:
		result.Stage = "record"
		result.Err = decodeErr
	}

	if writer != nil {
		if err := p.finishWriter(writer, reader, result.Histograms); err != nil && result.Err == nil {
			result.Stage = "writer"
			result.Err = err
		}
	}

	if p.Config.Verbosity > 0 {
		message := fmt.Sprintf("%s: %d events decoded, %d declared", input, result.Events, result.Declared)
		logger.Info(message, "workers")
	}
	return result
}

// decode runs handle on every event of the reader in the configured read
// mode. It stops at the first handle error.
func (p *Pipeline) decode(reader *EventReader, handle func(*Event) error) (error, error) {
	if p.Config.ReadMode == ReadBulk {
		events, decodeErr := reader.ReadAllEvents()
		for i := range events {
			if err := handle(&events[i]); err != nil {
				return decodeErr, err
			}
		}
		return decodeErr, nil
	}

	event := NewEvent()
	for reader.NextEvent(event) {
		if err := handle(event); err != nil {
			return nil, err
		}
	}
	return reader.Err(), nil
}

func (p *Pipeline) finishWriter(writer *Writer, reader *EventReader, histograms *HistogramSet) error {
	hdf5Mu.Lock()
	defer hdf5Mu.Unlock()

	var errs []error
	metadata := make([][]byte, reader.MetadataCount())
	for i := range metadata {
		metadata[i] = reader.Metadata(i)
	}
	if err := writer.WriteMetadata(metadata); err != nil {
		errs = append(errs, err)
	}
	if err := writer.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := writer.WriteRunInfo(reader.NumberOfEvents(), reader.MetadataCount()); err != nil {
		errs = append(errs, err)
	}
	if histograms != nil {
		if err := writer.WriteHistograms(histograms); err != nil {
			errs = append(errs, err)
		}
	}
	if err := writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// bindStage names the structural stage that made binding fail.
func bindStage(err error) string {
	var formatErr *FormatError
	var truncationErr *TruncationError
	var bindErr *BindError
	switch {
	case errors.As(err, &bindErr):
		return "bind"
	case errors.As(err, &formatErr):
		return formatErr.Stage
	case errors.As(err, &truncationErr):
		return truncationErr.Stage
	default:
		return "bind"
	}
}
