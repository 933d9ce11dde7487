package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	decoder "github.com/next-exp/evt2hdf5/pkg"
	"golang.org/x/exp/slices"
)

var logger decoder.SlogLogger

func init() {
	logger = decoder.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	strategyName := flag.String("strategy", "auto", "Read strategy: auto, mmap or read")
	verbosity := flag.Int("verbosity", 0, "Verbosity level")
	flag.Parse()

	strategy, err := decoder.ParseStrategy(*strategyName)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	configuration := decoder.DefaultConfiguration()
	configuration.Verbosity = *verbosity
	configuration.Strategy = strategy
	decoder.SetConfiguration(configuration)
	decoder.SetLogger(logger)

	failed := 0
	for _, filename := range flag.Args() {
		if err := describeFile(filename, strategy); err != nil {
			logger.Error(fmt.Errorf("%s: %w", filename, err).Error())
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func describeFile(filename string, strategy decoder.Strategy) error {
	reader := decoder.NewEventReader()
	defer reader.Close()

	if err := reader.MapFile(filename, strategy); err != nil {
		return err
	}
	fmt.Printf("File: %s\n", reader.Filename())
	fmt.Printf("Declared events: %d\n", reader.NumberOfEvents())
	fmt.Printf("Metadata entries: %d\n", reader.MetadataCount())
	for i := 0; i < reader.MetadataCount(); i++ {
		fmt.Printf("  [%d] %q\n", i, reader.MetadataString(i))
	}

	start := time.Now()
	bulk, bulkErr := reader.ReadAllEvents()
	bulkDuration := time.Since(start)

	start = time.Now()
	cursor := make([]decoder.Event, 0, len(bulk))
	event := decoder.NewEvent()
	for reader.NextEvent(event) {
		cursor = append(cursor, event.Clone())
	}
	cursorDuration := time.Since(start)

	fmt.Printf("Decoded events: %d\n", len(bulk))
	fmt.Printf("Bulk read: %d us\n", bulkDuration.Microseconds())
	fmt.Printf("Cursor read: %d us\n", cursorDuration.Microseconds())

	same := slices.EqualFunc(bulk, cursor, func(a, b decoder.Event) bool {
		return a.Equal(&b)
	})
	fmt.Printf("Bulk and cursor match: %t\n", same)

	if bulkErr != nil {
		return bulkErr
	}
	return reader.Err()
}
