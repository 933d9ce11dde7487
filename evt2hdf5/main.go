package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	decoder "github.com/next-exp/evt2hdf5/pkg"
)

var configuration decoder.Configuration

var logger decoder.SlogLogger

func init() {
	logger = decoder.NewSlogLogger(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	threads := flag.Int("threads", 0, "Number of worker threads (overrides configuration)")
	outputDir := flag.String("output-dir", "", "Output directory (overrides configuration)")
	readMode := flag.String("mode", "", "Read mode: cursor or bulk (overrides configuration)")
	flag.Parse()

	var err error
	configuration, err = decoder.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if *threads > 0 {
		configuration.Threads = *threads
	}
	if *outputDir != "" {
		configuration.OutputDir = *outputDir
	}
	if *readMode != "" {
		configuration.ReadMode = decoder.ReadMode(*readMode)
	}
	if flag.NArg() > 0 {
		configuration.FilesIn = flag.Args()
	}
	if err := configuration.Validate(); err != nil {
		logger.Error(fmt.Errorf("Invalid configuration: %w", err).Error())
		os.Exit(1)
	}
	if len(configuration.FilesIn) == 0 {
		logger.Error("No input files")
		os.Exit(1)
	}

	decoder.SetConfiguration(configuration)
	decoder.SetLogger(logger)

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		decoder.PrintConfiguration(configuration, logger)
	}

	if configuration.OutputDir != "" {
		if err := decoder.CreateDirectory(configuration.OutputDir, 0o755); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
	}

	pipeline, err := newPipeline(configuration)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	summary := pipeline.ProcessFiles(ctx, configuration.FilesIn)
	duration := time.Since(start)

	events := 0
	for _, result := range summary.Results {
		if result.Err != nil {
			message := fmt.Sprintf("%s: failed at %s: %v", result.Input, result.Stage, result.Err)
			logger.Error(message)
			continue
		}
		events += result.Events
		message := fmt.Sprintf("%s -> %s: %d events", result.Input, result.Output, result.Events)
		logger.Info(message, "main")
	}
	message := fmt.Sprintf("Processed %d files (%d failed), %d events in %d ms",
		len(summary.Results), summary.Failed, events, duration.Milliseconds())
	logger.Info(message, "main")

	if summary.Failed > 0 {
		stop()
		os.Exit(1)
	}
}

// newPipeline loads the calibrations from the database when requested, and
// from the configuration file otherwise.
func newPipeline(config decoder.Configuration) (*decoder.Pipeline, error) {
	pipeline := &decoder.Pipeline{Config: config}
	if !config.Calibrate {
		return pipeline, nil
	}

	if config.UseDB {
		dbConn, err := decoder.ConnectToDatabase(config.User, config.Passwd, config.Host, config.DBName)
		if err != nil {
			return nil, fmt.Errorf("Error connection to database: %w", err)
		}
		defer dbConn.Close()

		pipeline.Calibrations, pipeline.TimeOffsets, err = decoder.LoadCalibrations(dbConn, config.RunNumber)
		if err != nil {
			return nil, err
		}
		return pipeline, nil
	}

	var err error
	if pipeline.Calibrations, err = config.ChannelCalibrations(); err != nil {
		return nil, err
	}
	if pipeline.TimeOffsets, err = config.ChannelTimeOffsets(); err != nil {
		return nil, err
	}
	return pipeline, nil
}
