package decoder

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type ReadMode string

const (
	ReadCursor ReadMode = "cursor"
	ReadBulk   ReadMode = "bulk"
)

type Configuration struct {
	Verbosity        int                  `json:"verbosity"`
	Threads          int                  `json:"threads"`
	FilesIn          []string             `json:"files_in"`
	OutputDir        string               `json:"output_dir"`
	ReadMode         ReadMode             `json:"read_mode"`
	Strategy         Strategy             `json:"read_strategy"`
	Calibrate        bool                 `json:"calibrate"`
	Calibrations     map[string][]float64 `json:"calibrations"`
	TimeOffsets      map[string]uint64    `json:"time_offsets"`
	DitherSeed       uint64               `json:"dither_seed"`
	WriteData        bool                 `json:"write_data"`
	WriteHits        bool                 `json:"write_hits"`
	WriteHistograms  bool                 `json:"write_histograms"`
	HistogramBins    int                  `json:"histogram_bins"`
	HistogramMax     float64              `json:"histogram_max"`
	MatrixBins       int                  `json:"matrix_bins"`
	CompressionLevel int                  `json:"compression_level"`
	UseDB            bool                 `json:"use_db"`
	Host             string               `json:"host"`
	User             string               `json:"user"`
	Passwd           string               `json:"pass"`
	DBName           string               `json:"dbname"`
	RunNumber        int                  `json:"run_number"`
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

func DefaultConfiguration() Configuration {
	var config Configuration
	config.Verbosity = 0
	config.Threads = 1
	config.ReadMode = ReadCursor
	config.Strategy = StrategyAuto
	config.Calibrate = false
	config.DitherSeed = 0
	config.WriteData = true
	config.WriteHits = true
	config.WriteHistograms = true
	config.HistogramBins = 8192
	config.HistogramMax = 8192
	config.MatrixBins = 2000
	config.CompressionLevel = 4
	config.UseDB = false
	config.Host = "localhost"
	config.User = "reader"
	config.Passwd = "readonly"
	config.DBName = "calibrations"
	return config
}

// LoadConfiguration reads a JSON configuration file on top of the defaults.
// An empty filename returns the defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, config.Validate()
}

func (c Configuration) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.ReadMode != ReadCursor && c.ReadMode != ReadBulk {
		return fmt.Errorf("invalid read_mode %q", c.ReadMode)
	}
	if c.HistogramBins < 1 || c.MatrixBins < 1 {
		return fmt.Errorf("histogram bins must be positive")
	}
	if c.HistogramMax <= 0 {
		return fmt.Errorf("histogram_max must be positive, got %g", c.HistogramMax)
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return fmt.Errorf("compression_level must be between 0 and 9, got %d", c.CompressionLevel)
	}
	if _, err := c.ChannelCalibrations(); err != nil {
		return err
	}
	if _, err := c.ChannelTimeOffsets(); err != nil {
		return err
	}
	return nil
}

// ChannelCalibrations converts the calibrations keyed by channel string.
func (c Configuration) ChannelCalibrations() (map[uint16]Calibration, error) {
	calibrations := make(map[uint16]Calibration, len(c.Calibrations))
	for key, coefficients := range c.Calibrations {
		channel, err := parseChannel(key)
		if err != nil {
			return nil, err
		}
		calibrations[channel] = Calibration{Coefficients: coefficients}
	}
	return calibrations, nil
}

func (c Configuration) ChannelTimeOffsets() (map[uint16]uint64, error) {
	offsets := make(map[uint16]uint64, len(c.TimeOffsets))
	for key, offset := range c.TimeOffsets {
		channel, err := parseChannel(key)
		if err != nil {
			return nil, err
		}
		offsets[channel] = offset
	}
	return offsets, nil
}

func parseChannel(key string) (uint16, error) {
	channel, err := strconv.ParseUint(key, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid channel id %q: %w", key, err)
	}
	return uint16(channel), nil
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("Files in: %v", config.FilesIn), "config")
	logger.Info(fmt.Sprintf("Output dir: %s", config.OutputDir), "config")
	logger.Info(fmt.Sprintf("Threads: %d", config.Threads), "config")
	logger.Info(fmt.Sprintf("Read mode: %s", config.ReadMode), "config")
	logger.Info(fmt.Sprintf("Read strategy: %s", config.Strategy), "config")
	logger.Info(fmt.Sprintf("Calibrate: %t", config.Calibrate), "config")
	logger.Info(fmt.Sprintf("Calibrated channels: %d", len(config.Calibrations)), "config")
	logger.Info(fmt.Sprintf("Time offsets: %d", len(config.TimeOffsets)), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Write hits: %t", config.WriteHits), "config")
	logger.Info(fmt.Sprintf("Write histograms: %t", config.WriteHistograms), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Use DB: %t", config.UseDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
