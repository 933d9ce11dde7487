package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var ErrNotRegularFile = errors.New("not a regular file")

// Source owns the bytes of one input file.
type Source interface {
	Path() string
	Bytes() []byte
	Close() error
}

// Strategy selects how a MappedSource acquires the file bytes.
type Strategy int

const (
	// StrategyAuto memory-maps the file unless it lives on a remote or shared
	// filesystem, where it is read instead.
	StrategyAuto Strategy = iota
	StrategyMmap
	StrategyRead
)

var strategyStrings = []string{
	"auto",
	"mmap",
	"read",
}

func (s Strategy) String() string {
	if s < StrategyAuto || s > StrategyRead {
		return "UNKNOWN"
	}
	return strategyStrings[s]
}

func ParseStrategy(str string) (Strategy, error) {
	for i, v := range strategyStrings {
		if v == str {
			return Strategy(i), nil
		}
	}
	return StrategyAuto, fmt.Errorf("invalid Strategy: %s", str)
}

func (s Strategy) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Strategy) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	strategy, err := ParseStrategy(str)
	if err != nil {
		return err
	}
	*s = strategy
	return nil
}

// MappedSource holds a file either memory-mapped read-only or read into the
// heap. The bytes must not be modified.
type MappedSource struct {
	path   string
	data   []byte
	mapped bool
}

func OpenMappedSource(path string, strategy Strategy) (*MappedSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &BindError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &BindError{Path: path, Err: ErrNotRegularFile}
	}

	useMmap := strategy != StrategyRead && mmapSupported
	if useMmap && strategy == StrategyAuto {
		remote, err := IsRemoteOrSharedFS(path)
		if err != nil {
			return nil, &BindError{Path: path, Err: err}
		}
		if remote {
			if configuration.Verbosity > 0 {
				message := fmt.Sprintf("%s is on a remote filesystem, reading it instead of mapping", path)
				logger.Info(message, "source")
			}
			useMmap = false
		}
	}

	source := &MappedSource{path: path}
	if useMmap {
		source.data, err = mapFile(path)
		source.mapped = source.data != nil
	} else {
		source.data, err = readFile(path)
	}
	if err != nil {
		return nil, &BindError{Path: path, Err: err}
	}
	return source, nil
}

func (s *MappedSource) Path() string { return s.path }

func (s *MappedSource) Bytes() []byte { return s.data }

func (s *MappedSource) Len() int { return len(s.data) }

// IsMapped reports whether the bytes are a memory mapping of the file.
func (s *MappedSource) IsMapped() bool { return s.mapped }

// Close releases the bytes. It is safe to call more than once.
func (s *MappedSource) Close() error {
	data, mapped := s.data, s.mapped
	s.data = nil
	s.mapped = false
	if mapped && data != nil {
		if err := unmapFile(data); err != nil {
			return fmt.Errorf("error unmapping %q: %w", s.path, err)
		}
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotRegularFile
	}
	if info.Size() > math.MaxInt {
		return nil, fmt.Errorf("file size %d exceeds addressable memory", info.Size())
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, err
	}
	return data, nil
}

// MemorySource wraps bytes already in memory.
type MemorySource struct {
	name string
	data []byte
}

func NewMemorySource(name string, data []byte) *MemorySource {
	return &MemorySource{name: name, data: data}
}

func (s *MemorySource) Path() string { return s.name }

func (s *MemorySource) Bytes() []byte { return s.data }

func (s *MemorySource) Close() error {
	s.data = nil
	return nil
}
