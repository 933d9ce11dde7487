//go:build unix

package decoder

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

const mmapSupported = true

// mapFile maps the whole file read-only. Empty files are not mapped and
// return nil.
func mapFile(path string) ([]byte, error) {
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
	if info.Size() == 0 {
		return nil, nil
	}
	if info.Size() > math.MaxInt {
		return nil, fmt.Errorf("file size %d exceeds addressable memory", info.Size())
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	return data, nil
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}
