//go:build !unix

package decoder

import "errors"

const mmapSupported = false

func mapFile(path string) ([]byte, error) {
	return nil, errors.New("mmap is not supported on this platform")
}

func unmapFile(data []byte) error {
	return nil
}
