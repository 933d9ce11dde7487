//go:build !linux

package decoder

import "errors"

// IsRemoteOrSharedFS always reports false outside Linux, where filesystem
// magic numbers are not available.
func IsRemoteOrSharedFS(path string) (bool, error) {
	if path == "" {
		return false, errors.New("invalid path")
	}
	return false, nil
}
