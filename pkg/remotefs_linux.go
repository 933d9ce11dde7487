//go:build linux

package decoder

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	SMB_SUPER_MAGIC  = 0x517B
	NFS_SUPER_MAGIC  = 0x6969
	GPFS_SUPER_MAGIC = 0x47504653
)

// IsRemoteOrSharedFS reports whether path lives on SMB, NFS or GPFS, where
// memory mapping is unreliable.
func IsRemoteOrSharedFS(path string) (bool, error) {
	if path == "" {
		return false, errors.New("invalid path")
	}
	var sb unix.Statfs_t
	if err := unix.Statfs(path, &sb); err != nil {
		return false, fmt.Errorf("can't statfs %s: %w", path, err)
	}
	switch int64(sb.Type) {
	case SMB_SUPER_MAGIC, NFS_SUPER_MAGIC, GPFS_SUPER_MAGIC:
		return true, nil
	}
	return false, nil
}
