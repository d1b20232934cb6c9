package utils

import "os"

// FileSize returns the size of the file at path, or 0 when the file does
// not exist or cannot be read. The on-disk length is authoritative for
// resume offsets, so "absent" and "empty" are deliberately the same.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
