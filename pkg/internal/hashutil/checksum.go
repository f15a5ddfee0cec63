// Package hashutil computes the content checksums used to verify copies
package hashutil

import (
	"crypto/sha256"
	"fmt"

	"github.com/arthur-debert/dotvault/pkg/types"
)

// Sum returns the SHA256 checksum of data as "sha256:<hex>"
func Sum(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

// FileChecksum reads path through fsys and returns its checksum
func FileChecksum(fsys types.FS, path string) (string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}
