// Package fuzzcorpus writes inputs that fail a round-trip property to
// uniquely named scratch files so they can be replayed after the run.
package fuzzcorpus

import (
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
)

// Name returns a unique fixture name with the given prefix.
func Name(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV4()).String()
}

// Write stores data under a unique name in dir and returns the path.
func Write(dir, prefix string, data []byte) (string, error) {
	path := filepath.Join(dir, Name(prefix)+".tex")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
