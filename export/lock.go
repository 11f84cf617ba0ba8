package export

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFile = ".cag-extract.lock"

// ErrLocked signals another process is exporting into the same directory
var ErrLocked = errors.New("export directory locked by another process")

// Lock acquires an exclusive lock on the export directory, the returned
// function releases it
func Lock(dir string) (unlock func() error, err error) {
	l := flock.New(filepath.Join(dir, lockFile))

	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	return l.Unlock, nil
}
