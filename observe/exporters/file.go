package exporters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Permissions for sink directories and files. Both are open for read and
// write so collectors running as other users can tail and truncate them.
const (
	DefaultDirPerm  os.FileMode = 0o777
	DefaultFilePerm os.FileMode = 0o666
)

// FileSink appends newline-terminated lines to a file.
//
// Contract:
// - Concurrency: Append is safe for concurrent use; appends are not
//   serialized against each other, each is one O_APPEND write.
// - Ownership: no file handle outlives an Append call.
// - Errors: Append reports failures through Result and never retries.
type FileSink struct {
	path   string
	closed atomic.Bool
}

// NewFileSink prepares path for appending: it creates the parent directory
// (recursively) and an empty file when they do not exist. Existing content
// is left untouched. A failure here means the sink cannot work at all.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return nil, fmt.Errorf("exporters: create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, DefaultFilePerm)
	switch {
	case err == nil:
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("exporters: create %s: %w", path, err)
		}
		// The umask may have narrowed the mode.
		if err := os.Chmod(path, DefaultFilePerm); err != nil {
			return nil, fmt.Errorf("exporters: chmod %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrExist):
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("exporters: stat %s: %w", path, statErr)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("exporters: %s is a directory", path)
		}
	default:
		return nil, fmt.Errorf("exporters: create %s: %w", path, err)
	}

	return &FileSink{path: path}, nil
}

// Path returns the target file path.
func (s *FileSink) Path() string {
	return s.path
}

// Append writes lines, each followed by a newline, in a single write.
// An empty batch writes nothing and succeeds.
func (s *FileSink) Append(ctx context.Context, lines [][]byte) Result {
	if s.closed.Load() {
		return Failure(ErrSinkClosed)
	}
	if len(lines) == 0 {
		return Succeeded()
	}
	if err := ctx.Err(); err != nil {
		return Failure(err)
	}

	size := 0
	for _, l := range lines {
		size += len(l) + 1
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for _, l := range lines {
		buf.Write(l)
		buf.WriteByte('\n')
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, DefaultFilePerm)
	if err != nil {
		return Failure(fmt.Errorf("exporters: open %s: %w", s.path, err))
	}
	_, werr := f.Write(buf.Bytes())
	cerr := f.Close()
	if werr != nil {
		return Failure(fmt.Errorf("exporters: write %s: %w", s.path, werr))
	}
	if cerr != nil {
		return Failure(fmt.Errorf("exporters: close %s: %w", s.path, cerr))
	}
	return Succeeded()
}

// Shutdown marks the sink closed. It is idempotent. Writes already
// reported as failed are not drained or retried.
func (s *FileSink) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	return nil
}
