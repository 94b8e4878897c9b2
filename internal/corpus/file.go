// Package corpus reads raw rated review lines from a file or a Postgres
// table. Sources only fetch lines; parsing happens in the index.
package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
)

const maxLineBytes = 1024 * 1024

// FileSource reads corpus lines from a text file, one review per line.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Lines returns the first limit lines of the file. A file that cannot be
// opened or read yields ErrSourceUnavailable and no lines.
func (s *FileSource) Lines(ctx context.Context, limit int) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w: %w", s.Path, apperrors.ErrSourceUnavailable, err)
	}
	defer f.Close()
	lines, err := ReadLines(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w: %w", s.Path, apperrors.ErrSourceUnavailable, err)
	}
	return lines, nil
}

func (s *FileSource) String() string {
	return "file:" + s.Path
}

// ReadLines reads at most limit lines from r.
func ReadLines(ctx context.Context, r io.Reader, limit int) ([]string, error) {
	lines := make([]string, 0)
	if limit <= 0 {
		return lines, nil
	}
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineBytes)
	for len(lines) < limit && scanner.Scan() {
		if len(lines)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
