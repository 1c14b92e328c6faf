package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ivlev/anim2lvgl/internal/logging"
)

// stage collects artifacts in a temporary directory next to the output
// directory and moves them into place on commit.
type stage struct {
	dir   string
	out   string
	names []string
}

func newStage(out string) (*stage, error) {
	if err := os.MkdirAll(out, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	dir, err := os.MkdirTemp(out, ".anim2lvgl_")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return &stage{dir: dir, out: out}, nil
}

func (s *stage) Create(name string) (io.WriteCloser, error) {
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	s.names = append(s.names, name)
	return f, nil
}

// commit renames every staged file into the output directory.
func (s *stage) commit() error {
	for _, name := range s.names {
		src, dst := filepath.Join(s.dir, name), filepath.Join(s.out, name)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		logging.Logger().Debug("artifact committed", "path", dst)
	}
	s.names = nil
	return nil
}

func (s *stage) cleanup() {
	os.RemoveAll(s.dir)
}

// dirSink writes files straight into a directory.
type dirSink string

func (d dirSink) Create(name string) (io.WriteCloser, error) {
	f, err := os.Create(filepath.Join(string(d), name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return f, nil
}
