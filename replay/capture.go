package replay

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// capture pairs a decompressing reader with the file it wraps so Close
// releases the file handle.
type capture struct {
	io.Reader
	closer io.Closer
}

func (c capture) Close() error { return c.closer.Close() }

// ReadCaptureFile opens a capture for reading, transparently decompressing
// .xz and .lzma files by extension. Anything else is read as-is.
func ReadCaptureFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		r, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening xz capture: %w", err)
		}
		return capture{Reader: r, closer: f}, nil
	case ".lzma":
		r, err := lzma.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening lzma capture: %w", err)
		}
		return capture{Reader: r, closer: f}, nil
	default:
		return f, nil
	}
}
