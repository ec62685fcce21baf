package fs

import (
	"os"
	"path/filepath"

	"github.com/fwojciec/wikifuse"
)

// Writer writes configuration documents to a directory.
type Writer struct {
	baseDir string
	codec   wikifuse.ConfigCodec
}

// NewWriter creates a new Writer that writes to the given base directory.
// The codec's first extension names the files.
func NewWriter(baseDir string, codec wikifuse.ConfigCodec) *Writer {
	return &Writer{baseDir: baseDir, codec: codec}
}

// Path returns the file path used for key.
func (w *Writer) Path(key string) string {
	return filepath.Join(w.baseDir, wikifuse.NormalizeSourceKey(key)+w.codec.Extensions()[0])
}

// Write encodes cfg and replaces its document atomically: the content is
// written to a temporary file which is then renamed over the target.
// Returns EINVALID if the document exists and overwrite is false.
func (w *Writer) Write(cfg *wikifuse.SourceConfig, overwrite bool) (string, error) {
	if cfg.Key == "" {
		return "", wikifuse.Errorf(wikifuse.EINVALID, "source key required")
	}
	target := w.Path(cfg.Key)
	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return "", wikifuse.Errorf(wikifuse.EINVALID, "configuration %s already exists", target)
		}
	}

	data, err := w.codec.Encode(cfg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(w.baseDir, ".wikifuse-*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}
	return target, nil
}
