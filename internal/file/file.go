package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const DOWNLOAD_TEMP_FILE_NAME_PREFIX = "tuneshare-download-temp"

var ErrInvalidFileName = errors.New("invalid file name")

// ------------------------------------------------------- Saver -------------------------------------------------------

// Saver stores downloaded payloads in a directory on the local filesystem.
type Saver struct {
	dir       string
	overwrite bool
}

// NewSaver returns a Saver writing into dir. If overwrite is false existing files are kept
// and the new file is stored under the next free "name (n).ext".
func NewSaver(dir string, overwrite bool) *Saver {
	return &Saver{dir: dir, overwrite: overwrite}
}

func (s *Saver) Dir() string {
	return s.dir
}

// Save writes the payload to disk and returns the path it was stored at.
func (s *Saver) Save(name string, r io.Reader) (string, error) {
	c, err := s.Stage(name, r)
	if err != nil {
		return "", err
	}
	path, err := c.Commit()
	if err != nil {
		_ = c.Discard()
		return "", err
	}
	return path, nil
}

// Stage writes the payload into a temporary file next to its destination. Nothing is
// visible under the final name until the returned Committer is committed.
func (s *Saver) Stage(name string, r io.Reader) (Committer, error) {
	base, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}
	temp, err := os.CreateTemp(s.dir, DOWNLOAD_TEMP_FILE_NAME_PREFIX)
	if err != nil {
		return nil, fmt.Errorf("creating temp download file: %w", err)
	}
	size, err := io.Copy(temp, r)
	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(temp.Name())
		return nil, fmt.Errorf("writing temp download file: %w", err)
	}
	return &committer{
		dir:       s.dir,
		name:      base,
		temp:      temp.Name(),
		size:      size,
		overwrite: s.overwrite,
	}, nil
}

// Committer moves a staged file into its final location.
type Committer interface {
	FileName() string
	Size() int64
	Commit() (string, error)
	Discard() error
}

type committer struct {
	dir       string
	name      string
	temp      string
	size      int64
	overwrite bool
}

func (c *committer) FileName() string {
	return c.name
}

func (c *committer) Size() int64 {
	return c.size
}

func (c *committer) Commit() (string, error) {
	dest := filepath.Join(c.dir, c.name)
	if !c.overwrite {
		dest = nextFreePath(c.dir, c.name)
	}
	if err := os.Rename(c.temp, dest); err != nil {
		return "", fmt.Errorf("moving %s into place: %w", c.name, err)
	}
	return dest, nil
}

func (c *committer) Discard() error {
	err := os.Remove(c.temp)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ----------------------------------------------------- Utilities -----------------------------------------------------

// CleanName reduces a remote file name to a single path element.
func CleanName(name string) (string, error) {
	base := filepath.Base(filepath.Clean(strings.ReplaceAll(name, `\`, "/")))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return base, nil
}

// Exists reports whether a file with the cleaned name is present in dir.
func Exists(dir, name string) bool {
	base, err := CleanName(name)
	if err != nil {
		return false
	}
	return fileExists(filepath.Join(dir, base))
}

// optimistically remove files created by tuneshare with the specified prefix
func RemoveTemporaryFiles(dir, prefix string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
}

// ------------------------------------------------------- Helper ------------------------------------------------------

// nextFreePath returns dir/name, or dir/"name (n).ext" for the lowest n not yet taken.
func nextFreePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if !fileExists(path) {
		return path
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !fileExists(candidate) {
			return candidate
		}
	}
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}
