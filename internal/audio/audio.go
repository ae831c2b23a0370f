// Package audio decides which local files may be shared.
package audio

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/exp/slices"
)

const RejectionMessage = "unsupported file type"

var ErrUnsupportedType = errors.New(RejectionMessage)

// Extensions are accepted regardless of the detected MIME type.
var Extensions = []string{".mp3", ".wav", ".flac", ".m4a"}

// Accepted reports whether a file with the provided name and MIME type passes the allow-list.
func Accepted(name, mimeType string) bool {
	if strings.HasPrefix(mimeType, "audio/") {
		return true
	}
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// DetectFile resolves the MIME type of a local file. The extension table is consulted
// first, the file content is sniffed when the extension is unknown.
func DetectFile(path string) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t, nil
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting type of %s: %w", path, err)
	}
	return mtype.String(), nil
}

// Check returns ErrUnsupportedType if the file at path is not accepted.
func Check(path string) error {
	mimeType, err := DetectFile(path)
	if err != nil {
		return err
	}
	if !Accepted(filepath.Base(path), mimeType) {
		return fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, filepath.Base(path), mimeType)
	}
	return nil
}
