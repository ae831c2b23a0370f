package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/SpatiumPortae/tuneshare/internal/audio"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"go.uber.org/zap"
)

// ShareResult is the outcome of sharing one file of a batch.
type ShareResult struct {
	File    string
	Success bool
	Message string
	Err     error
}

// ShareBatch shares the accepted files one after another and returns one result per
// path, in the order of paths. Files rejected by the allow-list are never uploaded.
func (s *Session) ShareBatch(ctx context.Context, paths []string) []ShareResult {
	results := make([]ShareResult, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		if err := audio.Check(path); err != nil {
			msg := err.Error()
			if errors.Is(err, audio.ErrUnsupportedType) {
				msg = audio.RejectionMessage
			}
			s.logger.Warn("not sharing file", zap.String("file", name), zap.Error(err))
			results = append(results, ShareResult{File: name, Message: msg, Err: err})
			continue
		}
		msg, err := s.Share(ctx, path)
		if err != nil {
			results = append(results, ShareResult{File: name, Message: err.Error(), Err: err})
			continue
		}
		results = append(results, ShareResult{File: name, Success: true, Message: msg})
	}
	return results
}

// Share uploads the file at path and returns the server's message.
func (s *Session) Share(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	if err := s.uploads.begin(name, directory.PeerAddr{}); err != nil {
		return "", err
	}
	defer s.uploads.finish(name)

	body, contentType, err := s.uploadBody(path)
	if err != nil {
		return "", err
	}
	size := int64(body.Len())
	s.uploads.update(name, func(t *Transfer) { t.Total = size })

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(directory.UploadPath), body)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var res directory.Response
	if err := s.do(req, &res); err != nil {
		s.logger.Error("upload failed", zap.String("file", name), zap.Error(err))
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	s.uploads.update(name, func(t *Transfer) { t.Transferred = size })
	if err := res.Err("upload"); err != nil {
		s.logger.Error("upload rejected", zap.String("file", name), zap.Error(err))
		return "", err
	}
	s.logger.Info("file shared", zap.String("file", name), zap.Int64("size", size))
	return res.Message, nil
}

// uploadBody builds the multipart form carrying the file and the peer id.
func (s *Session) uploadBody(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	mimeType, err := audio.DetectFile(path)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		directory.FieldFile, escapeQuotes(filepath.Base(path))))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	if err := w.WriteField(directory.FieldPeerID, s.id.PeerID); err != nil {
		return nil, "", fmt.Errorf("writing peer id field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
