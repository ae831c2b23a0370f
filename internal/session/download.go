package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"go.uber.org/zap"
)

// ProgressFunc receives the completion of a download in percent.
type ProgressFunc func(percent float64)

var errNoContent = errors.New("server returned no file content")

// Download fetches filename from the peer through the proxy and saves it, returning the
// path it was saved to. Only one download per filename may be in flight.
func (s *Session) Download(ctx context.Context, filename string, peer directory.PeerAddr, onProgress ProgressFunc) (string, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}
	if err := s.downloads.begin(filename, peer); err != nil {
		s.logger.Warn("download already in progress", zap.String("file", filename))
		return "", err
	}
	defer s.downloads.finish(filename)

	logger := s.logger.With(zap.String("file", filename), zap.String("peer", peer.String()))
	path, err := s.download(ctx, filename, peer, onProgress)
	if err != nil {
		logger.Error("download failed", zap.Error(err))
		return "", err
	}
	logger.Info("file downloaded", zap.String("path", path))
	onProgress(100)
	return path, nil
}

func (s *Session) download(ctx context.Context, filename string, peer directory.PeerAddr, onProgress ProgressFunc) (string, error) {
	query := url.Values{}
	query.Set(directory.QueryFilename, filename)
	query.Set(directory.QueryPeerIP, peer.Host)
	query.Set(directory.QueryPeerPort, strconv.Itoa(peer.Port))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(directory.DownloadPath)+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating download request: %w", err)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", filename, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("downloading %s: HTTP %d", filename, res.StatusCode)
	}
	if isJSON(res.Header.Get("Content-Type")) {
		var payload directory.Response
		if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
			return "", fmt.Errorf("decoding download response: %w", err)
		}
		if err := payload.Err("download"); err != nil {
			return "", err
		}
		return "", fmt.Errorf("downloading %s: %w", filename, errNoContent)
	}

	total := res.ContentLength
	if total < 0 {
		total = 0
	}
	s.downloads.update(filename, func(t *Transfer) { t.Total = total })
	body := &progressReader{
		r: res.Body,
		onRead: func(n int64) {
			s.downloads.update(filename, func(t *Transfer) { t.Transferred = n })
			if s.config.StreamProgress && total > 0 {
				if pct := float64(n) / float64(total) * 100; pct < 100 {
					onProgress(pct)
				}
			}
		},
	}

	var src io.Reader = body
	if !s.config.StreamProgress {
		b, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", filename, err)
		}
		src = bytes.NewReader(b)
	}
	path, err := s.saver.Save(filename, src)
	if err != nil {
		return "", fmt.Errorf("saving %s: %w", filename, err)
	}
	return path, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// progressReader reports the running total of bytes read.
type progressReader struct {
	r      io.Reader
	n      int64
	onRead func(total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.n += int64(n)
		p.onRead(p.n)
	}
	return n, err
}
