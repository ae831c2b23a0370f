// Package session implements the client side of the directory: a session registers an
// identity with the coordinator, keeps it alive with heartbeats and performs the file
// operations exposed by the web server.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/SpatiumPortae/tuneshare/internal/file"
	"github.com/SpatiumPortae/tuneshare/internal/identity"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"go.uber.org/zap"
)

// Saver persists a downloaded payload and returns the location it was stored at.
type Saver interface {
	Save(name string, r io.Reader) (string, error)
}

// Session is a client session against a single web server and coordinator.
// It is safe for concurrent use.
type Session struct {
	config Config
	id     identity.Identity
	client *http.Client
	logger *zap.Logger
	saver  Saver

	mu            sync.Mutex
	running       bool
	stopHeartbeat context.CancelFunc
	heartbeatDone chan struct{}

	uploads   *transfers
	downloads *transfers
}

type Option func(*Session)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		s.client = client
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithSaver(saver Saver) Option {
	return func(s *Session) {
		s.saver = saver
	}
}

// WithIdentity makes the session use the provided identity instead of generating one.
func WithIdentity(id identity.Identity) Option {
	return func(s *Session) {
		s.id = id
	}
}

// New creates a session. The identity and advertised port are generated here, no network
// calls are made. The provided config will be merged with the default config.
func New(config *Config, opts ...Option) (*Session, error) {
	merged := MergeConfig(defaultConfig, config)
	if _, err := ParseFallbackPolicy(string(merged.Fallback)); err != nil {
		return nil, err
	}
	if merged.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("invalid heartbeat interval %s", merged.HeartbeatInterval)
	}
	s := &Session{
		config:    merged,
		client:    http.DefaultClient,
		logger:    zap.NewNop(),
		uploads:   newTransfers(),
		downloads: newTransfers(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id.PeerID == "" {
		id, err := identity.Generate(merged.PeerPrefix, merged.PortMin, merged.PortMax)
		if err != nil {
			return nil, fmt.Errorf("generating session identity: %w", err)
		}
		s.id = id
	}
	if s.saver == nil {
		s.saver = file.NewSaver(merged.DownloadDir, merged.OverwriteFiles)
	}
	s.logger = s.logger.With(zap.String("peer_id", s.id.PeerID))
	s.logger.Info("session created", zap.Int("peer_port", s.id.Port))
	return s, nil
}

func (s *Session) ID() identity.Identity {
	return s.id
}

func (s *Session) Config() Config {
	return s.config
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start registers the session and starts the heartbeat. Errors are logged, the session
// is considered started regardless. Starting a running session is a no-op.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Register(ctx); err != nil {
		s.logger.Error("session started unregistered", zap.Error(err))
	}
	s.startHeartbeat()
	s.logger.Info("session started")
}

// Stop stops the heartbeat and makes a single best-effort unregister call. In-flight
// transfers are left to complete. Errors are logged, never returned.
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	s.running = false
	cancel, done := s.stopHeartbeat, s.heartbeatDone
	s.stopHeartbeat, s.heartbeatDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if err := s.Unregister(ctx); err != nil {
		s.logger.Error("unregistering session", zap.Error(err))
	}
	s.logger.Info("session stopped")
}

// Unregister tells the web server that this peer is going offline.
func (s *Session) Unregister(ctx context.Context) error {
	var res directory.Response
	if err := s.postJSON(ctx, s.endpoint(directory.UnregisterPath), directory.PeerRequest{PeerID: s.id.PeerID}, &res); err != nil {
		return fmt.Errorf("unregistering: %w", err)
	}
	return res.Err("unregister")
}

// Downloading reports whether a download of filename is in flight.
func (s *Session) Downloading(filename string) bool {
	_, ok := s.downloads.get(filename)
	return ok
}

// Downloads returns the in-flight downloads.
func (s *Session) Downloads() []Transfer {
	return s.downloads.snapshot()
}

// Uploads returns the in-flight uploads.
func (s *Session) Uploads() []Transfer {
	return s.uploads.snapshot()
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

// endpoint returns the URL of a web server path.
func (s *Session) endpoint(path string) string {
	return strings.TrimSuffix(s.config.ProxyURL, "/") + path
}

// coordinatorURL returns the URL of the coordinator's direct registration endpoint.
func (s *Session) coordinatorURL() string {
	base := s.config.CoordinatorAddr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimSuffix(base, "/") + directory.RegisterDirectPath
}

func (s *Session) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, out)
}

func (s *Session) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return s.do(req, out)
}

// do performs the request and decodes the JSON response. The returned errors are all
// transport level: the application level outcome is carried in the decoded response.
func (s *Session) do(req *http.Request, out any) error {
	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response (HTTP %d): %w", req.URL.Path, res.StatusCode, err)
	}
	return nil
}

// isRejection reports whether err is an application level rejection.
func isRejection(err error) bool {
	var statusErr *directory.StatusError
	return errors.As(err, &statusErr)
}
