package session

import (
	"context"
	"fmt"
	"time"

	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"go.uber.org/zap"
)

// Heartbeat sends a single liveness signal.
func (s *Session) Heartbeat(ctx context.Context) error {
	var res directory.Response
	if err := s.postJSON(ctx, s.endpoint(directory.HeartbeatPath), directory.PeerRequest{PeerID: s.id.PeerID}, &res); err != nil {
		return fmt.Errorf("sending heartbeat: %w", err)
	}
	return res.Err("heartbeat")
}

// startHeartbeat starts the liveness task unless it is already running or the session
// was stopped in the meantime.
func (s *Session) startHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.stopHeartbeat != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.stopHeartbeat, s.heartbeatDone = cancel, done
	go s.heartbeatLoop(ctx, done)
}

// heartbeatLoop beats every interval until ctx is cancelled. Failures are logged and
// otherwise ignored.
func (s *Session) heartbeatLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Heartbeat(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("heartbeat failed", zap.Error(err))
				continue
			}
			s.logger.Debug("heartbeat sent")
		}
	}
}
