package session

import (
	"context"
	"fmt"

	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"go.uber.org/zap"
)

// Register announces the session to the coordinator. If the direct call fails and the
// fallback policy allows it, the registration is retried once through the proxy.
func (s *Session) Register(ctx context.Context) error {
	body := directory.RegisterRequest{PeerID: s.id.PeerID, PeerPort: s.id.Port}

	err := s.register(ctx, s.coordinatorURL(), body)
	if err == nil {
		s.logger.Info("registered with coordinator")
		return nil
	}
	if !s.config.Fallback.allows(err) {
		s.logger.Error("registration failed", zap.Error(err))
		return err
	}

	s.logger.Warn("direct registration failed, trying proxy", zap.Error(err))
	if err := s.register(ctx, s.endpoint(directory.RegisterPath), body); err != nil {
		s.logger.Error("proxied registration failed", zap.Error(err))
		return err
	}
	s.logger.Info("registered through proxy")
	return nil
}

func (s *Session) register(ctx context.Context, url string, body directory.RegisterRequest) error {
	var res directory.Response
	if err := s.postJSON(ctx, url, body, &res); err != nil {
		return fmt.Errorf("registering at %s: %w", url, err)
	}
	return res.Err("register")
}
