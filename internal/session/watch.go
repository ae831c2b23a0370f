package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const maxEventSize = 1 << 20

// Watch subscribes to directory updates. The returned channel is closed when ctx is
// cancelled or the server closes the connection.
func (s *Session) Watch(ctx context.Context) (<-chan directory.Event, error) {
	u, err := s.eventsURL()
	if err != nil {
		return nil, err
	}
	// The websocket handshake rejects clients with a timeout, the event stream is long lived.
	client := *s.client
	client.Timeout = 0
	ws, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPClient: &client})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", u, err)
	}
	ws.SetReadLimit(maxEventSize)

	events := make(chan directory.Event)
	go func() {
		defer close(events)
		defer ws.Close(websocket.StatusNormalClosure, "")
		for {
			var ev directory.Event
			err := wsjson.Read(ctx, ws, &ev)
			switch {
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
				s.logger.Info("event stream closed by server")
				return
			case errors.Is(err, context.Canceled):
				return
			case err != nil:
				if ctx.Err() == nil {
					s.logger.Error("reading event", zap.Error(err))
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// eventsURL returns the websocket URL of the proxy's event stream.
func (s *Session) eventsURL() (string, error) {
	u, err := url.Parse(s.endpoint(directory.EventsPath))
	if err != nil {
		return "", fmt.Errorf("parsing proxy url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}
