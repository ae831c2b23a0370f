// directory.go specifies the messages exchanged with the directory web server and the coordinator.
package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
)

const (
	StatusSuccess = "success"
	StatusFailure = "error"
)

// Paths of the endpoints exposed by the web server. RegisterDirectPath is served by the coordinator.
const (
	RegisterDirectPath = "/register"
	RegisterPath       = "/api/register"
	HeartbeatPath      = "/api/heartbeat"
	UploadPath         = "/api/upload"
	DownloadPath       = "/api/download"
	SearchPath         = "/api/search"
	FilesPath          = "/api/files"
	PeersPath          = "/api/peers"
	UnregisterPath     = "/api/unregister"
	EventsPath         = "/ws/events"
	VersionPath        = "/version"
	PingPath           = "/ping"
)

// Multipart field and query parameter names.
const (
	FieldFile     = "file"
	FieldPeerID   = "peer_id"
	QueryFilename = "filename"
	QueryPeerIP   = "peer_ip"
	QueryPeerPort = "peer_port"
	QueryKeyword  = "keyword"
)

var ErrInvalidPeerAddr = errors.New("invalid peer address")

// PeerAddr is the address a peer advertises to the coordinator.
// On the wire it is the tuple ["host", port].
type PeerAddr struct {
	Host string
	Port int
}

// ParsePeerAddr parses an address on the form host:port.
func ParsePeerAddr(s string) (PeerAddr, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return PeerAddr{}, fmt.Errorf("%w: %s", ErrInvalidPeerAddr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return PeerAddr{}, fmt.Errorf("%w: port %q out of range", ErrInvalidPeerAddr, port)
	}
	if host == "" {
		return PeerAddr{}, fmt.Errorf("%w: missing host", ErrInvalidPeerAddr)
	}
	return PeerAddr{Host: host, Port: p}, nil
}

func (a PeerAddr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

func (a PeerAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{a.Host, a.Port})
}

func (a *PeerAddr) UnmarshalJSON(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return fmt.Errorf("decoding peer address: %w", err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("decoding peer address: expected 2 elements, got %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &a.Host); err != nil {
		return fmt.Errorf("decoding peer host: %w", err)
	}
	port, err := decodePort(tuple[1])
	if err != nil {
		return fmt.Errorf("decoding peer port: %w", err)
	}
	a.Port = port
	return nil
}

// decodePort accepts the port as a JSON number or a numeric string.
func decodePort(raw json.RawMessage) (int, error) {
	var port int
	if err := json.Unmarshal(raw, &port); err == nil {
		return port, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// Peer is a registered peer. On the wire it is the tuple ["peer_id", ["host", port]].
type Peer struct {
	ID   string
	Addr PeerAddr
}

func (p Peer) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.ID, p.Addr})
}

func (p *Peer) UnmarshalJSON(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return fmt.Errorf("decoding peer: %w", err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("decoding peer: expected 2 elements, got %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &p.ID); err != nil {
		return fmt.Errorf("decoding peer id: %w", err)
	}
	return json.Unmarshal(tuple[1], &p.Addr)
}

// ------------------------------------------------------ Requests -----------------------------------------------------

type RegisterRequest struct {
	PeerID   string `json:"peer_id"`
	PeerPort int    `json:"peer_port"`
}

// PeerRequest is the body of heartbeat and unregister calls.
type PeerRequest struct {
	PeerID string `json:"peer_id"`
}

// ----------------------------------------------------- Responses -----------------------------------------------------

// Response is the envelope of every JSON response. The application level outcome is
// signalled by Status, not by the HTTP status code.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

// Err returns a StatusError for the operation if the response is not successful.
func (r Response) Err(op string) error {
	if r.OK() {
		return nil
	}
	return &StatusError{Op: op, Message: r.Message}
}

type SearchResponse struct {
	Response
	Results map[string][]PeerAddr `json:"results,omitempty"`
}

type FilesResponse struct {
	Response
	Files []string `json:"files,omitempty"`
}

type PeersResponse struct {
	Response
	Peers []Peer `json:"peers,omitempty"`
}

// ------------------------------------------------------- Events ------------------------------------------------------

type EventType string

const (
	FileListUpdated EventType = "file_list_updated"
	PeerListUpdated EventType = "peer_list_updated"
)

// Event is pushed to subscribers of EventsPath whenever the directory changes.
type Event struct {
	Type  EventType `json:"type"`
	Files []string  `json:"files,omitempty"`
	Peers []Peer    `json:"peers,omitempty"`
}

// ------------------------------------------------------- Errors ------------------------------------------------------

// StatusError is a well formed response whose status is not success.
type StatusError struct {
	Op      string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected by server", e.Op)
	}
	return fmt.Sprintf("%s rejected by server: %s", e.Op, e.Message)
}
