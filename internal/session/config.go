//nolint:errcheck
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// FallbackPolicy decides when a failed direct registration is retried through the proxy.
type FallbackPolicy string

const (
	FallbackOnTransport FallbackPolicy = "transport" // retry only if the coordinator could not be reached
	FallbackAlways      FallbackPolicy = "always"    // retry on any failure, including rejections
	FallbackNever       FallbackPolicy = "never"     // never retry
)

var ErrInvalidFallbackPolicy = errors.New("invalid fallback policy")

func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(s); p {
	case FallbackOnTransport, FallbackAlways, FallbackNever:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFallbackPolicy, s)
	}
}

// defaultConfig specifies the default config for a session.
var defaultConfig = Config{
	CoordinatorAddr:   "localhost:5000",
	ProxyURL:          "http://localhost:5001",
	PeerPrefix:        "cli",
	PortMin:           5000,
	PortMax:           6000,
	HeartbeatInterval: 30 * time.Second,
	DownloadDir:       "downloads",
	Fallback:          FallbackOnTransport,
}

// Config specifies the config of a session.
type Config struct {
	CoordinatorAddr   string         `json:"CoordinatorAddr,omitempty"`
	ProxyURL          string         `json:"ProxyURL,omitempty"`
	PeerPrefix        string         `json:"PeerPrefix,omitempty"`
	PortMin           int            `json:"PortMin,omitempty"`
	PortMax           int            `json:"PortMax,omitempty"`
	HeartbeatInterval time.Duration  `json:"HeartbeatInterval,omitempty"`
	DownloadDir       string         `json:"DownloadDir,omitempty"`
	OverwriteFiles    bool           `json:"OverwriteFiles,omitempty"`
	Fallback          FallbackPolicy `json:"Fallback,omitempty"`
	StreamProgress    bool           `json:"StreamProgress,omitempty"`
}

// DefaultConfig returns a copy of the default session config.
func DefaultConfig() Config {
	return defaultConfig
}

// MergeConfigReader merges the config from the reader
// with into the provided config. Values in the reader
// will override values in the provided config
func MergeConfigReader(dst Config, r io.Reader) Config {
	json.NewDecoder(r).Decode(&dst)
	return dst
}

// MergeConfig merges the specified source config into the
// specified destination config. Values present in the source
// config will overide values in the destination config.
func MergeConfig(dst Config, src *Config) Config {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(src)
	return MergeConfigReader(dst, &buf)
}

func (p FallbackPolicy) allows(err error) bool {
	switch p {
	case FallbackAlways:
		return true
	case FallbackNever:
		return false
	default:
		return !isRejection(err)
	}
}
