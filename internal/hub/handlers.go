// handlers.go specifies the HTTP and websocket handlers of the hub.
package hub

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/SpatiumPortae/tuneshare/internal/file"
	"github.com/SpatiumPortae/tuneshare/internal/logger"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
	"github.com/tomasen/realip"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const maxUploadMemory = 32 << 20

// ------------------------------------------------------ Handlers -----------------------------------------------------

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lgr := s.requestLogger(r)
		var req directory.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			lgr.Warn("decoding register request", zap.Error(err))
			s.writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		if req.PeerID == "" || req.PeerPort < 1 || req.PeerPort > 65535 {
			s.writeError(w, http.StatusOK, "peer id and port are required")
			return
		}
		addr := directory.PeerAddr{Host: realip.FromRequest(r), Port: req.PeerPort}
		s.directory.Register(req.PeerID, addr)
		lgr.Info("peer registered", zap.String("peer_id", req.PeerID), zap.String("addr", addr.String()))
		s.publishPeers()
		s.writeJSON(w, http.StatusOK, directory.Response{Status: directory.StatusSuccess, Message: "registered"})
	}
}

func (s *Server) handleHeartbeat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req directory.PeerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		if !s.directory.Touch(req.PeerID) {
			s.writeError(w, http.StatusOK, "peer not registered")
			return
		}
		s.requestLogger(r).Debug("heartbeat received", zap.String("peer_id", req.PeerID))
		s.writeJSON(w, http.StatusOK, directory.Response{Status: directory.StatusSuccess, Message: "heartbeat received"})
	}
}

func (s *Server) handleUnregister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req directory.PeerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		if !s.directory.Unregister(req.PeerID) {
			s.writeError(w, http.StatusOK, "peer does not exist")
			return
		}
		s.requestLogger(r).Info("peer unregistered", zap.String("peer_id", req.PeerID))
		s.publishPeers()
		s.publishFiles()
		s.writeJSON(w, http.StatusOK, directory.Response{Status: directory.StatusSuccess, Message: "unregistered"})
	}
}

func (s *Server) handleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lgr := s.requestLogger(r)
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			s.writeError(w, http.StatusOK, "no file part")
			return
		}
		f, header, err := r.FormFile(directory.FieldFile)
		if err != nil {
			s.writeError(w, http.StatusOK, "no file part")
			return
		}
		defer f.Close()
		if header.Filename == "" {
			s.writeError(w, http.StatusOK, "no file selected")
			return
		}
		peerID := r.FormValue(directory.FieldPeerID)
		if peerID == "" {
			s.writeError(w, http.StatusOK, "peer id is required")
			return
		}
		path, err := s.shared.Save(header.Filename, f)
		if err != nil {
			lgr.Error("storing upload", zap.Error(err))
			s.writeError(w, http.StatusOK, err.Error())
			return
		}
		name := filepath.Base(path)
		s.directory.AddFile(name, peerID)
		lgr.Info("file shared", zap.String("peer_id", peerID), zap.String("file", name))
		s.publishFiles()
		s.writeJSON(w, http.StatusOK, directory.Response{Status: directory.StatusSuccess, Message: "file uploaded"})
	}
}

// handleDownload serves a stored file. Like the directory web server it answers missing
// files with an error envelope and HTTP 200.
func (s *Server) handleDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := file.CleanName(r.URL.Query().Get(directory.QueryFilename))
		if err != nil {
			s.writeError(w, http.StatusOK, "file name is required")
			return
		}
		f, err := os.Open(filepath.Join(s.shared.Dir(), name))
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusOK, "file not found")
			return
		}
		if err != nil {
			s.requestLogger(r).Error("opening shared file", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "file unavailable")
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			s.writeError(w, http.StatusOK, "file not found")
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

func (s *Server) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, directory.SearchResponse{
			Response: directory.Response{Status: directory.StatusSuccess},
			Results:  s.directory.Search(r.URL.Query().Get(directory.QueryKeyword)),
		})
	}
}

func (s *Server) handleFiles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, directory.FilesResponse{
			Response: directory.Response{Status: directory.StatusSuccess},
			Files:    s.directory.Files(),
		})
	}
}

func (s *Server) handlePeers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, directory.PeersResponse{
			Response: directory.Response{Status: directory.StatusSuccess},
			Peers:    s.directory.Peers(),
		})
	}
}

// handleEvents streams directory events to a websocket client, starting with the
// current file list.
func (s *Server) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lgr := s.requestLogger(r)
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			lgr.Error("failed to upgrade connection", zap.Error(err))
			return
		}
		defer ws.Close(websocket.StatusInternalError, "")

		id, events := s.subscribers.add()
		defer s.subscribers.remove(id)
		lgr = lgr.With(zap.String("subscriber", id.String()))
		lgr.Info("subscriber connected")

		// Nothing is expected from the client, CloseRead handles control frames.
		ctx := ws.CloseRead(r.Context())
		if err := wsjson.Write(ctx, ws, directory.Event{Type: directory.FileListUpdated, Files: s.directory.Files()}); err != nil {
			lgr.Warn("sending initial file list", zap.Error(err))
			return
		}
		for {
			select {
			case <-ctx.Done():
				lgr.Info("subscriber disconnected")
				return
			case ev, more := <-events:
				if !more {
					return
				}
				if err := wsjson.Write(ctx, ws, ev); err != nil {
					lgr.Warn("writing event", zap.Error(err))
					return
				}
			}
		}
	}
}

//nolint:errcheck
func (s *Server) ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}
}

func (s *Server) handleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.version)
	}
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

func (s *Server) publishFiles() {
	s.publish(directory.Event{Type: directory.FileListUpdated, Files: s.directory.Files()})
}

func (s *Server) publishPeers() {
	s.publish(directory.Event{Type: directory.PeerListUpdated, Peers: s.directory.Peers()})
}

func (s *Server) publish(ev directory.Event) {
	if dropped := s.subscribers.broadcast(ev); dropped > 0 {
		s.logger.Warn("dropped event for slow subscribers", zap.String("type", string(ev.Type)), zap.Int("dropped", dropped))
	}
}

// requestLogger returns the request scoped logger, falling back to the server logger.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	lgr, err := logger.FromContext(r.Context())
	if err != nil {
		return s.logger
	}
	return lgr
}

//nolint:errcheck
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, directory.Response{Status: directory.StatusFailure, Message: msg})
}
