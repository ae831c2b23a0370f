package hub

import (
	"net/http"

	"github.com/SpatiumPortae/tuneshare/internal/logger"
	"github.com/SpatiumPortae/tuneshare/protocol/directory"
)

func (s *Server) routes() {
	s.router.Use(logger.Middleware(s.logger))
	s.router.HandleFunc(directory.RegisterDirectPath, s.handleRegister()).Methods(http.MethodPost)
	s.router.HandleFunc(directory.RegisterPath, s.handleRegister()).Methods(http.MethodPost)
	s.router.HandleFunc(directory.HeartbeatPath, s.handleHeartbeat()).Methods(http.MethodPost)
	s.router.HandleFunc(directory.UnregisterPath, s.handleUnregister()).Methods(http.MethodPost)
	s.router.HandleFunc(directory.UploadPath, s.handleUpload()).Methods(http.MethodPost)
	s.router.HandleFunc(directory.DownloadPath, s.handleDownload()).Methods(http.MethodGet)
	s.router.HandleFunc(directory.SearchPath, s.handleSearch()).Methods(http.MethodGet)
	s.router.HandleFunc(directory.FilesPath, s.handleFiles()).Methods(http.MethodGet)
	s.router.HandleFunc(directory.PeersPath, s.handlePeers()).Methods(http.MethodGet)
	s.router.HandleFunc(directory.EventsPath, s.handleEvents())
	s.router.HandleFunc(directory.VersionPath, s.handleVersion()).Methods(http.MethodGet)
	s.router.HandleFunc(directory.PingPath, s.ping())
}
