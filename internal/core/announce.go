package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/keepmind9/tubebot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// maxAnnounceBodySize caps announcement bodies
const maxAnnounceBodySize = 64 << 10

func (e *Engine) newAnnounceServer() *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", e.config.AnnounceServer.Port),
		Handler: e.announceHandler(),
	}
}

func (e *Engine) announceHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/announce", e.handleAnnounce)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	return mux
}

// serveAnnounce blocks until the server is shut down
func (e *Engine) serveAnnounce(srv *http.Server) {
	logger.WithField("address", srv.Addr).Info("announce-server-listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("announce-server-error: %v", err)
	}

	logger.Info("announce-server-stopped")
}

func (e *Engine) shutdownAnnounce(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("failed-to-gracefully-stop-announce-server: %v", err)
		srv.Close()
	}
}

// handleAnnounce posts the request body to every active bot.
// The optional channel query parameter overrides the home channel.
func (e *Engine) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxAnnounceBodySize))
	if err != nil {
		logger.Errorf("failed-to-read-announce-body: %v", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		http.Error(w, "Empty request body", http.StatusBadRequest)
		return
	}

	channel := r.URL.Query().Get("channel")
	logger.WithComponent("announce").WithFields(logrus.Fields{
		"channel": channel,
		"length":  len(content),
	}).Info("announce-request-received")

	e.Announce(content, channel)
	w.WriteHeader(http.StatusAccepted)
}
