package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dreamware/repstore/internal/catalog"
	"github.com/dreamware/repstore/internal/cluster"
	"github.com/dreamware/repstore/internal/config"
	"github.com/dreamware/repstore/internal/placement"
	"github.com/dreamware/repstore/internal/registry"
)

func main() {
	configPath := flag.String("config", getenv("REPSTORED_CONFIG", ""), "path to YAML config (empty = built-in defaults)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "repstored",
	})

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("config load failed", "path", *configPath, "err", err)
		}
	}

	c, err := cluster.New(cfg, logger)
	if err != nil {
		logger.Fatal("cluster init failed", "err", err)
	}

	srv := &server{cluster: c, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/files", srv.handleFiles)
	mux.HandleFunc("/files/", srv.handleFile)
	mux.HandleFunc("/nodes", srv.handleNodes)
	mux.HandleFunc("/nodes/", srv.handleNode)
	mux.HandleFunc("/status", srv.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go c.Start(nil)

	go func() {
		logger.Info("repstored listening", "addr", cfg.Listen, "nodes", len(cfg.Nodes))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	c.Stop()
	logger.Info("repstored stopped")
}

type server struct {
	cluster *cluster.Cluster
	logger  *log.Logger
}

// statusResponse is the display snapshot served by GET /status.
type statusResponse struct {
	Nodes []registry.Node `json:"nodes"`
	Files []catalog.File  `json:"files"`
}

// handleFiles serves POST /files (upload) and GET /files (list).
func (s *server) handleFiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "missing name query parameter", http.StatusBadRequest)
			return
		}
		owner := r.Header.Get("X-Owner-ID")
		if owner == "" {
			owner = "anonymous"
		}

		f, err := s.cluster.UploadFrom(owner, name, r.Body)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)

	case http.MethodGet:
		_, files := s.cluster.Status()
		writeJSON(w, http.StatusOK, files)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFile serves GET /files/{id} (download) and DELETE /files/{id}.
func (s *server) handleFile(w http.ResponseWriter, r *http.Request) {
	fileID := strings.TrimPrefix(r.URL.Path, "/files/")
	if fileID == "" || strings.Contains(fileID, "/") {
		http.Error(w, "bad file id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		f, content, err := s.cluster.Download(fileID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)

	case http.MethodDelete:
		s.cluster.Delete(fileID)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleNodes serves GET /nodes.
func (s *server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	nodes, _ := s.cluster.Status()
	writeJSON(w, http.StatusOK, nodes)
}

// handleNode serves POST /nodes/{id}/fail and POST /nodes/{id}/revive:
// manual fault injection for demos and tests.
func (s *server) handleNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/nodes/")
	nodeID, action, ok := strings.Cut(rest, "/")
	if !ok || nodeID == "" {
		http.Error(w, "bad node action", http.StatusBadRequest)
		return
	}

	var err error
	switch action {
	case "fail":
		err = s.cluster.FailNode(nodeID)
	case "revive":
		err = s.cluster.ReviveNode(nodeID)
	default:
		http.Error(w, "bad node action", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus serves GET /status: the full display snapshot.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	nodes, files := s.cluster.Status()
	writeJSON(w, http.StatusOK, statusResponse{Nodes: nodes, Files: files})
}

// writeError maps cluster errors to HTTP status codes.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrFileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, cluster.ErrAllReplicasDown):
		status = http.StatusServiceUnavailable
	case errors.Is(err, placement.ErrNoCapacity),
		errors.Is(err, catalog.ErrPlacementFailed):
		status = http.StatusInsufficientStorage
	case errors.Is(err, cluster.ErrContentRead):
		status = http.StatusBadRequest
	}
	s.logger.Warn("request failed", "status", status, "err", err)
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
