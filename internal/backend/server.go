package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// Default server settings.
const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8787"

	// maxUploadBytes bounds a single uploaded asset. Client byte
	// budgets are smaller; this is the transport ceiling.
	maxUploadBytes = 256 << 20

	// shutdownTimeout bounds graceful shutdown on context cancel.
	shutdownTimeout = 5 * time.Second
)

// Header names carried by proxy-mode uploads.
const (
	headerAssetID   = "x-bug-reporter-asset-id"
	headerAssetType = "x-bug-reporter-asset-type"
)

// Config configures the development backend server.
type Config struct {
	// Addr is the listen address (e.g. ":8787").
	Addr string

	// DataDir is the storage root for uploaded assets, report
	// summaries, and the SQLite database.
	DataDir string

	// BaseURL, when set, is used verbatim as the prefix of every URL
	// the server hands out. When empty, URLs are derived from the
	// request Host header.
	BaseURL string

	// PresignSecret signs form-upload instructions. A random secret is
	// generated when empty.
	PresignSecret string
}

// Server is the development backend. It exposes the three upload
// surfaces the client providers speak, serves stored assets, and
// persists submitted reports.
type Server struct {
	cfg        Config
	store      *ReportStore
	signer     *signer
	logger     *slog.Logger
	mux        *http.ServeMux
	uploadsDir string
	objectsDir string
	reportsDir string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger. Defaults to slog.Default().
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a Server rooted at cfg.DataDir. The data directory
// and its asset subdirectories are created if missing.
func NewServer(cfg Config, opts ...ServerOption) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.DataDir == "" {
		return nil, errors.New("backend: data directory is required")
	}

	store, err := OpenStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	sig, err := newSigner([]byte(cfg.PresignSecret))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		store:      store,
		signer:     sig,
		logger:     slog.Default(),
		uploadsDir: filepath.Join(cfg.DataDir, "public", "uploads"),
		objectsDir: filepath.Join(cfg.DataDir, "objects"),
		reportsDir: filepath.Join(cfg.DataDir, "reports"),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{s.uploadsDir, s.objectsDir, s.reportsDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	s.mux = http.NewServeMux()
	s.routes()
	return s, nil
}

// Close releases the report store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Store exposes the report store for inspection.
func (s *Server) Store() *ReportStore {
	return s.store
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/uploads", s.handleLocalUpload)
	s.mux.HandleFunc("POST /api/assets", s.handleProxyUpload)
	s.mux.HandleFunc("POST /api/presign", s.handlePresign)
	s.mux.HandleFunc("POST /upload-form", s.handleFormUpload)
	s.mux.HandleFunc("POST /api/bug-reports", s.handleBugReport)
	s.mux.Handle("GET /public/", http.StripPrefix("/public/",
		http.FileServer(http.Dir(filepath.Join(s.cfg.DataDir, "public")))))
	s.mux.Handle("GET /objects/", http.StripPrefix("/objects/",
		http.FileServer(http.Dir(s.objectsDir))))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// Serve runs the server until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("backend listening", "addr", s.cfg.Addr, "data_dir", s.cfg.DataDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handleLocalUpload accepts a multipart upload and stores it under the
// publicly served uploads directory.
//
// Response: {"url": "<base>/public/uploads/<name>", "key": "uploads/<name>"}
func (s *Server) handleLocalUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer func() { _ = file.Close() }()

	name := uuid.NewString() + extensionFor(header.Header.Get("Content-Type"))
	if err := s.storeBlob(filepath.Join(s.uploadsDir, name), file); err != nil {
		s.logger.Error("failed to store upload", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	s.logger.Info("asset stored", "surface", "local", "name", name,
		"asset_id", r.FormValue("id"), "asset_type", r.FormValue("type"))
	s.writeJSON(w, http.StatusOK, map[string]string{
		"url": s.baseURL(r) + "/public/uploads/" + name,
		"key": "uploads/" + name,
	})
}

// handleProxyUpload accepts a raw-body upload identified by the
// bug-reporter asset headers and stores it like a local upload.
func (s *Server) handleProxyUpload(w http.ResponseWriter, r *http.Request) {
	assetID := r.Header.Get(headerAssetID)
	if assetID == "" {
		s.writeError(w, http.StatusBadRequest, "missing asset id header")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	name := uuid.NewString() + extensionFor(r.Header.Get("Content-Type"))
	if err := s.storeBlob(filepath.Join(s.uploadsDir, name), body); err != nil {
		s.logger.Error("failed to store upload", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	s.logger.Info("asset stored", "surface", "proxy", "name", name,
		"asset_id", assetID, "asset_type", r.Header.Get(headerAssetType))
	s.writeJSON(w, http.StatusOK, map[string]string{
		"url": s.baseURL(r) + "/public/uploads/" + name,
		"key": "uploads/" + name,
	})
}

// presignRequest is the body of POST /api/presign.
type presignRequest struct {
	Files []model.UploadFile `json:"files"`
}

// handlePresign issues one signed form-upload instruction per file.
// The object key embeds a timestamp, the asset id, and the sanitized
// file name; the signature binds the instruction to that key.
func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Files) == 0 {
		s.writeError(w, http.StatusBadRequest, "files array required")
		return
	}

	base := s.baseURL(r)
	now := time.Now().UnixMilli()
	uploads := make([]model.UploadInstruction, 0, len(req.Files))
	for _, f := range req.Files {
		key := fmt.Sprintf("%d-%s-%s", now, f.ID, sanitizeName(f.Name))
		uploads = append(uploads, model.UploadInstruction{
			ID:        f.ID,
			Method:    model.MethodPost,
			UploadURL: base + "/upload-form",
			Fields: map[string]string{
				"key":       key,
				"signature": s.signer.Sign(key),
			},
			Key:       key,
			PublicURL: base + "/objects/" + key,
			Type:      f.Type,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string][]model.UploadInstruction{"uploads": uploads})
}

// handleFormUpload is the target of presigned instructions. It only
// accepts keys the presign endpoint signed.
func (s *Server) handleFormUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file or key")
		return
	}
	defer func() { _ = file.Close() }()

	key := r.FormValue("key")
	if key == "" {
		s.writeError(w, http.StatusBadRequest, "missing file or key")
		return
	}
	// Keys never contain path separators.
	if key != filepath.Base(key) || key == "." || key == ".." {
		s.writeError(w, http.StatusBadRequest, "invalid key")
		return
	}
	if !s.signer.Verify(key, r.FormValue("signature")) {
		s.writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	if err := s.storeBlob(filepath.Join(s.objectsDir, key), file); err != nil {
		s.logger.Error("failed to store object", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store object")
		return
	}

	s.logger.Info("asset stored", "surface", "presigned", "key", key)
	w.WriteHeader(http.StatusNoContent)
}

// handleBugReport persists a submitted report and writes its markdown
// summary.
//
// Response: {"id": "<uuid>", "message": "received"}
func (s *Server) handleBugReport(w http.ResponseWriter, r *http.Request) {
	var payload model.ReportPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 8<<20)).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid report payload")
		return
	}
	if strings.TrimSpace(payload.Title) == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "missing title")
		return
	}

	id := uuid.NewString()
	received := time.Now()

	summaryPath := filepath.Join(s.reportsDir, id+".md")
	summary, err := os.Create(summaryPath) //nolint:gosec // path is server-generated
	if err != nil {
		s.logger.Error("failed to create summary", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}
	writeErr := WriteSummary(summary, id, &payload, received)
	if closeErr := summary.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		s.logger.Error("failed to render summary", "err", writeErr)
		s.writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}

	if err := s.store.InsertReport(r.Context(), id, &payload, summaryPath); err != nil {
		s.logger.Error("failed to persist report", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}

	s.logger.Info("report received", "id", id, "title", payload.Title,
		"assets", len(payload.Assets))
	s.writeJSON(w, http.StatusOK, model.ReportResponse{ID: id, Message: "received"})
}

// baseURL returns the absolute URL prefix for links handed to clients.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.BaseURL != "" {
		return strings.TrimRight(s.cfg.BaseURL, "/")
	}
	return "http://" + r.Host
}

// storeBlob writes src to path via a temp file so a failed upload never
// leaves a partial object behind.
func (s *Server) storeBlob(path string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// keyCharset matches everything an object key may not carry.
var keyCharset = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// sanitizeName normalizes a client file name for use inside an object key.
func sanitizeName(name string) string {
	return keyCharset.ReplaceAllString(name, "-")
}

// extensionFor picks a file extension for a stored asset from its
// media type. Unknown types get a neutral extension.
func extensionFor(mimeType string) string {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	switch strings.TrimSpace(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/webm":
		return ".webm"
	case "video/mp4":
		return ".mp4"
	case "text/plain":
		return ".txt"
	case "application/json":
		return ".json"
	default:
		return ".bin"
	}
}
