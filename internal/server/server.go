package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"payslip/internal/pipeline"
)

const (
	workbookField = "workbook"
	templateField = "template"
	zipMediaType  = "application/zip"
)

var workbookExtensions = []string{".xlsx", ".xls", ".html", ".htm"}

// Server exposes the pay slip generator over HTTP. Each request is one
// batch; the request blocks until the archive is complete.
type Server struct {
	router   *chi.Mux
	gen      *pipeline.Generator
	logger   *zap.Logger
	maxBytes int64
	now      func() time.Time
}

func New(gen *pipeline.Generator, maxUploadMB int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	s := &Server{
		router:   chi.NewRouter(),
		gen:      gen,
		logger:   logger,
		maxBytes: int64(maxUploadMB) << 20,
		now:      time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/api/payslips", s.handleGenerate)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}

	filename, workbook, err := readFormFile(r, workbookField)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !hasWorkbookExtension(filename) {
		writeError(w, http.StatusBadRequest, "workbook must be .xlsx, .xls or .html")
		return
	}

	var template []byte
	if _, ok := r.MultipartForm.File[templateField]; ok {
		if _, template, err = readFormFile(r, templateField); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	res, err := s.gen.Generate(pipeline.Input{
		Filename: filename,
		Workbook: workbook,
		Template: template,
		Source:   pipeline.SourceHTTP,
	})
	switch {
	case errors.Is(err, pipeline.ErrNothingToExport):
		writeError(w, http.StatusUnprocessableEntity, "nothing to export: no employee rows found")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := fmt.Sprintf("payslips_%s.zip", s.now().Format("20060102"))
	w.Header().Set("Content-Type", zipMediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("X-Trace-Id", res.TraceID)
	w.Header().Set("X-Payslip-Count", fmt.Sprint(res.Entries))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Archive)
}

func readFormFile(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("missing %s file", field)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", field, err)
	}
	return header.Filename, data, nil
}

func hasWorkbookExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range workbookExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
