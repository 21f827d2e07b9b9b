// Package server exposes the article resource over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"articledesk/internal/events"
	"articledesk/internal/imagestore"
	"articledesk/internal/preview"
	"articledesk/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultMaxUploadBytes = 10 << 20

// ImageSource reads back images kept by a self-hosted image store.
type ImageSource interface {
	Get(ctx context.Context, id string) ([]byte, error)
}

type Server struct {
	store   store.Store
	images  imagestore.Store
	events  events.Publisher
	scraper preview.Scraper
	source  ImageSource
	logger  *zap.Logger
	router  *mux.Router
	server  *http.Server

	maxUploadBytes int64
	readTimeout    time.Duration
	writeTimeout   time.Duration
}

type Option func(*Server)

// WithEvents publishes lifecycle events after each committed write.
func WithEvents(p events.Publisher) Option {
	return func(s *Server) { s.events = p }
}

func WithScraper(sc preview.Scraper) Option {
	return func(s *Server) { s.scraper = sc }
}

// WithImageSource enables GET /images/{id}.
func WithImageSource(src ImageSource) Option {
	return func(s *Server) { s.source = src }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

func NewServer(st store.Store, images imagestore.Store, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		store:          st,
		images:         images,
		events:         events.Nop{},
		logger:         logger,
		router:         mux.NewRouter(),
		maxUploadBytes: defaultMaxUploadBytes,
		readTimeout:    15 * time.Second,
		writeTimeout:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scraper == nil {
		s.scraper = preview.NewReadability(10 * time.Second)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestID, s.observe, s.recoverPanic)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	for _, path := range []string{"/articles", "/articles/"} {
		s.router.HandleFunc(path, s.handleList).Methods(http.MethodGet)
		s.router.HandleFunc(path, s.handleCreate).Methods(http.MethodPost)
	}
	s.router.HandleFunc("/articles/upload-image", s.handleUploadImage).Methods(http.MethodPost)
	s.router.HandleFunc("/articles/preview", s.handlePreview).Methods(http.MethodGet)
	s.router.HandleFunc("/articles/{article_id}", s.handleUpdate).Methods(http.MethodPut)
	s.router.HandleFunc("/articles/{article_id}", s.handleDelete).Methods(http.MethodDelete)

	if s.source != nil {
		s.router.HandleFunc("/images/{id}", s.handleImage).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start launches the HTTP server and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
