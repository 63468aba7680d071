// Package server 提供只读的 HTTP 浏览接口
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"treevault/pkg/service"
	"treevault/pkg/types"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router  *mux.Router
	browser *service.Browser
	refs    *service.RefLister
	logger  *slog.Logger
}

// New 注册路由。gatherer 为 nil 时不暴露 /metrics。
func New(browser *service.Browser, refs *service.RefLister, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:  mux.NewRouter(),
		browser: browser,
		refs:    refs,
		logger:  logger.With("component", "http"),
	}

	s.router.Use(recoveryMiddleware(s.logger), loggingMiddleware(s.logger))

	s.router.HandleFunc("/refs", s.handleRefs).Methods(http.MethodGet)
	s.router.HandleFunc("/refs/{rev}/tree/", s.handleTree).Methods(http.MethodGet)
	s.router.HandleFunc("/refs/{rev}/tree/{path:.*}", s.handleTree).Methods(http.MethodGet)
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such route")
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run 监听 addr，ctx 结束时优雅关闭
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRefs(w http.ResponseWriter, r *http.Request) {
	refs, err := s.refs.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if refs == nil {
		refs = []service.Ref{}
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q := service.TreeQuery{Rev: vars["rev"], Path: vars["path"]}

	query := r.URL.Query()
	if v := query.Get("recursive"); v != "" {
		recursive, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid recursive: "+v)
			return
		}
		q.Recursive = recursive
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		q.Limit = limit
	}

	entry, err := s.browser.Entry(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// 按 commit 哈希访问的内容永远不变
	if types.Hash(q.Rev).IsValid() && types.HashPrefix(q.Rev).IsHex() {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
