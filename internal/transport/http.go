package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labspace/labnav/internal/mcp"
)

// MethodHandler handles method dispatch for JSON-RPC callers.
type MethodHandler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// Options configures the HTTP router.
type Options struct {
	Handler MethodHandler
	// Auth guards /rpc and /mcp. Nil leaves them open.
	Auth func(http.Handler) http.Handler
	// MCP serves the streamable MCP transport when set.
	MCP http.Handler
	// Metrics serves the Prometheus exposition when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler MethodHandler
	logger  *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	r := chi.NewRouter()
	srv := &Server{handler: opts.Handler, logger: opts.Logger}

	r.Get("/health", srv.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		r.Post("/rpc", srv.handleRPC)
		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
			r.Handle("/mcp/*", opts.MCP)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, parseErrorCode(err), err.Error(), nil)
		return
	}

	ctx := r.Context()
	if caller, ok := CallerFromContext(ctx); ok {
		ctx = mcp.WithCaller(ctx, caller)
	}

	result, err := s.handler.Handle(ctx, req.Method, req.Params)
	if req.IsNotification() {
		if err != nil && s.logger != nil {
			s.logger.Warn("rpc notification failed", "method", req.Method, "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.writeHandlerError(w, req, err)
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) writeHandlerError(w http.ResponseWriter, req Request, err error) {
	if errors.Is(err, ErrUnauthorized) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if apiErr := mcp.MapError(err); apiErr != nil {
		code := ErrApplication
		switch apiErr.Code {
		case mcp.CodeUnknownMethod:
			code = ErrMethodNotFound
		case mcp.CodeInvalidParams:
			code = ErrInvalidParams
		}
		WriteError(w, req.ID, code, apiErr.Message, apiErr)
		return
	}
	if s.logger != nil {
		s.logger.Error("rpc method failed", "method", req.Method, "error", err)
	}
	WriteError(w, req.ID, ErrInternal, err.Error(), nil)
}
