package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/tariffbuilder/tariffbuilder/pkg/gridstore"
	"github.com/tariffbuilder/tariffbuilder/pkg/log"
	"github.com/tariffbuilder/tariffbuilder/pkg/preset"
	"github.com/tariffbuilder/tariffbuilder/pkg/session"
)

const (
	authTokenCookie = "auth_token"
	sessionCookie   = "tariff_session"
)

type contextKey string

const sessionContextKey contextKey = "session"

// tokenVerifier is a function that validates an ID token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server handles the HTTP API for the tariff builder. Each client
// session owns one tariff draft; the grid paint state is persisted
// through the grid store.
type Server struct {
	sessions *session.Manager
	store    gridstore.Store

	listenAddr string
	httpServer *http.Server

	oidcAudience string
	oidcVerifier tokenVerifier
	serverName   string
	showRates    bool
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(p *preset.Presets, store gridstore.Store) *Server {
	srv := &Server{
		sessions:   session.NewManager(p, store),
		store:      store,
		serverName: "tariffbuilder",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcAudience := lflag.String("oidc-audience", "", "Google OIDC audience/client ID; empty disables auth")
	showRates := lflag.Bool("show-rates", false, "Overlay the effective rate on every grid cell")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.showRates = *showRates
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcAudience = *oidcAudience
			srv.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/draft", s.handleGetDraft)
	apiMux.HandleFunc("POST /api/reset", s.handleReset)
	apiMux.HandleFunc("POST /api/import", s.handleImport)
	apiMux.HandleFunc("POST /api/import/url", s.handleImportURL)
	apiMux.HandleFunc("GET /api/export", s.handleExport)
	apiMux.HandleFunc("GET /api/validate", s.handleValidate)
	apiMux.HandleFunc("POST /api/basic", s.handleBasicInfo)
	apiMux.HandleFunc("POST /api/periods/{category}", s.handlePeriods)
	apiMux.HandleFunc("POST /api/demand", s.handleDemand)
	apiMux.HandleFunc("POST /api/flat", s.handleFlat)
	apiMux.HandleFunc("POST /api/fixed", s.handleFixed)
	apiMux.HandleFunc("GET /api/grid/{gridID}", s.handleGetGrid)
	apiMux.HandleFunc("POST /api/grid/{gridID}/select", s.handleGridSelect)
	apiMux.HandleFunc("POST /api/grid/{gridID}/paint", s.handleGridPaint)
	apiMux.HandleFunc("POST /api/grid/{gridID}/fill/all", s.handleGridFillAll)
	apiMux.HandleFunc("POST /api/grid/{gridID}/fill/row", s.handleGridFillRow)
	apiMux.HandleFunc("POST /api/grid/{gridID}/fill/column", s.handleGridFillColumn)
	apiMux.HandleFunc("POST /api/grid/{gridID}/clear", s.handleGridClear)
	apiMux.HandleFunc("POST /api/grid/{gridID}/copy", s.handleGridCopy)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(s.sessionMiddleware(apiMux)))
	mux.Handle("GET /{$}", s.authMiddleware(s.sessionMiddleware(http.HandlerFunc(s.handleEditorPage))))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// sessionMiddleware resolves the client's session from its cookie,
// creating a fresh session (and setting the cookie) when absent.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
		sess := s.sessions.GetOrCreate(id)
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				HttpOnly: true,
				Path:     "/",
				SameSite: http.SameSiteStrictMode,
			})
		}
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("sessionID", sess.ID)))
		ctx = context.WithValue(ctx, sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) getSession(r *http.Request) *session.Session {
	if sess, ok := r.Context().Value(sessionContextKey).(*session.Session); ok {
		return sess
	}
	// we want to have a stack trace when this happens
	panic("no session in context")
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

// writeHTML sends a rendered HTML fragment.
func writeHTML(w http.ResponseWriter, fragment string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(fragment)); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
