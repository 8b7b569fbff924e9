// Package push serves the websocket endpoint the webapp navigates through.
// Each connection gets its own navigation session, translation loader and
// transactions-by-status manager; the manager pushes snapshots to the
// socket while the view is active.
package push

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/i18n"
	"github.com/fluxorio/mtp/pkg/navigation"
	metrics "github.com/fluxorio/mtp/pkg/observability/prometheus"
	"github.com/fluxorio/mtp/pkg/transactions"
	"github.com/fluxorio/mtp/pkg/views"
	"github.com/fluxorio/mtp/pkg/web/middleware/auth"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Path is the navigation websocket endpoint
const Path = "/ws/navigation"

// Options configures the push server. Metrics is optional.
type Options struct {
	Addr           string
	Bus            core.EventBus
	Store          transactions.Store
	Tokens         *auth.TokenService
	Catalog        *i18n.Catalog
	Languages      []string
	Metrics        *metrics.Metrics
	Logger         core.Logger
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	AllowedOrigins []string
}

// Server is the websocket push verticle
type Server struct {
	opts     Options
	logger   core.Logger
	upgrader websocket.Upgrader
	router   *mux.Router
	http     *http.Server
	listener net.Listener

	mu    sync.Mutex
	conns map[*conn]struct{}
	wg    sync.WaitGroup
	ctx   context.Context
	stop  context.CancelFunc
}

// NewServer creates the push server
func NewServer(opts Options) *Server {
	core.FailFastIf(opts.Bus == nil, "event bus cannot be nil")
	core.FailFastIf(opts.Store == nil, "store cannot be nil")
	core.FailFastIf(opts.Tokens == nil, "token service cannot be nil")
	core.FailFastIf(opts.Catalog == nil, "i18n catalog cannot be nil")
	if opts.Logger == nil {
		opts.Logger = core.NewDefaultLogger()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if len(opts.Languages) == 0 {
		langs, err := opts.Catalog.Languages()
		if err != nil {
			opts.Logger.Error(fmt.Sprintf("list catalog languages: %v", err))
		}
		opts.Languages = langs
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"en"}
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		opts:   opts,
		logger: opts.Logger.WithFields(map[string]interface{}{"component": "push"}),
		conns:  make(map[*conn]struct{}),
		ctx:    ctx,
		stop:   stop,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = mux.NewRouter()
	s.router.HandleFunc(Path, s.handleNavigation).Methods(http.MethodGet)
	return s
}

// Name implements core.NamedVerticle
func (s *Server) Name() string {
	return "push"
}

// Handler exposes the routes, for httptest servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background
func (s *Server) Start(ctx core.FluxorContext) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("push listen %s: %w", s.opts.Addr, err)
	}
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("push server listening on", ln.Addr().String())
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("push server stopped:", err)
		}
	}()
	return nil
}

// Stop closes the listener and every connection, then waits for their
// sessions to close
func (s *Server) Stop(ctx core.FluxorContext) error {
	s.stop()
	var err error
	if s.http != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = s.http.Shutdown(shutdownCtx)
		cancel()
	}

	s.mu.Lock()
	for c := range s.conns {
		_ = c.ws.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// Addr returns the bound address once started
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Connections returns the number of open connections
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// language picks the lang query parameter when supported, else negotiates
// Accept-Language
func (s *Server) language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		for _, supported := range s.opts.Languages {
			if lang == supported {
				return lang
			}
		}
	}
	return i18n.Negotiate(r.Header.Get("Accept-Language"), s.opts.Languages)
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	var principal *auth.Principal
	token := auth.ExtractToken(r.Header.Get("Authorization"), r.URL.Query().Get("access_token"), true)
	if token != "" {
		p, err := s.opts.Tokens.Parse(token)
		if err != nil {
			http.Error(w, auth.ErrInvalidToken.Error(), http.StatusUnauthorized)
			return
		}
		principal = p
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Info("websocket upgrade failed:", err)
		return
	}

	sessionID := core.NewRequestID()
	login := "anonymous"
	if principal != nil {
		login = principal.Login
	}
	c := &conn{
		ws:        ws,
		server:    s,
		principal: principal,
		loader:    i18n.NewLoader(s.opts.Catalog, s.language(r)),
		logger:    s.logger.WithFields(map[string]interface{}{"session": sessionID, "login": login}),
		done:      make(chan struct{}),
	}

	managerOpts := transactions.ManagerOptions{
		Bus:    s.opts.Bus,
		Store:  s.opts.Store,
		Sink:   transactions.SinkFunc(c.pushSnapshot),
		Logger: c.logger,
	}
	sessionOpts := navigation.SessionOptions{ID: sessionID, Logger: c.logger}
	if s.opts.Metrics != nil {
		managerOpts.Metrics = s.opts.Metrics
		sessionOpts.Observer = s.opts.Metrics
	}
	registry, err := views.NewRegistry(transactions.NewManager(managerOpts), c.loader)
	if err != nil {
		s.logger.Error("build view registry:", err)
		_ = ws.Close()
		return
	}
	c.registry = registry
	c.session = navigation.NewSession(registry, sessionOpts)

	if !s.track(c) {
		_ = ws.Close()
		return
	}
	defer s.untrack(c)

	go c.keepalive()
	c.logger.Debug("websocket connected")
	c.readLoop(s.ctx)

	close(c.done)
	closeCtx, cancel := context.WithTimeout(context.Background(), c.server.opts.WriteTimeout)
	defer cancel()
	if err := c.session.Close(closeCtx); err != nil {
		c.logger.Error("close navigation session:", err)
	}
	_ = ws.Close()
	c.logger.Debug("websocket disconnected")
}

// track registers c; false once the server is stopping
func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ConnectionOpened()
	}
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	if s.opts.Metrics != nil {
		s.opts.Metrics.ConnectionClosed()
	}
	s.wg.Done()
}
