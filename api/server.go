// Package api serves the local control surface: session listing and
// cancellation, sending, notifications over WebSocket and metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moyoez/sharesession/api/controllers"
	"github.com/moyoez/sharesession/api/middlewares"
	"github.com/moyoez/sharesession/api/notifyhub"
	"github.com/moyoez/sharesession/share"
	"github.com/moyoez/sharesession/tool"
)

const readHeaderTimeout = 10 * time.Second

// Options wires the server to the rest of the program. A nil Hub disables
// the notify WebSocket; a nil Sender disables POST /send.
type Options struct {
	Address   string
	Alias     string
	SharePort int
	Registry  *share.Registry
	Sender    controllers.Sender
	Hub       *notifyhub.Hub
}

// Server represents the local HTTP API server.
type Server struct {
	opts   Options
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

func NewServer(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = share.NewRegistry(share.DefaultTTL, nil)
	}
	s := &Server{opts: opts}
	s.engine = s.setupRoutes()
	return s
}

// Handler returns the routed engine, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	sessions := controllers.NewSessionController(s.opts.Registry)

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", controllers.UserStatus(s.opts.Alias, s.opts.Registry, s.opts.Hub))
		self.GET("/get-network-info", controllers.UserGetNetworkInfo(s.opts.SharePort))
		self.GET("/sessions", sessions.HandleList)
		self.GET("/sessions/:endpointId", sessions.HandleGet)
		self.POST("/sessions/:endpointId/cancel", sessions.HandleCancel)
		if s.opts.Sender != nil {
			self.POST("/send", controllers.NewSendController(s.opts.Sender).HandleSend)
		}
		self.GET("/create-qr-code", controllers.GenerateQRCode)
		self.GET("/share-qr-code", controllers.ShareAddressQRCode(s.opts.SharePort))
		if s.opts.Hub != nil {
			self.GET("/notify-ws", controllers.HandleNotifyWS(s.opts.Hub, s.opts.Registry))
		}
	}
	engine.GET("/metrics", middlewares.OnlyAllowLocal, gin.WrapH(promhttp.Handler()))

	return engine
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", s.opts.Address, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on http://%s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
