// Package web gin server
package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/controller"
	"github.com/Laisky/laisky-changelog/library/log"
	"github.com/Laisky/laisky-changelog/library/throttle"
)

const (
	// MediaRoute serves files of the local media store
	MediaRoute      = "/media"
	shutdownTimeout = 10 * time.Second
)

// ServerOption configures NewServer
type ServerOption func(*serverOption)

type serverOption struct {
	allowedOrigins []string
	mediaDir       string
	enableMetric   bool
	throttle       *throttle.Throttle
}

// WithAllowedOrigins sets the CORS allow list.
// "*" allows every origin, "*.example.com" allows example.com and its subdomains.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(o *serverOption) {
		o.allowedOrigins = origins
	}
}

// WithMediaDir serves dir under MediaRoute
func WithMediaDir(dir string) ServerOption {
	return func(o *serverOption) {
		o.mediaDir = dir
	}
}

// WithMetric exposes the prometheus and pprof endpoints
func WithMetric(enable bool) ServerOption {
	return func(o *serverOption) {
		o.enableMetric = enable
	}
}

// WithWriteThrottle rate limits POST requests per client ip
func WithWriteThrottle(th *throttle.Throttle) ServerOption {
	return func(o *serverOption) {
		o.throttle = th
	}
}

// NewServer builds the gin engine with every route mounted
func NewServer(changelog *controller.Changelog, opts ...ServerOption) (*gin.Engine, error) {
	if changelog == nil {
		return nil, errors.New("changelog controller is required")
	}

	opt := &serverOption{allowedOrigins: []string{"*"}}
	for _, f := range opts {
		f(opt)
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		requestID,
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(log.Logger.Level().String()),
			gmw.WithLogger(log.Logger.Named("gin")),
		),
		allowCORS(opt.allowedOrigins),
	)
	if opt.throttle != nil {
		server.Use(throttleWrites(opt.throttle))
	}

	if opt.enableMetric {
		if err := gmw.EnableMetric(server); err != nil {
			return nil, errors.Wrap(err, "enable metric server")
		}
	}

	server.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})
	if opt.mediaDir != "" {
		server.Static(MediaRoute, opt.mediaDir)
	}
	changelog.Register(server)

	return server, nil
}

// RunServer serves handler on addr until ctx is done
func RunServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Info("listening on http", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server exit")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	log.Logger.Info("http server stopped")
	return nil
}

const headerRequestID = "X-Request-Id"

// requestID echoes the caller's request id or assigns a new one
func requestID(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.GetHeader(headerRequestID))
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}

	ctx.Set(headerRequestID, id)
	ctx.Header(headerRequestID, id)
	ctx.Next()
}

// throttleWrites rejects POST requests over the client's rate
func throttleWrites(th *throttle.Throttle) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost {
			ctx.Next()
			return
		}

		if !th.Allow(ctx.ClientIP()) {
			gmw.GetLogger(ctx).Warn("deny by throttle", zap.String("client_ip", ctx.ClientIP()))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		ctx.Next()
	}
}

// originAllowed matches origin against the allow list
func originAllowed(origin string, allowed []string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())

	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		switch {
		case a == "*":
			return true
		case strings.HasPrefix(a, "*."):
			base := strings.TrimPrefix(a, "*.")
			if host == base || strings.HasSuffix(host, "."+base) {
				return true
			}
		case a == strings.ToLower(origin):
			return true
		}
	}

	return false
}

func allowCORS(allowed []string) gin.HandlerFunc {
	wildcard := false
	for _, a := range allowed {
		if strings.TrimSpace(a) == "*" {
			wildcard = true
		}
	}

	return func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" {
			ctx.Next()
			return
		}

		if !originAllowed(origin, allowed) {
			// deny preflight from disallowed origins
			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusForbidden)
				return
			}

			ctx.Next()
			return
		}

		if wildcard {
			ctx.Header("Access-Control-Allow-Origin", "*")
		} else {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Vary", "Origin")
		}
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With, X-Request-Id")
		ctx.Header("Access-Control-Expose-Headers", "X-Request-Id")
		ctx.Header("Access-Control-Max-Age", "86400")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
