package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/teleclinic/consult-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type PublicHandler interface {
	RegisterPublicRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	MetricsPrefix string
}

type Router struct {
	engine  *gin.Engine
	config  Config
	metrics *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:  engine,
		config:  config,
		metrics: newRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
	)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func newRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// RegisterPublic mounts unauthenticated routes behind the submission rate
// limiter.
func (r *Router) RegisterPublic(handlers ...PublicHandler) {
	limiter := middleware.NewRateLimiter(r.config.RateLimit, r.config.RateBurst)
	group := r.engine.Group("/api/v1", limiter.RateLimit())
	for _, h := range handlers {
		h.RegisterPublicRoutes(group)
	}
}

// Register mounts the remaining API surface.
func (r *Router) Register(handlers ...Handler) {
	group := r.engine.Group("/api/v1")
	for _, h := range handlers {
		h.RegisterRoutes(group)
	}
}
