package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogme_redis_errors_total",
		Help: "Total number of Redis errors by operation",
	}, []string{"operation"})

	// ActiveWebSockets is the number of open websocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blogme_websocket_connections",
		Help: "Number of active WebSocket connections",
	})
)

var prom *fiberprometheus.FiberPrometheus

// InitMetrics creates the Fiber Prometheus middleware once per process.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	if prom == nil {
		prom = fiberprometheus.New(serviceName)
	}
	return prom
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	handler := p.Middleware
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return handler(c)
	}
}
