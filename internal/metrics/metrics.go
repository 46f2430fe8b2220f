package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var reqCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "tilemirror_http_requests_total",
	Help: "HTTP requests processed, partitioned by status code, method and route",
}, []string{"code", "method", "route"})

var reqDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "tilemirror_http_request_duration_seconds",
	Help: "HTTP request latencies in seconds",
}, []string{"code", "method", "route"})

func init() {
	prometheus.MustRegister(reqCount, reqDuration)
}

func PromReqMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		code := strconv.Itoa(c.Writer.Status())
		reqCount.WithLabelValues(code, c.Request.Method, route).Inc()
		reqDuration.WithLabelValues(code, c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Server runs the metrics listener on its own address so /metrics never
// shares a port with the tile surface.
func Server(listenAddr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Msgf("Serving metrics on %s", listenAddr)
	if err := http.ListenAndServe(listenAddr, mux); err != nil {
		log.Error().Err(err).Msg("Caught error listening for metrics")
	}
}
