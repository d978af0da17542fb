// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var requestCount = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gatecloud",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "HTTP requests sent to the API, by method and response code",
	},
	[]string{
		"method",
		"code",
	},
)

var requestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "gatecloud",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Time until response headers were received",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{
		"method",
	},
)

var compressedRequests = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "gatecloud",
		Subsystem: "client",
		Name:      "compressed_requests_total",
		Help:      "Requests whose body exceeded the gzip threshold",
	},
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(compressedRequests)
}

// observe records one HTTP exchange.  resp is nil if the exchange
// failed before a response arrived; these count under code "error".
func (c *Client) observe(req *http.Request, resp *http.Response, gzip bool, elapsed time.Duration) {
	code := "error"
	if resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	requestCount.With(prometheus.Labels{
		"method": req.Method,
		"code":   code,
	}).Inc()
	requestDuration.WithLabelValues(req.Method).Observe(elapsed.Seconds())
	if gzip {
		compressedRequests.Inc()
	}
}
