package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	connsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcengine",
			Subsystem: "conn",
			Name:      "accepted_total",
			Help:      "Accepted TCP connections.",
		},
	)
	connsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mcengine",
			Subsystem: "conn",
			Name:      "open",
			Help:      "Connections currently being served.",
		},
	)
	connsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcengine",
			Subsystem: "conn",
			Name:      "closed_total",
			Help:      "Closed connections by the state they ended in and the reason.",
		},
		[]string{"state", "reason"},
	)
	playersOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mcengine",
			Subsystem: "play",
			Name:      "players_online",
			Help:      "Connections in the play state.",
		},
	)
	packets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcengine",
			Subsystem: "packet",
			Name:      "total",
			Help:      "Packets decoded or encoded, by direction, state and kind.",
		},
		[]string{"direction", "state", "kind"},
	)
	slowConsumers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcengine",
			Subsystem: "play",
			Name:      "slow_consumer_total",
			Help:      "Outbound packets rejected because a connection queue was full.",
		},
	)
	legacyPings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mcengine",
			Subsystem: "status",
			Name:      "legacy_pings_total",
			Help:      "Pre-netty server list pings answered.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(connsAccepted, connsOpen, connsClosed, playersOnline, packets, slowConsumers, legacyPings)
	})
}

func RecordAccept() {
	RegisterMetrics()
	connsAccepted.Inc()
	connsOpen.Inc()
}

func RecordClose(state, reason string) {
	RegisterMetrics()
	connsOpen.Dec()
	connsClosed.WithLabelValues(state, reason).Inc()
}

func RecordJoin() {
	RegisterMetrics()
	playersOnline.Inc()
}

func RecordLeave() {
	RegisterMetrics()
	playersOnline.Dec()
}

func RecordPacket(direction, state, kind string) {
	RegisterMetrics()
	packets.WithLabelValues(direction, state, kind).Inc()
}

func RecordSlowConsumer() {
	RegisterMetrics()
	slowConsumers.Inc()
}

func RecordLegacyPing() {
	RegisterMetrics()
	legacyPings.Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	RegisterMetrics()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
