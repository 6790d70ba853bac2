package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles Prometheus metrics for the simulation engine and the
// broadcast fan-out, and provides a ready-to-mount /metrics handler.
type Collector struct {
	gatherer prometheus.Gatherer

	PacketsSent      *prometheus.CounterVec
	PacketsDelivered prometheus.Counter
	PacketsRejected  *prometheus.CounterVec
	RoutesFailed     prometheus.Counter
	Broadcasts       *prometheus.CounterVec

	Nodes            prometheus.Gauge
	ActivePackets    prometheus.Gauge
	ActiveBroadcasts prometheus.Gauge
	Subscribers      prometheus.Gauge

	TickDuration prometheus.Histogram
}

// NewCollector registers the simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_packets_sent_total",
		Help: "Total packets created, labeled by routing strategy.",
	}, []string{"strategy"})
	sent, err := registerCounterVec(reg, sent, "mesh_packets_sent_total")
	if err != nil {
		return nil, err
	}

	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_packets_rejected_total",
		Help: "Packet creations rejected before takeoff, labeled by reason.",
	}, []string{"reason"})
	rejected, err = registerCounterVec(reg, rejected, "mesh_packets_rejected_total")
	if err != nil {
		return nil, err
	}

	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_broadcasts_total",
		Help: "Flood wavefronts spawned, labeled by origin (source or relay).",
	}, []string{"origin"})
	broadcasts, err = registerCounterVec(reg, broadcasts, "mesh_broadcasts_total")
	if err != nil {
		return nil, err
	}

	delivered, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mesh_packets_delivered_total",
		Help: "Unicast packets that reached their final hop.",
	}), "mesh_packets_delivered_total")
	if err != nil {
		return nil, err
	}
	routesFailed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mesh_routes_failed_total",
		Help: "Route searches that returned the unreachable sentinel.",
	}), "mesh_routes_failed_total")
	if err != nil {
		return nil, err
	}

	nodes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mesh_nodes",
		Help: "Current number of nodes in the simulated network.",
	}), "mesh_nodes")
	if err != nil {
		return nil, err
	}
	packets, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mesh_active_packets",
		Help: "Unicast packets currently in flight or fading.",
	}), "mesh_active_packets")
	if err != nil {
		return nil, err
	}
	wavefronts, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mesh_active_broadcasts",
		Help: "Flood wavefronts currently expanding.",
	}), "mesh_active_broadcasts")
	if err != nil {
		return nil, err
	}
	subscribers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mesh_subscribers",
		Help: "Connected websocket viewers.",
	}), "mesh_subscribers")
	if err != nil {
		return nil, err
	}

	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mesh_tick_duration_seconds",
		Help:    "Simulation tick latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	tickDuration, err = registerHistogram(reg, tickDuration, "mesh_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		PacketsSent:      sent,
		PacketsDelivered: delivered,
		PacketsRejected:  rejected,
		RoutesFailed:     routesFailed,
		Broadcasts:       broadcasts,
		Nodes:            nodes,
		ActivePackets:    packets,
		ActiveBroadcasts: wavefronts,
		Subscribers:      subscribers,
		TickDuration:     tickDuration,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordPacketSent counts a freshly created packet for a strategy.
func (c *Collector) RecordPacketSent(strategy string) {
	if c == nil || c.PacketsSent == nil {
		return
	}
	c.PacketsSent.WithLabelValues(strategy).Inc()
}

// RecordPacketDelivered counts a packet reaching its final hop.
func (c *Collector) RecordPacketDelivered() {
	if c == nil || c.PacketsDelivered == nil {
		return
	}
	c.PacketsDelivered.Inc()
}

// RecordPacketRejected counts a rejected creation attempt by reason.
func (c *Collector) RecordPacketRejected(reason string) {
	if c == nil || c.PacketsRejected == nil {
		return
	}
	c.PacketsRejected.WithLabelValues(reason).Inc()
}

// RecordRouteFailed counts an unreachable-sentinel route result.
func (c *Collector) RecordRouteFailed() {
	if c == nil || c.RoutesFailed == nil {
		return
	}
	c.RoutesFailed.Inc()
}

// RecordBroadcast counts a spawned wavefront; rebroadcast marks relays.
func (c *Collector) RecordBroadcast(rebroadcast bool) {
	if c == nil || c.Broadcasts == nil {
		return
	}
	origin := "source"
	if rebroadcast {
		origin = "relay"
	}
	c.Broadcasts.WithLabelValues(origin).Inc()
}

// SetEntityCounts drives the gauges straight from the world's collections.
func (c *Collector) SetEntityCounts(nodes, packets, broadcasts int) {
	if c == nil {
		return
	}
	if c.Nodes != nil {
		c.Nodes.Set(float64(nodes))
	}
	if c.ActivePackets != nil {
		c.ActivePackets.Set(float64(packets))
	}
	if c.ActiveBroadcasts != nil {
		c.ActiveBroadcasts.Set(float64(broadcasts))
	}
}

// SetSubscriberCount reports the number of connected viewers.
func (c *Collector) SetSubscriberCount(count int) {
	if c == nil || c.Subscribers == nil {
		return
	}
	c.Subscribers.Set(float64(count))
}

// ObserveTickDuration records one simulation step's wall time.
func (c *Collector) ObserveTickDuration(seconds float64) {
	if c == nil || c.TickDuration == nil {
		return
	}
	c.TickDuration.Observe(seconds)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, histogram prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(histogram); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return histogram, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
