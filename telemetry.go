package server

import (
	"sync/atomic"
	"time"
)

// telemetryCounters tracks broadcast and tick statistics for the diagnostics
// endpoint, separate from the Prometheus collector so the JSON surface has no
// registry dependency.
type telemetryCounters struct {
	ticks              atomic.Uint64
	bytesSent          atomic.Uint64
	snapshotsSent      atomic.Uint64
	tickDurationMillis atomic.Int64
	lastBroadcastBytes atomic.Uint64
}

type telemetrySnapshot struct {
	Ticks              uint64 `json:"ticks"`
	BytesSent          uint64 `json:"bytesSent"`
	SnapshotsSent      uint64 `json:"snapshotsSent"`
	TickDuration       int64  `json:"tickDurationMillis"`
	LastBroadcastBytes uint64 `json:"lastBroadcastBytes"`
}

func newTelemetryCounters() *telemetryCounters {
	return &telemetryCounters{}
}

func (t *telemetryCounters) RecordBroadcast(bytes, subscribers int) {
	if bytes < 0 {
		bytes = 0
	}
	t.bytesSent.Add(uint64(bytes) * uint64(max(subscribers, 0)))
	t.lastBroadcastBytes.Store(uint64(bytes))
	t.snapshotsSent.Add(uint64(max(subscribers, 0)))
}

func (t *telemetryCounters) RecordTick(duration time.Duration) {
	t.ticks.Add(1)
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		Ticks:              t.ticks.Load(),
		BytesSent:          t.bytesSent.Load(),
		SnapshotsSent:      t.snapshotsSent.Load(),
		TickDuration:       t.tickDurationMillis.Load(),
		LastBroadcastBytes: t.lastBroadcastBytes.Load(),
	}
}
