package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// UeStats accumulates per-UE delivery metrics during a run.
type UeStats struct {
	Ue            string
	Sent          uint64
	Delivered     uint64
	Lost          uint64
	Retransmitted uint64
	TotalBytes    uint64
	TotalDelay    float64
	FirstSent     float64
	LastDelivered float64
}

// MeanDelay is the average delivery delay in seconds.
func (s *UeStats) MeanDelay() float64 {
	if s.Delivered == 0 {
		return 0
	}
	return s.TotalDelay / float64(s.Delivered)
}

// Throughput is the delivered goodput in bits per second over the flow's
// active window.
func (s *UeStats) Throughput() float64 {
	window := s.LastDelivered - s.FirstSent
	if window <= 0 {
		return 0
	}
	return float64(s.TotalBytes) * 8 / window
}

// Snapshot is a point-in-time view of a run, safe to read from another
// goroutine while the engine is running.
type Snapshot struct {
	SimSeconds    float64 `json:"simSeconds"`
	SimTime       float64 `json:"simTime"`
	Sent          uint64  `json:"sent"`
	Delivered     uint64  `json:"delivered"`
	Lost          uint64  `json:"lost"`
	Retransmitted uint64  `json:"retransmitted"`
	Progress      float64 `json:"progress"`
}

func (e *Engine) TakeSnapshot() Snapshot {
	now := math.Float64frombits(e.clockBits.Load())
	progress := 0.0
	if e.params.SimTime > 0 {
		progress = math.Min(now/e.params.SimTime, 1.0)
	}
	return Snapshot{
		SimSeconds:    now,
		SimTime:       e.params.SimTime,
		Sent:          e.sent.Load(),
		Delivered:     e.delivered.Load(),
		Lost:          e.lost.Load(),
		Retransmitted: e.retransmitted.Load(),
		Progress:      progress,
	}
}

// Stats returns the per-UE accumulators. Call after Run has returned.
func (e *Engine) Stats() map[string]*UeStats {
	return e.stats
}

// Summary renders the per-UE and total metrics of a finished run.
func (e *Engine) Summary() string {
	names := make([]string, 0, len(e.stats))
	for name := range e.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	var totalThroughput float64
	for _, name := range names {
		st := e.stats[name]
		totalThroughput += st.Throughput()
		fmt.Fprintf(&sb, "\nUE %s Metrics\nDelivered: %d/%d (lost %d, retransmitted %d)\nMean Delay: %f seconds\nThroughput: %f bits per second\n",
			st.Ue, st.Delivered, st.Sent, st.Lost, st.Retransmitted, st.MeanDelay(), st.Throughput())
	}
	fmt.Fprintf(&sb, "\nTotal Throughput: %f bits per second\n", totalThroughput)
	return sb.String()
}
