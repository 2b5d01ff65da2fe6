package coverage

import (
	"fmt"
	"math"
	"strings"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
	"github.com/embeddingBits/dronenet/pkg/scenario"
)

type Mode string

const (
	ModeSearch  Mode = "SEARCH"
	ModeCluster Mode = "CLUSTER"
	ModeRelay   Mode = "RELAY"
)

// Drone is the coverage-model view of an eNB node.
type Drone struct {
	Name           string
	Pos            api.Position
	Battery        float64
	InitialBattery float64
	Mode           Mode
	Alive          bool
}

// User is the coverage-model view of a UE node. GroupSize > 1 means the
// UE stands in for a group of people at that spot.
type User struct {
	Name           string
	Pos            api.Position
	GroupSize      int
	Detected       bool
	Served         bool
	ServingDrone   string
	HopsToTower    int
	ThroughputMbps float64
}

// Model steps drone batteries, detection and service coverage over the
// scenario area. The tower sits at the PGW position.
type Model struct {
	Drones []*Drone
	Users  []*User

	tower          api.Position
	coverageRadius float64
	searchRadius   float64
	towerRange     float64
	drainSearch    float64
	drainCluster   float64
	drainRelay     float64

	clustersFormed map[string]bool
}

func NewModel(cfg *config.Store, topo *scenario.Topology) *Model {
	m := &Model{
		coverageRadius: cfg.Float("coverage.radius"),
		searchRadius:   cfg.Float("coverage.searchRadius"),
		towerRange:     cfg.Float("coverage.towerRange"),
		drainSearch:    cfg.Float("drone.drain.search"),
		drainCluster:   cfg.Float("drone.drain.cluster"),
		drainRelay:     cfg.Float("drone.drain.relay"),
		clustersFormed: make(map[string]bool),
	}
	if pgw := topo.Node(scenario.PgwName); pgw != nil {
		m.tower = pgw.Position
	}
	for _, enb := range topo.NodesOfKind(api.KindEnb) {
		m.Drones = append(m.Drones, &Drone{
			Name:           enb.Name,
			Pos:            enb.Position,
			Battery:        enb.BatteryJ,
			InitialBattery: enb.BatteryJ,
			Mode:           ModeSearch,
			Alive:          true,
		})
	}
	for _, ue := range topo.NodesOfKind(api.KindUe) {
		groupSize := ue.GroupSize
		if groupSize <= 0 {
			groupSize = 1
		}
		m.Users = append(m.Users, &User{
			Name:         ue.Name,
			Pos:          ue.Position,
			GroupSize:    groupSize,
			ServingDrone: ue.ServingEnb,
		})
	}
	return m
}

// SetUserThroughput feeds per-UE goodput from the traffic engine into the
// service report.
func (m *Model) SetUserThroughput(name string, mbps float64) {
	for _, u := range m.Users {
		if u.Name == name {
			u.ThroughputMbps = mbps
			return
		}
	}
}

// Step advances the model dt seconds: drain batteries, then recompute
// detection, service and drone modes.
func (m *Model) Step(dt float64) {
	for _, d := range m.Drones {
		if !d.Alive {
			continue
		}
		d.Battery -= m.drainFor(d.Mode) * dt
		if d.Battery <= 0 {
			d.Battery = 0
			d.Alive = false
			d.Mode = ModeSearch
		}
	}

	droneByName := make(map[string]*Drone, len(m.Drones))
	for _, d := range m.Drones {
		droneByName[d.Name] = d
	}

	serving := make(map[string]bool)
	relaying := make(map[string]bool)

	for _, u := range m.Users {
		// detection is sticky: a found group stays found
		if !u.Detected {
			for _, d := range m.Drones {
				if d.Alive && dist2d(d.Pos, u.Pos) <= m.searchRadius {
					u.Detected = true
					break
				}
			}
		}

		u.Served = false
		u.HopsToTower = 0
		d := droneByName[u.ServingDrone]
		if d == nil || !d.Alive || dist2d(d.Pos, u.Pos) > m.coverageRadius {
			continue
		}
		if dist2d(d.Pos, m.tower) <= m.towerRange {
			u.Served = true
			u.HopsToTower = 1
			serving[d.Name] = true
			continue
		}
		// out of tower range: another living drone has to relay
		if relay := m.findRelay(d); relay != nil {
			u.Served = true
			u.HopsToTower = 2
			serving[d.Name] = true
			relaying[relay.Name] = true
		}
	}

	for _, d := range m.Drones {
		if !d.Alive {
			continue
		}
		switch {
		case serving[d.Name]:
			d.Mode = ModeCluster
			m.clustersFormed[d.Name] = true
		case relaying[d.Name]:
			d.Mode = ModeRelay
		default:
			d.Mode = ModeSearch
		}
	}
}

func (m *Model) findRelay(from *Drone) *Drone {
	var best *Drone
	bestDist := math.MaxFloat64
	for _, d := range m.Drones {
		if d == from || !d.Alive {
			continue
		}
		if dist2d(d.Pos, m.tower) > m.towerRange {
			continue
		}
		if dd := dist2d(d.Pos, from.Pos); dd < bestDist {
			best = d
			bestDist = dd
		}
	}
	return best
}

func (m *Model) drainFor(mode Mode) float64 {
	switch mode {
	case ModeCluster:
		return m.drainCluster
	case ModeRelay:
		return m.drainRelay
	default:
		return m.drainSearch
	}
}

// Stats is one snapshot of the coverage state.
type Stats struct {
	DronesAlive     int
	TotalDrones     int
	PeopleDetected  int
	PeopleServed    int
	TotalPeople     int
	AvgBattery      float64
	TotalThroughput float64
	AvgThroughput   float64
	AvgHops         float64
	Clusters        int
}

func (m *Model) Snapshot() Stats {
	var s Stats
	s.TotalDrones = len(m.Drones)
	var batterySum float64
	for _, d := range m.Drones {
		if d.Alive {
			s.DronesAlive++
			batterySum += d.Battery
		}
	}
	if s.DronesAlive > 0 {
		s.AvgBattery = batterySum / float64(s.DronesAlive)
	}

	var served int
	var hopSum float64
	for _, u := range m.Users {
		s.TotalPeople += u.GroupSize
		if u.Detected {
			s.PeopleDetected += u.GroupSize
		}
		if u.Served {
			s.PeopleServed += u.GroupSize
			s.TotalThroughput += u.ThroughputMbps
			hopSum += float64(u.HopsToTower)
			served++
		}
	}
	if served > 0 {
		s.AvgThroughput = s.TotalThroughput / float64(served)
		s.AvgHops = hopSum / float64(served)
	}
	s.Clusters = len(m.clustersFormed)
	return s
}

// Report renders the final statistics block.
func (m *Model) Report(simTime float64) string {
	s := m.Snapshot()
	pct := func(part, whole int) float64 {
		if whole == 0 {
			return 0
		}
		return 100 * float64(part) / float64(whole)
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("SIMULATION COMPLETE - COVERAGE\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Duration: %.1fs\n", simTime)
	fmt.Fprintf(&sb, "Drones Survived: %d/%d\n", s.DronesAlive, s.TotalDrones)
	fmt.Fprintf(&sb, "Average Battery Remaining: %.0fJ\n", s.AvgBattery)
	fmt.Fprintf(&sb, "People Detected: %d/%d (%.1f%%)\n", s.PeopleDetected, s.TotalPeople, pct(s.PeopleDetected, s.TotalPeople))
	fmt.Fprintf(&sb, "People Served: %d/%d (%.1f%%)\n", s.PeopleServed, s.TotalPeople, pct(s.PeopleServed, s.TotalPeople))
	fmt.Fprintf(&sb, "Clusters Formed: %d\n", s.Clusters)
	if s.PeopleServed > 0 {
		fmt.Fprintf(&sb, "Average Throughput: %.2f Mbps\n", s.AvgThroughput)
		fmt.Fprintf(&sb, "Average Hops to Tower: %.2f\n", s.AvgHops)
		fmt.Fprintf(&sb, "Total Network Throughput: %.1f Mbps\n", s.TotalThroughput)
	}
	return sb.String()
}

func dist2d(a, b api.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
