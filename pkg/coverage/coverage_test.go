package coverage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
	"github.com/embeddingBits/dronenet/pkg/scenario"
)

func testTopo(t *testing.T, nodes ...*api.Node) *scenario.Topology {
	t.Helper()
	topo := scenario.NewTopology()
	require.NoError(t, topo.AddNode(&api.Node{Name: scenario.PgwName, Kind: api.KindPgw}))
	for _, n := range nodes {
		require.NoError(t, topo.AddNode(n))
	}
	return topo
}

func TestStepServesNearbyUser(t *testing.T) {
	topo := testTopo(t,
		&api.Node{Name: "enb0", Kind: api.KindEnb, Position: api.Position{X: 100, Z: 30}, BatteryJ: 1000},
		&api.Node{Name: "ue0-0", Kind: api.KindUe, Position: api.Position{X: 120, Z: 1.5}, ServingEnb: "enb0"},
	)
	m := NewModel(config.New(), topo)
	m.Step(1.0)

	u := m.Users[0]
	assert.True(t, u.Detected)
	assert.True(t, u.Served)
	assert.Equal(t, 1, u.HopsToTower)

	d := m.Drones[0]
	assert.Equal(t, ModeCluster, d.Mode)
	assert.Less(t, d.Battery, d.InitialBattery)

	s := m.Snapshot()
	assert.Equal(t, 1, s.DronesAlive)
	assert.Equal(t, 1, s.PeopleServed)
	assert.Equal(t, 1, s.Clusters)
}

func TestStepUserBeyondCoverage(t *testing.T) {
	topo := testTopo(t,
		&api.Node{Name: "enb0", Kind: api.KindEnb, Position: api.Position{X: 100, Z: 30}, BatteryJ: 1000},
		&api.Node{Name: "ue0-0", Kind: api.KindUe, Position: api.Position{X: 400, Z: 1.5}, ServingEnb: "enb0"},
	)
	m := NewModel(config.New(), topo)
	m.Step(1.0)

	u := m.Users[0]
	assert.False(t, u.Detected) // 300m away, search radius is 250m
	assert.False(t, u.Served)
	assert.Equal(t, ModeSearch, m.Drones[0].Mode)
}

func TestDeadDroneStopsServing(t *testing.T) {
	topo := testTopo(t,
		&api.Node{Name: "enb0", Kind: api.KindEnb, Position: api.Position{X: 100, Z: 30}, BatteryJ: 10},
		&api.Node{Name: "ue0-0", Kind: api.KindUe, Position: api.Position{X: 120, Z: 1.5}, ServingEnb: "enb0"},
	)
	m := NewModel(config.New(), topo)
	m.Step(1.0) // search drain exceeds the 10J battery

	d := m.Drones[0]
	assert.False(t, d.Alive)
	assert.Equal(t, 0.0, d.Battery)
	assert.False(t, m.Users[0].Served)

	s := m.Snapshot()
	assert.Equal(t, 0, s.DronesAlive)
	assert.Equal(t, 0, s.PeopleServed)
}

func TestRelayExtendsTowerRange(t *testing.T) {
	topo := testTopo(t,
		&api.Node{Name: "enb0", Kind: api.KindEnb, Position: api.Position{X: 700, Z: 30}, BatteryJ: 1000},
		&api.Node{Name: "enb1", Kind: api.KindEnb, Position: api.Position{X: 400, Z: 30}, BatteryJ: 1000},
		&api.Node{Name: "ue0-0", Kind: api.KindUe, Position: api.Position{X: 720, Z: 1.5}, ServingEnb: "enb0"},
	)
	m := NewModel(config.New(), topo)
	m.Step(1.0)

	u := m.Users[0]
	assert.True(t, u.Served)
	assert.Equal(t, 2, u.HopsToTower)

	assert.Equal(t, ModeCluster, m.Drones[0].Mode)
	assert.Equal(t, ModeRelay, m.Drones[1].Mode)
}

func TestDetectionIsSticky(t *testing.T) {
	topo := testTopo(t,
		&api.Node{Name: "enb0", Kind: api.KindEnb, Position: api.Position{X: 100, Z: 30}, BatteryJ: 13},
		&api.Node{Name: "ue0-0", Kind: api.KindUe, Position: api.Position{X: 120, Z: 1.5}, ServingEnb: "enb0"},
	)
	m := NewModel(config.New(), topo)
	m.Step(1.0) // detects, then the next step kills the battery
	m.Step(1.0)

	assert.False(t, m.Drones[0].Alive)
	assert.True(t, m.Users[0].Detected)
	assert.False(t, m.Users[0].Served)
}

func TestGroupSizeWeightsCounts(t *testing.T) {
	topo := testTopo(t,
		&api.Node{Name: "enb0", Kind: api.KindEnb, Position: api.Position{X: 100, Z: 30}, BatteryJ: 1000},
		&api.Node{Name: "ue0-0", Kind: api.KindUe, Position: api.Position{X: 120, Z: 1.5}, GroupSize: 4, ServingEnb: "enb0"},
		&api.Node{Name: "ue0-1", Kind: api.KindUe, Position: api.Position{X: 400, Z: 1.5}, GroupSize: 2, ServingEnb: "enb0"},
	)
	m := NewModel(config.New(), topo)
	m.Step(1.0)

	s := m.Snapshot()
	assert.Equal(t, 6, s.TotalPeople)
	assert.Equal(t, 4, s.PeopleDetected) // the far group is out of search range
	assert.Equal(t, 4, s.PeopleServed)

	report := m.Report(1.0)
	assert.True(t, strings.Contains(report, "People Served: 4/6 (66.7%)"))
}

func TestReport(t *testing.T) {
	topo := testTopo(t,
		&api.Node{Name: "enb0", Kind: api.KindEnb, Position: api.Position{X: 100, Z: 30}, BatteryJ: 1000},
		&api.Node{Name: "ue0-0", Kind: api.KindUe, Position: api.Position{X: 120, Z: 1.5}, ServingEnb: "enb0"},
	)
	m := NewModel(config.New(), topo)
	m.SetUserThroughput("ue0-0", 42.5)
	m.Step(1.0)

	report := m.Report(2.0)
	assert.True(t, strings.Contains(report, "Drones Survived: 1/1"))
	assert.True(t, strings.Contains(report, "People Served: 1/1"))
	assert.True(t, strings.Contains(report, "42.5"))
}
