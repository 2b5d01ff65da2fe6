package scenario

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
)

func buildTopo(t *testing.T, params api.Params) *Topology {
	t.Helper()
	cfg := config.New()
	b, err := New(cfg)
	require.NoError(t, err)
	topo, err := b.Build(params)
	require.NoError(t, err)
	return topo
}

func TestBuildNodeInventory(t *testing.T) {
	params := api.DefaultParams()
	params.NumEnb = 2
	params.NumUe = 3
	topo := buildTopo(t, params)

	assert.Len(t, topo.NodesOfKind(api.KindPgw), 1)
	assert.Len(t, topo.NodesOfKind(api.KindRemoteHost), 1)
	assert.Len(t, topo.NodesOfKind(api.KindEnb), 2)
	assert.Len(t, topo.NodesOfKind(api.KindUe), 6)

	// internet link + one core link per eNB + one radio link per UE
	assert.Len(t, topo.Links, 1+2+6)
}

func TestBuildInternetLink(t *testing.T) {
	topo := buildTopo(t, api.DefaultParams())

	assert.Equal(t, "1.0.0.1/8", topo.PgwInternetAddr)
	assert.Equal(t, "1.0.0.2/8", topo.RemoteHostAddr)

	p2p := topo.LinkBetween(RemoteHostName, PgwName)
	require.NotNil(t, p2p)
	assert.Equal(t, api.LinkP2P, p2p.Kind)
	assert.Equal(t, uint64(100_000), p2p.Properties.RateMbps) // 100Gb/s
	assert.Equal(t, 10_000.0, p2p.Properties.DelayUs)         // 10ms
	assert.Equal(t, uint32(1500), p2p.Properties.Mtu)
}

func TestBuildStaticRoute(t *testing.T) {
	topo := buildTopo(t, api.DefaultParams())

	require.Len(t, topo.Routes, 1)
	rt := topo.Routes[0]
	assert.Equal(t, RemoteHostName, rt.Node)
	assert.Equal(t, "7.0.0.0", rt.Network)
	assert.Equal(t, "255.0.0.0", rt.Mask)
	assert.Equal(t, "1.0.0.1", rt.Via)
}

func TestBuildUeAddressing(t *testing.T) {
	params := api.DefaultParams()
	params.NumUe = 2
	topo := buildTopo(t, params)

	// 7.0.0.1 is held back as the UE default gateway
	assert.Equal(t, "7.0.0.1/8", topo.UeGateway)

	ues := topo.NodesOfKind(api.KindUe)
	require.Len(t, ues, 2)
	assert.Equal(t, "7.0.0.2/8", ues[0].Interface.Ipv4)
	assert.Equal(t, "7.0.0.3/8", ues[1].Interface.Ipv4)
}

func TestBuildUePlacement(t *testing.T) {
	params := api.DefaultParams()
	params.NumEnb = 2
	params.NumUe = 4
	params.MinDistance = 20
	params.MaxDistance = 80
	topo := buildTopo(t, params)

	for _, ue := range topo.NodesOfKind(api.KindUe) {
		require.NotEmpty(t, ue.ServingEnb)
		enb := topo.Node(ue.ServingEnb)
		require.NotNil(t, enb)

		d := math.Hypot(ue.Position.X-enb.Position.X, ue.Position.Y-enb.Position.Y)
		assert.GreaterOrEqual(t, d, params.MinDistance-1e-9, "ue %s", ue.Name)
		assert.LessOrEqual(t, d, params.MaxDistance+1e-9, "ue %s", ue.Name)

		radio := topo.LinkBetween(enb.Name, ue.Name)
		require.NotNil(t, radio, "radio link for %s", ue.Name)
		assert.Equal(t, api.LinkRadio, radio.Kind)
	}
}

func TestBuildRejectsBadDistances(t *testing.T) {
	cfg := config.New()
	b, err := New(cfg)
	require.NoError(t, err)

	params := api.DefaultParams()
	params.MinDistance = 100
	params.MaxDistance = 10
	_, err = b.Build(params)
	assert.Error(t, err)
}

func TestBuildAppliesHarqFlags(t *testing.T) {
	cfg := config.New()
	b, err := New(cfg)
	require.NoError(t, err)

	params := api.DefaultParams()
	params.HarqEnabled = false
	params.RlcAmEnabled = true
	_, err = b.Build(params)
	require.NoError(t, err)

	assert.False(t, cfg.Bool("radio.harqEnabled"))
	assert.False(t, cfg.Bool("sched.harqEnabled"))
	assert.True(t, cfg.Bool("radio.rlcAmEnabled"))
	assert.False(t, b.Radio().HarqEnabled())
}

func TestMergeExtraNodes(t *testing.T) {
	cfg := config.New()
	b, err := New(cfg)
	require.NoError(t, err)
	topo, err := b.Build(api.DefaultParams())
	require.NoError(t, err)

	sc := &api.Scenario{
		Nodes: []api.Node{
			{Name: "extra-ue", Kind: api.KindUe},
		},
		Links: []api.Link{
			{SrcNode: "extra-ue", DstNode: PgwName, Kind: api.LinkCore},
		},
	}
	require.NoError(t, b.Merge(topo, sc))

	extra := topo.Node("extra-ue")
	require.NotNil(t, extra)
	assert.NotEmpty(t, extra.Interface.Ipv4)
	assert.NotNil(t, topo.LinkBetween("extra-ue", PgwName))
	assert.Equal(t, "enb0", extra.ServingEnb)
}

func TestMergeAttachesUeToNearestEnb(t *testing.T) {
	cfg := config.New()
	b, err := New(cfg)
	require.NoError(t, err)

	params := api.DefaultParams()
	params.NumEnb = 2 // enb0 at x=200, enb1 at x=400
	topo, err := b.Build(params)
	require.NoError(t, err)

	sc := &api.Scenario{
		Nodes: []api.Node{
			{Name: "extra-ue", Kind: api.KindUe, Position: api.Position{X: 390}},
		},
	}
	require.NoError(t, b.Merge(topo, sc))

	extra := topo.Node("extra-ue")
	require.NotNil(t, extra)
	assert.Equal(t, "enb1", extra.ServingEnb)

	radio := topo.LinkBetween("enb1", "extra-ue")
	require.NotNil(t, radio)
	assert.Equal(t, api.LinkRadio, radio.Kind)
}

func TestMergeHonorsExplicitRadioLink(t *testing.T) {
	cfg := config.New()
	b, err := New(cfg)
	require.NoError(t, err)
	topo, err := b.Build(api.DefaultParams())
	require.NoError(t, err)
	baseLinks := len(topo.Links)

	sc := &api.Scenario{
		Nodes: []api.Node{
			{Name: "extra-ue", Kind: api.KindUe, Position: api.Position{X: 250}},
		},
		Links: []api.Link{
			{SrcNode: "enb0", DstNode: "extra-ue", Kind: api.LinkRadio,
				Properties: api.LinkProperties{RateMbps: 2800, DelayUs: 250}},
		},
	}
	require.NoError(t, b.Merge(topo, sc))

	extra := topo.Node("extra-ue")
	require.NotNil(t, extra)
	assert.Equal(t, "enb0", extra.ServingEnb)
	// the file's link is the attachment; no second radio link appears
	assert.Len(t, topo.Links, baseLinks+1)
}

func TestMergeRejectsDuplicateNode(t *testing.T) {
	cfg := config.New()
	b, err := New(cfg)
	require.NoError(t, err)
	topo, err := b.Build(api.DefaultParams())
	require.NoError(t, err)

	sc := &api.Scenario{Nodes: []api.Node{{Name: PgwName}}}
	assert.Error(t, b.Merge(topo, sc))
}

func TestTopologyLinkValidation(t *testing.T) {
	topo := NewTopology()
	require.NoError(t, topo.AddNode(&api.Node{Name: "a"}))

	err := topo.AddLink(&api.Link{SrcNode: "a", DstNode: "missing"})
	assert.Error(t, err)
}
