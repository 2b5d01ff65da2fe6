package scenario

import (
	"fmt"
	"math"

	"github.com/iti/rngstream"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
	"github.com/embeddingBits/dronenet/pkg/util"
)

const ueHeight = 1.5 // meters

// Builder wires the helpers together and produces the scenario topology:
// PGW, remote host behind the internet link, a row of drone eNBs and their
// ground UEs.
type Builder struct {
	cfg   *config.Store
	radio *RadioHelper
	core  *CoreHelper
	rng   *rngstream.RngStream
}

func New(cfg *config.Store) (*Builder, error) {
	core, err := NewCoreHelper(cfg)
	if err != nil {
		return nil, err
	}
	return &Builder{
		cfg:   cfg,
		radio: NewRadioHelper(cfg),
		core:  core,
		rng:   rngstream.New("scenario"),
	}, nil
}

func (b *Builder) Radio() *RadioHelper { return b.radio }
func (b *Builder) Core() *CoreHelper   { return b.core }

// Build runs the launcher's single linear path: defaults, PGW, remote host,
// internet link, addressing, static route, then the eNB and UE containers.
func (b *Builder) Build(params api.Params) (*Topology, error) {
	if params.MaxDistance < params.MinDistance {
		return nil, fmt.Errorf("maxDistance %.1f below minDistance %.1f", params.MaxDistance, params.MinDistance)
	}

	// the run flags win over file-loaded defaults
	if err := b.cfg.SetDefault("radio.harqEnabled", params.HarqEnabled); err != nil {
		return nil, err
	}
	if err := b.cfg.SetDefault("sched.harqEnabled", params.HarqEnabled); err != nil {
		return nil, err
	}
	if err := b.cfg.SetDefault("radio.rlcAmEnabled", params.RlcAmEnabled); err != nil {
		return nil, err
	}
	b.radio.SetHarqEnabled(params.HarqEnabled)
	b.radio.SetSchedulerType(b.cfg.String("sched.type"))

	topo := NewTopology()

	pgw, err := b.core.CreatePgw(topo)
	if err != nil {
		return nil, err
	}

	remoteHost := &api.Node{
		Name: RemoteHostName,
		Kind: api.KindRemoteHost,
	}
	if err := topo.AddNode(remoteHost); err != nil {
		return nil, err
	}

	if err := b.buildInternetLink(topo, pgw, remoteHost); err != nil {
		return nil, err
	}

	// static route on the remote host back to the UE network
	ueNet, ueMask := b.core.UeNetwork()
	topo.Routes = append(topo.Routes, api.StaticRoute{
		Node:    remoteHost.Name,
		Network: ueNet,
		Mask:    ueMask,
		Via:     stripPrefixLen(topo.PgwInternetAddr),
	})

	if err := b.buildCells(topo, params); err != nil {
		return nil, err
	}
	return topo, nil
}

// buildInternetLink creates the PGW <-> remote host point-to-point link and
// assigns both ends from the 1.0.0.0/8 pool.
func (b *Builder) buildInternetLink(topo *Topology, pgw, remoteHost *api.Node) error {
	bitsPerSec, err := util.ParseDataRate(b.cfg.String("p2p.dataRate"))
	if err != nil {
		return err
	}

	internetPool, err := util.NewAddressPool("1.0.0.0", "255.0.0.0")
	if err != nil {
		return err
	}
	pgwAddr, err := internetPool.Next()
	if err != nil {
		return err
	}
	hostAddr, err := internetPool.Next()
	if err != nil {
		return err
	}
	pgw.Interface.Ipv4 = pgwAddr
	remoteHost.Interface.Ipv4 = hostAddr
	topo.PgwInternetAddr = pgwAddr
	topo.RemoteHostAddr = hostAddr

	return topo.AddLink(&api.Link{
		SrcNode: pgw.Name,
		DstNode: remoteHost.Name,
		Kind:    api.LinkP2P,
		Properties: api.LinkProperties{
			RateMbps: bitsPerSec / 1000 / 1000,
			DelayUs:  b.cfg.Duration("p2p.delay").Seconds() * 1e6,
			Mtu:      uint32(b.cfg.Uint("p2p.mtu")),
		},
	})
}

// buildCells places numEnb drones on a line away from the tower and drops
// numUe users around each at a uniform distance in [minDistance, maxDistance].
func (b *Builder) buildCells(topo *Topology, params api.Params) error {
	spacing := b.cfg.Float("topo.enbSpacing")
	altitude := b.cfg.Float("topo.droneAltitude")
	battery := b.cfg.Float("drone.batteryJ")

	for i := uint(0); i < params.NumEnb; i++ {
		enb := &api.Node{
			Name:     fmt.Sprintf("enb%d", i),
			Kind:     api.KindEnb,
			Position: api.Position{X: float64(i+1) * spacing, Z: altitude},
			BatteryJ: battery,
		}
		if err := topo.AddNode(enb); err != nil {
			return err
		}
		if err := b.core.ConnectEnb(topo, enb); err != nil {
			return err
		}

		for j := uint(0); j < params.NumUe; j++ {
			dist := params.MinDistance + b.rng.RandU01()*(params.MaxDistance-params.MinDistance)
			angle := 2 * math.Pi * b.rng.RandU01()

			ue := &api.Node{
				Name: fmt.Sprintf("ue%d-%d", i, j),
				Kind: api.KindUe,
				Position: api.Position{
					X: enb.Position.X + dist*math.Cos(angle),
					Y: enb.Position.Y + dist*math.Sin(angle),
					Z: ueHeight,
				},
			}
			if err := topo.AddNode(ue); err != nil {
				return err
			}
			if err := b.core.AssignUeAddress(ue); err != nil {
				return err
			}
			if err := b.radio.Attach(topo, ue, enb); err != nil {
				return err
			}
		}
	}
	return nil
}

// Merge folds extra nodes and links from a scenario file into the built
// topology. Nodes with a missing or reserved address get one from the UE
// pool. A radio link in the file decides the UE's serving eNB; a UE left
// without one attaches to the nearest eNB so every UE keeps exactly one
// serving cell.
func (b *Builder) Merge(topo *Topology, sc *api.Scenario) error {
	names := make([]string, 0, len(sc.Nodes))
	for i := range sc.Nodes {
		n := sc.Nodes[i]
		if n.Kind == "" {
			n.Kind = api.KindUe
		}
		if !util.ValidIpv4(n.Interface.Ipv4) && n.Kind == api.KindUe {
			if err := b.core.AssignUeAddress(&n); err != nil {
				return err
			}
		}
		if err := topo.AddNode(&n); err != nil {
			return err
		}
		names = append(names, n.Name)
	}
	for i := range sc.Links {
		l := sc.Links[i]
		if err := topo.AddLink(&l); err != nil {
			return err
		}
		if l.Kind == api.LinkRadio {
			bindRadioLink(topo, &l)
		}
	}
	for _, name := range names {
		ue := topo.Node(name)
		if ue.Kind != api.KindUe || ue.ServingEnb != "" {
			continue
		}
		enb := nearestEnb(topo, ue)
		if enb == nil {
			return fmt.Errorf("no eNB available to serve merged UE %s", ue.Name)
		}
		if err := b.radio.Attach(topo, ue, enb); err != nil {
			return err
		}
	}
	return nil
}

// bindRadioLink records the attachment an explicit radio link implies.
func bindRadioLink(topo *Topology, l *api.Link) {
	src := topo.Node(l.SrcNode)
	dst := topo.Node(l.DstNode)
	switch {
	case src.Kind == api.KindEnb && dst.Kind == api.KindUe && dst.ServingEnb == "":
		dst.ServingEnb = src.Name
	case dst.Kind == api.KindEnb && src.Kind == api.KindUe && src.ServingEnb == "":
		src.ServingEnb = dst.Name
	}
}

func nearestEnb(topo *Topology, ue *api.Node) *api.Node {
	var best *api.Node
	bestDist := math.MaxFloat64
	for _, enb := range topo.NodesOfKind(api.KindEnb) {
		if d := math.Hypot(enb.Position.X-ue.Position.X, enb.Position.Y-ue.Position.Y); d < bestDist {
			best = enb
			bestDist = d
		}
	}
	return best
}
