package scenario

import (
	"fmt"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
	"github.com/embeddingBits/dronenet/pkg/util"
)

const (
	PgwName        = "pgw"
	RemoteHostName = "remote-host"
)

// CoreHelper owns the packet-core side of the scenario: the PGW node and
// the UE address pool.
type CoreHelper struct {
	cfg    *config.Store
	uePool *util.AddressPool
	ueGw   string
	pgw    *api.Node
}

func NewCoreHelper(cfg *config.Store) (*CoreHelper, error) {
	uePool, err := util.NewAddressPool("7.0.0.0", "255.0.0.0")
	if err != nil {
		return nil, err
	}
	return &CoreHelper{cfg: cfg, uePool: uePool}, nil
}

// CreatePgw adds the PGW node at the origin. The tower the drones relay
// toward sits at the same spot. The first UE-pool address is reserved as
// the UE default gateway.
func (ch *CoreHelper) CreatePgw(topo *Topology) (*api.Node, error) {
	if ch.pgw != nil {
		return ch.pgw, nil
	}
	gw, err := ch.uePool.Next()
	if err != nil {
		return nil, err
	}
	ch.ueGw = gw

	pgw := &api.Node{
		Name: PgwName,
		Kind: api.KindPgw,
	}
	if err := topo.AddNode(pgw); err != nil {
		return nil, err
	}
	topo.UeGateway = gw
	ch.pgw = pgw
	return pgw, nil
}

// AssignUeAddress gives the UE its address from the 7.0.0.0/8 pool.
func (ch *CoreHelper) AssignUeAddress(n *api.Node) error {
	if n.Kind != api.KindUe {
		return fmt.Errorf("node %s is not a UE", n.Name)
	}
	addr, err := ch.uePool.Next()
	if err != nil {
		return err
	}
	n.Interface.Ipv4 = addr
	return nil
}

// ConnectEnb backhauls an eNB to the PGW.
func (ch *CoreHelper) ConnectEnb(topo *Topology, enb *api.Node) error {
	if ch.pgw == nil {
		return fmt.Errorf("pgw not created yet")
	}
	return topo.AddLink(&api.Link{
		SrcNode: enb.Name,
		DstNode: ch.pgw.Name,
		Kind:    api.LinkCore,
		Properties: api.LinkProperties{
			RateMbps: uint64(ch.cfg.Uint("core.rateMbps")),
			DelayUs:  ch.cfg.Float("core.delayUs"),
			Mtu:      uint32(ch.cfg.Uint("p2p.mtu")),
		},
	})
}

// UeNetwork returns the UE pool network and mask in dotted form.
func (ch *CoreHelper) UeNetwork() (string, string) {
	return ch.uePool.Network(), ch.uePool.Mask()
}
