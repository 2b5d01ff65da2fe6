package pkg

import (
	"fmt"

	"github.com/embeddingBits/dronenet/pkg/config"
	"github.com/embeddingBits/dronenet/pkg/scenario"
)

// Runner is the emulation facade: it pushes a built topology into the
// Manager node by node, link by link, route by route.
type Runner struct {
	m *Manager
}

func NewRunner(cfg *config.Store) (*Runner, error) {
	m, err := NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{m: m}, nil
}

// ApplyTopology materializes every node, link and static route of the
// scenario in creation order.
func (r *Runner) ApplyTopology(topo *scenario.Topology) error {
	for _, name := range topo.NodeNames() {
		if err := r.m.AddNode(*topo.Node(name)); err != nil {
			return err
		}
	}
	for _, l := range topo.Links {
		if err := r.m.AddLink(*l); err != nil {
			return err
		}
	}
	for _, rt := range topo.Routes {
		if err := r.m.AddRoute(rt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) Destroy() {
	r.m.Destroy()
}

func (r *Runner) ShowNodes() {
	for _, node := range r.m.Nodes {
		fmt.Printf("Node: %s, Kind: %s, Uid: %d, Interface: %s, IPv4: %s\n", node.Name, node.Kind, node.Uid, node.Interface.Name, node.Interface.Ipv4)
	}
}

func (r *Runner) ShowLinks() {
	for _, node := range r.m.Nodes {
		for dstNode, props := range node.Rules {
			fmt.Printf("Link: Src: %s, Dst: %s, Bw: %dMbps, Delay: %.0fus, Loss: %.2f\n", node.Name, dstNode, props.RateMbps, props.DelayUs, props.Loss)
		}
	}
}
