package pkg

import (
	"context"
	"fmt"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
	"github.com/embeddingBits/dronenet/pkg/link"
	"github.com/embeddingBits/dronenet/pkg/node"
	"github.com/embeddingBits/dronenet/pkg/ovs"
)

// Manager materializes a built scenario on the host: one container per
// node, a shared OVS bridge, and HTB/netem shaping per link. It is
// responsible for adding nodes, linking nodes, applying link properties,
// and cleaning up resources when destroyed.
type Manager struct {
	Nodes map[string]api.Node // map node name to node
	om    *ovs.OvsManager
	lm    *link.LinkManager
	cm    *node.ContainerManager
	ctx   context.Context
}

func NewManager(cfg *config.Store) (*Manager, error) {
	om := ovs.NewOvsManager(cfg.String("emu.bridge"))
	cm, err := node.NewContainerManager(om, cfg.String("emu.image"))
	if err != nil {
		return nil, err
	}
	lm := link.NewLinkManager(om)

	if err := om.CreateBridge(); err != nil {
		return nil, err
	}

	return &Manager{
		Nodes: make(map[string]api.Node),
		om:    om,
		lm:    lm,
		cm:    cm,
		ctx:   context.Background(),
	}, nil
}

func (m *Manager) AddNode(n api.Node) error {

	// Initialize
	if n.Rules == nil {
		n.Rules = make(map[string]api.LinkProperties)
	}

	// check if existed
	if _, existed := m.Nodes[n.Name]; existed {
		if err := m.cm.DeleteNode(m.ctx, &n); err != nil {
			return err
		}
	}

	m.Nodes[n.Name] = n
	err := m.cm.AddNode(m.ctx, &n)
	if err != nil {
		return err
	}
	if err = m.lm.CreateRootQdisc(n); err != nil {
		return err
	}
	// update node
	m.Nodes[n.Name] = n

	return nil
}

func (m *Manager) AddLink(l api.Link) error {
	// check invalid link
	if _, existed := m.Nodes[l.SrcNode]; !existed {
		return fmt.Errorf("src node %s not found", l.SrcNode)
	}
	if _, existed := m.Nodes[l.DstNode]; !existed {
		return fmt.Errorf("dst node %s not found", l.DstNode)
	}

	src := m.Nodes[l.SrcNode]
	dst := m.Nodes[l.DstNode]
	l.SrcIntf = src.Interface
	l.DstIntf = dst.Interface

	if err := m.lm.ApplyLink(&l); err != nil {
		return err
	}

	// Apply Properties
	if err := m.lm.ApplyLinkProperties(&l, &src, dst); err != nil {
		return err
	}

	if !l.UniDirectional {
		if err := m.lm.ApplyLinkProperties(&l, &dst, src); err != nil {
			return err
		}
	}
	// update src & dst node
	m.Nodes[l.SrcNode] = src
	m.Nodes[l.DstNode] = dst

	return nil
}

// AddRoute installs a static route inside the named node's container.
func (m *Manager) AddRoute(r api.StaticRoute) error {
	n, existed := m.Nodes[r.Node]
	if !existed {
		return fmt.Errorf("route node %s not found", r.Node)
	}
	return m.cm.AddRoute(&n, r)
}

func (m *Manager) Destroy() {
	for _, n := range m.Nodes {
		err := m.cm.DeleteNode(m.ctx, &n)
		if err != nil {
			fmt.Println(err.Error())
		}
	}
	err := m.om.DeleteBridge()
	if err != nil {
		fmt.Println(err.Error())
		return
	}
}
