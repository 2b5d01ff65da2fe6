package scenario

import (
	"fmt"
	"strings"

	"github.com/embeddingBits/dronenet/api"
)

// Topology is the built scenario graph handed to the engine or the
// emulation backend.
type Topology struct {
	Nodes  map[string]*api.Node
	Links  []*api.Link
	Routes []api.StaticRoute

	// RemoteHostAddr and PgwInternetAddr are the two ends of the
	// internet point-to-point link, in CIDR notation.
	RemoteHostAddr  string
	PgwInternetAddr string
	// UeGateway is the address UEs use as their default gateway.
	UeGateway string

	order   []string
	nextUid int32
}

func NewTopology() *Topology {
	return &Topology{
		Nodes: make(map[string]*api.Node),
	}
}

func (t *Topology) AddNode(n *api.Node) error {
	if n.Name == "" {
		return fmt.Errorf("node must have a name")
	}
	if _, existed := t.Nodes[n.Name]; existed {
		return fmt.Errorf("node %s already exists", n.Name)
	}
	t.nextUid++
	n.Uid = t.nextUid
	if n.Rules == nil {
		n.Rules = make(map[string]api.LinkProperties)
	}
	n.Interface.NodeName = n.Name
	t.Nodes[n.Name] = n
	t.order = append(t.order, n.Name)
	return nil
}

func (t *Topology) Node(name string) *api.Node {
	return t.Nodes[name]
}

func (t *Topology) AddLink(l *api.Link) error {
	src, existed := t.Nodes[l.SrcNode]
	if !existed {
		return fmt.Errorf("src node %s not found", l.SrcNode)
	}
	dst, existed := t.Nodes[l.DstNode]
	if !existed {
		return fmt.Errorf("dst node %s not found", l.DstNode)
	}
	t.nextUid++
	l.Uid = t.nextUid
	l.SrcIntf = src.Interface
	l.DstIntf = dst.Interface
	if l.Properties.DstIP == "" {
		l.Properties.DstIP = stripPrefixLen(dst.Interface.Ipv4)
	}
	t.Links = append(t.Links, l)
	return nil
}

// LinkBetween returns the first link joining a and b in either direction.
func (t *Topology) LinkBetween(a, b string) *api.Link {
	for _, l := range t.Links {
		if l.SrcNode == a && l.DstNode == b {
			return l
		}
		if !l.UniDirectional && l.SrcNode == b && l.DstNode == a {
			return l
		}
	}
	return nil
}

// NodeNames returns node names in creation order.
func (t *Topology) NodeNames() []string {
	names := make([]string, len(t.order))
	copy(names, t.order)
	return names
}

// NodesOfKind returns nodes of one kind in creation order.
func (t *Topology) NodesOfKind(kind api.NodeKind) []*api.Node {
	var out []*api.Node
	for _, name := range t.order {
		if n := t.Nodes[name]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func stripPrefixLen(cidr string) string {
	if i := strings.Index(cidr, "/"); i >= 0 {
		return cidr[:i]
	}
	return cidr
}
