package link

import (
	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/ovs"
)

// LinkManager turns topology links into OVS flows plus traffic-control
// rules inside the endpoint containers.
type LinkManager struct {
	om *ovs.OvsManager
}

func NewLinkManager(o *ovs.OvsManager) *LinkManager {
	return &LinkManager{
		om: o,
	}
}

// ApplyLink installs the forwarding flows for a link.
func (lm *LinkManager) ApplyLink(link *api.Link) error {
	return lm.om.AddFlowsByLink(link)
}

// ApplyLinkProperties shapes traffic from src toward dst with the link's
// rate, delay and loss. First application creates the HTB class and netem
// qdisc; later ones update them in place.
func (lm *LinkManager) ApplyLinkProperties(l *api.Link, src *api.Node, dst api.Node) error {
	props := l.Properties
	props.DstIP = dst.Interface.Ipv4

	shaped := api.Link{
		SrcNode:    src.Name,
		DstNode:    dst.Name,
		Kind:       l.Kind,
		Properties: props,
	}

	if existing, ok := src.Rules[dst.Name]; ok && existing.HTBClassid != 0 {
		return lm.UpdateHtbClass(&shaped, src)
	}
	return lm.CreateHtbClass(&shaped, src)
}
