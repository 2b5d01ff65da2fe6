package ovs

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/digitalocean/go-openvswitch/ovs"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"

	"github.com/embeddingBits/dronenet/api"
)

const VethOvsSideSuffix = "-ovs"

// OvsManager owns the scenario bridge every emulated node hangs off.
type OvsManager struct {
	client *ovs.Client
	bridge string
}

func NewOvsManager(bridge string) *OvsManager {
	return &OvsManager{client: ovs.New(), bridge: bridge}
}

func (om *OvsManager) Bridge() string { return om.bridge }

func (om *OvsManager) CreateBridge() error {
	if err := om.client.VSwitch.AddBridge(om.bridge); err != nil {
		return errors.Wrapf(err, "failed to create bridge %s", om.bridge)
	}
	return nil
}

func (om *OvsManager) DeleteBridge() error {
	if err := om.client.VSwitch.DeleteBridge(om.bridge); err != nil {
		return errors.Wrapf(err, "failed to delete bridge %s", om.bridge)
	}
	return nil
}

// AddVeth adds the host side of a node's veth pair to the scenario bridge.
func (om *OvsManager) AddVeth(vethHost string) error {
	// Ensure the veth exists
	link, err := netlink.LinkByName(vethHost)
	if err != nil {
		return errors.Wrap(err, "failed to find veth interface")
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return errors.Wrap(err, "failed to bring up veth interface")
	}

	if err := om.client.VSwitch.AddPort(om.bridge, vethHost); err != nil {
		return errors.Wrap(err, "failed to add veth to OVS bridge")
	}

	return nil
}

// AddFlowsByLink pins src -> dst forwarding for one topology link.
func (om *OvsManager) AddFlowsByLink(link *api.Link) error {
	srcPort, err := GetPortId(om.bridge, link.SrcNode+VethOvsSideSuffix)
	if err != nil {
		return err
	}
	dstPort, err := GetPortId(om.bridge, link.DstNode+VethOvsSideSuffix)
	if err != nil {
		return err
	}
	if err = om.client.OpenFlow.AddFlow(om.bridge, &ovs.Flow{
		Matches: []ovs.Match{
			ovs.InPortMatch(srcPort),
		},
		Actions: []ovs.Action{
			ovs.Output(dstPort),
		},
	}); err != nil {
		return errors.Wrapf(err, "failed to add flow %s -> %s", link.SrcNode, link.DstNode)
	}
	if link.UniDirectional {
		return nil
	}
	if err = om.client.OpenFlow.AddFlow(om.bridge, &ovs.Flow{
		Matches: []ovs.Match{
			ovs.InPortMatch(dstPort),
		},
		Actions: []ovs.Action{
			ovs.Output(srcPort),
		},
	}); err != nil {
		return errors.Wrapf(err, "failed to add flow %s -> %s", link.DstNode, link.SrcNode)
	}
	return nil
}

func GetPortId(bridge, port string) (int, error) {
	cmd := exec.Command("ovs-vsctl", "get", "Interface", port, "ofport")
	output, err := cmd.Output()
	if err != nil {
		return -1, errors.Wrapf(err, "failed to get port %s id on OVS bridge %s", port, bridge)
	}
	resultStr := strings.TrimSpace(string(output))
	resultInt, err := strconv.Atoi(resultStr)
	if err != nil {
		return -1, errors.Wrapf(err, "error converting port %s id %s to int", port, resultStr)
	}
	return resultInt, nil
}
