package node

import (
	"context"
	"fmt"
	"net"

	ns "github.com/containernetworking/plugins/pkg/ns"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/ovs"
	"github.com/embeddingBits/dronenet/pkg/util"
)

const NodeVethSuffix = "-veth0"

// ContainerManager materializes scenario nodes as docker containers.
// seq backs a fallback address pool for nodes the builder left unaddressed.
type ContainerManager struct {
	dClient      *client.Client
	om           *ovs.OvsManager
	defaultImage string
	seq          int
}

func NewContainerManager(o *ovs.OvsManager, defaultImage string) (*ContainerManager, error) {
	dClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "error creating docker client")
	}
	return &ContainerManager{
		dClient:      dClient,
		om:           o,
		defaultImage: defaultImage,
		seq:          1,
	}, nil
}

// AddNode creates and starts the node's container, finds its netns, and
// joins it to the scenario bridge through a veth pair.
func (cm *ContainerManager) AddNode(ctx context.Context, n *api.Node) error {
	cm.seq++
	if n.Image == "" {
		n.Image = cm.defaultImage
	}
	if n.Interface.Ipv4 == "" {
		// scenario pools (1/8, 7/8) were assigned by the builder; anything
		// unaddressed lands in the management range
		n.Interface.Ipv4 = fmt.Sprintf("192.168.10.%d/24", cm.seq)
	} else if !util.ValidIpv4(n.Interface.Ipv4) && n.Kind == "" {
		n.Interface.Ipv4 = fmt.Sprintf("192.168.10.%d/24", cm.seq)
	}

	sysctls := make(map[string]string)
	sysctls["net.ipv4.ip_forward"] = "1"
	sysctls["net.ipv6.conf.all.forwarding"] = "1"

	_, err := cm.dClient.ContainerCreate(ctx, &container.Config{
		Image:           n.Image,
		NetworkDisabled: true,
		User:            "root",
	}, &container.HostConfig{
		Privileged: true,
		Binds:      []string{},
		Sysctls:    sysctls,
	}, nil, nil, n.Name)
	if err != nil {
		return errors.Wrapf(err, "error creating container %s", n.Name)
	}

	if err := cm.dClient.ContainerStart(ctx, n.Name, container.StartOptions{}); err != nil {
		return errors.Wrapf(err, "error starting container %s", n.Name)
	}

	res, err := cm.dClient.ContainerInspect(ctx, n.Name)
	if err != nil {
		return errors.Wrapf(err, "error inspecting container %s", n.Name)
	}
	n.NetNs = fmt.Sprintf("/proc/%d/ns/net", res.State.Pid)

	return cm.CreateVethPair(n)
}

// CreateVethPair creates a veth pair, moves one end into the container,
// addresses it, and adds the other end to the OVS bridge.
func (cm *ContainerManager) CreateVethPair(n *api.Node) error {
	vethContainer := n.Name + NodeVethSuffix
	vethOvs := n.Name + ovs.VethOvsSideSuffix
	linkAttr := netlink.NewLinkAttrs()
	linkAttr.Name = vethOvs
	linkAttr.MTU = 1500
	linkAttr.Flags = net.FlagUp

	veth0 := &netlink.Veth{
		LinkAttrs: linkAttr,
		PeerName:  vethContainer,
	}

	if err := netlink.LinkAdd(veth0); err != nil {
		return errors.Wrapf(err, "error creating veth pair for %s", n.Name)
	}

	containerLink, err := netlink.LinkByName(vethContainer)
	if err != nil {
		return errors.Wrap(err, "error getting container-side veth")
	}
	if err = netlink.LinkSetUp(containerLink); err != nil {
		return errors.Wrapf(err, "error setting link %s up", containerLink.Attrs().Name)
	}

	hostLink, err := netlink.LinkByName(vethOvs)
	if err != nil {
		return errors.Wrap(err, "error getting host-side veth")
	}
	if err = netlink.LinkSetUp(hostLink); err != nil {
		return errors.Wrapf(err, "error setting link %s up", hostLink.Attrs().Name)
	}

	containerNs, err := ns.GetNS(n.NetNs)
	if err != nil {
		return errors.Wrap(err, "failed to get namespace for container")
	}
	defer containerNs.Close()

	if err = netlink.LinkSetNsFd(containerLink, int(containerNs.Fd())); err != nil {
		return errors.Wrap(err, "failed to set namespace for veth")
	}

	if err = containerNs.Do(func(_ ns.NetNS) error {
		containerVeth, err := netlink.LinkByName(vethContainer)
		if err != nil {
			return fmt.Errorf("failed to get link in container namespace: %v", err)
		}

		ip, ipNet, err := net.ParseCIDR(n.Interface.Ipv4)
		if err != nil {
			return fmt.Errorf("failed to parse CIDR: %v", err)
		}
		if err = netlink.AddrAdd(containerVeth, &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: ipNet.Mask}}); err != nil {
			return fmt.Errorf("failed to add address to link: %v", err)
		}

		if err = netlink.LinkSetUp(containerVeth); err != nil {
			return fmt.Errorf("failed to set link up: %v", err)
		}
		return nil
	}); err != nil {
		return errors.Wrap(err, "failed to configure container namespace")
	}

	if err = cm.om.AddVeth(vethOvs); err != nil {
		return errors.Wrap(err, "error adding veth to OVS")
	}

	n.Interface.Mac = veth0.Attrs().HardwareAddr.String()
	n.Interface.Name = vethContainer
	n.Interface.NodeName = n.Name
	n.Interface.BrName = cm.om.Bridge()
	return nil
}

// AddRoute installs a static route inside the node's namespace.
func (cm *ContainerManager) AddRoute(n *api.Node, route api.StaticRoute) error {
	containerNs, err := ns.GetNS(n.NetNs)
	if err != nil {
		return errors.Wrap(err, "failed to get namespace for container")
	}
	defer containerNs.Close()

	return containerNs.Do(func(_ ns.NetNS) error {
		containerVeth, err := netlink.LinkByName(n.Name + NodeVethSuffix)
		if err != nil {
			return fmt.Errorf("failed to get link in container namespace: %v", err)
		}
		gw := net.ParseIP(route.Via)
		if gw == nil {
			return fmt.Errorf("invalid gateway %q", route.Via)
		}
		dst := &net.IPNet{
			IP:   net.ParseIP(route.Network),
			Mask: net.IPMask(net.ParseIP(route.Mask).To4()),
		}
		if dst.IP == nil || dst.Mask == nil {
			return fmt.Errorf("invalid route %s/%s", route.Network, route.Mask)
		}
		if err := netlink.RouteAdd(&netlink.Route{
			LinkIndex: containerVeth.Attrs().Index,
			Dst:       dst,
			Gw:        gw,
		}); err != nil {
			return fmt.Errorf("failed to add route on %s: %v", n.Name, err)
		}
		return nil
	})
}

func (cm *ContainerManager) DeleteNode(ctx context.Context, n *api.Node) error {
	if err := cm.dClient.ContainerRemove(ctx, n.Name, container.RemoveOptions{Force: true}); err != nil {
		return errors.Wrapf(err, "error removing container %s", n.Name)
	}
	return nil
}
