package api

type LinkKind string

const (
	// LinkP2P is the wired internet link between the PGW and the remote host.
	LinkP2P LinkKind = "p2p"
	// LinkCore is the backhaul between an eNB and the PGW.
	LinkCore LinkKind = "core"
	// LinkRadio is the mmWave air link between an eNB and a UE.
	LinkRadio LinkKind = "radio"
)

type Link struct {
	Uid            int32
	SrcNode        string         `yaml:"srcNode"` // SrcNodeName
	DstNode        string         `yaml:"dstNode"` // DstNodeName
	Kind           LinkKind       `yaml:"kind"`
	Properties     LinkProperties `yaml:"properties"`
	UniDirectional bool           `yaml:"uniDirectional"`

	SrcIntf NodeInterface
	DstIntf NodeInterface
}

type LinkProperties struct {
	DelayUs    float64 `yaml:"delayUs"`  // one-way propagation delay in us
	Loss       float32 `yaml:"loss"`     // in percentage
	RateMbps   uint64  `yaml:"rateMbps"` // in mbps
	Mtu        uint32  `yaml:"mtu"`
	HTBClassid uint32  // netlink.MakeHandle(1, 1)
	DstIP      string  // for filtering (7.0.0.2)
	NetemId    uint32
}

// StaticRoute sends traffic for Network/Mask out through Via on Node.
type StaticRoute struct {
	Node    string `yaml:"node"`
	Network string `yaml:"network"`
	Mask    string `yaml:"mask"`
	Via     string `yaml:"via"`
}
