package api

type NodeKind string

const (
	KindEnb        NodeKind = "enb"
	KindUe         NodeKind = "ue"
	KindPgw        NodeKind = "pgw"
	KindRemoteHost NodeKind = "remote-host"
)

// Position is in meters. Z is altitude, so a drone-mounted eNB has Z > 0.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type Node struct {
	Uid       int32
	Name      string   `yaml:"name"`
	Kind      NodeKind `yaml:"kind"`
	Interface NodeInterface
	Position  Position `yaml:"position"`
	BatteryJ  float64  `yaml:"battery"`
	// GroupSize is how many people a UE stands in for. Zero means one.
	GroupSize int `yaml:"groupSize"`
	NetNs     string
	Image     string `yaml:"image"`

	// ServingEnb is set on UE nodes only
	ServingEnb string

	Rules map[string]LinkProperties // len(Rules) will never decrease, used for classid
}

type NodeInterface struct {
	Uid      int32
	Name     string
	Mac      string
	Ipv4     string
	NodeName string
	BrName   string
}
