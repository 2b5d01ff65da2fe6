package api

// Params is the command-line surface of a scenario run.
type Params struct {
	NumEnb              uint    `yaml:"numEnb"`
	NumUe               uint    `yaml:"numUe"` // per eNB
	SimTime             float64 `yaml:"simTime"`             // in seconds
	InterPacketInterval float64 `yaml:"interPacketInterval"` // in us
	HarqEnabled         bool    `yaml:"harq"`
	RlcAmEnabled        bool    `yaml:"rlcAm"`
	MinDistance         float64 `yaml:"minDistance"` // UE distance from serving eNB, meters
	MaxDistance         float64 `yaml:"maxDistance"`
	Seed                uint64  `yaml:"seed"`
}

func DefaultParams() Params {
	return Params{
		NumEnb:              1,
		NumUe:               1,
		SimTime:             2.0,
		InterPacketInterval: 100,
		HarqEnabled:         true,
		RlcAmEnabled:        false,
		MinDistance:         10.0,
		MaxDistance:         150.0,
	}
}

// Scenario is the YAML document accepted by --config. Defaults holds
// key/value overrides for the global defaults store, Nodes and Links are
// extra elements merged into the built topology.
type Scenario struct {
	Params   Params                 `yaml:"params"`
	Defaults map[string]interface{} `yaml:"defaults"`
	Nodes    []Node                 `yaml:"nodes"`
	Links    []Link                 `yaml:"links"`
}
