package scenario

import (
	"fmt"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
)

// RadioHelper builds the air links between eNBs and UEs. HARQ and the
// scheduler flavor are attributes passed through to the link model, not
// behavior implemented here.
type RadioHelper struct {
	cfg           *config.Store
	schedulerType string
	harqEnabled   bool
}

func NewRadioHelper(cfg *config.Store) *RadioHelper {
	return &RadioHelper{
		cfg:           cfg,
		schedulerType: cfg.String("sched.type"),
		harqEnabled:   cfg.Bool("radio.harqEnabled"),
	}
}

func (rh *RadioHelper) SetSchedulerType(s string) { rh.schedulerType = s }
func (rh *RadioHelper) SchedulerType() string     { return rh.schedulerType }
func (rh *RadioHelper) SetHarqEnabled(b bool)     { rh.harqEnabled = b }
func (rh *RadioHelper) HarqEnabled() bool         { return rh.harqEnabled }

// Attach binds a UE to its serving eNB and creates the radio link.
func (rh *RadioHelper) Attach(topo *Topology, ue, enb *api.Node) error {
	if ue.Kind != api.KindUe {
		return fmt.Errorf("node %s is not a UE", ue.Name)
	}
	if enb.Kind != api.KindEnb {
		return fmt.Errorf("node %s is not an eNB", enb.Name)
	}
	if ue.ServingEnb != "" {
		return fmt.Errorf("UE %s already attached to %s", ue.Name, ue.ServingEnb)
	}
	ue.ServingEnb = enb.Name

	return topo.AddLink(&api.Link{
		SrcNode: enb.Name,
		DstNode: ue.Name,
		Kind:    api.LinkRadio,
		Properties: api.LinkProperties{
			RateMbps: uint64(rh.cfg.Uint("radio.rateMbps")),
			DelayUs:  rh.cfg.Float("radio.delayUs"),
			Loss:     float32(rh.cfg.Float("radio.lossPct")),
			Mtu:      uint32(rh.cfg.Uint("p2p.mtu")),
		},
	})
}
