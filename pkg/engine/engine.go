package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
	"github.com/embeddingBits/dronenet/pkg/scenario"
	"github.com/embeddingBits/dronenet/pkg/writer"
)

// Engine pushes downlink packets from the remote host to every UE through
// the point-to-point, core and radio hops of the built topology. Each hop
// adds serialization plus propagation delay, with FIFO queueing per link.
//
// HARQ and RLC-AM are parametrizations of the radio hop: HARQ recovers most
// of the raw loss at the cost of its retransmission round trip, RLC-AM
// recovers what is left at a further delay. Neither protocol is modeled
// beyond that.
type Engine struct {
	cfg    *config.Store
	topo   *scenario.Topology
	params api.Params
	evtMgr *evtm.EventManager
	rng    *rngstream.RngStream

	metrics *writer.Writer // nil when no CSV output was requested

	packetBytes uint32
	interval    float64 // seconds between downlink packets per UE

	rawLoss      float64 // radio loss probability before recovery
	harqResidual float64 // fraction of losses HARQ does not recover
	harqRtt      float64 // seconds added per HARQ recovery
	rlcAmDelay   float64 // seconds added per RLC-AM recovery

	busyUntil map[int32]float64 // link uid -> time the link frees up
	stats     map[string]*UeStats
	seq       uint64

	sent          atomic.Uint64
	delivered     atomic.Uint64
	lost          atomic.Uint64
	retransmitted atomic.Uint64
	clockBits     atomic.Uint64
}

type packet struct {
	seq           uint64
	ue            string
	size          uint32
	sentAt        float64
	retransmitted bool
	path          []*api.Link
	hop           int
}

// ueFlow is the context handed to the event handlers for one UE's traffic.
type ueFlow struct {
	eng  *Engine
	ue   *api.Node
	path []*api.Link
}

func New(cfg *config.Store, topo *scenario.Topology, params api.Params, metrics *writer.Writer) (*Engine, error) {
	e := &Engine{
		cfg:         cfg,
		topo:        topo,
		params:      params,
		evtMgr:      evtm.New(),
		rng:         rngstream.New("engine"),
		metrics:     metrics,
		packetBytes: uint32(cfg.Uint("engine.packetBytes")),
		interval:    params.InterPacketInterval * 1e-6,
		rawLoss:     cfg.Float("radio.lossPct") / 100.0,
		harqRtt:     cfg.Float("radio.harq.rttUs") * 1e-6,
		rlcAmDelay:  cfg.Float("rlc.am.retxDelayUs") * 1e-6,
		busyUntil:   make(map[int32]float64),
		stats:       make(map[string]*UeStats),
	}
	e.harqResidual = 1.0
	if params.HarqEnabled {
		e.harqResidual = cfg.Float("radio.harq.residualLossFactor")
	}
	if e.interval <= 0 {
		return nil, fmt.Errorf("interPacketInterval must be positive")
	}
	return e, nil
}

// Run schedules the first packet of every UE flow and drives the event list
// until simTime.
func (e *Engine) Run() error {
	for _, ue := range e.topo.NodesOfKind(api.KindUe) {
		path, err := e.downlinkPath(ue)
		if err != nil {
			return err
		}
		flow := &ueFlow{eng: e, ue: ue, path: path}
		e.stats[ue.Name] = &UeStats{Ue: ue.Name}
		e.evtMgr.Schedule(flow, nil, emitPacket, vrtime.SecondsToTime(0.0))
	}
	e.evtMgr.Run(e.params.SimTime)
	e.storeClock(e.params.SimTime)
	return nil
}

// downlinkPath walks remote host -> PGW -> serving eNB -> UE.
func (e *Engine) downlinkPath(ue *api.Node) ([]*api.Link, error) {
	p2p := e.topo.LinkBetween(scenario.RemoteHostName, scenario.PgwName)
	if p2p == nil {
		return nil, fmt.Errorf("no internet link between %s and %s", scenario.RemoteHostName, scenario.PgwName)
	}
	if ue.ServingEnb == "" {
		return nil, fmt.Errorf("UE %s has no serving eNB", ue.Name)
	}
	core := e.topo.LinkBetween(scenario.PgwName, ue.ServingEnb)
	if core == nil {
		return nil, fmt.Errorf("no core link between %s and %s", scenario.PgwName, ue.ServingEnb)
	}
	radio := e.topo.LinkBetween(ue.ServingEnb, ue.Name)
	if radio == nil {
		return nil, fmt.Errorf("no radio link between %s and %s", ue.ServingEnb, ue.Name)
	}
	return []*api.Link{p2p, core, radio}, nil
}

// emitPacket sources the next downlink packet for one UE and reschedules
// itself one inter-packet interval later.
func emitPacket(evtMgr *evtm.EventManager, context any, data any) any {
	flow := context.(*ueFlow)
	e := flow.eng
	now := evtMgr.CurrentSeconds()
	e.storeClock(now)

	e.seq++
	pkt := &packet{
		seq:    e.seq,
		ue:     flow.ue.Name,
		size:   e.packetBytes,
		sentAt: now,
		path:   flow.path,
	}
	e.sent.Add(1)
	st := e.stats[pkt.ue]
	st.Sent++
	if st.Sent == 1 {
		st.FirstSent = now
	}

	e.forward(evtMgr, pkt)

	if now+e.interval < e.params.SimTime {
		evtMgr.Schedule(flow, nil, emitPacket, vrtime.SecondsToTime(e.interval))
	}
	return nil
}

// forward pushes the packet onto its current hop and schedules its arrival
// at the far end.
func (e *Engine) forward(evtMgr *evtm.EventManager, pkt *packet) {
	link := pkt.path[pkt.hop]
	now := evtMgr.CurrentSeconds()

	serialization := float64(pkt.size) * 8 / (float64(link.Properties.RateMbps) * 1e6)
	start := math.Max(now, e.busyUntil[link.Uid])
	depart := start + serialization
	e.busyUntil[link.Uid] = depart
	arrive := depart + link.Properties.DelayUs*1e-6

	if link.Kind == api.LinkRadio && e.rawLoss > 0 && e.rng.RandU01() < e.rawLoss {
		recovered, extra := e.recoverLoss()
		if !recovered {
			e.dropPacket(pkt)
			return
		}
		pkt.retransmitted = true
		arrive += extra
	}

	evtMgr.Schedule(&ueFlow{eng: e}, pkt, arrivePacket, vrtime.SecondsToTime(arrive-now))
}

// recoverLoss decides whether a lost radio transmission is repaired by the
// configured recovery mechanisms and at what delay cost.
func (e *Engine) recoverLoss() (bool, float64) {
	if e.params.HarqEnabled && e.rng.RandU01() >= e.harqResidual {
		return true, e.harqRtt
	}
	// HARQ missed (or is off); RLC-AM is the backstop
	if e.params.RlcAmEnabled {
		extra := e.rlcAmDelay
		if e.params.HarqEnabled {
			extra += e.harqRtt
		}
		return true, extra
	}
	return false, 0
}

func arrivePacket(evtMgr *evtm.EventManager, context any, data any) any {
	pkt := data.(*packet)
	e := context.(*ueFlow).eng
	now := evtMgr.CurrentSeconds()
	e.storeClock(now)

	pkt.hop++
	if pkt.hop < len(pkt.path) {
		e.forward(evtMgr, pkt)
		return nil
	}

	e.delivered.Add(1)
	if pkt.retransmitted {
		e.retransmitted.Add(1)
	}
	st := e.stats[pkt.ue]
	st.Delivered++
	st.TotalBytes += uint64(pkt.size)
	st.TotalDelay += now - pkt.sentAt
	st.LastDelivered = now
	if pkt.retransmitted {
		st.Retransmitted++
	}

	if e.metrics != nil {
		e.metrics.Write(&writer.Register{
			Ue:            pkt.ue,
			Seq:           pkt.seq,
			SizeBytes:     pkt.size,
			SentAt:        pkt.sentAt,
			DeliveredAt:   now,
			Retransmitted: pkt.retransmitted,
		})
	}
	return nil
}

func (e *Engine) dropPacket(pkt *packet) {
	e.lost.Add(1)
	e.stats[pkt.ue].Lost++
	if e.metrics != nil {
		e.metrics.Write(&writer.Register{
			Ue:        pkt.ue,
			Seq:       pkt.seq,
			SizeBytes: pkt.size,
			SentAt:    pkt.sentAt,
			Lost:      true,
		})
	}
}

func (e *Engine) storeClock(t float64) {
	e.clockBits.Store(math.Float64bits(t))
}
