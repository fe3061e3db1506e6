package session

import (
	"sync"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/cc"
	"github.com/USNavalResearchLaboratory/normcore/cmn/cos"
	"github.com/USNavalResearchLaboratory/normcore/cmn/nlog"
	"github.com/USNavalResearchLaboratory/normcore/config"
	"github.com/USNavalResearchLaboratory/normcore/event"
	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/memsys"
	"github.com/USNavalResearchLaboratory/normcore/node"
	"github.com/USNavalResearchLaboratory/normcore/object"
	"github.com/USNavalResearchLaboratory/normcore/stats"
	"github.com/USNavalResearchLaboratory/normcore/wire"
)

// eventQueueCapacity bounds the outward notification queue (spec §4.8's
// "fixed-capacity, never blocking" pool philosophy extends to events).
const eventQueueCapacity = 256

// Session is the engine instance: one per (local node id, session
// address/port) pair, owning the tx cache, the timer wheel, GRTT/CC
// estimators, and the set of tracked remote SenderNodes (spec §4.1, §5).
// Session itself holds no socket: HandlePacket decodes PDUs handed to it,
// and sends go through the Transport passed to the dispatch methods.
type Session struct {
	mu sync.Mutex

	LocalNodeId wire.NodeId
	Cfg         config.Config
	Log         *nlog.Logger
	Stats       *stats.Stats

	// TraceId correlates this session's log lines across a process running
	// more than one engine instance; LocalInstanceId is a default instance
	// discriminator derived from it (spec §9's composite remote-sender
	// identity needs the same kind of value on the local side).
	TraceId         string
	LocalInstanceId uint16

	Wheel *TimerWheel
	Grtt  *cc.GrttEstimator

	TxCache *TxCache

	SegPool   *memsys.SegmentPool
	BlockPool *memsys.BlockPool

	// Events is the outward notification queue a binding drains (spec
	// §4.8); senderHandles tracks each tracked remote's slab Handle so
	// PurgeInactiveSenders can Release it and report RemoteSenderPurged.
	Events        *event.Queue
	senderSlab    *event.Slab[*node.SenderNode]
	senderHandles map[node.Identity]event.Handle

	nodes map[node.Identity]*node.SenderNode

	ccSequence uint8
	ccRate     float64
	ccSlowStart bool

	ackRounds map[uint8]*AckingTree
	nextAckId uint8

	// codec is the sender-side FEC codec, shared across every object this
	// session transmits (spec §4.4); flushPending counts remaining
	// CMD(FLUSH) retransmissions per object still awaiting a watermark ACK
	// (spec §4.6's Flush timer); seq is the outgoing PDU sequence counter
	// (spec §4.2's Header.Sequence).
	codec        fec.Codec
	flushPending map[wire.ObjectId]int
	seq          uint16
}

// New builds a Session from validated config; the caller still needs a
// Transport (NewTransport) and a running Serve, which also runs the timer
// wheel, before traffic flows.
func New(localNodeId wire.NodeId, cfg config.Config, log *nlog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = nlog.Discard
	}
	symbolsPerBlock := cfg.NumData + cfg.NumParity
	blockCapacity := cfg.TxCacheCountMax
	if blockCapacity < 8 {
		blockCapacity = 8
	}
	traceId := cos.GenUUID()
	codec, err := fec.New(cfg.NumData, cfg.NumParity)
	if err != nil {
		return nil, err
	}
	return &Session{
		LocalNodeId:     localNodeId,
		Cfg:             cfg,
		Log:             log,
		Stats:           stats.New(),
		TraceId:         traceId,
		LocalInstanceId: uint16(cos.HashSeed(traceId)),
		Wheel:       NewTimerWheel(),
		Grtt:        cc.NewGrttEstimator(0.25),
		TxCache:     NewTxCache(cfg.TxCacheCountMin, cfg.TxCacheCountMax, cfg.TxCacheSizeMax),
		SegPool:     memsys.NewSegmentPool(cfg.SegmentSize, blockCapacity*symbolsPerBlock),
		BlockPool:   memsys.NewBlockPool(symbolsPerBlock, blockCapacity),
		Events:        event.New(eventQueueCapacity),
		senderSlab:    event.NewSlab[*node.SenderNode](),
		senderHandles: make(map[node.Identity]event.Handle),
		nodes:       make(map[node.Identity]*node.SenderNode),
		ccRate:      cfg.TxRate,
		ccSlowStart: true,
		ackRounds:   make(map[uint8]*AckingTree),
		codec:        codec,
		flushPending: make(map[wire.ObjectId]int),
	}, nil
}

// NextSequence allocates the next outgoing PDU sequence number, wrapping
// mod 2^16 (spec §4.2's Header.Sequence).
func (s *Session) NextSequence() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.seq
	s.seq++
	return seq
}

// Header builds a base Header for an outgoing PDU from this session.
func (s *Session) Header() wire.Header {
	return wire.Header{Version: wire.Version, SourceId: s.LocalNodeId, Sequence: s.NextSequence()}
}

// DefaultFTI derives the FEC Transport Information this session applies
// to every object it opens, locally from Cfg rather than a wire-carried
// extension (spec §9 Open Question: FtiMode=PRESET semantics — every
// group member is provisioned with the same FEC parameters out of band).
func (s *Session) DefaultFTI(objSize wire.ObjectSize) wire.FTI {
	return wire.FTI{
		ObjectSize:   objSize,
		SegmentSize:  uint16(s.Cfg.SegmentSize),
		NumData:      uint16(s.Cfg.NumData),
		NumParity:    uint16(s.Cfg.NumParity),
		FecFieldSize: s.Cfg.FecFieldSize,
		FecId:        wire.FecId(s.Cfg.FecId),
	}
}

// BindObjectPools wires this session's segment/block pools into obj,
// forwarding pool-exhaustion events to the corresponding Stats counters
// (spec §5: pool ownership sits at the Session/SenderNode level, not
// per-object).
func (s *Session) BindObjectPools(obj *object.Object) {
	obj.SetPools(s.SegPool, s.BlockPool,
		func() { s.Stats.SegmentPoolOverruns.Inc() },
		func() { s.Stats.BlockPoolOverruns.Inc() },
	)
}

// RemoteSender returns the tracked SenderNode for id, creating one (and
// logging RemoteSenderNew, spec §4.8) if this is the first PDU seen from
// it.
func (s *Session) RemoteSender(id node.Identity, now time.Time) (sn *node.SenderNode, isNew bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sn, ok := s.nodes[id]; ok {
		return sn, false
	}
	sn = node.New(id, s.Cfg.SyncPolicy, now, s.Cfg.RxRobustFactor, s.Grtt.Advertised(0, s.Cfg.GrttMax))
	symbolsPerBlock := s.Cfg.NumData + s.Cfg.NumParity
	blockCapacity := s.Cfg.TxCacheCountMax
	if blockCapacity < 8 {
		blockCapacity = 8
	}
	sn.SetPools(
		memsys.NewSegmentPool(s.Cfg.SegmentSize, blockCapacity*symbolsPerBlock),
		memsys.NewBlockPool(symbolsPerBlock, blockCapacity),
		func() { s.Stats.SegmentPoolOverruns.Inc() },
		func() { s.Stats.BlockPoolOverruns.Inc() },
	)
	sn.SetDecoder(s.codec)
	s.nodes[id] = sn
	h := s.senderSlab.Insert(sn)
	s.senderHandles[id] = h
	s.Events.Push(event.Event{Type: event.RemoteSenderNew, SenderRef: h})
	s.Log.Infof("[%s] remote sender new: node=%d addr=%s", s.TraceId, id.NodeId, id.SrcAddr)
	return sn, true
}

// PurgeInactiveSenders drops any tracked node whose activity timer has
// expired (spec §5), returning the purged identities for RemoteSenderPurged
// event emission.
func (s *Session) PurgeInactiveSenders(now time.Time) []node.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged []node.Identity
	for id, sn := range s.nodes {
		if sn.ActivityExpired(now) {
			delete(s.nodes, id)
			purged = append(purged, id)
			if h, ok := s.senderHandles[id]; ok {
				s.senderSlab.Release(h)
				delete(s.senderHandles, id)
				s.Events.Push(event.Event{Type: event.RemoteSenderPurged, SenderRef: h})
			}
		}
	}
	if n := len(purged); n > 0 {
		s.Log.Infof("[%s] purged %d inactive sender%s", s.TraceId, n, cos.Plural(n))
	}
	return purged
}

// NextAckId allocates an ack-round identifier for a new CMD(ACK_REQ)
// watermark request, wrapping mod 256 (spec §4.7's 8-bit AckId).
func (s *Session) NextAckId() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextAckId
	s.nextAckId++
	return id
}

// BeginAckRound registers a new watermark acknowledgment round.
func (s *Session) BeginAckRound(ackId uint8, watermark wire.ObjectId, destinations []wire.NodeId) *AckingTree {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := NewAckingTree(ackId, watermark, destinations)
	s.ackRounds[ackId] = t
	return t
}

// AckRound looks up an in-flight watermark round by AckId.
func (s *Session) AckRound(ackId uint8) (*AckingTree, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ackRounds[ackId]
	return t, ok
}

// EndAckRound discards a completed or abandoned round.
func (s *Session) EndAckRound(ackId uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ackRounds, ackId)
}

// Close drains and unblocks the event queue, signaling any binding goroutine
// blocked in Events.Pop that no further events will arrive.
func (s *Session) Close() {
	s.Events.Close()
}
