package session

import (
	"context"
	"net"
	"sort"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/cc"
	"github.com/USNavalResearchLaboratory/normcore/event"
	"github.com/USNavalResearchLaboratory/normcore/fec"
	"github.com/USNavalResearchLaboratory/normcore/node"
	"github.com/USNavalResearchLaboratory/normcore/object"
	"github.com/USNavalResearchLaboratory/normcore/stream"
	"github.com/USNavalResearchLaboratory/normcore/wire"
	"golang.org/x/sync/errgroup"
)

// Tunables governing the Tx/Probe/Flow-control/Activity timer cadence
// (spec §4.6). These aren't exposed via config.Config because they tune
// this engine's own scheduling granularity rather than wire-visible
// protocol behavior, the same split the teacher draws between xaction
// batch-size knobs (config) and its internal poll intervals (constants).
const (
	txIdleInterval      = 20 * time.Millisecond
	probeIntervalMin    = 1 * time.Second
	probeIntervalMax    = 10 * time.Second
	flowControlInterval = time.Second
	activityInterval    = time.Second
	maxNackBytes        = 1024

	ackTypeFlush uint8 = 1
)

// identityFor derives the canonical remote-sender key (spec §9) from a
// PDU's base header and observed source address.
func identityFor(h wire.Header, src *net.UDPAddr) node.Identity {
	id := node.Identity{NodeId: uint32(h.SourceId)}
	if src != nil {
		id.SrcAddr = src.IP.String()
		id.SrcPort = uint16(src.Port)
	}
	return id
}

// lookupSender and forEachSender give dispatch.go lock-safe access to the
// tracked remote senders, since the receive loop and the timer wheel run
// on separate goroutines (spec §5).
func (s *Session) lookupSender(id node.Identity) (*node.SenderNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := s.nodes[id]
	return sn, ok
}

func (s *Session) forEachSender(f func(node.Identity, *node.SenderNode)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sn := range s.nodes {
		f(id, sn)
	}
}

// Serve drives both the receive loop and the timer wheel until ctx is
// canceled, priming the Tx/Probe/FlowControl/Activity timers on entry
// (spec §4.6: every timer class is armed from session start, not only
// upon first traffic).
func (s *Session) Serve(ctx context.Context, tr *Transport) error {
	now := time.Now()
	s.Wheel.Schedule(TimerTx, nil, now)
	s.Wheel.Schedule(TimerProbe, nil, now.Add(probeIntervalMin))
	s.Wheel.Schedule(TimerFlowControl, nil, now.Add(flowControlInterval))
	s.Wheel.Schedule(TimerActivity, nil, now.Add(activityInterval))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tr.Run(gctx, func(pdu []byte, src *net.UDPAddr) {
			if err := s.HandlePacket(pdu, src, time.Now(), tr); err != nil {
				s.Log.Warningf("[%s] packet from %s: %v", s.TraceId, src, err)
			}
		})
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case e := <-s.Wheel.Fired():
				if err := s.OnTimer(e, tr, time.Now()); err != nil {
					s.Log.Warningf("[%s] timer %d: %v", s.TraceId, e.kind, err)
				}
			}
		}
	})

	return g.Wait()
}

// HandlePacket decodes one PDU and routes it to the matching handler
// (spec §4.2's message-type dispatch).
func (s *Session) HandlePacket(pdu []byte, src *net.UDPAddr, now time.Time, tr *Transport) error {
	msg, err := wire.Decode(pdu, wire.FecId(s.Cfg.FecId), s.Cfg.FecFieldSize)
	if err != nil {
		return err
	}
	switch {
	case msg.Info != nil:
		return s.handleInfo(msg.Header, msg.Info, src, now)
	case msg.Data != nil:
		return s.handleData(msg.Header, msg.Data, src, now, tr)
	case msg.Nack != nil:
		return s.handleNack(msg.Header, msg.Nack, src, tr)
	case msg.Ack != nil:
		return s.handleAck(msg.Header, msg.Ack)
	case msg.Cmd != nil:
		return s.handleCmd(msg.Header, msg.Cmd, src, now, tr)
	}
	return nil
}

func (s *Session) handleInfo(h wire.Header, info *wire.InfoBody, src *net.UDPAddr, now time.Time) error {
	id := identityFor(h, src)
	sn, _ := s.RemoteSender(id, now)
	sn.ResetActivity(now, s.Cfg.RxRobustFactor, s.Grtt.Advertised(0, s.Cfg.GrttMax))

	_, existed := sn.Object(info.ObjectId)
	obj := sn.EnsureObject(info.ObjectId, 0, s.DefaultFTI(0), s.Cfg.TxCacheCountMax)
	if !existed {
		s.Events.Push(event.Event{Type: event.RxObjectNew})
	}
	obj.SetInfoContent(info.Content)
	s.Events.Push(event.Event{Type: event.RxObjectInfo})
	return nil
}

func (s *Session) handleData(h wire.Header, d *wire.DataBody, src *net.UDPAddr, now time.Time, tr *Transport) error {
	id := identityFor(h, src)
	sn, _ := s.RemoteSender(id, now)
	sn.ResetActivity(now, s.Cfg.RxRobustFactor, s.Grtt.Advertised(0, s.Cfg.GrttMax))

	_, existed := sn.Object(d.ObjectId)
	var size wire.ObjectSize
	if d.Flags&wire.DataFlagInfo != 0 {
		size = d.ObjectSize
	}
	obj := sn.EnsureObject(d.ObjectId, size, s.DefaultFTI(size), s.Cfg.TxCacheCountMax)
	if !existed {
		s.Events.Push(event.Event{Type: event.RxObjectNew})
	}

	if d.Flags&wire.DataFlagStream != 0 {
		if frame, payload, ferr := stream.GetFrame(d.Payload); ferr == nil {
			if st := sn.EnsureStream(d.ObjectId); st != nil {
				st.Reader.PushSegment(frame, payload)
			}
		}
	}

	done, err := obj.WriteSegment(d.PayloadId.BlockId, d.PayloadId.SymbolId, d.Payload, sn.Decoder())
	if err != nil {
		return err
	}
	if done {
		s.Events.Push(event.Event{Type: event.RxObjectUpdated})
	}
	if obj.State == object.StateComplete {
		sn.CompleteObject(d.ObjectId)
		s.Events.Push(event.Event{Type: event.RxObjectCompleted})
		return nil
	}

	if sn.State() == node.NackIdle && !sn.HoldoffActive(now) {
		grtt := s.Grtt.Advertised(0, s.Cfg.GrttMax)
		needsRepair, backoff := obj.ReceiverRepairCheck(object.RepairLevelBlock, d.PayloadId.BlockId, d.PayloadId.SymbolId,
			false, false, grtt, s.Cfg.BackoffFactor)
		if needsRepair && sn.ArmNackBackoff(now, grtt, s.Cfg.BackoffFactor) {
			s.Wheel.Schedule(TimerRepair, id, now.Add(backoff))
		}
	}
	return nil
}

// handleNack answers a repair request against our own transmitted
// objects (spec §4.3/§4.4), falling back to CMD(SQUELCH) for requested
// object ids older than the oldest one still retained in the tx cache
// (every requested id, when the cache is empty).
func (s *Session) handleNack(h wire.Header, n *wire.NackBody, src *net.UDPAddr, tr *Transport) error {
	if n.Repair == nil || n.Repair.Empty() {
		return nil
	}
	items := n.Repair.Items()
	form := n.Repair.Form

	order := make([]wire.ObjectId, 0, 4)
	byObj := make(map[wire.ObjectId][]wire.RepairItem, 4)
	for _, it := range items {
		if _, ok := byObj[it.ObjectId]; !ok {
			order = append(order, it.ObjectId)
		}
		byObj[it.ObjectId] = append(byObj[it.ObjectId], it)
	}

	var stale []wire.ObjectId
	for _, id := range order {
		obj, ok := s.TxCache.Get(id)
		if !ok {
			stale = append(stale, id)
			continue
		}
		obj.ApplyRepairRequest(form, byObj[id])
	}
	if len(stale) == 0 {
		return nil
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].Less(stale[j]) })
	var sq wire.CmdSquelchBody
	if floor, ok := s.TxCache.Oldest(); ok {
		var any bool
		if sq, any = BuildSquelch(stale, floor); !any {
			return nil
		}
	} else {
		// nothing is retained, so every requested id is below the floor.
		sq = wire.CmdSquelchBody{Invalidated: stale}
	}
	pdu := wire.EncodeCmdSquelch(s.Header(), sq)
	return tr.Send(src, pdu)
}

func (s *Session) handleAck(h wire.Header, a *wire.AckBody) error {
	tree, ok := s.AckRound(a.AckId)
	if !ok {
		return nil
	}
	tree.RecordAck(h.SourceId, true)
	if tree.Complete() {
		s.EndAckRound(a.AckId)
		s.Events.Push(event.Event{Type: event.TxWatermarkCompleted})
	}
	return nil
}

func (s *Session) handleCmd(h wire.Header, cmd *wire.CmdBody, src *net.UDPAddr, now time.Time, tr *Transport) error {
	switch cmd.Flavor {
	case wire.CmdFlush:
		return s.handleCmdFlush(h, cmd.Flush, src, now, tr)
	case wire.CmdAckReq:
		return s.handleCmdAckReq(h, cmd.AckReq, src, now, tr)
	case wire.CmdCC:
		return s.handleCmdCC(h, cmd.CC, src)
	case wire.CmdSquelch:
		return s.handleCmdSquelch(h, cmd.Squelch, src)
	case wire.CmdRepairAdv:
		return s.handleCmdRepairAdv(h, cmd.RepairAdv, src)
	}
	return nil
}

// handleCmdFlush answers spec §4.5's watermark-ACK rule for a broadcast
// CMD(FLUSH): any receiver complete through the named coordinate replies
// ACK(FLUSH) directly to the sender.
func (s *Session) handleCmdFlush(h wire.Header, f *wire.CmdFlushBody, src *net.UDPAddr, now time.Time, tr *Transport) error {
	id := identityFor(h, src)
	sn, ok := s.lookupSender(id)
	if !ok {
		return nil
	}
	ack, ok := sn.BuildWatermarkAck(f.ObjectId, f.PayloadId.BlockId, f.PayloadId.SymbolId, 0)
	if !ok {
		return nil
	}
	ack.ServerId = h.SourceId
	ack.AckType = ackTypeFlush
	pdu := wire.EncodeAck(s.Header(), ack)
	return tr.Send(src, pdu)
}

// handleCmdAckReq answers spec §4.5's watermark-ACK rule for a targeted
// CMD(ACK_REQ): only destinations named (or an empty list, meaning
// everyone) respond.
func (s *Session) handleCmdAckReq(h wire.Header, req *wire.CmdAckReqBody, src *net.UDPAddr, now time.Time, tr *Transport) error {
	addressed := len(req.Destinations) == 0
	for _, dst := range req.Destinations {
		if dst == s.LocalNodeId {
			addressed = true
			break
		}
	}
	if !addressed {
		return nil
	}
	id := identityFor(h, src)
	sn, ok := s.lookupSender(id)
	if !ok {
		return nil
	}
	blockId, symbolId, ok := sn.WatermarkFor(req.ObjectId)
	if !ok {
		return nil
	}
	ack, ok := sn.BuildWatermarkAck(req.ObjectId, blockId, symbolId, req.AckId)
	if !ok {
		return nil
	}
	ack.ServerId = h.SourceId
	ack.AckType = req.AckType
	pdu := wire.EncodeAck(s.Header(), ack)
	return tr.Send(src, pdu)
}

// handleCmdCC samples the sender's advertised GRTT and marks this node's
// CC-FEEDBACK round due for the next NACK/ACK it emits (spec §4.6).
func (s *Session) handleCmdCC(h wire.Header, ccBody *wire.CmdCCBody, src *net.UDPAddr) error {
	id := identityFor(h, src)
	sn, ok := s.lookupSender(id)
	if !ok {
		return nil
	}
	rtt := time.Duration(wire.UnquantizeRtt(ccBody.GrttQ) * float64(time.Second))
	sn.ObserveCCFeedback(uint8(ccBody.CcSequence), rtt, float64(s.Cfg.GroupSize))
	s.Grtt.Sample(rtt)
	return nil
}

// handleCmdSquelch drops every invalidated object id from the named
// sender's rxTable/retrieval/stream tracking (spec §4.4: these objects
// will never be repaired, so continued bookkeeping is pointless).
func (s *Session) handleCmdSquelch(h wire.Header, sq *wire.CmdSquelchBody, src *net.UDPAddr) error {
	id := identityFor(h, src)
	sn, ok := s.lookupSender(id)
	if !ok {
		return nil
	}
	for _, objId := range sq.Invalidated {
		sn.PurgeObject(objId)
	}
	return nil
}

// handleCmdRepairAdv suppresses this node's own pending NACK backoff when
// a REPAIR_ADV for the same sender is overheard (spec §4.5: "a REPAIR_ADV
// ... suppresses a receiver's own pending NACK for the same repair
// window").
func (s *Session) handleCmdRepairAdv(h wire.Header, adv *wire.CmdRepairAdvBody, src *net.UDPAddr) error {
	id := identityFor(h, src)
	sn, ok := s.lookupSender(id)
	if !ok || adv.Repair == nil {
		return nil
	}
	sn.Suppress()
	return nil
}

// OnTimer dispatches one fired timerEntry to its handler (spec §4.6's six
// timer classes).
func (s *Session) OnTimer(e *timerEntry, tr *Transport, now time.Time) error {
	switch e.kind {
	case TimerTx:
		return s.onTimerTx(tr, now)
	case TimerProbe:
		return s.onTimerProbe(tr, now)
	case TimerRepair:
		id, ok := e.key.(node.Identity)
		if !ok {
			return nil
		}
		return s.onTimerRepair(id, tr, now)
	case TimerFlush:
		id, ok := e.key.(wire.ObjectId)
		if !ok {
			return nil
		}
		return s.onTimerFlush(id, tr, now)
	case TimerFlowControl:
		return s.onTimerFlowControl(now)
	case TimerActivity:
		return s.onTimerActivity(now)
	}
	return nil
}

// onTimerTx paces transmission of the tx cache's oldest incomplete object
// (spec §4.6's Tx timer): one DATA/INFO per firing, rescheduled after an
// interval derived from the current CC rate. STREAM objects are excluded
// — their segments are pushed directly by the Writer's sink as the
// application writes, not pulled by this scan.
func (s *Session) onTimerTx(tr *Transport, now time.Time) error {
	id, obj, ok := s.TxCache.NextPending()
	if !ok || obj.Payload.Kind == object.PayloadStream {
		s.Wheel.Schedule(TimerTx, nil, now.Add(txIdleInterval))
		return nil
	}

	msg, ok, err := obj.NextSenderMsg(sourceFunc(obj, s.codec))
	if err != nil {
		return err
	}
	if !ok {
		s.Wheel.Schedule(TimerTx, nil, now.Add(txIdleInterval))
		return nil
	}

	var pdu []byte
	if msg.IsInfo {
		pdu = wire.EncodeInfo(s.Header(), id, wire.PayloadId{}, wire.FecId(s.Cfg.FecId), s.Cfg.FecFieldSize, obj.InfoContent())
	} else {
		flags := wire.DataFlag(0)
		if int(msg.SymbolId) >= obj.BlockNumData() {
			flags |= wire.DataFlagRepair
		}
		d := wire.DataBody{
			ObjectId:  id,
			PayloadId: wire.PayloadId{BlockId: msg.BlockId, SymbolId: msg.SymbolId},
			Flags:     flags,
			Payload:   msg.Payload,
		}
		if msg.BlockId == 0 && msg.SymbolId == 0 {
			d.Flags |= wire.DataFlagInfo
			d.ObjectSize = obj.Size
		}
		pdu = wire.EncodeData(s.Header(), d, wire.FecId(s.Cfg.FecId), s.Cfg.FecFieldSize)
	}

	if err := tr.Send(tr.GroupAddr(), pdu); err != nil {
		return err
	}
	if msg.ObjectEnd {
		s.armFlush(id, now)
		s.Events.Push(event.Event{Type: event.TxObjectSent})
	}

	s.Wheel.Schedule(TimerTx, nil, now.Add(s.txInterval(len(pdu))))
	return nil
}

func (s *Session) txInterval(pduLen int) time.Duration {
	rate := s.Rate()
	if rate <= 0 {
		return time.Millisecond
	}
	secs := float64(pduLen) / rate
	if secs <= 0 {
		return time.Microsecond
	}
	return time.Duration(secs * float64(time.Second))
}

// armFlush starts the passive-flush retry loop for a just-completed
// object (spec §4.6's Flush timer): CMD(FLUSH) sent every 2*GRTT,
// TxRobustFactor times in all; a watermark ACK does not end the loop early.
func (s *Session) armFlush(id wire.ObjectId, now time.Time) {
	s.mu.Lock()
	s.flushPending[id] = s.Cfg.TxRobustFactor
	s.mu.Unlock()
	s.Wheel.Schedule(TimerFlush, id, now.Add(2*s.Grtt.Advertised(0, s.Cfg.GrttMax)))
}

func (s *Session) onTimerFlush(objId wire.ObjectId, tr *Transport, now time.Time) error {
	s.mu.Lock()
	remaining, armed := s.flushPending[objId]
	s.mu.Unlock()
	if !armed {
		return nil
	}
	obj, ok := s.TxCache.Get(objId)
	if !ok {
		s.mu.Lock()
		delete(s.flushPending, objId)
		s.mu.Unlock()
		return nil
	}

	blockId, symbolId := obj.Watermark()
	f := wire.CmdFlushBody{ObjectId: objId, PayloadId: wire.PayloadId{BlockId: blockId, SymbolId: symbolId}}
	pdu := wire.EncodeCmdFlush(s.Header(), f, wire.FecId(s.Cfg.FecId), s.Cfg.FecFieldSize)
	if err := tr.Send(tr.GroupAddr(), pdu); err != nil {
		return err
	}

	remaining--
	if remaining <= 0 {
		s.mu.Lock()
		delete(s.flushPending, objId)
		s.mu.Unlock()
		s.Events.Push(event.Event{Type: event.TxFlushCompleted})
		return nil
	}
	s.mu.Lock()
	s.flushPending[objId] = remaining
	s.mu.Unlock()
	s.Wheel.Schedule(TimerFlush, objId, now.Add(2*s.Grtt.Advertised(0, s.Cfg.GrttMax)))
	return nil
}

// onTimerRepair fires a receiver's backoff-armed NACK (spec §4.5),
// aggregating every object this node has outstanding repair needs for
// into one request (repairBoundary/OBJECT scope spans blocks; BLOCK
// scope still packs whatever AppendRepairRequest accepts per firing).
func (s *Session) onTimerRepair(id node.Identity, tr *Transport, now time.Time) error {
	sn, ok := s.lookupSender(id)
	if !ok || !sn.NackDue(now) {
		return nil
	}
	grtt := s.Grtt.Advertised(0, s.Cfg.GrttMax)
	rr := wire.NewRepairRequest(wire.FecId(s.Cfg.FecId), s.Cfg.FecFieldSize, maxNackBytes)
	for _, objId := range sn.Objects() {
		if obj, ok := sn.Object(objId); ok {
			obj.AppendRepairRequest(rr)
		}
	}
	sn.EmitNack(now, grtt, s.Cfg.BackoffFactor)
	if rr.Empty() {
		return nil
	}

	n := wire.NackBody{
		ServerId: wire.NodeId(id.NodeId),
		GrttQ:    wire.QuantizeRtt(grtt.Seconds()),
		LossQ:    wire.QuantizeLoss(sn.LossEstimator().LossFraction()),
		Repair:   rr,
	}
	pdu := wire.EncodeNack(s.Header(), n)

	dst := tr.GroupAddr()
	if s.Cfg.UnicastNacks && id.SrcAddr != "" {
		dst = &net.UDPAddr{IP: net.ParseIP(id.SrcAddr), Port: int(id.SrcPort)}
	}
	return tr.Send(dst, pdu)
}

// onTimerProbe broadcasts this session's CC probe (spec §4.6's Probe
// timer): current GRTT plus any pending CC-FEEDBACK from tracked remote
// senders, rescheduled per cc.ProbeInterval.
func (s *Session) onTimerProbe(tr *Transport, now time.Time) error {
	seq := s.NextCCSequence()
	grtt := s.Grtt.Advertised(0, s.Cfg.GrttMax)

	ccBody := wire.CmdCCBody{
		CcSequence: uint16(seq),
		GrttQ:      wire.QuantizeRtt(grtt.Seconds()),
	}
	if s.Cfg.GroupSize > 0 && s.Cfg.GroupSize < 256 {
		ccBody.GssQ = uint8(s.Cfg.GroupSize)
	} else {
		ccBody.GssQ = 255
	}

	var feedback []wire.CCFeedback
	s.forEachSender(func(_ node.Identity, sn *node.SenderNode) {
		if !sn.FeedbackDue() {
			return
		}
		fb := sn.BuildFeedback(cc.RoleNone, s.Rate(), s.Cfg.CCLimitEnabled)
		feedback = append(feedback, wire.CCFeedback{
			Sequence: fb.CcSequence,
			Rtt:      wire.QuantizeRtt(fb.Rtt),
			LossQ:    wire.QuantizeLoss(fb.LossFraction),
			Rate:     uint16(fb.Rate),
		})
	})
	ccBody.Feedback = feedback

	pdu := wire.EncodeCmdCC(s.Header(), ccBody)
	if err := tr.Send(tr.GroupAddr(), pdu); err != nil {
		return err
	}

	interval := cc.ProbeInterval(len(feedback) > 0, probeIntervalMin, probeIntervalMax)
	s.Wheel.Schedule(TimerProbe, nil, now.Add(interval))
	return nil
}

// onTimerFlowControl re-checks the tx cache's count/size bounds (spec
// §4.6's Flow-control timer): Insert already evicts inline, so this
// mainly catches bound changes and reports anything still over budget.
func (s *Session) onTimerFlowControl(now time.Time) error {
	purged := s.TxCache.evict()
	for range purged {
		s.Events.Push(event.Event{Type: event.TxObjectPurged})
	}
	s.Wheel.Schedule(TimerFlowControl, nil, now.Add(flowControlInterval))
	return nil
}

// onTimerActivity purges remote senders that have gone silent past their
// activity timeout (spec §5's Activity/CC timer).
func (s *Session) onTimerActivity(now time.Time) error {
	s.PurgeInactiveSenders(now)
	s.Wheel.Schedule(TimerActivity, nil, now.Add(activityInterval))
	return nil
}

// sourceFunc adapts an object's backing Payload and FEC codec into the
// source callback NextSenderMsg expects: source symbols read from the
// Payload directly, parity symbols computed on demand.
func sourceFunc(obj *object.Object, codec fec.Codec) func(wire.BlockId, wire.SymbolId, int) ([]byte, error) {
	return func(blockId wire.BlockId, symbolId wire.SymbolId, numData int) ([]byte, error) {
		if int(symbolId) < numData {
			return obj.ReadSourceSegment(blockId, symbolId)
		}
		return obj.FillParity(blockId, symbolId, codec)
	}
}

// OpenStreamWriter wires a sender-side stream.Stream into this session's
// transport (spec §4.7): every filled segment is framed, appended to the
// object, encoded, and sent immediately (push mode), and a filled
// watermark arms a CMD(ACK_REQ) round.
func (s *Session) OpenStreamWriter(tr *Transport, obj *object.Object, bufferMaxBytes int, pushMode bool) *stream.Stream {
	sink := func(f stream.Frame, payload []byte) {
		framed := stream.PutFrame(f, payload)
		blockId, symbolId := obj.AppendStreamData(framed)
		d := wire.DataBody{
			ObjectId:  obj.Id,
			PayloadId: wire.PayloadId{BlockId: blockId, SymbolId: symbolId},
			Flags:     wire.DataFlagStream,
			Payload:   framed,
		}
		pdu := wire.EncodeData(s.Header(), d, wire.FecId(s.Cfg.FecId), s.Cfg.FecFieldSize)
		_ = tr.Send(tr.GroupAddr(), pdu)
	}
	armWatermark := func(uint32) {
		ackId := s.NextAckId()
		req := wire.CmdAckReqBody{AckId: ackId, AckType: ackTypeFlush, ObjectId: obj.Id}
		pdu := wire.EncodeCmdAckReq(s.Header(), req)
		_ = tr.Send(tr.GroupAddr(), pdu)
		s.BeginAckRound(ackId, obj.Id, nil)
	}
	return stream.OpenWriter(obj, bufferMaxBytes, pushMode, sink, armWatermark)
}
