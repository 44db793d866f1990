package netcode

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/meridian-games/netcode/fragment"
	"github.com/meridian-games/netcode/limits"
	"github.com/meridian-games/netcode/reliable"
	"github.com/meridian-games/netcode/transport"
)

// Config holds processor tuning knobs.
type Config struct {
	// TickInterval is the period of the reliability tick driving
	// confirmation flushes and retransmissions.
	TickInterval time.Duration
	// CleanInterval is the period of the staleness sweep over all per-peer
	// state.
	CleanInterval time.Duration
	// MessageBuffer is the capacity of the application-facing message and
	// failure channels.
	MessageBuffer int
	// Clock drives the tick loops. Defaults to the wall clock; tests
	// inject a mock.
	Clock clock.Clock
}

// DefaultConfig returns sensible defaults for a game transport.
func DefaultConfig() Config {
	return Config{
		TickInterval:  25 * time.Millisecond,
		CleanInterval: 5 * time.Second,
		MessageBuffer: 256,
	}
}

// Processor orchestrates the reliability engines against the datagram
// channels. A single goroutine owns all per-peer state: it classifies
// inbound datagrams, fragments and tracks outbound messages, and drives the
// periodic confirmation, retransmission and staleness passes. Every engine
// call receives an explicit timestamp; nothing below the processor reads a
// clock.
type Processor struct {
	cfg Config
	clk clock.Clock

	confirms  *reliable.Confirmations
	resends   *reliable.Resends
	assembler *fragment.Assembler

	in  <-chan transport.InDatagram
	out chan<- transport.OutDatagram

	messages chan OutMessage
	received chan InMessage
	failures chan reliable.Failure

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor wires a processor to a datagram source and sink and returns
// it together with the Communicator the application talks through. Call
// Start to begin processing.
func NewProcessor(in <-chan transport.InDatagram, out chan<- transport.OutDatagram, cfg Config) (*Processor, *Communicator) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.CleanInterval <= 0 {
		cfg.CleanInterval = DefaultConfig().CleanInterval
	}
	if cfg.MessageBuffer <= 0 {
		cfg.MessageBuffer = DefaultConfig().MessageBuffer
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor{
		cfg:       cfg,
		clk:       clk,
		confirms:  reliable.NewConfirmations(),
		resends:   reliable.NewResends(),
		assembler: fragment.NewAssembler(),
		in:        in,
		out:       out,
		messages:  make(chan OutMessage, cfg.MessageBuffer),
		received:  make(chan InMessage, cfg.MessageBuffer),
		failures:  make(chan reliable.Failure, cfg.MessageBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}

	comm := &Communicator{
		ctx:      ctx,
		messages: p.messages,
		received: p.received,
		failures: p.failures,
	}
	return p, comm
}

// Start launches the processing goroutine.
func (p *Processor) Start() {
	p.wg.Add(1)
	go p.run()
}

// Close stops the processor and waits for the goroutine to exit.
func (p *Processor) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Processor) run() {
	defer p.wg.Done()
	defer close(p.received)

	ticker := p.clk.Ticker(p.cfg.TickInterval)
	defer ticker.Stop()
	cleaner := p.clk.Ticker(p.cfg.CleanInterval)
	defer cleaner.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case in, ok := <-p.in:
			if !ok {
				return
			}
			p.handleDatagram(p.clk.Now(), in)
		case msg := <-p.messages:
			p.handleMessage(p.clk.Now(), msg)
		case <-ticker.C:
			p.tick(p.clk.Now())
		case <-cleaner.C:
			now := p.clk.Now()
			p.confirms.Clean(now)
			p.resends.Clean(now)
			p.assembler.Clean(now)
		}
	}
}

// tick runs one reliability pass: flush ready confirmation buffers, then
// retransmit overdue messages. An aborted pass (transport shut down mid
// send) is logged and retried from scratch on the next tick.
func (p *Processor) tick(now time.Time) {
	if err := p.confirms.SendConfirms(p.ctx, now, p.out); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "tick",
			"error":    err,
		}).Warn("confirmation pass aborted")
		return
	}

	failures, err := p.resends.ResendDue(p.ctx, now, p.out)
	for _, f := range failures {
		select {
		case p.failures <- f:
		default:
			logrus.WithFields(logrus.Fields{
				"function": "tick",
				"addr":     f.Addr.String(),
				"id":       f.ID,
			}).Warn("failure report dropped, application not draining")
		}
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "tick",
			"error":    err,
		}).Warn("retransmission pass aborted")
	}
}

// handleMessage fragments and frames one outgoing application message.
func (p *Processor) handleMessage(now time.Time, msg OutMessage) {
	isReliable := msg.Reliability == Reliable

	if len(msg.Payload) <= limits.FragmentPayloadSize {
		dg := transport.Datagram{
			Type:     transport.DatagramData,
			Reliable: isReliable,
			Payload:  msg.Payload,
		}
		p.sendData(now, msg.To, dg)
		return
	}

	pieces, err := fragment.Split(p.resends.NextID(now, msg.To), msg.Payload)
	if err != nil {
		// Communicator.Send validates sizes, so this is unreachable
		// short of a misconfigured limit.
		logrus.WithFields(logrus.Fields{
			"function": "handleMessage",
			"addr":     msg.To.String(),
			"error":    err,
		}).Error("dropping unfragmentable message")
		return
	}
	for i := range pieces {
		dg := transport.Datagram{
			Type:     transport.DatagramData,
			Reliable: isReliable,
			Frag:     &pieces[i].Info,
			Payload:  pieces[i].Payload,
		}
		p.sendData(now, msg.To, dg)
	}
}

// sendData assigns an ID to reliable datagrams, tracks them for
// retransmission and queues them for delivery.
func (p *Processor) sendData(now time.Time, to net.Addr, dg transport.Datagram) {
	if dg.Reliable {
		dg.ID = p.resends.NextID(now, to)
		p.resends.Track(now, to, dg)
	}
	select {
	case p.out <- transport.NewOutDatagram(dg, to):
	case <-p.ctx.Done():
	}
}

// handleDatagram classifies one inbound datagram by its type tag. Malformed
// datagrams are discarded and reported without touching other peers' state.
func (p *Processor) handleDatagram(now time.Time, in transport.InDatagram) {
	dg, err := transport.ParseDatagram(in.Data)
	if err != nil {
		p.reportProtocolError(in.Addr, err)
		return
	}

	switch dg.Type {
	case transport.DatagramConfirm:
		ids, err := dg.ConfirmIDs()
		if err != nil {
			p.reportProtocolError(in.Addr, err)
			return
		}
		for _, id := range ids {
			p.resends.Acknowledge(now, in.Addr, id)
		}

	case transport.DatagramData:
		payload := dg.Payload
		complete := true
		if dg.Frag != nil {
			payload, complete, err = p.assembler.Add(now, in.Addr, *dg.Frag, dg.Payload)
			if err != nil {
				p.reportProtocolError(in.Addr, err)
				return
			}
		}
		// Confirm each reliable datagram on arrival: retransmission
		// works per datagram, not per reassembled message.
		if dg.Reliable {
			p.confirms.Received(now, in.Addr, dg.ID)
		}
		if !complete {
			return
		}
		select {
		case p.received <- InMessage{From: in.Addr, Payload: payload}:
		case <-p.ctx.Done():
		}
	}
}

func (p *Processor) reportProtocolError(addr net.Addr, err error) {
	logrus.WithFields(logrus.Fields{
		"function": "handleDatagram",
		"addr":     addr.String(),
		"error":    fmt.Sprintf("%v", err),
	}).Warn("discarding malformed datagram")
}
