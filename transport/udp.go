package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds transport tuning knobs.
type Config struct {
	// SendBuffer is the capacity of the outbound datagram channel.
	SendBuffer int
	// RecvBuffer is the capacity of the inbound datagram channel.
	RecvBuffer int
	// ReadTimeout bounds each blocking socket read so the reader can
	// observe shutdown.
	ReadTimeout time.Duration
}

// DefaultConfig returns sensible defaults for a game transport.
func DefaultConfig() Config {
	return Config{
		SendBuffer:  1024,
		RecvBuffer:  1024,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// UDPTransport implements datagram I/O over a UDP socket. A reader goroutine
// feeds decoded-address datagrams into the inbound channel and a writer
// goroutine drains the outbound channel onto the socket, so the protocol
// engines never touch the socket directly.
type UDPTransport struct {
	conn net.PacketConn
	out  chan OutDatagram
	in   chan InDatagram

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewUDPTransport opens a UDP socket on listenAddr and starts the reader and
// writer goroutines.
func NewUDPTransport(listenAddr string, cfg Config) (*UDPTransport, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &UDPTransport{
		conn:   conn,
		out:    make(chan OutDatagram, cfg.SendBuffer),
		in:     make(chan InDatagram, cfg.RecvBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	t.wg.Add(2)
	go t.readLoop(cfg.ReadTimeout)
	go t.writeLoop()

	logrus.WithFields(logrus.Fields{
		"function": "NewUDPTransport",
		"addr":     conn.LocalAddr().String(),
	}).Info("UDP transport listening")

	return t, nil
}

// Out returns the channel datagrams are queued on for delivery.
func (t *UDPTransport) Out() chan<- OutDatagram {
	return t.out
}

// In returns the channel received datagrams arrive on.
func (t *UDPTransport) In() <-chan InDatagram {
	return t.in
}

// LocalAddr returns the local address the transport is listening on.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close shuts down the transport and waits for both loops to exit.
func (t *UDPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.cancel()
		err = t.conn.Close()
		t.wg.Wait()
	})
	return err
}

// readLoop reads raw datagrams from the socket until the transport closes.
// Malformed or oversized datagrams are dropped here by size only; protocol
// classification happens in the processor.
func (t *UDPTransport) readLoop(timeout time.Duration) {
	defer t.wg.Done()
	defer close(t.in)

	buffer := make([]byte, MaxDatagramSize)
	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		_ = t.conn.SetReadDeadline(time.Now().Add(timeout))
		n, addr, err := t.conn.ReadFrom(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-t.ctx.Done():
				return
			default:
			}
			logrus.WithFields(logrus.Fields{
				"function": "readLoop",
				"error":    err,
			}).Warn("datagram read failed")
			continue
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		select {
		case t.in <- InDatagram{Data: data, Addr: addr}:
		case <-t.ctx.Done():
			return
		}
	}
}

// writeLoop serializes and sends queued datagrams. Serialization failures
// indicate a bug in the datagram builder and are logged, not fatal.
func (t *UDPTransport) writeLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		case od := <-t.out:
			data, err := od.Datagram.Serialize()
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "writeLoop",
					"addr":     od.Addr.String(),
					"error":    err,
				}).Error("dropping unserializable datagram")
				continue
			}
			if _, err := t.conn.WriteTo(data, od.Addr); err != nil {
				select {
				case <-t.ctx.Done():
					return
				default:
				}
				logrus.WithFields(logrus.Fields{
					"function": "writeLoop",
					"addr":     od.Addr.String(),
					"error":    err,
				}).Warn("datagram write failed")
			}
		}
	}
}
