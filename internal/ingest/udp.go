// Package ingest implements UDP packet intake: a listener that
// wraps each inbound datagram as a one-packet batch and hands it to the
// forward/delay stage. The wire format of the datagram's payload is opaque
// to this package; ingest never inspects it, only a downstream Decoder does.
package ingest

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/forward"
	"github.com/blockrelay/relayer/internal/types"
)

var log = logrus.WithField("prefix", "ingest")

// maxDatagramSize is the largest single UDP payload the listener accepts;
// oversized datagrams are truncated to this size by the read and forwarded
// as truncated payloads.
const maxDatagramSize = 2048

// Listener reads datagrams off a UDP socket and feeds them to a Stage. It
// satisfies internal/runtime.Service so it can be owned by the ServiceRegistry.
type Listener struct {
	addr  string
	stage *forward.Stage

	ctx    context.Context
	cancel context.CancelFunc
	conn   net.PacketConn
	bindErr error
}

// New creates a Listener that will bind addr (e.g. ":8001") on Start.
func New(addr string, stage *forward.Stage) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{addr: addr, stage: stage, ctx: ctx, cancel: cancel}
}

// Start binds the socket and begins reading datagrams in the background.
func (l *Listener) Start() {
	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		log.WithError(err).WithField("addr", l.addr).Error("could not bind udp listener")
		l.bindErr = err
		return
	}
	l.conn = conn
	log.WithField("addr", l.addr).Info("udp ingest listening")
	go l.serve()
}

func (l *Listener) serve() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			log.WithError(err).Debug("udp listener stopped")
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		batch := types.PacketBatch{Packets: []types.Packet{{Payload: payload}}}
		l.stage.Ingest(l.ctx, batch)
	}
}

// Stop closes the socket, unblocking serve.
func (l *Listener) Stop() error {
	l.cancel()
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

// Status reports any bind failure.
func (l *Listener) Status() error {
	return l.bindErr
}
