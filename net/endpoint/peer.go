package endpoint

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/telemetrylab/dtnet/net/codec"
)

const recvBufferSize = 4096

// errNoData marks a receive window that passed without any bytes. The
// framing layer cannot tell "peer sent nothing yet" apart from this; a
// closed connection surfaces as a read error instead.
var errNoData = errors.New("no bytes within the receive window")

// peer is one live connection owned by an endpoint, together with its
// running flag and the handles of its two goroutines (receive loop and
// outbox writer).
type peer struct {
	id      string
	conn    net.Conn
	running atomic.Bool

	outbox chan []byte
	quit   chan struct{}

	closeOnce sync.Once
	ep        *Endpoint
}

func (e *Endpoint) newPeer(id string, conn net.Conn) *peer {
	p := &peer{
		id:     id,
		conn:   conn,
		outbox: make(chan []byte, e.config.OutboxSize),
		quit:   make(chan struct{}),
		ep:     e,
	}
	p.running.Store(true)
	return p
}

// startPeer spawns the service loop and the outbox writer for a peer.
func (e *Endpoint) startPeer(p *peer) {
	e.wg.Add(2)
	go p.serviceLoop()
	go p.writeLoop()
}

// peerID derives the identity of a server-side peer from the remote port.
func peerID(conn net.Conn) string {
	_, port, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return port
}

// --------------------------------------------------------------------------
// Service Loop (receive side)
// --------------------------------------------------------------------------

// serviceLoop receives one message per iteration and hands it to the
// dispatcher, until the peer or its endpoint stops running. Receive timeouts
// are transient and retried; any other receive failure is terminal for this
// peer only.
func (p *peer) serviceLoop() {
	defer p.ep.wg.Done()
	// every exit must pass through teardown, otherwise the writer goroutine
	// would wait on the quit channel forever
	defer p.teardown()

	for p.running.Load() && p.ep.running.Load() {
		data, err := p.recvMessage()
		if err == errNoData {
			continue
		}
		if err != nil {
			if p.running.Load() && p.ep.running.Load() {
				Logger.Infof("peer %s: connection closed (%v)", p.id, err)
			}
			return
		}

		metricMessagesReceived.Inc()

		var msg codec.Message
		if derr := p.ep.cdc.Decode(data, &msg); derr != nil {
			Logger.Warningf("peer %s: dropping undecodable message: %v", p.id, derr)
			metricMessagesDropped.Inc()
			continue
		}
		p.ep.dispatch(p, msg)
	}
}

// recvMessage implements the timeout-delimited framing: bytes are
// accumulated until a read attempt yields nothing within the configured
// window, then the accumulation is returned as exactly one message. An empty
// window yields errNoData; EOF and connection resets are returned to the
// caller as terminal.
func (p *peer) recvMessage() ([]byte, error) {
	var acc []byte
	buf := make([]byte, recvBufferSize)
	timeout := p.ep.config.Timeout()

	for {
		if err := p.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}

		n, err := p.conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
		}
		if err == nil {
			continue
		}

		// Case timeout: the window delimits the accumulated message
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			if len(acc) > 0 {
				return acc, nil
			}
			return nil, errNoData
		}

		// Case EOF / reset / closed socket: deliver what arrived before the
		// failure, the next iteration reports the error
		if len(acc) > 0 {
			return acc, nil
		}
		return nil, err
	}
}

// --------------------------------------------------------------------------
// Outbox (send side)
// --------------------------------------------------------------------------

// send enqueues a frame for the writer goroutine, so the calling loop never
// blocks on the socket. A peer whose outbox stays full cannot keep up and is
// torn down rather than allowed to stall its senders.
func (p *peer) send(frame []byte) bool {
	if !p.running.Load() {
		return false
	}

	select {
	case p.outbox <- frame:
		return true
	case <-p.quit:
		return false
	default:
		Logger.Errorf("peer %s: outbox full, dropping peer", p.id)
		metricMessagesDropped.Inc()
		p.teardown()
		return false
	}
}

// writeLoop drains the outbox onto the socket. A send failure is terminal
// for this peer only, never for the whole endpoint.
func (p *peer) writeLoop() {
	defer p.ep.wg.Done()
	timeout := p.ep.config.Timeout()

	for {
		select {
		case frame := <-p.outbox:
			if err := p.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				p.teardown()
				return
			}
			if _, err := p.conn.Write(frame); err != nil {
				Logger.Warningf("peer %s: send failed: %v", p.id, err)
				p.teardown()
				return
			}
			metricMessagesSent.Inc()
		case <-p.quit:
			return
		}
	}
}

// --------------------------------------------------------------------------
// Teardown
// --------------------------------------------------------------------------

// teardown clears the running flag, closes the socket and detaches the peer
// from its endpoint. It runs once, no matter how many paths reach it: close
// notice from the remote, terminal send or receive failure, or Stop.
func (p *peer) teardown() {
	p.closeOnce.Do(func() {
		p.running.Store(false)
		close(p.quit)
		_ = p.conn.Close()

		if p.ep.role == RoleServer {
			p.ep.peers.Delete(p.id)
		} else {
			// losing the sole connection stops the client's loop
			p.ep.remote.Store(nil)
			p.ep.running.Store(false)
		}
		metricPeersClosed.Inc()
	})
}
