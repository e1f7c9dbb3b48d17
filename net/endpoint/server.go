package endpoint

import (
	"errors"
	"fmt"
	"net"
)

// startServer binds the configured address and spawns the accept loop.
func (e *Endpoint) startServer() error {
	listener, err := net.Listen("tcp", e.config.Address())
	if err != nil {
		return fmt.Errorf("failed to create TCP listener: %v", err)
	}
	e.listener = listener

	Logger.Infof("server listening on %s", listener.Addr())

	e.wg.Add(1)
	go e.acceptLoop()
	return nil
}

// acceptLoop continuously accepts new connections and turns each one into a
// running peer. Accept errors are transient and retried; a closed listener
// ends the loop.
func (e *Endpoint) acceptLoop() {
	defer e.wg.Done()

	for e.running.Load() {
		conn, err := e.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !e.running.Load() {
				return
			}
			Logger.Errorf("accept error: %v", err)
			continue
		}

		// a connection handed over while Stop is in its grace window must
		// not join the peer set
		if !e.running.Load() {
			_ = conn.Close()
			return
		}

		if err := e.config.UpgradeConnection(conn); err != nil {
			Logger.Warningf("failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		p := e.newPeer(peerID(conn), conn)
		e.peers.Store(p.id, p)
		metricPeersAccepted.Inc()
		e.startPeer(p)

		Logger.Infof("peer %s connected from %s", p.id, conn.RemoteAddr())
	}
}
