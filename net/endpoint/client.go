package endpoint

import (
	"fmt"
	"net"
)

// startClient dials the configured address once and spawns the service loop
// for the resulting single peer.
func (e *Endpoint) startClient() error {
	conn, err := net.DialTimeout("tcp", e.config.Address(), e.config.Timeout())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", e.config.Address(), err)
	}

	if err := e.config.UpgradeConnection(conn); err != nil {
		Logger.Warningf("failed to upgrade connection to %s: %v", e.config.Address(), err)
	}

	p := e.newPeer(peerID(conn), conn)
	e.remote.Store(p)
	metricPeersAccepted.Inc()
	e.startPeer(p)

	Logger.Infof("connected to %s", conn.RemoteAddr())
	return nil
}
