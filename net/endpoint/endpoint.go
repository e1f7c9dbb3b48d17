package endpoint

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/telemetrylab/dtnet/lib/telemetry"
	"github.com/telemetrylab/dtnet/net/codec"
	"github.com/telemetrylab/dtnet/net/common"
	"github.com/telemetrylab/dtnet/net/pending"
)

var Logger = logger.GetLogger("endpoint")

// --------------------------------------------------------------------------
// Role
// --------------------------------------------------------------------------

// Role selects the connection behavior of an endpoint: a server accepts any
// number of peers, a client dials exactly one.
type Role uint8

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IEndpoint is the transport surface exposed to callers. All methods are
// safe for concurrent use; none of them blocks on network activity.
type IEndpoint interface {
	// RegisterValue adds a caller-owned value the endpoint may read to
	// answer queries. Registration is only legal before Start.
	RegisterValue(v *telemetry.NamedValue) error
	// Start brings up the listening (server) or connecting (client)
	// infrastructure. It fails with AlreadyRunning on a second call.
	Start() error
	// Stop performs an orderly one-shot teardown of all peers and the
	// socket. Calling it again is a no-op; the endpoint is not restartable.
	Stop() error
	// PoseQuery sends a query for the given names to a peer and returns the
	// correlation key immediately, without waiting for the answer. The
	// target identifies the peer for server endpoints and is ignored by
	// clients.
	PoseQuery(names []string, target string) (uint8, error)
	// GetResponse returns and removes the answer for a key if it has
	// arrived. It never blocks.
	GetResponse(key uint8) (map[string]any, bool)
	// GetResponses atomically returns all arrived answers and flushes the
	// pending table.
	GetResponses() map[uint8]map[string]any
	// GetConnected returns the identities of all live peers. It fails with
	// InvalidOperationForRole on client endpoints.
	GetConnected() ([]string, error)
	// Addr returns the bound listener address (server) or the remote
	// address (client), nil before Start.
	Addr() net.Addr
}

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// Endpoint implements IEndpoint for both roles.
type Endpoint struct {
	role    Role
	config  common.EndpointConfig
	cdc     codec.ICodec
	store   telemetry.IStore
	pending *pending.Table

	// pre-encoded close sentinel, sent best-effort during Stop
	closeFrame []byte

	started  atomic.Bool
	running  atomic.Bool
	stopping atomic.Bool

	listener net.Listener                // server role
	peers    *xsync.MapOf[string, *peer] // server role
	remote   atomic.Pointer[peer]        // client role

	wg sync.WaitGroup
}

// NewServerEndpoint creates an endpoint that listens on the configured
// address and serves any number of clients.
func NewServerEndpoint(config common.EndpointConfig, store telemetry.IStore, cdc codec.ICodec) (IEndpoint, error) {
	return newEndpoint(RoleServer, config, store, cdc)
}

// NewClientEndpoint creates an endpoint that connects once to the configured
// address.
func NewClientEndpoint(config common.EndpointConfig, store telemetry.IStore, cdc codec.ICodec) (IEndpoint, error) {
	return newEndpoint(RoleClient, config, store, cdc)
}

func newEndpoint(role Role, config common.EndpointConfig, store telemetry.IStore, cdc codec.ICodec) (*Endpoint, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	closeFrame, err := cdc.Encode(codec.NewClose())
	if err != nil {
		return nil, fmt.Errorf("failed to encode close sentinel: %w", err)
	}

	return &Endpoint{
		role:       role,
		config:     config,
		cdc:        cdc,
		store:      store,
		pending:    pending.NewTable(),
		closeFrame: closeFrame,
		peers:      xsync.NewMapOf[string, *peer](),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IEndpoint)
// --------------------------------------------------------------------------

func (e *Endpoint) RegisterValue(v *telemetry.NamedValue) error {
	if e.started.Load() {
		return common.NewError(common.ErrCRegistrationAfterStart,
			"cannot register values once the endpoint is running")
	}
	return e.store.Register(v)
}

func (e *Endpoint) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return common.NewError(common.ErrCAlreadyRunning, "endpoint already running")
	}
	e.running.Store(true)

	var err error
	if e.role == RoleServer {
		err = e.startServer()
	} else {
		err = e.startClient()
	}

	if err != nil {
		e.running.Store(false)
		e.started.Store(false)
		return err
	}
	return nil
}

func (e *Endpoint) PoseQuery(names []string, target string) (uint8, error) {
	key, err := e.pending.Allocate()
	if err != nil {
		// a full table signals a caller that is not draining responses
		Logger.Errorf("PoseQuery: %v", err)
		return 0, err
	}

	frame, err := e.cdc.Encode(codec.NewQuery(key, names))
	if err != nil {
		e.pending.Release(key)
		return 0, err
	}

	p, err := e.resolveTarget(target)
	if err != nil {
		e.pending.Release(key)
		return 0, err
	}

	p.send(frame)
	return key, nil
}

func (e *Endpoint) GetResponse(key uint8) (map[string]any, bool) {
	return e.pending.Take(key)
}

func (e *Endpoint) GetResponses() map[uint8]map[string]any {
	return e.pending.TakeAll()
}

func (e *Endpoint) GetConnected() ([]string, error) {
	if e.role != RoleServer {
		return nil, common.NewError(common.ErrCInvalidOperationForRole, "invalid operation for clients")
	}

	ids := make([]string, 0, e.peers.Size())
	e.peers.Range(func(id string, p *peer) bool {
		if p.running.Load() {
			ids = append(ids, id)
		}
		return true
	})
	return ids, nil
}

func (e *Endpoint) Addr() net.Addr {
	if e.role == RoleServer {
		if e.listener != nil {
			return e.listener.Addr()
		}
		return nil
	}
	if p := e.remote.Load(); p != nil {
		return p.conn.RemoteAddr()
	}
	return nil
}

func (e *Endpoint) Stop() error {
	if !e.started.Load() || !e.stopping.CompareAndSwap(false, true) {
		return nil
	}

	Logger.Infof("stopping %s endpoint", e.role)

	// best-effort close notice to every live peer
	for _, p := range e.livePeers() {
		p.send(e.closeFrame)
	}

	// stop all service loops
	e.running.Store(false)

	// give the remote one receive window to observe the close notice
	time.Sleep(e.config.Timeout())

	// release sockets; loops blocked in reads observe the closed
	// connections and exit
	if e.listener != nil {
		_ = e.listener.Close()
	}
	for _, p := range e.livePeers() {
		p.teardown()
	}

	e.wg.Wait()
	Logger.Infof("%s endpoint stopped", e.role)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// resolveTarget maps a query target to a live peer, enforcing the role
// semantics: servers must name one of their peers, clients always address
// their single connection.
func (e *Endpoint) resolveTarget(target string) (*peer, error) {
	if e.role == RoleServer {
		if target == "" {
			return nil, common.NewError(common.ErrCTargetNotSpecified, "target not specified for the request")
		}
		p, ok := e.peers.Load(target)
		if !ok || !p.running.Load() {
			return nil, common.NewError(common.ErrCTargetUnavailable,
				fmt.Sprintf("specified target %q is not available", target))
		}
		return p, nil
	}

	p := e.remote.Load()
	if p == nil || !p.running.Load() {
		return nil, common.NewError(common.ErrCNotConnected, "no live connection to a server")
	}
	return p, nil
}

// livePeers snapshots all peers the endpoint currently owns.
func (e *Endpoint) livePeers() []*peer {
	var out []*peer
	if e.role == RoleServer {
		e.peers.Range(func(_ string, p *peer) bool {
			out = append(out, p)
			return true
		})
	} else if p := e.remote.Load(); p != nil {
		out = append(out, p)
	}
	return out
}
