package endpoint

import (
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/telemetrylab/dtnet/lib/telemetry"
	"github.com/telemetrylab/dtnet/net/codec"
	"github.com/telemetrylab/dtnet/net/common"
)

// short receive window so the timeout-delimited framing keeps tests fast
const testTimeoutMs = 50

func testConfig(port int) common.EndpointConfig {
	return common.EndpointConfig{
		Host:               "127.0.0.1",
		Port:               port,
		TimeoutMillisecond: testTimeoutMs,
	}
}

func newServer(t *testing.T, values ...*telemetry.NamedValue) IEndpoint {
	t.Helper()

	ep, err := NewServerEndpoint(testConfig(0), telemetry.NewRegistry(), codec.NewJSONCodec())
	if err != nil {
		t.Fatalf("failed to create server endpoint: %v", err)
	}
	for _, v := range values {
		if err := ep.RegisterValue(v); err != nil {
			t.Fatalf("failed to register %s: %v", v.Name(), err)
		}
	}
	if err := ep.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = ep.Stop() })
	return ep
}

func connectClient(t *testing.T, server IEndpoint, values ...*telemetry.NamedValue) IEndpoint {
	t.Helper()

	addr := server.Addr().(*net.TCPAddr)
	ep, err := NewClientEndpoint(testConfig(addr.Port), telemetry.NewRegistry(), codec.NewJSONCodec())
	if err != nil {
		t.Fatalf("failed to create client endpoint: %v", err)
	}
	for _, v := range values {
		if err := ep.RegisterValue(v); err != nil {
			t.Fatalf("failed to register %s: %v", v.Name(), err)
		}
	}
	if err := ep.Start(); err != nil {
		t.Fatalf("failed to connect client: %v", err)
	}
	t.Cleanup(func() { _ = ep.Stop() })
	return ep
}

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitResponse polls GetResponse for a key until the answer arrives.
func waitResponse(t *testing.T, ep IEndpoint, key uint8) map[string]any {
	t.Helper()
	var payload map[string]any
	waitFor(t, "response", func() bool {
		p, ok := ep.GetResponse(key)
		if ok {
			payload = p
		}
		return ok
	})
	return payload
}

func connectedCount(t *testing.T, ep IEndpoint) int {
	t.Helper()
	ids, err := ep.GetConnected()
	if err != nil {
		t.Fatalf("GetConnected failed: %v", err)
	}
	return len(ids)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func TestInvalidPortConstruction(t *testing.T) {
	_, err := NewServerEndpoint(testConfig(-1), telemetry.NewRegistry(), codec.NewJSONCodec())
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCInvalidPort {
		t.Errorf("expected InvalidPort, got %v", err)
	}

	_, err = NewClientEndpoint(testConfig(70000), telemetry.NewRegistry(), codec.NewJSONCodec())
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCInvalidPort {
		t.Errorf("expected InvalidPort, got %v", err)
	}
}

func TestStartTwice(t *testing.T) {
	server := newServer(t)

	err := server.Start()
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCAlreadyRunning {
		t.Errorf("expected AlreadyRunning, got %v", err)
	}
}

func TestRegistrationAfterStart(t *testing.T) {
	server := newServer(t, telemetry.NewNamedValue("speed", 1))

	err := server.RegisterValue(telemetry.NewNamedValue("late", 2))
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCRegistrationAfterStart {
		t.Errorf("expected RegistrationAfterStart, got %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	server := newServer(t)
	connectClient(t, server)

	if err := server.Stop(); err != nil {
		t.Fatalf("first Stop failed: %v", err)
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Connection tracking
// --------------------------------------------------------------------------

func TestGetConnectedInvalidForClients(t *testing.T) {
	server := newServer(t)
	client := connectClient(t, server)

	_, err := client.GetConnected()
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCInvalidOperationForRole {
		t.Errorf("expected InvalidOperationForRole, got %v", err)
	}
}

func TestGetConnectedTracksPeers(t *testing.T) {
	server := newServer(t)

	if got := connectedCount(t, server); got != 0 {
		t.Errorf("connected count is %d before any client, want 0", got)
	}

	first := connectClient(t, server)
	waitFor(t, "first client to connect", func() bool { return connectedCount(t, server) == 1 })

	connectClient(t, server)
	waitFor(t, "second client to connect", func() bool { return connectedCount(t, server) == 2 })

	if err := first.Stop(); err != nil {
		t.Fatalf("client Stop failed: %v", err)
	}
	waitFor(t, "first client to disconnect", func() bool { return connectedCount(t, server) == 1 })
}

// --------------------------------------------------------------------------
// Query / Response
// --------------------------------------------------------------------------

func TestClientQueriesServer(t *testing.T) {
	server := newServer(t, telemetry.NewNamedValue("speed", 42))
	client := connectClient(t, server)

	key, err := client.PoseQuery([]string{"speed"}, "")
	if err != nil {
		t.Fatalf("PoseQuery failed: %v", err)
	}

	payload := waitResponse(t, client, key)
	// json numbers arrive as float64
	if payload["speed"] != float64(42) {
		t.Errorf("payload is %v, want speed=42", payload)
	}
	if len(payload) != 1 {
		t.Errorf("payload carries extra values: %v", payload)
	}
}

func TestServerQueriesClient(t *testing.T) {
	server := newServer(t)
	connectClient(t, server, telemetry.NewNamedValue("battery", 87))

	waitFor(t, "client to connect", func() bool { return connectedCount(t, server) == 1 })
	ids, err := server.GetConnected()
	if err != nil {
		t.Fatalf("GetConnected failed: %v", err)
	}

	key, err := server.PoseQuery([]string{"battery"}, ids[0])
	if err != nil {
		t.Fatalf("PoseQuery failed: %v", err)
	}

	payload := waitResponse(t, server, key)
	if payload["battery"] != float64(87) {
		t.Errorf("payload is %v, want battery=87", payload)
	}
}

func TestTotalDataSnapshot(t *testing.T) {
	server := newServer(t,
		telemetry.NewNamedValue("speed", 42),
		telemetry.NewNamedValue("heading", 180),
	)
	client := connectClient(t, server)

	key, err := client.PoseQuery([]string{codec.QueryTotalData}, "")
	if err != nil {
		t.Fatalf("PoseQuery failed: %v", err)
	}

	payload := waitResponse(t, client, key)
	want := map[string]any{"speed": float64(42), "heading": float64(180)}
	if !reflect.DeepEqual(payload[codec.QueryTotalData], want) {
		t.Errorf("total_data is %v, want %v", payload[codec.QueryTotalData], want)
	}
}

func TestCallerUpdateVisibleInResponse(t *testing.T) {
	speed := telemetry.NewNamedValue("speed", 0)
	server := newServer(t, speed)
	client := connectClient(t, server)

	speed.Store(1234)

	key, err := client.PoseQuery([]string{"speed"}, "")
	if err != nil {
		t.Fatalf("PoseQuery failed: %v", err)
	}

	payload := waitResponse(t, client, key)
	if payload["speed"] != float64(1234) {
		t.Errorf("payload is %v, want speed=1234", payload)
	}
}

func TestQueryMatchingNothingGetsNoResponse(t *testing.T) {
	server := newServer(t, telemetry.NewNamedValue("speed", 42))
	client := connectClient(t, server)

	key, err := client.PoseQuery([]string{"missing"}, "")
	if err != nil {
		t.Fatalf("PoseQuery failed: %v", err)
	}

	// several receive windows pass, no answer must arrive
	time.Sleep(5 * testTimeoutMs * time.Millisecond)
	if payload, ok := client.GetResponse(key); ok {
		t.Errorf("received unexpected response %v", payload)
	}
}

func TestGetResponsesFlushes(t *testing.T) {
	server := newServer(t,
		telemetry.NewNamedValue("speed", 42),
		telemetry.NewNamedValue("heading", 180),
	)
	client := connectClient(t, server)

	first, err := client.PoseQuery([]string{"speed"}, "")
	if err != nil {
		t.Fatalf("PoseQuery failed: %v", err)
	}
	second, err := client.PoseQuery([]string{"heading"}, "")
	if err != nil {
		t.Fatalf("PoseQuery failed: %v", err)
	}

	// GetResponses flushes unanswered keys too, so give both answers ample
	// time to arrive before the single drain
	time.Sleep(10 * testTimeoutMs * time.Millisecond)

	collected := client.GetResponses()
	if len(collected) != 2 {
		t.Fatalf("collected %d responses, want 2", len(collected))
	}
	if collected[first]["speed"] != float64(42) {
		t.Errorf("first payload is %v", collected[first])
	}
	if collected[second]["heading"] != float64(180) {
		t.Errorf("second payload is %v", collected[second])
	}

	if live := client.(*Endpoint).pending.Len(); live != 0 {
		t.Errorf("%d keys still pending after the drain", live)
	}
}

// --------------------------------------------------------------------------
// Target resolution
// --------------------------------------------------------------------------

func TestPoseQueryTargetErrors(t *testing.T) {
	server := newServer(t)
	connectClient(t, server)
	waitFor(t, "client to connect", func() bool { return connectedCount(t, server) == 1 })

	_, err := server.PoseQuery([]string{"speed"}, "")
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCTargetNotSpecified {
		t.Errorf("expected TargetNotSpecified, got %v", err)
	}

	_, err = server.PoseQuery([]string{"speed"}, "no-such-peer")
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCTargetUnavailable {
		t.Errorf("expected TargetUnavailable, got %v", err)
	}

	// failed queries must not leak correlation keys
	if live := server.(*Endpoint).pending.Len(); live != 0 {
		t.Errorf("%d keys still pending after failed queries", live)
	}
}

// --------------------------------------------------------------------------
// Shutdown
// --------------------------------------------------------------------------

func TestStopLeavesNoPeers(t *testing.T) {
	server := newServer(t)
	client := connectClient(t, server)
	waitFor(t, "client to connect", func() bool { return connectedCount(t, server) == 1 })

	if err := server.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := connectedCount(t, server); got != 0 {
		t.Errorf("connected count is %d after Stop, want 0", got)
	}

	// queries fail with a role-appropriate error instead of hanging
	_, err := server.PoseQuery([]string{"speed"}, "whoever")
	if code, ok := common.CodeOf(err); !ok || code != common.ErrCTargetUnavailable {
		t.Errorf("expected TargetUnavailable after Stop, got %v", err)
	}

	// the client observes the close notice and loses its connection
	waitFor(t, "client to observe close", func() bool {
		_, err := client.PoseQuery([]string{"speed"}, "")
		code, ok := common.CodeOf(err)
		return ok && code == common.ErrCNotConnected
	})
}

func TestOutboxOverflowDropsPeer(t *testing.T) {
	cfg := testConfig(0)
	cfg.OutboxSize = 1
	ep, err := NewServerEndpoint(cfg, telemetry.NewRegistry(), codec.NewJSONCodec())
	if err != nil {
		t.Fatalf("failed to create server endpoint: %v", err)
	}
	e := ep.(*Endpoint)

	// peer without a writer goroutine, so nothing ever drains the outbox
	local, remote := net.Pipe()
	defer func() { _ = remote.Close() }()
	p := e.newPeer("stuck", local)
	e.peers.Store(p.id, p)

	if !p.send([]byte(`"closing"`)) {
		t.Fatal("first send did not fit into the outbox")
	}
	if p.send([]byte(`"closing"`)) {
		t.Error("send into a full outbox reported success")
	}

	if p.running.Load() {
		t.Error("peer still running after outbox overflow")
	}
	if _, ok := e.peers.Load("stuck"); ok {
		t.Error("peer still registered after outbox overflow")
	}
}

func TestPeerStartedDuringShutdownStillExits(t *testing.T) {
	server := newServer(t)
	e := server.(*Endpoint)

	// a connection can slip through the accept loop while a shutdown is
	// already in progress; its loops must still exit and release the socket
	local, remote := net.Pipe()
	defer func() { _ = remote.Close() }()

	e.running.Store(false)
	p := e.newPeer("late", local)
	e.startPeer(p)

	done := make(chan struct{})
	go func() {
		_ = server.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop hung waiting for a peer started during shutdown")
	}
}

func TestClientStopNotifiesServer(t *testing.T) {
	server := newServer(t)
	client := connectClient(t, server)
	waitFor(t, "client to connect", func() bool { return connectedCount(t, server) == 1 })

	if err := client.Stop(); err != nil {
		t.Fatalf("client Stop failed: %v", err)
	}

	waitFor(t, "server to drop the peer", func() bool { return connectedCount(t, server) == 0 })
}
