package unix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/serializer"
	"github.com/ValentinKolb/udsrpc/rpc/transport"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// echo answers every request with {"echo": <content>}
func echo(msg common.Message) *common.Message {
	content, _ := json.Marshal(map[string]json.RawMessage{"echo": msg.Content})
	return common.NewMessage(msg.UUID, content)
}

// configs returns host and peer configs for a socket in a temporary directory
func configs(t *testing.T) (common.ServerConfig, common.ClientConfig) {
	path := filepath.Join(t.TempDir(), "udsrpc.sock")

	server := common.DefaultServerConfig()
	server.SocketPath = path
	server.BlockSizeKB = 1

	client := common.DefaultClientConfig()
	client.SocketPath = path
	client.BlockSizeKB = 1
	return server, client
}

// connectPair connects a host and an echo peer over a real socket
func connectPair(t *testing.T, server common.ServerConfig, client common.ClientConfig) (transport.IRPCServerTransport, transport.IRPCClientTransport) {
	t.Helper()

	host := NewUnixServerTransport(server, serializer.NewJSONSerializer())
	peer := NewUnixClientTransport(client, serializer.NewJSONIterSerializer())
	peer.RegisterHandler(echo)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hostErr := make(chan error, 1)
	go func() { hostErr <- host.Connect(ctx) }()

	// The peer waits until the host created the socket
	if err := peer.Connect(ctx); err != nil {
		t.Fatalf("Peer Connect failed: %v", err)
	}
	if err := <-hostErr; err != nil {
		t.Fatalf("Host Connect failed: %v", err)
	}

	t.Cleanup(func() {
		peer.Close()
		host.Stop()
	})
	return host, peer
}

// TestUnixRequest tests concurrent request/response round trips over a socket
func TestUnixRequest(t *testing.T) {
	server, client := configs(t)
	host, _ := connectPair(t, server, client)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			// Payloads larger than the read block size span several reads
			content := map[string]any{"n": i, "pad": fmt.Sprintf("%03000d", i)}
			resp, err := host.Request(context.Background(), content)
			if err != nil {
				t.Errorf("Request %d failed: %v", i, err)
				return
			}

			var got struct {
				Echo struct {
					N int `json:"n"`
				} `json:"echo"`
			}
			if err := json.Unmarshal(resp, &got); err != nil || got.Echo.N != i {
				t.Errorf("Request %d got %s", i, resp)
			}
		}(i)
	}
	wg.Wait()

	if host.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", host.Pending())
	}
	if stats := host.Stats(); stats.FramesDispatched < 20 || stats.FramesWritten < 20 {
		t.Errorf("Stats() = %+v, want at least 20 frames each way", stats)
	}
}

// TestUnixStaleSocketFile tests that an existing file at the socket path is replaced
func TestUnixStaleSocketFile(t *testing.T) {
	server, client := configs(t)

	if err := os.WriteFile(server.SocketPath, []byte("stale"), 0o600); err != nil {
		t.Fatalf("Failed to create stale file: %v", err)
	}

	host := NewUnixServerTransport(server, serializer.NewJSONSerializer())
	hostErr := make(chan error, 1)
	go func() { hostErr <- host.Connect(context.Background()) }()
	defer host.Stop()

	// Wait until the stale file was replaced by the socket
	deadline := time.Now().Add(5 * time.Second)
	for {
		info, err := os.Stat(server.SocketPath)
		if err == nil && info.Mode()&fs.ModeSocket != 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Socket was not created")
		}
		time.Sleep(10 * time.Millisecond)
	}

	peer := NewUnixClientTransport(client, serializer.NewJSONSerializer())
	peer.RegisterHandler(echo)
	if err := peer.Connect(context.Background()); err != nil {
		t.Fatalf("Peer Connect failed: %v", err)
	}
	defer peer.Close()

	if err := <-hostErr; err != nil {
		t.Fatalf("Host Connect failed: %v", err)
	}
}

// TestUnixStopRemovesSocket tests cleanup of the socket file and peer teardown
func TestUnixStopRemovesSocket(t *testing.T) {
	server, client := configs(t)
	host, peer := connectPair(t, server, client)

	if err := host.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if _, err := os.Stat(server.SocketPath); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Socket file still exists after Stop: %v", err)
	}

	select {
	case <-peer.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("Peer did not notice the closed connection")
	}

	if err := host.Stop(); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}
}

// TestUnixReconnect tests a new Connect after the peer went away
func TestUnixReconnect(t *testing.T) {
	server, client := configs(t)
	host, peer := connectPair(t, server, client)

	peer.Close()
	host.Wait()

	if err := host.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	next := NewUnixClientTransport(client, serializer.NewJSONSerializer())
	next.RegisterHandler(echo)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hostErr := make(chan error, 1)
	go func() { hostErr <- host.Connect(ctx) }()

	if err := next.Connect(ctx); err != nil {
		t.Fatalf("Peer Connect failed: %v", err)
	}
	defer next.Close()

	if err := <-hostErr; err != nil {
		t.Fatalf("Host Connect failed: %v", err)
	}

	resp, err := host.Request(ctx, "again")
	if err != nil || string(resp) != `{"echo":"again"}` {
		t.Errorf("Request() = (%s, %v)", resp, err)
	}
}

// TestUnixBindError tests a setup error for an unusable socket path
func TestUnixBindError(t *testing.T) {
	server := common.DefaultServerConfig()
	server.SocketPath = filepath.Join(t.TempDir(), "missing", "udsrpc.sock")

	host := NewUnixServerTransport(server, serializer.NewJSONSerializer())
	err := host.Connect(context.Background())
	if !errors.Is(err, common.ErrSetup) {
		t.Fatalf("Connect() = %v, want setup error", err)
	}

	var e *common.Error
	if !errors.As(err, &e) || e.Op != "bind" {
		t.Errorf("Connect() = %v, want failed bind", err)
	}
}

// TestUnixPeerTimeout tests that the peer gives up when no host appears
func TestUnixPeerTimeout(t *testing.T) {
	_, client := configs(t)

	peer := NewUnixClientTransport(client, serializer.NewJSONSerializer())
	peer.RegisterHandler(echo)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := peer.Connect(ctx)
	if !errors.Is(err, common.ErrSetup) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Connect() = %v, want setup error caused by the deadline", err)
	}
}
