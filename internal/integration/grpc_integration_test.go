package integration

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/help-alert/internal/config"
	"github.com/oshokin/help-alert/internal/push/webpush"
	"github.com/oshokin/help-alert/internal/service/common"
	"github.com/oshokin/help-alert/internal/service/server"
)

// pushService is a fake Web Push endpoint: paths ending in /gone answer 410.
type pushService struct {
	*httptest.Server

	mu       sync.Mutex
	received map[string]int
}

func newPushService(t *testing.T) *pushService {
	t.Helper()

	p := &pushService{received: make(map[string]int)}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.received[r.URL.Path]++
		p.mu.Unlock()

		if strings.HasSuffix(r.URL.Path, "/gone") {
			w.WriteHeader(http.StatusGone)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}))

	t.Cleanup(p.Close)

	return p
}

func (p *pushService) count(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.received[path]
}

// reservePort returns a free local address for a test server.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// subscription builds PushSubscription JSON for endpoint with a real P-256 key.
func subscription(t *testing.T, endpoint string) []byte {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	data, err := json.Marshal(webpushgo.Subscription{
		Endpoint: endpoint,
		Keys: webpushgo.Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	})
	require.NoError(t, err)

	return data
}

// startServer saves settings for a file-backed directory and runs the real server.
// Returns the settings path and a stop function.
func startServer(t *testing.T, addr string) (string, func()) {
	t.Helper()

	keys, err := webpush.GenerateKeys()
	require.NoError(t, err)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "settings.yaml")

	require.NoError(t, config.Save(cfgPath, &config.Config{
		ServerAddress: addr,
		Timeout:       5 * time.Second,
		Alert:         config.Alert{Cooldown: time.Minute},
		Directory: config.Directory{
			Driver: config.DriverFile,
			Path:   filepath.Join(dir, "subscribers.yaml"),
		},
		Push: config.Push{
			VAPIDPublicKey:  keys.PublicKey,
			VAPIDPrivateKey: keys.PrivateKey,
			Subscriber:      "ops@example.com",
			Timeout:         2 * time.Second,
		},
		Watch: config.Watch{Threshold: 3, Interval: 50 * time.Millisecond},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	// Wait briefly for server to start listening.
	time.Sleep(150 * time.Millisecond)

	return cfgPath, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

// TestGRPC_AlertLifecycle runs subscribe, notify, respond and reset against the real server.
func TestGRPC_AlertLifecycle(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	push := newPushService(t)

	_, stop := startServer(t, addr)
	defer stop()

	ctx := context.Background()

	c, err := common.Dial(ctx, addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	addrA := push.URL + "/sub/a"
	addrB := push.URL + "/sub/b"
	addrGone := push.URL + "/sub/gone"

	for _, s := range []struct{ name, address string }{
		{"Anna", addrA},
		{"Boris", addrB},
		{"Old phone", addrGone},
	} {
		status, err := c.Subscribe(ctx, s.name, s.address, subscription(t, s.address))
		require.NoError(t, err)
		require.Equal(t, "created", status)
	}

	status, err := c.Subscribe(ctx, "Anna's phone", addrA, subscription(t, addrA))
	require.NoError(t, err)
	require.Equal(t, "updated", status)

	state, err := c.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, "idle", state.Phase)
	require.True(t, state.LastNotifyTime.IsZero())

	// The alert goes to everyone and the expired subscription is pruned.
	notified, err := c.Notify(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "sent", notified.Status)
	require.NotEmpty(t, notified.AlertID)
	require.Equal(t, 3, notified.Attempted)
	require.Equal(t, []string{addrGone}, notified.Pruned)
	require.Equal(t, 1, push.count("/sub/a"))
	require.Equal(t, 1, push.count("/sub/gone"))

	again, err := c.Notify(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "skipped", again.Status)
	require.Equal(t, "cooldown", again.Reason)

	accepted, err := c.Respond(ctx, addrA)
	require.NoError(t, err)
	require.Equal(t, "accepted", accepted.Status)
	require.Equal(t, "Anna's phone", accepted.Responder)
	require.Equal(t, notified.AlertID, accepted.AlertID)
	require.Equal(t, 1, push.count("/sub/a"))
	require.Equal(t, 2, push.count("/sub/b"))

	late, err := c.Respond(ctx, addrB)
	require.NoError(t, err)
	require.Equal(t, "already_handled", late.Status)
	require.Equal(t, "Anna's phone", late.Responder)
	require.Equal(t, 3, push.count("/sub/b"))

	state, err = c.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, "handled", state.Phase)
	require.Equal(t, addrA, state.ResponderAddress)
	require.False(t, state.LastNotifyTime.IsZero())

	require.NoError(t, c.Reset(ctx))

	state, err = c.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, "idle", state.Phase)
	require.Empty(t, state.Responder)

	idle, err := c.Respond(ctx, addrB)
	require.NoError(t, err)
	require.Equal(t, "already_idle", idle.Status)

	require.NoError(t, c.Unsubscribe(ctx, addrB))
}
