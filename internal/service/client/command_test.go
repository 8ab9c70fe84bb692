package client

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/help-alert/internal/service/common"
)

// TestFormatState renders every phase the server can report.
func TestFormatState(t *testing.T) {
	t.Parallel()

	require.Equal(t, "<nil state>", formatState(nil))
	require.Equal(t, "idle, last alert at never", formatState(&common.StateResult{Phase: "idle"}))

	notified := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	line := formatState(&common.StateResult{
		Phase:            "handled",
		AlertID:          "a-1",
		Responder:        "Anna",
		ResponderAddress: "https://push.example.com/a",
		LastNotifyTime:   notified,
	})

	require.Contains(t, line, "handled, last alert at "+notified.Local().Format(time.RFC3339))
	require.Contains(t, line, "alert a-1")
	require.Contains(t, line, "accepted by Anna (https://push.example.com/a)")
}

// TestEndpointOf reads the endpoint from PushSubscription JSON.
func TestEndpointOf(t *testing.T) {
	t.Parallel()

	endpoint, err := endpointOf([]byte(`{"endpoint":"https://push.example.com/x","keys":{"p256dh":"k","auth":"a"}}`))
	require.NoError(t, err)
	require.Equal(t, "https://push.example.com/x", endpoint)

	_, err = endpointOf([]byte(`{"keys":{}}`))
	require.ErrorIs(t, err, errNoEndpoint)

	_, err = endpointOf([]byte("nope"))
	require.Error(t, err)
}

// TestSubscribe_MissingFile fails before contacting the server.
func TestSubscribe_MissingFile(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := Subscribe("phone", "", filepath.Join(t.TempDir(), "missing.json"))(context.Background(), nil, &out)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Empty(t, out.String())
}

// TestRun_MissingConfig reports the unreadable settings file.
func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
	}, "state", State())
	require.Error(t, err)
}
