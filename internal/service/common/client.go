//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/help-alert/internal/api/grpc/alert"
	"github.com/oshokin/help-alert/internal/config"
	pb "github.com/oshokin/help-alert/internal/pb/v1"
)

// Client wraps the gRPC AlertService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alert server.
	conn *grpc.ClientConn
	// api is the AlertService client interface.
	api pb.AlertServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// NotifyResult is the decoded answer to Notify.
type NotifyResult struct {
	// Status is "sent" or "skipped".
	Status string
	// Reason explains a skip.
	Reason string
	// AlertID identifies the opened alert.
	AlertID string
	// Attempted is the number of deliveries tried.
	Attempted int
	// Pruned lists addresses removed as expired.
	Pruned []string
}

// RespondResult is the decoded answer to Respond.
type RespondResult struct {
	Status           string
	AlertID          string
	Responder        string
	UnknownResponder bool
}

// StateResult is the decoded answer to GetState.
type StateResult struct {
	Phase            string
	AlertID          string
	Responder        string
	ResponderAddress string
	// LastNotifyTime is zero when no alert was opened since start.
	LastNotifyTime time.Time
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errCredentialsRequired is returned when Subscribe has no credentials.
	errCredentialsRequired = errors.New("credentials must be provided")
	// errNegativeCount is returned when Notify gets a negative count.
	errNegativeCount = errors.New("count must not be negative")
)

// Dial establishes a gRPC connection to the alert server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alert server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewAlertServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Notify reports the current count to the server.
func (c *Client) Notify(ctx context.Context, count int) (*NotifyResult, error) {
	if count < 0 {
		return nil, errNegativeCount
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Notify(callCtx, wrapperspb.Int64(int64(count)))
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}

	fields := resp.GetFields()
	result := &NotifyResult{
		Status:    fields[api.FieldStatus].GetStringValue(),
		Reason:    fields[api.FieldReason].GetStringValue(),
		AlertID:   fields[api.FieldAlertID].GetStringValue(),
		Attempted: int(fields[api.FieldAttempted].GetNumberValue()),
	}

	for _, v := range fields[api.FieldPruned].GetListValue().GetValues() {
		result.Pruned = append(result.Pruned, v.GetStringValue())
	}

	return result, nil
}

// Respond accepts the open alert for the subscriber at address.
func (c *Client) Respond(ctx context.Context, address string) (*RespondResult, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Respond(callCtx, wrapperspb.String(address))
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}

	fields := resp.GetFields()

	return &RespondResult{
		Status:           fields[api.FieldStatus].GetStringValue(),
		AlertID:          fields[api.FieldAlertID].GetStringValue(),
		Responder:        fields[api.FieldResponder].GetStringValue(),
		UnknownResponder: fields[api.FieldUnknownResponder].GetBoolValue(),
	}, nil
}

// Reset returns the alert to idle.
func (c *Client) Reset(ctx context.Context) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Reset(callCtx, new(emptypb.Empty)); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	return nil
}

// GetState retrieves the current alert state.
func (c *Client) GetState(ctx context.Context) (*StateResult, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetState(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	fields := resp.GetFields()
	result := &StateResult{
		Phase:            fields[api.FieldPhase].GetStringValue(),
		AlertID:          fields[api.FieldAlertID].GetStringValue(),
		Responder:        fields[api.FieldResponder].GetStringValue(),
		ResponderAddress: fields[api.FieldAddress].GetStringValue(),
	}

	if raw := fields[api.FieldLastNotifyTime].GetStringValue(); raw != "" {
		result.LastNotifyTime, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse last notify time: %w", err)
		}
	}

	return result, nil
}

// Subscribe registers a device and returns "created" or "updated".
func (c *Client) Subscribe(ctx context.Context, deviceName, address string, credentials []byte) (string, error) {
	if address == "" {
		return "", errAddressRequired
	}

	if len(credentials) == 0 {
		return "", errCredentialsRequired
	}

	req, err := structpb.NewStruct(map[string]any{
		api.FieldDeviceName:  deviceName,
		api.FieldAddress:     address,
		api.FieldCredentials: string(credentials),
	})
	if err != nil {
		return "", fmt.Errorf("encode subscription: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Subscribe(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("subscribe: %w", err)
	}

	return resp.GetFields()[api.FieldStatus].GetStringValue(), nil
}

// Unsubscribe removes the device registered at address.
func (c *Client) Unsubscribe(ctx context.Context, address string) error {
	if address == "" {
		return errAddressRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Unsubscribe(callCtx, wrapperspb.String(address)); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
