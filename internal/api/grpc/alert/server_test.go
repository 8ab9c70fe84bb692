package alert

import (
	"context"
	"fmt"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/help-alert/internal/domain/alert"
	"github.com/oshokin/help-alert/internal/domain/subscriber"
	service "github.com/oshokin/help-alert/internal/service/alert"
)

// fakeService implements the Service interface for unit testing the transport.
type fakeService struct {
	// err is returned by every fallible call when set.
	err error
	// state is what State returns.
	state domain.State
	// resets counts Reset calls.
	resets int
	// subscribed records the last Subscribe arguments.
	subscribed subscriber.Record
}

func (f *fakeService) Notify(_ context.Context, count int) (domain.DispatchResult, error) {
	if f.err != nil {
		return domain.DispatchResult{}, f.err
	}

	if count == 0 {
		return domain.Skipped(domain.SkipCooldown), nil
	}

	f.state = domain.State{Phase: domain.PhasePending, AlertID: "alert-1", LastNotifyTime: time.Now()}

	return domain.DispatchResult{
		Sent:     true,
		AlertID:  "alert-1",
		Delivery: domain.Delivery{Attempted: count, Pruned: []string{"gone"}},
	}, nil
}

func (f *fakeService) Respond(_ context.Context, address string) (domain.ResponseResult, error) {
	if f.err != nil {
		return domain.ResponseResult{}, f.err
	}

	return domain.ResponseResult{
		Status:           domain.ResponseAccepted,
		AlertID:          "alert-1",
		Responder:        &domain.Responder{Address: address, DeviceName: "A colleague"},
		UnknownResponder: true,
	}, nil
}

func (f *fakeService) Reset(context.Context) {
	f.resets++
	f.state = domain.State{}
}

func (f *fakeService) State(context.Context) domain.State { return f.state }

func (f *fakeService) Subscribe(
	_ context.Context,
	deviceName, address string,
	credentials []byte,
) (subscriber.UpsertResult, error) {
	if f.err != nil {
		return "", f.err
	}

	f.subscribed = subscriber.Record{DeviceName: deviceName, Address: address, Credentials: credentials}

	return subscriber.Created, nil
}

func (f *fakeService) Unsubscribe(context.Context, string) error { return f.err }

// TestServer_Validation ensures invalid requests return InvalidArgument errors.
func TestServer_Validation(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))
	ctx := context.Background()

	_, err := s.Notify(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Respond(ctx, wrapperspb.String(""))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Subscribe(ctx, &structpb.Struct{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Unsubscribe(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestServer_ErrorCodes maps domain errors to gRPC status codes.
func TestServer_ErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"invalid argument", fmt.Errorf("%w: negative", service.ErrInvalidArgument), codes.InvalidArgument},
		{"invalid record", subscriber.ErrInvalidRecord, codes.InvalidArgument},
		{"directory down", fmt.Errorf("list subscribers: %w", subscriber.ErrUnavailable), codes.Unavailable},
		{"unexpected", context.DeadlineExceeded, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewServer(&fakeService{err: tt.err})

			_, err := s.Notify(context.Background(), wrapperspb.Int64(3))
			require.Equal(t, tt.code, status.Code(err))

			_, err = s.Respond(context.Background(), wrapperspb.String("addr"))
			require.Equal(t, tt.code, status.Code(err))
		})
	}
}

// TestServer_Roundtrip exercises notify, state, respond and reset on the server implementation.
func TestServer_Roundtrip(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		fake := new(fakeService)
		s := NewServer(fake)
		ctx := context.Background()

		skipped, err := s.Notify(ctx, wrapperspb.Int64(0))
		require.NoError(t, err)
		require.Equal(t, StatusSkipped, skipped.GetFields()[FieldStatus].GetStringValue())
		require.Equal(t, "cooldown", skipped.GetFields()[FieldReason].GetStringValue())

		sent, err := s.Notify(ctx, wrapperspb.Int64(3))
		require.NoError(t, err)
		require.Equal(t, StatusSent, sent.GetFields()[FieldStatus].GetStringValue())
		require.Equal(t, "alert-1", sent.GetFields()[FieldAlertID].GetStringValue())
		require.InDelta(t, 3, sent.GetFields()[FieldAttempted].GetNumberValue(), 0)
		require.Equal(t, "gone", sent.GetFields()[FieldPruned].GetListValue().GetValues()[0].GetStringValue())

		// Inside the bubble time.Now is the fake epoch.
		state, err := s.GetState(ctx, new(emptypb.Empty))
		require.NoError(t, err)
		require.Equal(t, "pending", state.GetFields()[FieldPhase].GetStringValue())
		require.Equal(t,
			time.Now().UTC().Format(time.RFC3339Nano),
			state.GetFields()[FieldLastNotifyTime].GetStringValue(),
		)

		accepted, err := s.Respond(ctx, wrapperspb.String("addr-z"))
		require.NoError(t, err)
		require.Equal(t, "accepted", accepted.GetFields()[FieldStatus].GetStringValue())
		require.Equal(t, "A colleague", accepted.GetFields()[FieldResponder].GetStringValue())
		require.True(t, accepted.GetFields()[FieldUnknownResponder].GetBoolValue())

		_, err = s.Reset(ctx, new(emptypb.Empty))
		require.NoError(t, err)
		require.Equal(t, 1, fake.resets)

		state, err = s.GetState(ctx, new(emptypb.Empty))
		require.NoError(t, err)
		require.Equal(t, "idle", state.GetFields()[FieldPhase].GetStringValue())
		require.NotContains(t, state.GetFields(), FieldLastNotifyTime)
	})
}

// TestServer_Subscribe passes the registration through.
func TestServer_Subscribe(t *testing.T) {
	t.Parallel()

	fake := new(fakeService)
	s := NewServer(fake)

	req, err := structpb.NewStruct(map[string]any{
		FieldDeviceName:  "Front desk",
		FieldAddress:     "https://push.example.com/a",
		FieldCredentials: `{"endpoint":"https://push.example.com/a"}`,
	})
	require.NoError(t, err)

	resp, err := s.Subscribe(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "created", resp.GetFields()[FieldStatus].GetStringValue())
	require.Equal(t, "Front desk", fake.subscribed.DeviceName)
	require.Equal(t, []byte(`{"endpoint":"https://push.example.com/a"}`), fake.subscribed.Credentials)

	_, err = s.Unsubscribe(context.Background(), wrapperspb.String("https://push.example.com/a"))
	require.NoError(t, err)
}
