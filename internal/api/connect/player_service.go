package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/ringdeck/internal/api/playerv1"
	"github.com/osa030/ringdeck/internal/api/playerv1/playerv1connect"
	"github.com/osa030/ringdeck/internal/app/playback"
	"github.com/osa030/ringdeck/internal/app/session"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(session *session.Manager) *PlayerService {
	return &PlayerService{
		session: session,
	}
}

// Ensure PlayerService implements the interface.
var _ playerv1connect.PlayerServiceHandler = (*PlayerService)(nil)

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[playerv1.GetStateRequest],
) (*connect.Response[playerv1.GetStateResponse], error) {
	status := s.session.GetStatus()
	return connect.NewResponse(&playerv1.GetStateResponse{
		State: session.BuildPlayerState(status.State),
	}), nil
}

// PlayTrack plays the track at the requested index.
func (s *PlayerService) PlayTrack(
	ctx context.Context,
	req *connect.Request[playerv1.PlayTrackRequest],
) (*connect.Response[playerv1.CommandResponse], error) {
	return s.command("play track", s.session.PlayTrack(int(req.Msg.Index)))
}

// Toggle toggles between playing and paused.
func (s *PlayerService) Toggle(
	ctx context.Context,
	req *connect.Request[playerv1.ToggleRequest],
) (*connect.Response[playerv1.CommandResponse], error) {
	return s.command("toggle", s.session.Toggle())
}

// Previous plays the previous track.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[playerv1.PreviousRequest],
) (*connect.Response[playerv1.CommandResponse], error) {
	return s.command("previous", s.session.Previous())
}

// Next plays the next track.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[playerv1.NextRequest],
) (*connect.Response[playerv1.CommandResponse], error) {
	return s.command("next", s.session.Next())
}

// Seek moves playback to a fraction of the current track.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[playerv1.SeekRequest],
) (*connect.Response[playerv1.CommandResponse], error) {
	return s.command("seek", s.session.Seek(req.Msg.Fraction))
}

// SeekAt seeks to the position clicked on a seek bar.
func (s *PlayerService) SeekAt(
	ctx context.Context,
	req *connect.Request[playerv1.SeekAtRequest],
) (*connect.Response[playerv1.CommandResponse], error) {
	return s.command("seek at", s.session.SeekAt(req.Msg.PointerX, req.Msg.Left, req.Msg.Width))
}

// Subscribe streams state notifications, starting with the current state.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[playerv1.SubscribeRequest],
	stream *connect.ServerStream[playerv1.Notification],
) error {
	notifManager := s.session.GetNotificationManager()

	// Subscribe before reading the state so no change is lost in between
	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := notifManager.Subscribe(adapter)
	defer notifManager.Unsubscribe(subscriptionID)

	adapter.mu.Lock()
	err := stream.Send(&playerv1.Notification{
		Type:       playerv1.NotificationTypeInitialState,
		SequenceNo: notifManager.NextSequenceNo(),
		State:      session.BuildPlayerState(s.session.GetStatus().State),
	})
	adapter.mu.Unlock()
	if err != nil {
		return err
	}

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
	return nil
}

// command converts a session command result into a response.
// Rejected arguments become connect errors; media failures are reported in
// the response so the caller still receives the state.
func (s *PlayerService) command(op string, err error) (*connect.Response[playerv1.CommandResponse], error) {
	state := session.BuildPlayerState(s.session.GetStatus().State)
	if err == nil {
		return connect.NewResponse(&playerv1.CommandResponse{
			Success: true,
			State:   state,
		}), nil
	}

	switch {
	case errors.Is(err, playback.ErrInvalidIndex),
		errors.Is(err, playback.ErrInvalidFraction),
		errors.Is(err, playback.ErrInvalidGeometry):
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, playback.ErrInactive), errors.Is(err, playback.ErrClosed):
		return nil, connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, playback.ErrUnknownDuration), errors.Is(err, playback.ErrMediaCommand):
		zlog.Debug().Err(err).Msgf("connect: %s not applied", op)
		return connect.NewResponse(&playerv1.CommandResponse{
			Success: false,
			Message: err.Error(),
			State:   state,
		}), nil
	default:
		return nil, connect.NewError(connect.CodeInternal, err)
	}
}
