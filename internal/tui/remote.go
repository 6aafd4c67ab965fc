package tui

import (
	"context"

	"connectrpc.com/connect"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/ringdeck/internal/api/playerv1"
	"github.com/osa030/ringdeck/internal/api/playerv1/playerv1connect"
)

// Remote drives a player server through its RPC client.
type Remote struct {
	client playerv1connect.PlayerServiceClient
}

// NewRemote creates a new Remote.
func NewRemote(client playerv1connect.PlayerServiceClient) *Remote {
	return &Remote{client: client}
}

// Toggle toggles playback.
func (r *Remote) Toggle(ctx context.Context) (*playerv1.PlayerState, error) {
	resp, err := r.client.Toggle(ctx, connect.NewRequest(&playerv1.ToggleRequest{}))
	return commandResult(resp, err)
}

// Previous moves to the previous track.
func (r *Remote) Previous(ctx context.Context) (*playerv1.PlayerState, error) {
	resp, err := r.client.Previous(ctx, connect.NewRequest(&playerv1.PreviousRequest{}))
	return commandResult(resp, err)
}

// Next moves to the next track.
func (r *Remote) Next(ctx context.Context) (*playerv1.PlayerState, error) {
	resp, err := r.client.Next(ctx, connect.NewRequest(&playerv1.NextRequest{}))
	return commandResult(resp, err)
}

// SeekAt seeks to the position of a click on the progress bar.
func (r *Remote) SeekAt(ctx context.Context, pointerX, left, width float64) (*playerv1.PlayerState, error) {
	resp, err := r.client.SeekAt(ctx, connect.NewRequest(&playerv1.SeekAtRequest{
		PointerX: pointerX,
		Left:     left,
		Width:    width,
	}))
	return commandResult(resp, err)
}

// Watch forwards server notifications to the program until ctx is done
// or the stream ends.
func (r *Remote) Watch(ctx context.Context, p interface{ Send(tea.Msg) }) {
	stream, err := r.client.Subscribe(ctx, connect.NewRequest(&playerv1.SubscribeRequest{}))
	if err != nil {
		p.Send(DisconnectedMsg{Err: err})
		return
	}
	defer stream.Close()

	for stream.Receive() {
		n := stream.Msg()
		zlog.Debug().Msgf("tui: notification: type=%s seq=%d", n.Type, n.SequenceNo)
		if n.State != nil {
			p.Send(StateMsg{State: n.State})
		}
	}
	if ctx.Err() != nil {
		return
	}
	err = stream.Err()
	if err == nil {
		err = errors.New("server closed the stream")
	}
	p.Send(DisconnectedMsg{Err: err})
}

// Run shows the player view until the user quits.
func Run(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	remote := NewRemote(client)
	p := tea.NewProgram(NewModel(remote), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	go remote.Watch(ctx, p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "tui failed")
	}
	return nil
}

func commandResult(resp *connect.Response[playerv1.CommandResponse], err error) (*playerv1.PlayerState, error) {
	if err != nil {
		return nil, err
	}
	if !resp.Msg.Success {
		return resp.Msg.State, errors.New(resp.Msg.Message)
	}
	return resp.Msg.State, nil
}
