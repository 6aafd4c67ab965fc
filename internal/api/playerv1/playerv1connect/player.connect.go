// Package playerv1connect provides the connect client and handler for the
// player.v1.PlayerService API.
package playerv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	playerv1 "github.com/osa030/ringdeck/internal/api/playerv1"
)

// PlayerServiceName is the fully-qualified name of the PlayerService service.
const PlayerServiceName = "player.v1.PlayerService"

// Procedure paths.
const (
	PlayerServiceGetStateProcedure  = "/player.v1.PlayerService/GetState"
	PlayerServicePlayTrackProcedure = "/player.v1.PlayerService/PlayTrack"
	PlayerServiceToggleProcedure    = "/player.v1.PlayerService/Toggle"
	PlayerServicePreviousProcedure  = "/player.v1.PlayerService/Previous"
	PlayerServiceNextProcedure      = "/player.v1.PlayerService/Next"
	PlayerServiceSeekProcedure      = "/player.v1.PlayerService/Seek"
	PlayerServiceSeekAtProcedure    = "/player.v1.PlayerService/SeekAt"
	PlayerServiceSubscribeProcedure = "/player.v1.PlayerService/Subscribe"
)

// CommandProcedures lists the procedures that change player state.
var CommandProcedures = map[string]bool{
	PlayerServicePlayTrackProcedure: true,
	PlayerServiceToggleProcedure:    true,
	PlayerServicePreviousProcedure:  true,
	PlayerServiceNextProcedure:      true,
	PlayerServiceSeekProcedure:      true,
	PlayerServiceSeekAtProcedure:    true,
}

// PlayerServiceClient is a client for the player.v1.PlayerService service.
type PlayerServiceClient interface {
	GetState(context.Context, *connect.Request[playerv1.GetStateRequest]) (*connect.Response[playerv1.GetStateResponse], error)
	PlayTrack(context.Context, *connect.Request[playerv1.PlayTrackRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Toggle(context.Context, *connect.Request[playerv1.ToggleRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Previous(context.Context, *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Next(context.Context, *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Seek(context.Context, *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.CommandResponse], error)
	SeekAt(context.Context, *connect.Request[playerv1.SeekAtRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Subscribe(context.Context, *connect.Request[playerv1.SubscribeRequest]) (*connect.ServerStreamForClient[playerv1.Notification], error)
}

// NewPlayerServiceClient constructs a client for the player.v1.PlayerService
// service. The JSON codec is always installed.
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &playerServiceClient{
		getState:  connect.NewClient[playerv1.GetStateRequest, playerv1.GetStateResponse](httpClient, baseURL+PlayerServiceGetStateProcedure, opts...),
		playTrack: connect.NewClient[playerv1.PlayTrackRequest, playerv1.CommandResponse](httpClient, baseURL+PlayerServicePlayTrackProcedure, opts...),
		toggle:    connect.NewClient[playerv1.ToggleRequest, playerv1.CommandResponse](httpClient, baseURL+PlayerServiceToggleProcedure, opts...),
		previous:  connect.NewClient[playerv1.PreviousRequest, playerv1.CommandResponse](httpClient, baseURL+PlayerServicePreviousProcedure, opts...),
		next:      connect.NewClient[playerv1.NextRequest, playerv1.CommandResponse](httpClient, baseURL+PlayerServiceNextProcedure, opts...),
		seek:      connect.NewClient[playerv1.SeekRequest, playerv1.CommandResponse](httpClient, baseURL+PlayerServiceSeekProcedure, opts...),
		seekAt:    connect.NewClient[playerv1.SeekAtRequest, playerv1.CommandResponse](httpClient, baseURL+PlayerServiceSeekAtProcedure, opts...),
		subscribe: connect.NewClient[playerv1.SubscribeRequest, playerv1.Notification](httpClient, baseURL+PlayerServiceSubscribeProcedure, opts...),
	}
}

type playerServiceClient struct {
	getState  *connect.Client[playerv1.GetStateRequest, playerv1.GetStateResponse]
	playTrack *connect.Client[playerv1.PlayTrackRequest, playerv1.CommandResponse]
	toggle    *connect.Client[playerv1.ToggleRequest, playerv1.CommandResponse]
	previous  *connect.Client[playerv1.PreviousRequest, playerv1.CommandResponse]
	next      *connect.Client[playerv1.NextRequest, playerv1.CommandResponse]
	seek      *connect.Client[playerv1.SeekRequest, playerv1.CommandResponse]
	seekAt    *connect.Client[playerv1.SeekAtRequest, playerv1.CommandResponse]
	subscribe *connect.Client[playerv1.SubscribeRequest, playerv1.Notification]
}

func (c *playerServiceClient) GetState(ctx context.Context, req *connect.Request[playerv1.GetStateRequest]) (*connect.Response[playerv1.GetStateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

func (c *playerServiceClient) PlayTrack(ctx context.Context, req *connect.Request[playerv1.PlayTrackRequest]) (*connect.Response[playerv1.CommandResponse], error) {
	return c.playTrack.CallUnary(ctx, req)
}

func (c *playerServiceClient) Toggle(ctx context.Context, req *connect.Request[playerv1.ToggleRequest]) (*connect.Response[playerv1.CommandResponse], error) {
	return c.toggle.CallUnary(ctx, req)
}

func (c *playerServiceClient) Previous(ctx context.Context, req *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.CommandResponse], error) {
	return c.previous.CallUnary(ctx, req)
}

func (c *playerServiceClient) Next(ctx context.Context, req *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.CommandResponse], error) {
	return c.next.CallUnary(ctx, req)
}

func (c *playerServiceClient) Seek(ctx context.Context, req *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.CommandResponse], error) {
	return c.seek.CallUnary(ctx, req)
}

func (c *playerServiceClient) SeekAt(ctx context.Context, req *connect.Request[playerv1.SeekAtRequest]) (*connect.Response[playerv1.CommandResponse], error) {
	return c.seekAt.CallUnary(ctx, req)
}

func (c *playerServiceClient) Subscribe(ctx context.Context, req *connect.Request[playerv1.SubscribeRequest]) (*connect.ServerStreamForClient[playerv1.Notification], error) {
	return c.subscribe.CallServerStream(ctx, req)
}

// PlayerServiceHandler is implemented by the server side of the service.
type PlayerServiceHandler interface {
	GetState(context.Context, *connect.Request[playerv1.GetStateRequest]) (*connect.Response[playerv1.GetStateResponse], error)
	PlayTrack(context.Context, *connect.Request[playerv1.PlayTrackRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Toggle(context.Context, *connect.Request[playerv1.ToggleRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Previous(context.Context, *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Next(context.Context, *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Seek(context.Context, *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.CommandResponse], error)
	SeekAt(context.Context, *connect.Request[playerv1.SeekAtRequest]) (*connect.Response[playerv1.CommandResponse], error)
	Subscribe(context.Context, *connect.Request[playerv1.SubscribeRequest], *connect.ServerStream[playerv1.Notification]) error
}

// NewPlayerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	handlers := map[string]http.Handler{
		PlayerServiceGetStateProcedure:  connect.NewUnaryHandler(PlayerServiceGetStateProcedure, svc.GetState, opts...),
		PlayerServicePlayTrackProcedure: connect.NewUnaryHandler(PlayerServicePlayTrackProcedure, svc.PlayTrack, opts...),
		PlayerServiceToggleProcedure:    connect.NewUnaryHandler(PlayerServiceToggleProcedure, svc.Toggle, opts...),
		PlayerServicePreviousProcedure:  connect.NewUnaryHandler(PlayerServicePreviousProcedure, svc.Previous, opts...),
		PlayerServiceNextProcedure:      connect.NewUnaryHandler(PlayerServiceNextProcedure, svc.Next, opts...),
		PlayerServiceSeekProcedure:      connect.NewUnaryHandler(PlayerServiceSeekProcedure, svc.Seek, opts...),
		PlayerServiceSeekAtProcedure:    connect.NewUnaryHandler(PlayerServiceSeekAtProcedure, svc.SeekAt, opts...),
		PlayerServiceSubscribeProcedure: connect.NewServerStreamHandler(PlayerServiceSubscribeProcedure, svc.Subscribe, opts...),
	}

	return "/" + PlayerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
