package main

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	playerv1 "github.com/osa030/ringdeck/internal/api/playerv1"
	"github.com/osa030/ringdeck/internal/api/playerv1/playerv1connect"
)

func showState(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	resp, err := client.GetState(ctx, connect.NewRequest(&playerv1.GetStateRequest{}))
	if err != nil {
		return err
	}
	printState(resp.Msg.State)
	return nil
}

func playTrack(ctx context.Context, client playerv1connect.PlayerServiceClient, index int32) error {
	resp, err := client.PlayTrack(ctx, connect.NewRequest(&playerv1.PlayTrackRequest{Index: index}))
	return printCommand(resp, err)
}

func toggle(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	resp, err := client.Toggle(ctx, connect.NewRequest(&playerv1.ToggleRequest{}))
	return printCommand(resp, err)
}

func previous(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	resp, err := client.Previous(ctx, connect.NewRequest(&playerv1.PreviousRequest{}))
	return printCommand(resp, err)
}

func next(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	resp, err := client.Next(ctx, connect.NewRequest(&playerv1.NextRequest{}))
	return printCommand(resp, err)
}

func seek(ctx context.Context, client playerv1connect.PlayerServiceClient, fraction float64) error {
	resp, err := client.Seek(ctx, connect.NewRequest(&playerv1.SeekRequest{Fraction: fraction}))
	return printCommand(resp, err)
}

func watch(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	stream, err := client.Subscribe(ctx, connect.NewRequest(&playerv1.SubscribeRequest{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	// Receive notifications
	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if ctx.Err() != nil {
		fmt.Println("\nUnsubscribed.")
		return nil
	}
	if err := stream.Err(); err != nil {
		return errors.Wrap(err, "stream error")
	}
	return nil
}

func printCommand(resp *connect.Response[playerv1.CommandResponse], err error) error {
	if err != nil {
		return err
	}
	if resp.Msg.Success {
		fmt.Println("OK")
	} else {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
	}
	printState(resp.Msg.State)
	return nil
}

func printNotification(n *playerv1.Notification) {
	fmt.Printf("\n[Sequence: %d] === %s ===\n", n.SequenceNo, n.Type)
	if n.Error != "" {
		fmt.Printf("  Error: %s\n", n.Error)
	}
	printState(n.State)
}

func printState(s *playerv1.PlayerState) {
	if s == nil {
		return
	}

	transport := "⏸  Paused"
	if s.IsPlaying {
		transport = "▶️  Playing"
	}
	fmt.Printf("  State: %s\n", transport)
	fmt.Printf("  Track: %d/%d\n", s.CurrentIndex+1, s.TrackCount)
	if s.Track != nil {
		fmt.Printf("  Name: %s\n", s.Track.Name)
		fmt.Printf("  Artist: %s\n", s.Track.Artist)
		fmt.Printf("  Audio URL: %s\n", s.Track.AudioUrl)
		if s.Track.CoverImageUrl != "" {
			fmt.Printf("  Cover: %s\n", s.Track.CoverImageUrl)
		}
	}
	fmt.Printf("  Progress: %.1f%%\n", s.ProgressFraction*100)
	if s.HasRemaining {
		fmt.Printf("  Remaining: %s\n", s.RemainingText)
	}
}
