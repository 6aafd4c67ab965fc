package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"

	"github.com/osa030/ringdeck/internal/api/playerv1/playerv1connect"
)

var errQuit = errors.New("quit")

const shellHelp = `Commands:
  state             show the player state
  play <index>      play the track at index
  toggle            toggle play/pause
  prev | next       move through the playlist
  seek <fraction>   seek to a fraction of the current track (0.0 - 1.0)
  help              show this help
  quit              leave the shell`

// shellCommand is one parsed shell line.
type shellCommand struct {
	name     string
	index    int32
	fraction float64
}

// parseLine parses a shell line. Empty lines return an empty command.
func parseLine(line string) (shellCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return shellCommand{}, nil
	}

	cmd := shellCommand{name: strings.ToLower(fields[0])}
	args := fields[1:]

	switch cmd.name {
	case "state", "status", "toggle", "prev", "previous", "next", "help", "quit", "exit":
		if len(args) != 0 {
			return shellCommand{}, errors.Newf("%s takes no arguments", cmd.name)
		}
	case "play":
		if len(args) != 1 {
			return shellCommand{}, errors.New("usage: play <index>")
		}
		index, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return shellCommand{}, errors.Newf("invalid index: %s", args[0])
		}
		cmd.index = int32(index)
	case "seek":
		if len(args) != 1 {
			return shellCommand{}, errors.New("usage: seek <fraction>")
		}
		fraction, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return shellCommand{}, errors.Newf("invalid fraction: %s", args[0])
		}
		cmd.fraction = fraction
	default:
		return shellCommand{}, errors.Newf("unknown command: %s (try help)", cmd.name)
	}
	return cmd, nil
}

func execute(ctx context.Context, client playerv1connect.PlayerServiceClient, cmd shellCommand) error {
	switch cmd.name {
	case "":
		return nil
	case "state", "status":
		return showState(ctx, client)
	case "play":
		return playTrack(ctx, client, cmd.index)
	case "toggle":
		return toggle(ctx, client)
	case "prev", "previous":
		return previous(ctx, client)
	case "next":
		return next(ctx, client)
	case "seek":
		return seek(ctx, client, cmd.fraction)
	case "help":
		fmt.Println(shellHelp)
		return nil
	case "quit", "exit":
		return errQuit
	}
	return errors.Newf("unknown command: %s", cmd.name)
}

// runShell reads commands until quit, EOF, or ctx is done.
func runShell(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "ringdeck> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("state"),
			readline.PcItem("play"),
			readline.PcItem("toggle"),
			readline.PcItem("prev"),
			readline.PcItem("next"),
			readline.PcItem("seek"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return errors.Wrap(err, "failed to start shell")
	}
	defer rl.Close()

	fmt.Println(shellHelp)
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		cmd, err := parseLine(line)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		if err := execute(ctx, client, cmd); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Printf("Error: %v\n", err)
		}
	}
	return nil
}
