// Package main provides the player control CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/ringdeck/internal/api/connect"
	"github.com/osa030/ringdeck/internal/api/playerv1/playerv1connect"
	"github.com/osa030/ringdeck/internal/infra/logger"
	"github.com/osa030/ringdeck/internal/tui"
)

var (
	app     = kingpin.New("ringdeck-playerctl", "ringdeck player control client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Control token (or set CONTROL_TOKEN env)").Envar("CONTROL_TOKEN").String()
	verbose = app.Flag("verbose", "Enable verbose (DEBUG) logging to stderr").Short('v').Bool()

	// state command
	stateCmd = app.Command("state", "Show the player state").Alias("status")

	// play command
	playCmd   = app.Command("play", "Play the track at index")
	playIndex = playCmd.Arg("index", "Track index (0-based)").Required().Int32()

	// toggle command
	toggleCmd = app.Command("toggle", "Toggle play/pause")

	// prev command
	prevCmd = app.Command("prev", "Play the previous track").Alias("previous")

	// next command
	nextCmd = app.Command("next", "Play the next track")

	// seek command
	seekCmd      = app.Command("seek", "Seek to a fraction of the current track")
	seekFraction = seekCmd.Arg("fraction", "Position as a fraction (0.0 - 1.0)").Required().Float64()

	// watch command
	watchCmd = app.Command("watch", "Print state notifications")

	// tui command
	tuiCmd = app.Command("tui", "Open the interactive player view")

	// shell command
	shellCmd = app.Command("shell", "Open an interactive command shell")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// The TUI owns the terminal; logs are discarded unless asked for
	loggerConfig := logger.Config{Output: "discard", Level: "info"}
	if *verbose {
		loggerConfig = logger.Config{Output: "stderr", Level: "debug"}
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Create client
	client := playerv1connect.NewPlayerServiceClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewControlTokenClientInterceptor(*token)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Execute command
	var err error
	switch command {
	case stateCmd.FullCommand():
		err = showState(ctx, client)
	case playCmd.FullCommand():
		err = playTrack(ctx, client, *playIndex)
	case toggleCmd.FullCommand():
		err = toggle(ctx, client)
	case prevCmd.FullCommand():
		err = previous(ctx, client)
	case nextCmd.FullCommand():
		err = next(ctx, client)
	case seekCmd.FullCommand():
		err = seek(ctx, client, *seekFraction)
	case watchCmd.FullCommand():
		err = watch(ctx, client)
	case tuiCmd.FullCommand():
		err = tui.Run(ctx, client)
	case shellCmd.FullCommand():
		err = runShell(ctx, client)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
