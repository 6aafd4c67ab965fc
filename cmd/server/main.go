// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/ringdeck/internal/api/connect"
	"github.com/osa030/ringdeck/internal/api/playerv1/playerv1connect"
	"github.com/osa030/ringdeck/internal/app/enrich"
	"github.com/osa030/ringdeck/internal/app/playback"
	"github.com/osa030/ringdeck/internal/app/session"
	"github.com/osa030/ringdeck/internal/domain/playlist"
	"github.com/osa030/ringdeck/internal/infra/config"
	"github.com/osa030/ringdeck/internal/infra/logger"
	"github.com/osa030/ringdeck/internal/infra/media"
	"github.com/osa030/ringdeck/internal/infra/playliststore"
	"github.com/osa030/ringdeck/internal/infra/spotify"
)

const (
	clockQuantum   = 20 * time.Millisecond
	speakerBuffer  = 100 * time.Millisecond
	loadTimeout    = 2 * time.Minute
	shutdownPeriod = 10 * time.Second
)

var (
	app        = kingpin.New("ringdeck-server", "ringdeck playlist player server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-tracks command
	listTracksCmd = app.Command("list-tracks", "Load and print the playlist, then exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == listTracksCmd.FullCommand() {
		if err := listTracks(cfg); err != nil {
			zlog.Fatal().Msgf("Failed to load playlist: %v", err)
		}
		return
	}

	// Run server (defer ensures cleanup is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	pl, err := loadPlaylist(ctx, cfg)
	if err != nil {
		return err
	}

	// Create media
	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	deck := media.NewDeck(sink, media.Config{
		PositionInterval: cfg.PositionInterval(),
		FetchTimeout:     cfg.FetchTimeout(),
	})
	defer deck.Close()

	// Create session manager
	controller, err := playback.NewController(pl, deck, playback.Config{
		Autoplay: cfg.Player.Autoplay,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create playback controller")
	}
	sessionMgr := session.NewManager(controller, session.Config{
		ProgressInterval: cfg.ProgressInterval(),
	})

	// Create RPC service
	playerService := apiconnect.NewPlayerService(sessionMgr)

	// Create HTTP mux
	mux := http.NewServeMux()

	// Register service with control token interceptor
	controlInterceptor := apiconnect.NewControlAuthInterceptor(cfg.Server.ControlToken)
	playerPath, playerHandler := playerv1connect.NewPlayerServiceHandler(
		playerService,
		connect.WithInterceptors(controlInterceptor),
	)
	mux.Handle(playerPath, playerHandler)
	if cfg.Server.ControlToken == "" {
		zlog.Warn().Msg("Control token not configured, commands are open to every client")
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)

	// Start session
	if err := sessionMgr.Start(); err != nil {
		return errors.Wrap(err, "failed to start session")
	}

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal, session end, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		sessionMgr.Close()
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	// Close session manager first to terminate active streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// loadPlaylist loads the configured playlist and fills missing metadata.
func loadPlaylist(ctx context.Context, cfg *config.Config) (*playlist.Playlist, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	// Spotify client is only needed by the spotify store
	var spotifyClient playliststore.SpotifyClient
	if cfg.Playlist.Type == config.PlaylistTypeSpotify {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Spotify client")
		}
		spotifyClient = client
	}

	store, err := playliststore.NewStoreFromConfig(cfg, spotifyClient)
	if err != nil {
		return nil, err
	}

	zlog.Info().Msgf("Loading playlist: store=%s", store.Name())
	pl, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load playlist from %s store", store.Name())
	}

	chain, err := enrich.NewChainFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	pl, err = chain.Apply(ctx, pl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enrich playlist")
	}

	zlog.Info().Msgf("Playlist loaded: artist=%s tracks=%d", pl.ArtistName(), pl.Len())
	return pl, nil
}

// newSink creates the audio output selected by configuration.
func newSink(cfg *config.Config) (media.Sink, error) {
	switch cfg.Player.Output {
	case config.OutputSpeaker:
		sink, err := media.NewSpeakerSink(media.DefaultSampleRate, speakerBuffer)
		if err != nil {
			return nil, err
		}
		zlog.Info().Msg("Audio output: speaker")
		return sink, nil
	default:
		zlog.Info().Msg("Audio output: clock (headless)")
		return media.NewClockSink(media.DefaultSampleRate, clockQuantum), nil
	}
}

// listTracks prints the playlist the server would play.
func listTracks(cfg *config.Config) error {
	pl, err := loadPlaylist(context.Background(), cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Artist: %s\n", pl.ArtistName())
	for i, t := range pl.Tracks() {
		fmt.Printf("  %3d  %-40s %-24s %s\n", i, t.DisplayName(), t.DisplayArtist(pl.ArtistName()), t.AudioURL)
	}
	return nil
}
