// Command connect-x starts the connect-x game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the modes and data directories, the save store
// backend, logging, the default CPU difficulty, and optional ngrok tunneling
// for easy external access during development. Every flag can also be set
// through its environment variable or a .env file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/connect-x/api"
	"github.com/wricardo/connect-x/game/config"
	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/replay"
	"github.com/wricardo/connect-x/game/service"
	"github.com/wricardo/connect-x/game/session"
	"github.com/wricardo/connect-x/game/stats"
	"github.com/wricardo/connect-x/game/store"
	"github.com/wricardo/connect-x/transport/mcp"
	"github.com/wricardo/connect-x/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "connect-x Server"
)

// Save store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// serverConfig is the resolved command line configuration
type serverConfig struct {
	Host          string
	Port          int
	ModesDir      string
	DataDir       string
	Store         string
	Debug         bool
	Pretty        bool
	Difficulty    int
	DifficultySet bool
	CpuDwell      time.Duration
	StepDwell     time.Duration
	ReplaySlots   int
	Ngrok         bool
	NgrokAuth     string
	NgrokDomain   string
}

func (c serverConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// flags are declared on the root command and inherited by subcommands
func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "modes-dir", Value: "modes", Usage: "directory containing <id>.json mode files", Sources: cli.EnvVars("MODES_DIR")},
		&cli.StringFlag{Name: "data-dir", Value: "data", Usage: "directory for the save store and sessions", Sources: cli.EnvVars("DATA_DIR")},
		&cli.StringFlag{Name: "store", Value: StoreFile, Usage: "save store backend: file, sqlite or memory", Sources: cli.EnvVars("STORE")},
		&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("DEBUG")},
		&cli.BoolFlag{Name: "pretty", Usage: "human readable console logs", Sources: cli.EnvVars("LOG_PRETTY")},
		&cli.IntFlag{Name: "difficulty", Value: engine.DefaultDifficulty, Usage: "default CPU difficulty (0-100), saved as a setting when given", Sources: cli.EnvVars("DIFFICULTY")},
		&cli.DurationFlag{Name: "cpu-dwell", Value: engine.DefaultCpuDwell, Usage: "pause clients take before asking for the CPU move", Sources: cli.EnvVars("CPU_DWELL")},
		&cli.DurationFlag{Name: "step-dwell", Value: engine.DefaultStepDwell, Usage: "pause between replay steps", Sources: cli.EnvVars("STEP_DWELL")},
		&cli.IntFlag{Name: "replay-slots", Value: replay.DefaultSlots, Usage: "number of replay slots", Sources: cli.EnvVars("REPLAY_SLOTS")},
		&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

func configFromCommand(cmd *cli.Command) serverConfig {
	return serverConfig{
		Host:          cmd.String("host"),
		Port:          cmd.Int("port"),
		ModesDir:      cmd.String("modes-dir"),
		DataDir:       cmd.String("data-dir"),
		Store:         cmd.String("store"),
		Debug:         cmd.Bool("debug"),
		Pretty:        cmd.Bool("pretty"),
		Difficulty:    cmd.Int("difficulty"),
		DifficultySet: cmd.IsSet("difficulty"),
		CpuDwell:      cmd.Duration("cpu-dwell"),
		StepDwell:     cmd.Duration("step-dwell"),
		ReplaySlots:   cmd.Int("replay-slots"),
		Ngrok:         cmd.Bool("ngrok"),
		NgrokAuth:     cmd.String("ngrok-auth"),
		NgrokDomain:   cmd.String("ngrok-domain"),
	}
}

// newApp builds the command tree. "server" is the default action.
func newApp() *cli.Command {
	runServer := func(ctx context.Context, cmd *cli.Command) error {
		cfg := configFromCommand(cmd)
		setupLogging(cfg.Debug, cfg.Pretty)
		log.Info().Str("version", Version).Str("mode", "server").Msg("starting " + AppName)

		svcs, err := initializeServices(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Close()

		return runHTTPServer(ctx, cfg, svcs)
	}

	runStdio := func(ctx context.Context, cmd *cli.Command) error {
		cfg := configFromCommand(cmd)
		// stdout carries the MCP protocol, logs go to stderr only
		setupLogging(cfg.Debug, cfg.Pretty)
		log.Info().Str("version", Version).Str("mode", "stdio-mcp").Msg("starting " + AppName)

		svcs, err := initializeServices(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Close()

		return runStdioMCPWithInternalServer(ctx, cfg, svcs)
	}

	return &cli.Command{
		Name:    "connect-x",
		Usage:   "connect-K game server with REST, WebSocket and MCP interfaces",
		Version: Version,
		Flags:   flags(),
		Action:  runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdio,
			},
		},
	}
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	setupLogging(false, false)
	if envErr == nil {
		log.Info().Msg("loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("error loading .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// setupLogging sets the global level from LOG_LEVEL (overridden by debug)
// and switches to console output when pretty is set
func setupLogging(debug, pretty bool) {
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if debug {
		log.Logger = log.Logger.With().Caller().Logger()
	}
}

// services holds everything the transports need
type services struct {
	Game        service.GameService
	Sessions    *session.Manager
	Persistence session.SessionPersistence
	Saves       store.Store
}

func (s *services) Close() {
	if s.Sessions != nil {
		if err := s.Sessions.SaveAllSessions(); err != nil {
			log.Warn().Err(err).Msg("failed to save sessions on shutdown")
		}
	}
	if err := s.Saves.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close save store")
	}
}

// openStore opens the save store backend under dataDir
func openStore(kind, dataDir string) (store.Store, error) {
	switch kind {
	case StoreFile:
		return store.NewFileStore(filepath.Join(dataDir, "save.json"))
	case StoreSQLite:
		return store.OpenSQLite(filepath.Join(dataDir, "save.db"))
	case StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store %q (use %s, %s or %s)", kind, StoreFile, StoreSQLite, StoreMemory)
	}
}

// initializeServices wires the save store, mode catalog, session manager,
// replay pool and stats into the game service. It also starts background
// routines that prune stale sessions and playbacks until ctx is done.
func initializeServices(ctx context.Context, cfg serverConfig) (*services, error) {
	if cfg.Difficulty < engine.MinDifficulty || cfg.Difficulty > engine.MaxDifficulty {
		return nil, fmt.Errorf("difficulty must be between %d and %d, got %d", engine.MinDifficulty, engine.MaxDifficulty, cfg.Difficulty)
	}

	saves, err := openStore(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open save store: %w", err)
	}
	svcs := &services{Saves: saves}

	fail := func(err error) (*services, error) {
		saves.Close()
		return nil, err
	}

	if cfg.ModesDir != "" {
		if err := os.MkdirAll(cfg.ModesDir, 0755); err != nil {
			return fail(fmt.Errorf("failed to create modes directory: %w", err))
		}
	}
	configManager, err := config.NewManager(cfg.ModesDir)
	if err != nil {
		return fail(fmt.Errorf("failed to create config manager: %w", err))
	}

	defaultMode, err := store.Load[string](ctx, saves, store.Setting(store.SettingDefaultMode))
	if err != nil {
		return fail(fmt.Errorf("failed to read settings: %w", err))
	}
	if err := configManager.SetDefault(defaultMode); err != nil {
		log.Warn().Str("mode", defaultMode).Err(err).Msg("saved default mode unavailable, using " + config.DefaultModeID)
	}

	if cfg.DifficultySet {
		if err := store.Save(ctx, saves, store.Setting(store.SettingDifficulty), cfg.Difficulty); err != nil {
			return fail(fmt.Errorf("failed to save difficulty: %w", err))
		}
	}

	// Sessions survive restarts unless everything lives in memory
	var sessionManager *session.Manager
	if cfg.Store == StoreMemory {
		sessionManager = session.NewManager()
	} else {
		persistence, err := session.NewFilePersistence(filepath.Join(cfg.DataDir, "sessions"))
		if err != nil {
			return fail(fmt.Errorf("failed to create session persistence: %w", err))
		}
		svcs.Persistence = persistence
		sessionManager = session.NewManagerWithPersistence(persistence)

		if err := sessionManager.LoadPersistedSessions(); err != nil {
			log.Warn().Err(err).Msg("failed to load persisted sessions")
		}
	}
	svcs.Sessions = sessionManager

	tracker, err := stats.Load(ctx, saves)
	if err != nil {
		return fail(err)
	}

	svcs.Game = service.NewGameService(
		sessionManager,
		configManager,
		saves,
		replay.NewPool(saves, cfg.ReplaySlots),
		tracker,
		service.WithCpuDwell(cfg.CpuDwell),
		service.WithStepDwell(cfg.StepDwell),
	)

	go sessionCleanupRoutine(ctx, sessionManager)
	go playbackCleanupRoutine(ctx, svcs.Game)
	if svcs.Persistence != nil {
		go filesystemSyncRoutine(ctx, sessionManager, svcs.Persistence)
	}
	if cfg.ModesDir != "" {
		go modeRefreshRoutine(ctx, configManager, time.Minute)
	}

	log.Info().
		Str("store", cfg.Store).
		Str("data_dir", cfg.DataDir).
		Str("modes_dir", cfg.ModesDir).
		Str("default_mode", configManager.GetDefault().ID).
		Int("sessions", sessionManager.Count()).
		Msg("services initialized")

	return svcs, nil
}

// newMCPHandler serves single JSON-RPC messages for the MCP client
func newMCPHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API server at root and the MCP proxy at /mcp
func newRouter(gameService service.GameService, hub *websocket.Hub, baseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(gameService, hub))
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcp.NewClient(baseURL)))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. It returns once ctx is done.
func runHTTPServer(ctx context.Context, cfg serverConfig, svcs *services) error {
	hub := websocket.NewHub()
	go hub.Run()

	addr := cfg.addr()
	mainRouter := newRouter(svcs.Game, hub, fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().Str("addr", addr).Msg("HTTP server listening")
		log.Info().Msgf("REST API: http://%s/api", addr)
		log.Info().Msgf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if cfg.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-serveErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")
	return err
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, cfg serverConfig, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info().Msg("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Info().Str("domain", cfg.NgrokDomain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.Info().Str("url", ngrokURL).Msg("ngrok tunnel established")
	log.Info().Msgf("  REST API (ngrok): %s/api", ngrokURL)
	log.Info().Msgf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Info().Msgf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(24 * time.Hour); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}
		}
	}
}

// playbackCleanupRoutine drops replay playbacks nobody has stepped for a while
func playbackCleanupRoutine(ctx context.Context, gameService service.GameService) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := gameService.CleanupPlaybacks(30 * time.Minute); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up idle playbacks")
			}
		}
	}
}

// filesystemSyncRoutine periodically syncs in-memory sessions with filesystem state.
// It removes sessions from memory when their corresponding files are deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pruned := 0
		for _, sess := range manager.List() {
			if persistence.Exists(sess.ID) {
				continue
			}
			if err := manager.DeleteFromMemory(sess.ID); err == nil {
				pruned++
				log.Debug().Str("session", sess.ID).Msg("pruned session from memory (file deleted)")
			}
		}

		if pruned > 0 {
			log.Info().Int("pruned", pruned).Msg("filesystem sync pruned orphaned sessions")
		}
	}
}

// modeRefreshRoutine drops cached modes every interval so edited mode files
// are read again
func modeRefreshRoutine(ctx context.Context, modes *config.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := modes.RefreshCache(); err != nil {
				log.Warn().Err(err).Msg("failed to refresh mode cache")
			}
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg serverConfig, svcs *services) error {
	externalURL := fmt.Sprintf("http://%s", cfg.addr())
	log.Info().Str("url", externalURL).Msg("checking for external API server")

	baseURL := externalURL
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Info().Str("url", externalURL).Msg("external API server found, using it for MCP")
	} else {
		log.Info().Msg("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internalAddr := listener.Addr().String()
		baseURL = fmt.Sprintf("http://%s", internalAddr)
		log.Info().Str("addr", internalAddr).Msg("starting internal HTTP server for MCP stdio")

		hub := websocket.NewHub()
		go hub.Run()

		httpServer := &http.Server{Handler: api.NewServer(svcs.Game, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	stdio := server.NewStdioServer(mcpClient.GetMCPServer())
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
