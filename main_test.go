package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/connect-x/game/config"
	"github.com/wricardo/connect-x/game/engine"
	"github.com/wricardo/connect-x/game/service"
	"github.com/wricardo/connect-x/game/store"
	"github.com/wricardo/connect-x/transport/websocket"
)

func testConfig(t *testing.T, storeKind string) serverConfig {
	t.Helper()
	dir := t.TempDir()
	return serverConfig{
		Host:        "localhost",
		Port:        8080,
		ModesDir:    filepath.Join(dir, "modes"),
		DataDir:     filepath.Join(dir, "data"),
		Store:       storeKind,
		Difficulty:  engine.DefaultDifficulty,
		CpuDwell:    engine.DefaultCpuDwell,
		StepDwell:   engine.DefaultStepDwell,
		ReplaySlots: 5,
	}
}

func startServices(t *testing.T, cfg serverConfig) *services {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svcs, err := initializeServices(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	t.Cleanup(svcs.Close)
	return svcs
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()

	if app.Action == nil {
		t.Error("Root command should default to the server")
	}

	expected := map[string][]string{
		"server":    {"http"},
		"stdio-mcp": {"mcp-stdio", "mcp"},
	}
	if len(app.Commands) != len(expected) {
		t.Fatalf("Expected %d subcommands, got %d", len(expected), len(app.Commands))
	}
	for _, cmd := range app.Commands {
		aliases, ok := expected[cmd.Name]
		if !ok {
			t.Errorf("Unexpected subcommand %s", cmd.Name)
			continue
		}
		if strings.Join(cmd.Aliases, ",") != strings.Join(aliases, ",") {
			t.Errorf("%s: expected aliases %v, got %v", cmd.Name, aliases, cmd.Aliases)
		}
	}
}

func TestFlagDefaults(t *testing.T) {
	names := map[string]bool{}
	for _, f := range flags() {
		for _, name := range f.Names() {
			names[name] = true
		}
	}

	for _, want := range []string{
		"host", "port", "modes-dir", "data-dir", "store", "debug", "pretty",
		"difficulty", "ngrok", "ngrok-auth", "ngrok-domain",
	} {
		if !names[want] {
			t.Errorf("Missing flag %s", want)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	t.Setenv("LOG_LEVEL", "warn")
	setupLogging(false, false)
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("Expected warn level from LOG_LEVEL, got %s", zerolog.GlobalLevel())
	}

	setupLogging(true, true)
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug to override LOG_LEVEL, got %s", zerolog.GlobalLevel())
	}
}

func TestOpenStore(t *testing.T) {
	for _, kind := range []string{StoreFile, StoreSQLite, StoreMemory} {
		t.Run(kind, func(t *testing.T) {
			st, err := openStore(kind, t.TempDir())
			if err != nil {
				t.Fatalf("openStore(%s) failed: %v", kind, err)
			}
			defer st.Close()

			ctx := context.Background()
			if err := store.Save(ctx, st, store.Setting(store.SettingDifficulty), 42); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := store.Load[int](ctx, st, store.Setting(store.SettingDifficulty))
			if err != nil || got != 42 {
				t.Errorf("Expected 42, got %d (%v)", got, err)
			}
		})
	}

	if _, err := openStore("redis", t.TempDir()); err == nil {
		t.Error("Expected error for unknown store")
	}
}

func TestInitializeServices(t *testing.T) {
	svcs := startServices(t, testConfig(t, StoreFile))

	if svcs.Game == nil {
		t.Fatal("Expected game service to be initialized")
	}
	if svcs.Persistence == nil {
		t.Error("Expected session persistence for the file store")
	}

	ctx := context.Background()
	info, err := svcs.Game.CreateSession(ctx, service.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.ModeID != "connect4" {
		t.Errorf("Expected default mode connect4, got %s", info.ModeID)
	}
	if info.Difficulty != engine.DefaultDifficulty {
		t.Errorf("Expected default difficulty, got %d", info.Difficulty)
	}
}

func TestInitializeServices_MemoryStore(t *testing.T) {
	svcs := startServices(t, testConfig(t, StoreMemory))

	if svcs.Persistence != nil {
		t.Error("Memory store should not persist sessions")
	}
}

func TestInitializeServices_SavedSettings(t *testing.T) {
	cfg := testConfig(t, StoreFile)

	// Seed the save file the way a previous run would have left it
	st, err := openStore(StoreFile, cfg.DataDir)
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	ctx := context.Background()
	if err := store.Save(ctx, st, store.Setting(store.SettingDefaultMode), "tictactoe"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	st.Close()

	cfg.Difficulty = 35
	cfg.DifficultySet = true
	svcs := startServices(t, cfg)

	info, err := svcs.Game.CreateSession(ctx, service.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.ModeID != "tictactoe" {
		t.Errorf("Expected saved default mode tictactoe, got %s", info.ModeID)
	}
	if info.Difficulty != 35 {
		t.Errorf("Expected difficulty from flag, got %d", info.Difficulty)
	}
}

func TestInitializeServices_InvalidDifficulty(t *testing.T) {
	cfg := testConfig(t, StoreMemory)
	cfg.Difficulty = 150

	if _, err := initializeServices(context.Background(), cfg); err == nil {
		t.Error("Expected error for out of range difficulty")
	}
}

func TestInitializeServices_UnknownStore(t *testing.T) {
	if _, err := initializeServices(context.Background(), testConfig(t, "redis")); err == nil {
		t.Error("Expected error for unknown store")
	}
}

func TestNewRouter(t *testing.T) {
	svcs := startServices(t, testConfig(t, StoreMemory))

	hub := websocket.NewHub()
	go hub.Run()

	router := newRouter(svcs.Game, hub, "http://localhost:8080")

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", w.Code)
		}
	})

	t.Run("mcp lists tools", func(t *testing.T) {
		body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", body))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "place_mark") {
			t.Errorf("Expected place_mark tool in response, got %s", w.Body.String())
		}
	})
}

func TestModeRefreshRoutinePicksUpEditedFiles(t *testing.T) {
	dir := t.TempDir()
	writeMode := func(objective int) {
		t.Helper()
		data := fmt.Sprintf(`{"id": "bigboard", "title": "Big Board", "rows": 12, "cols": 12, "objective": %d}`, objective)
		if err := os.WriteFile(filepath.Join(dir, "bigboard.json"), []byte(data), 0644); err != nil {
			t.Fatalf("Failed to write mode file: %v", err)
		}
	}

	writeMode(5)
	modes, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create mode manager: %v", err)
	}
	if mode, err := modes.LoadMode("bigboard"); err != nil || mode.Objective != 5 {
		t.Fatalf("Expected objective 5, got %v (%v)", mode, err)
	}

	writeMode(6)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		modeRefreshRoutine(ctx, modes, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mode, err := modes.LoadMode("bigboard")
		if err == nil && mode.Objective == 6 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Edited mode file was never reloaded, last got %v (%v)", mode, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("modeRefreshRoutine did not stop after cancel")
	}
}

func TestBackgroundRoutinesStopWithContext(t *testing.T) {
	svcs := startServices(t, testConfig(t, StoreFile))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		filesystemSyncRoutine(ctx, svcs.Sessions, svcs.Persistence)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("filesystemSyncRoutine did not stop after cancel")
	}
}
