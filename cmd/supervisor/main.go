package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/whitebite/isolate-core/internal/abtest"
	"github.com/whitebite/isolate-core/internal/conflict"
	"github.com/whitebite/isolate-core/internal/config"
	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/engine"
	"github.com/whitebite/isolate-core/internal/history"
	"github.com/whitebite/isolate-core/internal/hostlist"
	"github.com/whitebite/isolate-core/internal/logging"
	"github.com/whitebite/isolate-core/internal/plugin"
	"github.com/whitebite/isolate-core/internal/probe"
	"github.com/whitebite/isolate-core/internal/process"
	"github.com/whitebite/isolate-core/internal/store"
)

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "directory holding the sqlite store, strategy/service config, and plugins")
	dsn := flag.String("dsn", "", "sqlite file path (defaults to <data-dir>/isolate.db)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log := logging.New(logging.Config{Level: *logLevel, Format: "text", Output: "stdout"})

	dsnVal := *dsn
	if dsnVal == "" {
		dsnVal = filepath.Join(*dataDir, "isolate.db")
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	cipher, err := store.NewOSCipher(nil)
	if err != nil {
		log.Fatalf("init secret cipher: %v", err)
	}

	db, err := store.Open(rootCtx, dsnVal, cipher)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	supervisor := process.New(log)
	hostlists := hostlist.New()
	pluginManager := plugin.New(filepath.Join(*dataDir, "plugins"), hostlists, log)
	if err := pluginManager.ReloadAll(); err != nil {
		log.Fatalf("load plugins: %v", err)
	}

	cfgLoader := config.New(
		filepath.Join(*dataDir, "strategies"),
		filepath.Join(*dataDir, "services"),
	)

	providers := providerChain{plugins: pluginManager, config: cfgLoader}

	core := &Core{
		Engine:   engine.New(supervisor, providers, log),
		Prober:   probe.New(),
		Learner:  history.New(db),
		Detector: conflict.New("winws.exe"),
		Plugins:  pluginManager,
		Config:   cfgLoader,
	}
	core.Tester = abtest.New(core.Engine, core.Prober, log)

	if err := core.Learner.LoadAll(rootCtx); err != nil {
		log.WithError(err).Warn("load history stats failed, starting with empty cache")
	}

	if conflicts, err := core.Detector.Detect(rootCtx); err != nil {
		log.WithError(err).Warn("conflict detection failed")
	} else {
		for _, c := range conflicts {
			log.WithField("severity", c.Severity).Warnf("detected conflicting software: %s", c.DisplayName)
		}
	}

	log.WithField("services", len(core.Plugins.Services())).Info("isolate-core supervisor started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	supervisor.StopAll(shutdownCtx)
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "isolate-core")
	}
	return "."
}

// Core aggregates every wired component this process owns. It has no
// public methods of its own beyond exposing its fields. The GUI/CLI/IPC
// layer that would drive these components is out of scope here, so Core
// only proves the object graph is wired, not a dispatch surface.
type Core struct {
	Engine   *engine.Engine
	Prober   *probe.Client
	Tester   *abtest.Tester
	Learner  *history.Learner
	Detector *conflict.Detector
	Plugins  *plugin.Manager
	Config   *config.Loader
}

// providerChain composes the plugin manager's and the config loader's
// independent engine.StrategyProvider implementations: a plugin-contributed
// strategy id always wins over a same-id config-file strategy, since a
// loaded plugin is the more specific, explicitly-installed source.
type providerChain struct {
	plugins *plugin.Manager
	config  *config.Loader
}

func (p providerChain) GetStrategy(id string) (domain.Strategy, bool) {
	if s, ok := p.plugins.GetStrategy(id); ok {
		return s, true
	}
	return p.config.GetStrategy(id)
}
