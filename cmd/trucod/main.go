package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"

	"truco-fdp/internal/config"
	"truco-fdp/internal/gateway"
	"truco-fdp/internal/lobby"
	"truco-fdp/internal/room"
	"truco-fdp/internal/state"
)

func main() {
	confPath := flag.String("conf", "trucod.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*confPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	backend := slog.NewBackend(os.Stderr)
	level, _ := slog.LevelFromString(cfg.Log.Level)
	newLogger := func(subsys string) slog.Logger {
		l := backend.Logger(subsys)
		l.SetLevel(level)
		return l
	}
	log := newLogger("SRVR")

	store := state.NewStore()
	persister := state.NewPersister(store, cfg.Snapshot.Path, newLogger("SNAP"))
	if err := persister.Load(); err != nil {
		log.Errorf("load snapshot: %v", err)
		os.Exit(1)
	}

	gw := gateway.New(cfg.Server.CORSOrigins, newLogger("GATE"))
	lby := lobby.New(store, lobby.DefaultRooms(), room.Config{
		TrickStartDelay: cfg.Game.TrickStartDelay,
		TimeLimitMs:     cfg.Game.TimeLimitMs,
	}, gw.SendToConn, newLogger("ROOM"))
	gw.BindLobby(lby)

	persistDone := make(chan struct{})
	go persister.Run(cfg.Snapshot.Interval, persistDone)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	lobby.NewHTTPHandler(lby, cfg.Server.CORSOrigins).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("serve: %v", err)
			os.Exit(1)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Infof("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}

	lby.Stop()
	close(persistDone)
	if err := persister.Save("shutdown"); err != nil {
		log.Errorf("final snapshot: %v", err)
	}
	log.Infof("bye")
}
