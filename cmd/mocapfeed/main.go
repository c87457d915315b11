// Command mocapfeed serves a synthetic motion-capture stream for the
// trainer's mocap service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"trainer/internal/logging"
)

func main() {
	var (
		addr  = flag.String("addr", "127.0.0.1:8765", "Listen address.")
		track = flag.String("track", "", "YAML track file (default: a circle).")
		hz    = flag.Int("hz", 60, "Frames per second.")
		id    = flag.Int("id", 1, "Body id for the built-in circle.")
		name  = flag.String("name", "wand", "Body name for the built-in circle.")
		level logging.LevelFlag
	)
	flag.Var(&level, "loglevel", "Log level: debug, info, warn or error.")
	flag.Parse()

	log, _ := logging.New(logging.Options{Level: level.Value, Console: os.Stderr})

	b := body{id: *id, name: *name, path: Circle{Radius: 3, Height: 1.5, Period: 8 * time.Second}}
	if *track != "" {
		tr, err := loadTrack(*track)
		if err != nil {
			fatalf("%v", err)
		}
		b = body{id: tr.ID, name: tr.Name, path: tr}
	}

	mux := http.NewServeMux()
	mux.Handle("/feed", newFeed(log, *hz, b))
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("serving", "url", "ws://"+*addr+"/feed", "body", b.name, "id", b.id, "hz", *hz)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatalf("%v", err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
