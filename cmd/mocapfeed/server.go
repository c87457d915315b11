package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trainer/sim/services/mocap"
)

type body struct {
	id   int
	name string
	path Path
}

// feed streams frames of every body to each websocket client.
type feed struct {
	log      *slog.Logger
	bodies   []body
	interval time.Duration
	up       websocket.Upgrader
	now      func() time.Time
}

func newFeed(log *slog.Logger, hz int, bodies ...body) *feed {
	if hz <= 0 {
		hz = 60
	}
	return &feed{
		log:      log,
		bodies:   bodies,
		interval: time.Second / time.Duration(hz),
		now:      time.Now,
	}
}

func (f *feed) frame(n int64, t time.Duration) mocap.Frame {
	fr := mocap.Frame{Frame: n, Bodies: make([]mocap.Body, 0, len(f.bodies))}
	for _, b := range f.bodies {
		fr.Bodies = append(fr.Bodies, mocap.BodyFrom(b.id, b.name, b.path.Sample(t)))
	}
	return fr
}

func (f *feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := f.up.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer c.Close()
	f.log.Info("client connected", "remote", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}()

	start := f.now()
	t := time.NewTicker(f.interval)
	defer t.Stop()
	for n := int64(0); ; n++ {
		select {
		case <-closed:
			f.log.Info("client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		case <-t.C:
			_ = c.SetWriteDeadline(time.Now().Add(time.Second))
			if err := c.WriteJSON(f.frame(n, f.now().Sub(start))); err != nil {
				f.log.Info("client dropped", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}
