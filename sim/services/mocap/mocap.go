// Package mocap feeds tracked entity poses from a motion-capture stream.
package mocap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trainer/sim/registry"
	"trainer/sim/service"
)

const (
	DefaultHandshakeTimeout = 2 * time.Second
	DefaultRetry            = time.Second

	frameBuffer = 64
)

// Config configures a Service.
type Config struct {
	Service          service.Config
	URL              string
	HandshakeTimeout time.Duration
	Retry            time.Duration
	// TrackIDs restricts updates to these bodies when not empty.
	TrackIDs []int
	Registry *registry.Registry
}

// Service connects to a websocket feed and writes tracked poses into the
// registry.
type Service struct {
	*service.Base

	url    string
	dialer websocket.Dialer
	retry  time.Duration
	allow  []int
	reg    *registry.Registry

	// Owned by the service goroutine.
	conn    *websocket.Conn
	frames  chan Frame
	readErr chan error
	reader  sync.WaitGroup
	retryAt time.Time
	frame   int64
}

// New returns a stopped motion-capture service.
func New(cfg Config) (*Service, error) {
	if cfg.Registry == nil {
		return nil, errors.New("mocap: registry required")
	}
	if cfg.URL == "" {
		return nil, errors.New("mocap: url required")
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Retry <= 0 {
		cfg.Retry = DefaultRetry
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = "mocap"
	}
	s := &Service{
		url:    cfg.URL,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		retry:  cfg.Retry,
		allow:  slices.Clone(cfg.TrackIDs),
		reg:    cfg.Registry,
	}
	s.Base = service.New(cfg.Service, s)
	return s, nil
}

func (s *Service) OnStart(ctx context.Context) error {
	s.retryAt = time.Time{}
	s.connect(ctx)
	return nil
}

func (s *Service) OnStop() {
	s.disconnect()
}

func (s *Service) Update(ctx context.Context) error {
	if s.conn == nil {
		if time.Now().Before(s.retryAt) {
			return nil
		}
		if !s.connect(ctx) {
			return nil
		}
	}

	latest := make(map[int]Body)
	for {
		select {
		case f := <-s.frames:
			s.frame = f.Frame
			for _, b := range f.Bodies {
				latest[b.ID] = b
			}
			continue
		case err := <-s.readErr:
			s.disconnect()
			s.retryAt = time.Now().Add(s.retry)
			s.SetStatus(service.Error, "Disconnected: "+err.Error())
			s.Logger().Warn("mocap feed lost", "error", err)
			return nil
		default:
		}
		break
	}
	if len(latest) == 0 {
		return nil
	}

	n := 0
	for _, b := range latest {
		if len(s.allow) > 0 && !slices.Contains(s.allow, b.ID) {
			continue
		}
		p, err := b.Pose()
		if err != nil {
			s.Logger().Warn("bad body sample", "id", b.ID, "frame", s.frame, "error", err)
			continue
		}
		id := b.ID
		_, err = s.reg.SetTrackedPose(b.Name, &id, p)
		switch {
		case errors.Is(err, registry.ErrNotFound), errors.Is(err, registry.ErrWriterDenied):
			s.Logger().Debug("body not applied", "id", b.ID, "name", b.Name, "error", err)
			continue
		case err != nil:
			return err
		}
		n++
	}
	s.SetStatus(service.Running, fmt.Sprintf("Tracking %d bodies", n))
	return nil
}

// connect dials the feed and starts the reader. It reports whether the
// connection is up.
func (s *Service) connect(ctx context.Context) bool {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.retryAt = time.Now().Add(s.retry)
		s.SetStatus(service.Stopped, "Not connected")
		s.Logger().Debug("mocap dial failed", "url", s.url, "error", err)
		return false
	}
	s.conn = conn
	s.frames = make(chan Frame, frameBuffer)
	s.readErr = make(chan error, 1)
	s.SetStatus(service.Running, "Connected")
	s.Logger().Info("mocap connected", "url", s.url)

	s.reader.Add(1)
	go s.read(conn, s.frames, s.readErr)
	return true
}

// read runs until the connection fails or is closed by disconnect. When the
// buffer is full the oldest frame is dropped.
func (s *Service) read(conn *websocket.Conn, frames chan Frame, errc chan<- error) {
	defer s.reader.Done()
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			errc <- err
			return
		}
		select {
		case frames <- f:
		default:
			select {
			case <-frames:
			default:
			}
			frames <- f
		}
	}
}

func (s *Service) disconnect() {
	if s.conn == nil {
		return
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(100*time.Millisecond))
	_ = s.conn.Close()
	s.reader.Wait()
	s.conn = nil
	s.frames = nil
	s.readErr = nil
}
