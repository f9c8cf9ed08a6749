package main

import (
	"context"
	"io"
	"net"
	"os"
	"sync"

	"github.com/ausocean/h266decode/config"
	"github.com/ausocean/h266decode/h266"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	fx.New(dependencies(), fx.Invoke(func(*server) {})).Run()
}

func dependencies() fx.Option {
	return fx.Options(
		fx.Provide(config.Load),
		fx.Provide(config.NewLogger),
		fx.Provide(newServer),
	)
}

// streamStats counts what happened to the NAL units of one stream.
type streamStats struct {
	units     int
	sps       int
	discarded int
}

// decodeStream reads NAL units from r until EOF and decodes each with a new
// decoder. Units that fail to parse are logged and skipped.
func decodeStream(r io.Reader, c *config.Config, log *zap.SugaredLogger) (streamStats, error) {
	var st streamStats
	sr := h266.NewStreamReader(r, c.ChunkSize, c.MaxAccessUnitSize)
	dec := h266.NewDecoder(h266.Options{
		MaxAccessUnitSize: c.MaxAccessUnitSize,
		StrictConformance: c.StrictConformance,
	}, log)
	defer func() {
		for dec.Flush() == nil {
		}
	}()

	for {
		raw, err := sr.ReadNALUnit()
		if err == io.EOF {
			return st, nil
		}
		if err != nil {
			return st, errors.Wrap(err, "could not read NAL unit")
		}
		st.units++

		nal, err := dec.DecodeNALUnit(raw)
		switch {
		case errors.Is(err, h266.ErrUnrecoverable):
			return st, err
		case err != nil:
			st.discarded++
			log.Warnw("discarding NAL unit", "unit", st.units, "code", h266.Code(err), "error", err)
		case nal.Type == h266.NALUnitSPS:
			st.sps++
		}
	}
}

// server runs decodeStream on the configured input file, or on every TCP
// connection accepted on the listen address.
type server struct {
	cfg *config.Config
	log *zap.SugaredLogger
	ln  net.Listener

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

func newServer(lc fx.Lifecycle, sd fx.Shutdowner, c *config.Config, log *zap.SugaredLogger) *server {
	s := &server{cfg: c, log: log, conns: make(map[net.Conn]struct{})}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if c.Input != "" {
				f, err := os.Open(c.Input)
				if err != nil {
					return errors.Wrap(err, "could not open input")
				}
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					defer f.Close()
					s.handle(f, c.Input)
					sd.Shutdown()
				}()
				return nil
			}

			ln, err := net.Listen("tcp", c.Listen)
			if err != nil {
				return errors.Wrap(err, "could not listen")
			}
			s.ln = ln
			log.Infow("listening for h266 bytestreams", "addr", ln.Addr().String())
			s.wg.Add(1)
			go s.serve()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.stop()
			return nil
		},
	})
	return s
}

func (s *server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Errorw("accept failed", "error", err)
			}
			return
		}
		if !s.track(conn) {
			return
		}
		go func() {
			defer s.wg.Done()
			s.handle(conn, conn.RemoteAddr().String())
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			conn.Close()
		}()
	}
}

// track registers conn so stop can close it. Once the server is stopping it
// closes conn instead and returns false.
func (s *server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		conn.Close()
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

// stop closes the listener and every tracked connection, then waits for
// their handlers.
func (s *server) stop() {
	s.mu.Lock()
	s.stopping = true
	if s.ln != nil {
		s.ln.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *server) handle(r io.Reader, source string) {
	log := s.log.With("source", source)
	st, err := decodeStream(r, s.cfg, log)
	if err != nil {
		log.Errorw("stream ended", "units", st.units, "error", err)
		return
	}
	log.Infow("stream finished", "units", st.units, "sps", st.sps, "discarded", st.discarded)
}
