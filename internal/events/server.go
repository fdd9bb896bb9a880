package events

import (
	"bufio"
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog"
)

// Server accepts TCP subscribers for the hub.
type Server struct {
	Addr   string
	Hub    *Hub
	logger zerolog.Logger
}

func NewServer(addr string, hub *Hub, logger zerolog.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, logger: logger}
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("tcp event stream listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn().Err(err).Msg("tcp accept failed")
			continue
		}

		s.Hub.Add(conn)
		s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("tcp subscriber connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.logger.Debug().Str("remote", c.RemoteAddr().String()).Msg("tcp subscriber disconnected")
			}()

			// subscribers only listen, drain whatever they send
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}
