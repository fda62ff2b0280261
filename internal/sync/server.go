package sync

import (
	"bufio"
	"errors"
	"net"
	"sync"
)

// Server accepts line-oriented TCP watchers and registers them with the Hub.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Listen binds the address. Serve must be called afterwards.
func (s *Server) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return ln.Addr(), nil
}

// Run listens and serves until Close is called.
func (s *Server) Run() error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("sync server not listening")
	}
	s.Hub.Log.WithField("addr", ln.Addr().String()).Info("tcp sync listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Hub.Log.WithError(err).Warn("tcp accept")
			continue
		}

		s.Hub.Add(conn)
		s.Hub.welcome(conn)
		log := s.Hub.Log.WithField("remote", conn.RemoteAddr().String())
		log.Info("tcp watcher connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				log.Info("tcp watcher disconnected")
			}()

			// watchers never send anything meaningful; drain until EOF
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
