package tcpbridge

import (
	"fmt"
	"log"
	"net"
	"sync"
)

// DataServer carries raw application bytes: everything the client writes
// is handed to OnData (which enqueues it for transmission), and Deliver
// pushes received link bytes back to the client. A vanished client is
// not an error; the link keeps running and delivery resumes on
// reconnect.
type DataServer struct {
	OnData func([]byte)

	ln   net.Listener
	mu   sync.Mutex
	conn net.Conn
}

// NewDataServer builds a data server feeding received bytes to onData.
func NewDataServer(onData func([]byte)) *DataServer {
	return &DataServer{OnData: onData}
}

// Listen binds addr and serves one client at a time until Close.
func (s *DataServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("tcpbridge: data listen %s: %w", addr, err)
	}
	s.ln = ln
	go s.acceptLoop()
	return nil
}

// Addr reports the bound address.
func (s *DataServer) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *DataServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.conn = conn
		s.mu.Unlock()
		go s.readLoop(conn)
	}
}

func (s *DataServer) readLoop(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 && s.OnData != nil {
			s.OnData(append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			return
		}
	}
}

// Deliver writes link-received bytes to the connected client, dropping
// them if no client is attached.
func (s *DataServer) Deliver(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	if _, err := s.conn.Write(data); err != nil {
		log.Printf("tcpbridge: data write: %v", err)
		s.conn.Close()
		s.conn = nil
	}
}

// Close stops the listener and drops the client.
func (s *DataServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}
