package spool

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/orrn/printhost/internal/printing"
)

var (
	ErrPrinterOffline   = errors.New("printer is offline")
	ErrConnectionFailed = errors.New("connection failed")
	ErrNoDocument       = errors.New("no document started")
)

const (
	defaultTCPPort          = 9100
	defaultReadWriteTimeout = 10 * time.Second
)

type Config struct {
	Address           string
	ConnectionTimeout time.Duration
	WriteTimeout      time.Duration
}

// TCPSpooler delivers rendered pages to a raw-socket network printer. One
// document is spooled at a time; the connection is held for the duration of
// the document and reopened once on a failed write.
type TCPSpooler struct {
	cfg Config

	mu     sync.Mutex
	conn   net.Conn
	active bool
}

func NewTCPSpooler(cfg Config) *TCPSpooler {
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = defaultReadWriteTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultReadWriteTimeout
	}
	return &TCPSpooler{cfg: cfg}
}

func (s *TCPSpooler) StartDocument(name string, cookie int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrPrinterOffline, err)
	}
	s.active = true
	return nil
}

func (s *TCPSpooler) SpoolPage(p printing.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return ErrNoDocument
	}
	if err := s.writeLocked(p.Data); err != nil {
		// One reconnect attempt before giving up on the page.
		s.disconnectLocked()
		if err := s.connectLocked(); err != nil {
			return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		if err := s.writeLocked(p.Data); err != nil {
			s.disconnectLocked()
			return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
	}
	return nil
}

func (s *TCPSpooler) EndDocument() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return ErrNoDocument
	}
	s.active = false
	s.disconnectLocked()
	return nil
}

func (s *TCPSpooler) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.disconnectLocked()
}

func (s *TCPSpooler) connectLocked() error {
	if s.conn != nil {
		return nil
	}
	address := s.cfg.Address
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = fmt.Sprintf("%s:%d", address, defaultTCPPort)
	}
	conn, err := net.DialTimeout("tcp", address, s.cfg.ConnectionTimeout)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *TCPSpooler) disconnectLocked() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *TCPSpooler) writeLocked(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := s.conn.Write(data); err != nil {
		return err
	}
	_, err := s.conn.Write([]byte("\r\n"))
	return err
}

// Discard swallows all output. Used when no printer address is configured.
type Discard struct{}

func (Discard) StartDocument(name string, cookie int) error { return nil }
func (Discard) SpoolPage(p printing.Page) error             { return nil }
func (Discard) EndDocument() error                          { return nil }
func (Discard) Abort()                                      {}
