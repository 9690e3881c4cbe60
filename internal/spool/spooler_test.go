package spool

import (
	"bytes"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printhost/internal/printing"
)

// fakePrinter accepts raw-socket connections and records everything written.
type fakePrinter struct {
	ln net.Listener
	mu sync.Mutex
	wg sync.WaitGroup
	in bytes.Buffer
}

func newFakePrinter(t *testing.T) *fakePrinter {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p := &fakePrinter{ln: ln}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				defer conn.Close()
				buf := make([]byte, 4096)
				for {
					n, err := conn.Read(buf)
					if n > 0 {
						p.mu.Lock()
						p.in.Write(buf[:n])
						p.mu.Unlock()
					}
					if err != nil {
						return
					}
				}
			}()
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		p.wg.Wait()
	})
	return p
}

func (p *fakePrinter) addr() string {
	return p.ln.Addr().String()
}

func (p *fakePrinter) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in.String()
}

func TestTCPSpoolerSpoolsDocument(t *testing.T) {
	printer := newFakePrinter(t)
	s := NewTCPSpooler(Config{Address: printer.addr()})

	require.NoError(t, s.StartDocument("report", 1))
	require.NoError(t, s.SpoolPage(printing.Page{Number: 1, Data: []byte("hello")}))
	require.NoError(t, s.SpoolPage(printing.Page{Number: 2, Data: []byte("world")}))
	require.NoError(t, s.EndDocument())

	assert.Eventually(t, func() bool {
		return printer.written() == "hello\r\nworld\r\n"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTCPSpoolerStartFailsWhenOffline(t *testing.T) {
	// Grab a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	s := NewTCPSpooler(Config{Address: addr, ConnectionTimeout: 200 * time.Millisecond})
	err = s.StartDocument("report", 1)
	assert.ErrorIs(t, err, ErrPrinterOffline)
}

func TestTCPSpoolerRejectsPageWithoutDocument(t *testing.T) {
	printer := newFakePrinter(t)
	s := NewTCPSpooler(Config{Address: printer.addr()})

	err := s.SpoolPage(printing.Page{Number: 1, Data: []byte("x")})
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.ErrorIs(t, s.EndDocument(), ErrNoDocument)
}

func TestTCPSpoolerReconnectsOnWriteFailure(t *testing.T) {
	printer := newFakePrinter(t)
	s := NewTCPSpooler(Config{Address: printer.addr()})

	require.NoError(t, s.StartDocument("report", 1))

	// Kill the connection under the spooler's feet.
	s.mu.Lock()
	s.conn.Close()
	s.mu.Unlock()

	require.NoError(t, s.SpoolPage(printing.Page{Number: 1, Data: []byte("retry")}))
	require.NoError(t, s.EndDocument())

	assert.Eventually(t, func() bool {
		return printer.written() == "retry\r\n"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTCPSpoolerAbortAllowsRestart(t *testing.T) {
	printer := newFakePrinter(t)
	s := NewTCPSpooler(Config{Address: printer.addr()})

	require.NoError(t, s.StartDocument("a", 1))
	s.Abort()

	require.NoError(t, s.StartDocument("b", 2))
	require.NoError(t, s.SpoolPage(printing.Page{Number: 1, Data: []byte("b")}))
	require.NoError(t, s.EndDocument())
}

func TestDiscardSpooler(t *testing.T) {
	var s printing.Spooler = Discard{}
	assert.NoError(t, s.StartDocument("x", 1))
	assert.NoError(t, s.SpoolPage(printing.Page{Number: 1}))
	assert.NoError(t, s.EndDocument())
	s.Abort()
}
