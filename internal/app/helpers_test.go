package app

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1ureka/peerchat/internal/config"
	"github.com/1ureka/peerchat/internal/protocol"
	"github.com/1ureka/peerchat/internal/transport"
	_ "github.com/1ureka/peerchat/internal/transport/mem"
)

// ---------------------------------------------------------------------------
// Fake display
// ---------------------------------------------------------------------------

// fakeDisplay records everything shown and serves input from a channel.
type fakeDisplay struct {
	mu      sync.Mutex
	history []string // every ShowLine, never cleared
	roster  []string
	input   chan string
	once    sync.Once
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{input: make(chan string, 16)}
}

func (d *fakeDisplay) ShowLine(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = append(d.history, text)
}

func (d *fakeDisplay) ShowUserLine(text string, isLocal bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if isLocal {
		text += " (you)"
	}
	d.roster = append(d.roster, text)
}

func (d *fakeDisplay) ClearMessages() {}

func (d *fakeDisplay) ClearUserList() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roster = nil
}

func (d *fakeDisplay) ReadLine() (string, error) {
	line, ok := <-d.input
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (d *fakeDisplay) typeLine(line string) { d.input <- line }

func (d *fakeDisplay) closeInput() { d.once.Do(func() { close(d.input) }) }

// count returns how many shown lines equal line.
func (d *fakeDisplay) count(line string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, l := range d.history {
		if l == line {
			n++
		}
	}
	return n
}

// contains reports whether any shown line contains sub.
func (d *fakeDisplay) contains(sub string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, l := range d.history {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func (d *fakeDisplay) rosterLines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.roster...)
}

// ---------------------------------------------------------------------------
// App harness
// ---------------------------------------------------------------------------

var nextPort atomic.Int32

func init() { nextPort.Store(30000) }

func freePort() int { return int(nextPort.Add(1)) }

func testConfig(port int, role config.Role, name string) config.Config {
	cfg := config.Default()
	cfg.Driver = "mem"
	cfg.Port = port
	cfg.Role = role
	cfg.Nickname = name
	cfg.QuitDelay = 0
	return cfg
}

type harness struct {
	app     *App
	display *fakeDisplay
	done    chan error
}

// startApp runs an App until the test ends.
func startApp(t *testing.T, cfg config.Config) *harness {
	t.Helper()

	d := newFakeDisplay()
	a, err := New(Options{Config: cfg, Display: d})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{app: a, display: d, done: make(chan error, 1)}
	go func() { h.done <- a.Run(ctx) }()

	t.Cleanup(func() {
		d.closeInput()
		cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Errorf("Run did not return")
		}
	})
	return h
}

// eventually polls cond until it holds or the timeout elapses.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// ---------------------------------------------------------------------------
// Raw peer
// ---------------------------------------------------------------------------

// rawPeer speaks the session protocol directly over a transport.Host, so
// tests can see exactly which messages a host sends.
type rawPeer struct {
	host *transport.Host

	mu           sync.Mutex
	msgs         []protocol.Message
	disconnected bool
}

func dialRaw(t *testing.T, port int) *rawPeer {
	t.Helper()

	if err := transport.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d, err := transport.Lookup("mem")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	p := &rawPeer{}
	p.host, err = transport.NewHost(d, p)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	t.Cleanup(func() {
		p.host.Close()
		transport.Shutdown()
	})

	if err := p.host.Connect(context.Background(), "127.0.0.1", port); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return p
}

func (p *rawPeer) HandleConnect(transport.Event) {}

func (p *rawPeer) HandleDisconnect(transport.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = true
}

func (p *rawPeer) HandleReceive(ev transport.Event) {
	m, err := protocol.Decode(ev.Data)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, m)
}

func (p *rawPeer) send(m protocol.Message) { p.host.SendUpstream(protocol.Encode(m)) }

func (p *rawPeer) sendRaw(b []byte) { p.host.SendUpstream(b) }

// received returns the messages seen so far with the given tag.
func (p *rawPeer) received(tag protocol.Tag) []protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []protocol.Message
	for _, m := range p.msgs {
		if m.Tag() == tag {
			out = append(out, m)
		}
	}
	return out
}

// register sends a Registration and waits for the ack.
func (p *rawPeer) register(t *testing.T, name string) *protocol.RegistrationAck {
	t.Helper()
	p.send(&protocol.Registration{Name: name})
	eventually(t, name+" ack", func() bool { return len(p.received(protocol.TagRegistrationAck)) == 1 })
	return p.received(protocol.TagRegistrationAck)[0].(*protocol.RegistrationAck)
}
