// Package quic is the default transport driver: one QUIC connection per peer
// carrying a single bidirectional stream of length-prefixed frames.
package quic

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"net"
	"sync"
	"time"

	quicgo "github.com/quic-go/quic-go"

	"github.com/1ureka/peerchat/internal/transport"
	"github.com/1ureka/peerchat/internal/util"
)

const (
	alpn            = "peerchat"
	keepAlivePeriod = 5 * time.Second
	maxIdleTimeout  = 30 * time.Second
	acceptBacklog   = 16
)

func init() {
	transport.Register(Driver)
}

// Driver is the registered "quic" driver. Its listening certificate is
// process-wide state created by transport.Init.
var Driver = &driver{}

type driver struct {
	mu   sync.Mutex
	cert *tls.Certificate
}

func (d *driver) Name() string { return "quic" }

// Setup generates the ephemeral self-signed listening certificate.
func (d *driver) Setup() error {
	cert, err := selfSignedCert()
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.cert = &cert
	d.mu.Unlock()
	return nil
}

func (d *driver) Teardown() {
	d.mu.Lock()
	d.cert = nil
	d.mu.Unlock()
}

func quicConfig() *quicgo.Config {
	return &quicgo.Config{
		KeepAlivePeriod: keepAlivePeriod,
		MaxIdleTimeout:  maxIdleTimeout,
	}
}

func (d *driver) Listen(ctx context.Context, addr string) (transport.Acceptor, error) {
	d.mu.Lock()
	cert := d.cert
	d.mu.Unlock()
	if cert == nil {
		return nil, transport.ErrNotInitialized
	}

	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{*cert},
		NextProtos:   []string{alpn},
		MinVersion:   tls.VersionTLS13,
	}

	ln, err := quicgo.ListenAddr(addr, tlsConf, quicConfig())
	if err != nil {
		return nil, err
	}

	aCtx, cancel := context.WithCancel(context.Background())
	a := &acceptor{
		ln:     ln,
		newCh:  make(chan *link, acceptBacklog),
		ctx:    aCtx,
		cancel: cancel,
	}
	go a.acceptLoop()

	return a, nil
}

func (d *driver) Dial(ctx context.Context, addr string) (transport.Link, error) {
	// Peers are not authenticated; the certificate only keys the session.
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpn},
		MinVersion:         tls.VersionTLS13,
	}

	conn, err := quicgo.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, err
	}

	// The listener only sees the stream once something is written on it.
	if err := transport.WriteFrame(stream, nil); err != nil {
		conn.CloseWithError(0, "")
		return nil, err
	}

	return &link{conn: conn, stream: stream}, nil
}

// ---------------------------------------------------------------------------
// Acceptor
// ---------------------------------------------------------------------------

type acceptor struct {
	ln     *quicgo.Listener
	newCh  chan *link
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (a *acceptor) acceptLoop() {
	for {
		conn, err := a.ln.Accept(a.ctx)
		if err != nil {
			return
		}
		go a.handshake(conn)
	}
}

// handshake waits for the dialer's stream so a slow peer never stalls the
// accept loop.
func (a *acceptor) handshake(conn quicgo.Connection) {
	stream, err := conn.AcceptStream(a.ctx)
	if err != nil {
		util.LogDebug("quic: %s never opened its stream: %v", conn.RemoteAddr(), err)
		conn.CloseWithError(0, "")
		return
	}

	select {
	case a.newCh <- &link{conn: conn, stream: stream}:
	case <-a.ctx.Done():
		conn.CloseWithError(0, "")
	}
}

func (a *acceptor) Accept(ctx context.Context) (transport.Link, error) {
	select {
	case l := <-a.newCh:
		return l, nil
	case <-a.ctx.Done():
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *acceptor) Addr() net.Addr { return a.ln.Addr() }

func (a *acceptor) Close() error {
	var err error
	a.once.Do(func() {
		a.cancel()
		err = a.ln.Close()
	})
	return err
}

// ---------------------------------------------------------------------------
// Link
// ---------------------------------------------------------------------------

type link struct {
	conn   quicgo.Connection
	stream quicgo.Stream
	wmu    sync.Mutex
}

func (l *link) Send(data []byte) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	return transport.WriteFrame(l.stream, data)
}

// Recv skips the empty frame a dialer opens its stream with.
func (l *link) Recv() ([]byte, error) {
	for {
		b, err := transport.ReadFrame(l.stream)
		if err != nil {
			return nil, err
		}
		if len(b) > 0 {
			return b, nil
		}
	}
}

func (l *link) RemoteAddr() net.Addr { return l.conn.RemoteAddr() }

func (l *link) Close() error {
	return l.conn.CloseWithError(0, "closed")
}

// ---------------------------------------------------------------------------
// TLS
// ---------------------------------------------------------------------------

func selfSignedCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return tls.Certificate{}, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: alpn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	if len(der) == 0 {
		return tls.Certificate{}, errors.New("quic: empty certificate")
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}
