package session

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"log/slog"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaykey/relaykey/internal/transport"
)

// testRouter is a minimal stand-in for internal/router.Router: it only
// understands enough of the wire protocol to drive the handshake, so
// session tests don't need to depend on the router package.
type testRouter struct {
	session *Session
}

func (r *testRouter) Route(frame []byte) {
	if bytesContains(frame, "channel_joined") {
		r.session.Send([]byte(`{"type":"set_braille_info","name":"noBraille","numCells":0}`))
		r.session.MarkHandshakeComplete()
	}
}

func bytesContains(haystack []byte, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == needle {
			return true
		}
	}
	return false
}

func selfSignedConfig(t *testing.T) *tls.Config {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(t, err)
	return &tls.Config{Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: priv}}}
}

// startBareServer accepts connections and does nothing further.
func startBareServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	listener, err := tls.Listen("tcp", "127.0.0.1:0", selfSignedConfig(t))
	require.NoError(t, err)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go io.Copy(io.Discard, conn)
		}
	}()

	return listener.Addr().String(), func() { _ = listener.Close() }
}

// startHandshakeServer replies to join with channel_joined, as the relay does.
func startHandshakeServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	listener, err := tls.Listen("tcp", "127.0.0.1:0", selfSignedConfig(t))
	require.NoError(t, err)

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		joined := false
		for scanner.Scan() {
			line := scanner.Text()
			if !joined && bytesContains([]byte(line), `"type":"join"`) {
				_, _ = conn.Write([]byte("{\"type\":\"channel_joined\"}\n"))
				joined = true
			}
		}
	}()

	return listener.Addr().String(), func() { _ = listener.Close() }
}

func dialConfig(t *testing.T, addr string) transport.Config {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return transport.Config{Host: host, Port: port, InsecureSkipVerify: true, DialTimeout: 2 * time.Second}
}

func newTestSession() (*Session, *testRouter) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := &testRouter{}
	s := New(r, logger, nil)
	r.session = s
	return s, r
}

func TestConnectTransitionsToConnected(t *testing.T) {
	addr, stop := startBareServer(t)
	defer stop()

	s, _ := newTestSession()
	require.NoError(t, s.Connect(dialConfig(t, addr)))
	require.Equal(t, "connected", s.Status().String())
}

func TestConnectFailsWhenAlreadyConnected(t *testing.T) {
	addr, stop := startBareServer(t)
	defer stop()

	s, _ := newTestSession()
	require.NoError(t, s.Connect(dialConfig(t, addr)))
	require.Error(t, s.Connect(dialConfig(t, addr)))
}

func TestStartPerformsHandshakeAndBecomesReady(t *testing.T) {
	addr, stop := startHandshakeServer(t)
	defer stop()

	s, _ := newTestSession()
	require.NoError(t, s.Connect(dialConfig(t, addr)))
	require.NoError(t, s.Start("test-channel"))
	require.True(t, s.IsReady())

	s.Disconnect()
}

func TestSendReturnsFalseWhenNotConnected(t *testing.T) {
	s, _ := newTestSession()
	require.False(t, s.Send([]byte(`{"type":"speak"}`)))
}

func TestDisconnectIsIdempotentAndFiresCallbackOnce(t *testing.T) {
	addr, stop := startHandshakeServer(t)
	defer stop()

	s, _ := newTestSession()
	require.NoError(t, s.Connect(dialConfig(t, addr)))
	require.NoError(t, s.Start("test-channel"))

	calls := 0
	s.OnDisconnect(func() { calls++ })

	done := make(chan struct{})
	go func() { s.Disconnect(); close(done) }()
	s.Disconnect()
	<-done

	require.Equal(t, 1, calls)
	require.Equal(t, "disconnected", s.Status().String())
}

func TestStartTimesOutWhenChannelJoinedNeverArrives(t *testing.T) {
	addr, stop := startBareServer(t)
	defer stop()

	s, _ := newTestSession()
	require.NoError(t, s.Connect(dialConfig(t, addr)))

	err := s.Start("test-channel")
	require.Error(t, err)

	var protoErr *ProtocolErr
	require.ErrorAs(t, err, &protoErr)
	require.False(t, s.IsReady())

	s.Disconnect()
}

func TestDisconnectBeforeStartIsSafe(t *testing.T) {
	addr, stop := startBareServer(t)
	defer stop()

	s, _ := newTestSession()
	require.NoError(t, s.Connect(dialConfig(t, addr)))
	s.Disconnect()
	require.Equal(t, "disconnected", s.Status().String())
}
