package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSignedServerConfig(t *testing.T) *tls.Config {
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

	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
	return &tls.Config{Certificates: []tls.Certificate{cert}}
}

func startTLSEchoServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	listener, err := tls.Listen("tcp", "127.0.0.1:0", selfSignedServerConfig(t))
	require.NoError(t, err)

	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		connCh <- conn
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return
			}
		}
	}()

	return listener.Addr().String(), func() {
		_ = listener.Close()
		select {
		case conn := <-connCh:
			_ = conn.Close()
		case <-time.After(time.Second):
		}
	}
}

func dialEcho(t *testing.T, addr string) *Transport {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port := 0
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}

	tr, err := Dial(Config{Host: host, Port: port, InsecureSkipVerify: true, DialTimeout: 2 * time.Second})
	require.NoError(t, err)
	return tr
}

func TestDialSendRecvRoundTrip(t *testing.T) {
	addr, stop := startTLSEchoServer(t)
	defer stop()

	tr := dialEcho(t, addr)
	defer tr.Close()

	n, result, err := tr.Send([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, ResultOK, result)
	require.Equal(t, 5, n)

	buf := make([]byte, 64)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, result, err := tr.Recv(buf)
		require.NoError(t, err)
		if result == ResultOK {
			require.Equal(t, "hello", string(buf[:n]))
			return
		}
		require.Equal(t, ResultWouldBlock, result)
	}
	t.Fatal("did not receive echoed bytes before deadline")
}

func TestRecvReportsEOFOnServerClose(t *testing.T) {
	addr, stop := startTLSEchoServer(t)
	tr := dialEcho(t, addr)
	defer tr.Close()

	stop()

	buf := make([]byte, 64)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, result, err := tr.Recv(buf)
		require.NoError(t, err)
		if result == ResultEOF || result == ResultErr {
			return
		}
	}
	t.Fatal("did not observe EOF/Err before deadline")
}

func TestDialFailsOnUnreachableHost(t *testing.T) {
	_, err := Dial(Config{Host: "127.0.0.1", Port: 1, DialTimeout: 200 * time.Millisecond})
	require.Error(t, err)
}
