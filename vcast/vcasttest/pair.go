package vcasttest

import (
	"context"
	"net"
	"testing"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
	"github.com/verity-engine/verity/vcast"
)

// Pair is a connected holder listener and client connection
// on the loopback interface, for exercising [vcast.Holder]
// and [vcast.Client] against each other in tests.
type Pair struct {
	// Listener is the holder side, ready to be passed
	// in a [vcast.HolderConfig].
	Listener *quic.Listener

	// Conn is the client side, ready to be passed
	// in a [vcast.ClientConfig].
	Conn quic.Connection
}

// NewPair opens a loopback QUIC listener with a self-signed certificate
// and dials it, returning both ends.
// Cleanup of the sockets is registered on t.
func NewPair(t *testing.T, ctx context.Context) Pair {
	t.Helper()

	serverTLS, clientTLS := GenerateTLS(t, vcast.DefaultALPN)

	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{
		IP: net.IPv4(127, 0, 0, 1),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		udpConn.Close()
	})

	qt := &quic.Transport{
		Conn: udpConn,
	}
	t.Cleanup(func() {
		qt.Close()
	})

	ql, err := qt.Listen(serverTLS, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ql.Close()
	})

	conn, err := quic.DialAddr(ctx, ql.Addr().String(), clientTLS, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.CloseWithError(0, "test finished")
	})

	return Pair{
		Listener: ql,
		Conn:     conn,
	}
}
