package ingest

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockrelay/relayer/internal/blockengine"
	"github.com/blockrelay/relayer/internal/forward"
)

func TestListener_ForwardsDatagramsToStage(t *testing.T) {
	stage := forward.New(0, blockengine.New())
	l := New("127.0.0.1:0", stage)
	l.Start()
	require.NoError(t, l.Status())
	defer l.Stop()

	addr := l.conn.LocalAddr().(*net.UDPAddr)
	conn, err := net.DialUDP("udp", nil, addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	select {
	case db := <-stage.Out():
		require.Len(t, db.Batch.Packets, 1)
		require.Equal(t, []byte("hello"), db.Batch.Packets[0].Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ingested datagram")
	}
}

func TestListener_StatusReflectsBindFailure(t *testing.T) {
	l := New("not-a-valid-address", forward.New(0, blockengine.New()))
	l.Start()
	require.Error(t, l.Status())
}

func TestListener_StopClosesSocket(t *testing.T) {
	l := New("127.0.0.1:0", forward.New(0, blockengine.New()))
	l.Start()
	require.NoError(t, l.Status())
	require.NoError(t, l.Stop())
}
