package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ausocean/h266decode/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// testStream holds an AUD, a PPS, a unit with a bad emulation prevention
// sequence and a reserved unit.
var testStream = []byte{
	0x00, 0x00, 0x00, 0x01, 0x00, 0xa1, 0x50,
	0x00, 0x00, 0x01, 0x00, 0x81, 0x12, 0x80,
	0x00, 0x00, 0x01, 0x00, 0x81, 0x00, 0x00, 0x02,
	0x00, 0x00, 0x00, 0x01, 0x00, 0xd1, 0x80,
}

func testConfig() *config.Config {
	return &config.Config{ChunkSize: 5, MaxAccessUnitSize: 1024}
}

func TestDecodeStream(t *testing.T) {
	st, err := decodeStream(bytes.NewReader(testStream), testConfig(), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, streamStats{units: 4, discarded: 1}, st)
}

func TestDecodeStreamTooLarge(t *testing.T) {
	c := testConfig()
	c.MaxAccessUnitSize = 8
	_, err := decodeStream(bytes.NewReader(testStream), c, zaptest.NewLogger(t).Sugar())
	assert.Error(t, err)
}

func TestServerInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.266")
	require.NoError(t, os.WriteFile(path, testStream, 0o644))
	c := testConfig()
	c.Input = path

	core, logs := observer.New(zapcore.InfoLevel)
	app := fxtest.New(t,
		fx.Supply(c),
		fx.Supply(zap.New(core).Sugar()),
		fx.Provide(newServer),
		fx.Invoke(func(*server) {}),
	)
	app.RequireStart()

	select {
	case <-app.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("input was not decoded")
	}
	app.RequireStop()

	entries := logs.FilterMessage("stream finished").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 4, entries[0].ContextMap()["units"])
}

func TestServerListen(t *testing.T) {
	c := testConfig()
	c.Listen = "127.0.0.1:0"

	core, logs := observer.New(zapcore.InfoLevel)
	var s *server
	app := fxtest.New(t,
		fx.Supply(c),
		fx.Supply(zap.New(core).Sugar()),
		fx.Provide(newServer),
		fx.Populate(&s),
	)
	app.RequireStart()

	conn, err := net.Dial("tcp", s.ln.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write(testStream)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return logs.FilterMessage("stream finished").Len() == 1
	}, 5*time.Second, 10*time.Millisecond)
	app.RequireStop()

	assert.EqualValues(t, 1, logs.FilterMessage("stream finished").All()[0].ContextMap()["discarded"])
}

func TestServerStopClosesConnections(t *testing.T) {
	s := &server{cfg: testConfig(), log: zaptest.NewLogger(t).Sugar(), conns: make(map[net.Conn]struct{})}

	a, b := net.Pipe()
	require.True(t, s.track(a))
	go func() {
		io.Copy(io.Discard, a)
		s.wg.Done()
	}()
	s.stop()
	_, err := b.Write([]byte{0})
	assert.Error(t, err)

	// A connection accepted while stopping is closed rather than leaked.
	c, d := net.Pipe()
	assert.False(t, s.track(c))
	_, err = d.Write([]byte{0})
	assert.Error(t, err)
	assert.NotContains(t, s.conns, c)
}
