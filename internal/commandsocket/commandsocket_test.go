package commandsocket

import (
	"bufio"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeState struct {
	state       string
	startErr    error
	stopErr     error
	startCalled bool
	stopCalled  bool
}

func (f *fakeState) GetState() string { return f.state }
func (f *fakeState) RequestStart() error {
	f.startCalled = true
	if f.startErr == nil {
		f.state = "RUNNING"
	}
	return f.startErr
}
func (f *fakeState) RequestStop() error {
	f.stopCalled = true
	if f.stopErr == nil {
		f.state = "STOPPED"
	}
	return f.stopErr
}

type fakeDebug struct{}

func (fakeDebug) Handle(data []byte) []byte { return []byte{0x41, 0x00, 0x01} }

func startTestServer(t *testing.T, state *fakeState) (string, func()) {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "cmd.sock")

	srv := New(sockPath, state, fakeDebug{}, 1000, 1000)
	go srv.Serve()

	require.Eventually(t, func() bool {
		c, err := net.Dial("unix", sockPath)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, time.Second, 5*time.Millisecond)

	return sockPath, func() { srv.Close() }
}

func sendLine(t *testing.T, sockPath, line string) string {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(line + "\n"))
	require.NoError(t, err)

	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return reply[:len(reply)-1]
}

func TestPing(t *testing.T) {
	sockPath, cleanup := startTestServer(t, &fakeState{state: "STOPPED"})
	defer cleanup()
	assert.Equal(t, "PONG", sendLine(t, sockPath, "PING"))
}

func TestStatus(t *testing.T) {
	sockPath, cleanup := startTestServer(t, &fakeState{state: "STOPPED"})
	defer cleanup()
	assert.Equal(t, "STATUS:STOPPED", sendLine(t, sockPath, "STATUS"))
}

func TestStartSucceeds(t *testing.T) {
	sockPath, cleanup := startTestServer(t, &fakeState{state: "STOPPED"})
	defer cleanup()
	assert.Equal(t, "START:OK", sendLine(t, sockPath, "START"))
}

func TestStartAlreadyRunning(t *testing.T) {
	sockPath, cleanup := startTestServer(t, &fakeState{state: "RUNNING"})
	defer cleanup()
	assert.Equal(t, "START:ERROR_ALREADY_RUNNING", sendLine(t, sockPath, "START"))
}

func TestDebugRoundTrip(t *testing.T) {
	sockPath, cleanup := startTestServer(t, &fakeState{state: "RUNNING"})
	defer cleanup()
	assert.Equal(t, "DEBUG:410001", sendLine(t, sockPath, "DEBUG:41"))
}

func TestUnknownCommand(t *testing.T) {
	sockPath, cleanup := startTestServer(t, &fakeState{state: "STOPPED"})
	defer cleanup()
	assert.Equal(t, "COMMAND:ERROR", sendLine(t, sockPath, "BOGUS"))
}

func TestMalformedDebugHex(t *testing.T) {
	sockPath, cleanup := startTestServer(t, &fakeState{state: "STOPPED"})
	defer cleanup()
	assert.Equal(t, "COMMAND:ERROR", sendLine(t, sockPath, "DEBUG:zz"))
}
