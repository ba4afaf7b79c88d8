/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package board

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"openbci.org/galea/go-galea/pkg/config"
	"openbci.org/galea/go-galea/pkg/sink"
)

func newTestBoard(t *testing.T, port *mockPort) (*Board, *sink.RingBuffer) {
	cfg := &config.Config{SerialPort: "/dev/ttyTEST", Timeout: 3}
	ring := sink.NewRingBuffer(256)
	b, err := NewBoard(cfg, port, ring)
	require.NoError(t, err)
	return b, ring
}

func waitRows(t *testing.T, ring *sink.RingBuffer, want int) {
	deadline := time.Now().Add(2 * time.Second)
	for ring.Count() < want {
		require.True(t, time.Now().Before(deadline), "timed out waiting for %d rows, have %d", want, ring.Count())
		time.Sleep(time.Millisecond)
	}
}

func TestLifecycleGuards(t *testing.T) {
	b, _ := newTestBoard(t, newMockPort())

	err := b.StartStream()
	require.Error(t, err)
	require.IsType(t, ErrBoardNotCreated{}, err)

	err = b.StopStream()
	require.Error(t, err)
	require.IsType(t, ErrStreamNotRunning{}, err)

	_, err = b.ConfigBoard("o")
	require.Error(t, err)
	require.IsType(t, ErrBoardNotCreated{}, err)
}

func TestPrepareRequiresPortName(t *testing.T) {
	cfg := &config.Config{Timeout: 3}
	b, err := NewBoard(cfg, newMockPort(), sink.NewRingBuffer(16))
	require.NoError(t, err)
	err = b.PrepareSession()
	require.Error(t, err)
	require.IsType(t, ErrInvalidArguments{}, err)
	require.Equal(t, Unprepared, b.State())
}

func TestPrepareAppliesDefaultSettings(t *testing.T) {
	port := newMockPort()
	b, _ := newTestBoard(t, port)

	require.NoError(t, b.PrepareSession())
	require.Equal(t, Prepared, b.State())
	require.Equal(t, []string{"o\n", "~6\n"}, port.sentCommands())

	// prepare on a prepared session is a no-op
	require.NoError(t, b.PrepareSession())
	require.Equal(t, []string{"o\n", "~6\n"}, port.sentCommands())
}

func TestPrepareClampsTimeout(t *testing.T) {
	port := newMockPort()
	cfg := &config.Config{SerialPort: "/dev/ttyTEST", Timeout: 9999}
	b, err := NewBoard(cfg, port, sink.NewRingBuffer(16))
	require.NoError(t, err)
	require.NoError(t, b.PrepareSession())
	require.Equal(t, config.DefaultTimeout, cfg.Timeout)
}

func TestPrepareOpenFailure(t *testing.T) {
	port := newMockPort()
	port.failOpen = errors.New("permission denied")
	b, _ := newTestBoard(t, port)

	err := b.PrepareSession()
	require.Error(t, err)
	require.IsType(t, ErrOpenPort{}, err)
	require.Equal(t, Unprepared, b.State())
}

func TestPrepareSetupFailureClosesPort(t *testing.T) {
	port := newMockPort()
	port.failConfigure = errors.New("baud not supported")
	b, _ := newTestBoard(t, port)

	err := b.PrepareSession()
	require.Error(t, err)
	require.IsType(t, ErrPortSetup{}, err)
	require.Equal(t, Unprepared, b.State())
	require.False(t, port.opened)
}

func TestConfigShortWrite(t *testing.T) {
	port := newMockPort()
	b, _ := newTestBoard(t, port)
	require.NoError(t, b.PrepareSession())

	port.shortWrite = true
	_, err := b.ConfigBoard("x")
	require.Error(t, err)
	require.IsType(t, ErrWrite{}, err)
}

func TestConfigCalcTime(t *testing.T) {
	port := newMockPort()
	b, _ := newTestBoard(t, port)
	require.NoError(t, b.PrepareSession())

	resp, err := b.ConfigBoard(CmdCalcTime)
	require.NoError(t, err)

	result := &ProbeResult{}
	require.NoError(t, json.Unmarshal([]byte(resp), result))
	require.True(t, result.RTT >= 0)
	require.InDelta(t, 1.5, result.DeviceTimestamp, 1e-6)
	require.Equal(t, result.RTT/2, b.clock.HalfRTT())
}

func TestCleanSession(t *testing.T) {
	port := newMockPort()
	b, ring := newTestBoard(t, port)

	require.NoError(t, b.PrepareSession())

	port.feed(framedTransaction(t, 1000))
	port.feed(framedTransaction(t, 2000))

	require.NoError(t, b.StartStream())
	require.Equal(t, Streaming, b.State())

	// probe is refused while streaming
	_, err := b.ConfigBoard(CmdCalcTime)
	require.Error(t, err)
	require.IsType(t, ErrStreamAlreadyRunning{}, err)

	waitRows(t, ring, 2*rowsPerTransaction())

	require.NoError(t, b.StopStream())
	require.Equal(t, Prepared, b.State())
	require.Equal(t, 0, port.pending())

	want := []string{
		"o\n", "~6\n",
		timeProbeCmd, timeProbeCmd, timeProbeCmd,
		"b\n",
		"s\n",
		timeProbeCmd, timeProbeCmd, timeProbeCmd,
	}
	require.Equal(t, want, port.sentCommands())

	require.NoError(t, b.ReleaseSession())
	require.Equal(t, Unprepared, b.State())
	require.NoError(t, b.ReleaseSession())
}

func TestStartTimeout(t *testing.T) {
	port := newMockPort()
	b, _ := newTestBoard(t, port)
	require.NoError(t, b.PrepareSession())

	b.startWait = 100 * time.Millisecond
	started := time.Now()
	err := b.StartStream()
	require.Error(t, err)
	require.IsType(t, ErrSyncTimeout{}, err)
	require.True(t, time.Since(started) < 3*time.Second)

	// the failed start left a stopped, releasable session behind
	require.Equal(t, Prepared, b.State())
	require.Contains(t, port.sentCommands(), "s\n")
	require.NoError(t, b.ReleaseSession())
}

func TestStartWhileStreaming(t *testing.T) {
	port := newMockPort()
	b, ring := newTestBoard(t, port)
	require.NoError(t, b.PrepareSession())
	port.feed(framedTransaction(t, 1000))
	require.NoError(t, b.StartStream())
	waitRows(t, ring, rowsPerTransaction())

	err := b.StartStream()
	require.Error(t, err)
	require.IsType(t, ErrStreamAlreadyRunning{}, err)

	require.NoError(t, b.StopStream())
}
