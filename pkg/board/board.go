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

// Package board implements the streaming controller of the Galea serial
// acquisition core: session lifecycle, the command channel to the device
// and the acquisition loop that turns the raw byte stream into sample
// rows.
package board

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"sync"
	"time"

	"openbci.org/galea/go-galea/pkg/config"
	"openbci.org/galea/go-galea/pkg/layout"
	"openbci.org/galea/go-galea/pkg/log"
	"openbci.org/galea/go-galea/pkg/serial"
	"openbci.org/galea/go-galea/pkg/sink"
)

const (
	// CmdStart and CmdStop control the firmware streaming loop
	CmdStart = "b"
	CmdStop  = "s"
	// CmdCalcTime is not forwarded to the board, it triggers the RTT probe
	CmdCalcTime = "calc_time"

	// timeProbeCmd is answered with 4 bytes holding a little-endian
	// float32 device timestamp in milliseconds
	timeProbeCmd   = "F444\n"
	bytesToCalcRTT = 4

	// NumWarmupProbes RTT probes run before start and after stop
	NumWarmupProbes = 3

	// StartWaitTimeout bounds the wait for the first valid transaction
	StartWaitTimeout = 3 * time.Second

	// MaxDrainAttempts bounds the post-stop drain so a board that never
	// stops transmitting can not hang the session
	MaxDrainAttempts = 40000
)

// defaultSettings are pushed to the board during prepare: demo mode with
// agnd and the default sampling rate
var defaultSettings = []string{"o", "~6"}

// State of the session lifecycle
type State int

const (
	Unprepared State = iota
	Prepared
	Streaming
)

func (s State) String() string {
	switch s {
	case Prepared:
		return "prepared"
	case Streaming:
		return "streaming"
	default:
		return "unprepared"
	}
}

// Board drives one Galea board attached over a serial link. All public
// operations are serialized; the only concurrency is the single
// acquisition goroutine launched by StartStream.
type Board struct {
	cfg    *config.Config
	layout *layout.Layout
	port   serial.Port
	out    sink.Sink
	clock  *Clock
	store  *SessionStore

	mu     sync.Mutex
	state  State
	opened bool

	// acquisition goroutine lifecycle: cancel requests a cooperative
	// exit, done is closed when the goroutine returned, firstFrame is
	// closed once by the goroutine when the first valid transaction was
	// observed
	cancel     context.CancelFunc
	done       chan struct{}
	firstFrame chan struct{}
	startWait  time.Duration
}

// NewBoard ...
// The port is injected so tests can supply a scripted transport.
func NewBoard(cfg *config.Config, port serial.Port, out sink.Sink) (*Board, error) {
	var l *layout.Layout
	var err error
	if cfg.LayoutPath != "" {
		l, err = layout.Load(cfg.LayoutPath)
		if err != nil {
			return nil, err
		}
	} else {
		l = layout.Default()
		if err = l.Validate(); err != nil {
			return nil, err
		}
	}

	b := &Board{
		cfg:       cfg,
		layout:    l,
		port:      port,
		out:       out,
		clock:     NewClock(),
		startWait: StartWaitTimeout,
	}

	if cfg.DBPath != "" {
		store, err := NewSessionStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		b.store = store
	}

	return b, nil
}

// State returns the current session state
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// PrepareSession opens and configures the transport and pushes the
// default board settings. Calling it on a prepared session is a no-op.
func (b *Board) PrepareSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Unprepared {
		log.Info("Session is already prepared")
		return nil
	}
	if b.cfg.SerialPort == "" {
		log.Error("Serial port is not specified")
		return ErrInvalidArguments{Reason: "serial port is not specified"}
	}
	b.cfg.ClampTimeout()

	if err := b.port.Open(); err != nil {
		log.Error("Make sure you provided correct port name and have permissions to open it. "+
			"Also close all other apps using this port. %s", err)
		return ErrOpenPort{Port: b.cfg.SerialPort, Err: err}
	}
	b.opened = true

	if err := b.port.Configure(time.Duration(b.cfg.Timeout)*time.Second, config.BaudRate); err != nil {
		log.Error("Unable to set port settings: %s", err)
		b.closePort()
		return ErrPortSetup{Port: b.cfg.SerialPort, Err: err}
	}
	log.Debug("Set port settings")

	for _, conf := range defaultSettings {
		if _, err := b.configBoard(conf); err != nil {
			log.Error("Failed to apply default setting %q", conf)
			b.closePort()
			return ErrBoardNotReady{Cmd: conf, Err: err}
		}
	}

	b.state = Prepared
	return nil
}

// ConfigBoard sends a configuration string to the board. The reserved
// calc_time command runs the RTT probe instead and returns its serialized
// result.
func (b *Board) ConfigBoard(conf string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.configBoard(conf)
}

func (b *Board) configBoard(conf string) (string, error) {
	if !b.opened {
		log.Error("You need to call prepare_session before config_board")
		return "", ErrBoardNotCreated{Op: "config_board"}
	}

	if conf == CmdCalcTime {
		if b.state == Streaming {
			log.Error("Can not calc delay during the streaming")
			return "", ErrStreamAlreadyRunning{}
		}
		result, err := b.calcTime()
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(result)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	cmd := conf + "\n"
	log.Debug("Trying to config the board with %q", cmd)
	n, err := b.port.Send([]byte(cmd))
	if err != nil || n != len(cmd) {
		log.Error("Failed to config the board")
		return "", ErrWrite{Cmd: conf, Wrote: n, Want: len(cmd)}
	}
	if b.store != nil {
		if err := b.store.RecordSetting(b.cfg.SerialPort, conf); err != nil {
			log.Warning("Unable to record setting %q: %s", conf, err)
		}
	}
	return "", nil
}

// calcTime runs one explicit RTT probe and refreshes the half-RTT
// estimate
func (b *Board) calcTime() (*ProbeResult, error) {
	buf := make([]byte, bytesToCalcRTT)

	start := now()
	n, err := b.port.Send([]byte(timeProbeCmd))
	if err != nil || n != len(timeProbeCmd) {
		log.Warning("Failed to send time calc command to device")
		return nil, ErrWrite{Cmd: CmdCalcTime, Wrote: n, Want: len(timeProbeCmd)}
	}
	n, err = b.port.Receive(buf)
	done := now()
	if err != nil || n != bytesToCalcRTT {
		log.Warning("Failed to recv resp from time calc command, resp size %d", n)
		return nil, ErrWrite{Cmd: CmdCalcTime, Wrote: n, Want: bytesToCalcRTT}
	}

	duration := done - start
	deviceTimestamp := float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))) / 1000
	b.clock.SetHalfRTT(duration / 2)

	result := &ProbeResult{
		RTT:             duration,
		DeviceTimestamp: deviceTimestamp,
		PCTimestamp:     start + duration/2,
	}
	log.Info("calc_time output: rtt %f device %f pc %f", result.RTT, result.DeviceTimestamp, result.PCTimestamp)
	if b.store != nil {
		if err := b.store.RecordProbe(b.cfg.SerialPort, result); err != nil {
			log.Warning("Unable to record probe result: %s", err)
		}
	}
	return result, nil
}

// StartStream warms up the clock offset with RTT probes, sends the start
// command, launches the acquisition goroutine and waits for the first
// valid transaction. If nothing arrives within the wait window the
// session is stopped again and a sync timeout is reported.
func (b *Board) StartStream() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Unprepared {
		log.Error("You need to call prepare_session before start_stream")
		return ErrBoardNotCreated{Op: "start_stream"}
	}
	if b.state == Streaming {
		log.Error("Streaming thread already running")
		return ErrStreamAlreadyRunning{}
	}

	for i := 0; i < NumWarmupProbes; i++ {
		if _, err := b.calcTime(); err != nil {
			return err
		}
	}

	if _, err := b.configBoard(CmdStart); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	b.firstFrame = make(chan struct{})
	b.state = Streaming
	go b.readLoop(ctx)

	select {
	case <-b.firstFrame:
		return nil
	case <-time.After(b.startWait):
		log.Error("No data received in %s, stopping thread", b.startWait)
		if err := b.stopStream(); err != nil {
			log.Error("Implicit stop after sync timeout failed: %s", err)
		}
		return ErrSyncTimeout{}
	}
}

// StopStream asks the acquisition goroutine to exit, joins it, sends the
// stop command and drains whatever the board still transmits. The closing
// diagnostic probes never fail the stop.
func (b *Board) StopStream() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopStream()
}

func (b *Board) stopStream() error {
	if b.state != Streaming {
		return ErrStreamNotRunning{}
	}

	b.cancel()
	<-b.done
	b.state = Prepared

	if _, err := b.configBoard(CmdStop); err != nil {
		return err
	}

	// free the kernel buffer
	one := make([]byte, 1)
	attempts := 0
	for {
		n, err := b.port.Receive(one)
		if err != nil || n != 1 {
			break
		}
		attempts++
		if attempts == MaxDrainAttempts {
			log.Error("Command %q was sent but streaming is still running", CmdStop)
			return ErrDrain{Attempts: attempts}
		}
	}

	for i := 0; i < NumWarmupProbes; i++ {
		if _, err := b.calcTime(); err != nil {
			break
		}
	}
	return nil
}

// ReleaseSession tears the session down from any state. Safe to call
// multiple times.
func (b *Board) ReleaseSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Streaming {
		if err := b.stopStream(); err != nil {
			log.Error("Stop during release failed: %s", err)
		}
	}
	if b.opened {
		b.closePort()
	}
	if b.store != nil {
		b.store.Close()
		b.store = nil
	}
	b.state = Unprepared
	return nil
}

// LastProbe returns the persisted result of the most recent RTT probe
func (b *Board) LastProbe() (*ProbeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store == nil {
		return nil, ErrNoProbeRecorded{Port: b.cfg.SerialPort}
	}
	return b.store.LastProbe(b.cfg.SerialPort)
}

func (b *Board) closePort() {
	if err := b.port.Close(); err != nil {
		log.Warning("Error while closing serial port: %s", err)
	}
	b.opened = false
}
