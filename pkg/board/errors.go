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
	"fmt"
)

// ErrInvalidArguments returned when the session configuration is not usable
type ErrInvalidArguments struct {
	Reason string
}

func (e ErrInvalidArguments) Error() string {
	return fmt.Sprintf("Invalid arguments: %s", e.Reason)
}

// ErrOpenPort returned when the serial device file can not be opened
type ErrOpenPort struct {
	Port string
	Err  error
}

func (e ErrOpenPort) Error() string {
	return fmt.Sprintf("Unable to open serial port %s: %s", e.Port, e.Err)
}

func (e ErrOpenPort) Unwrap() error {
	return e.Err
}

// ErrPortSetup returned when timeout or baud rate can not be applied
type ErrPortSetup struct {
	Port string
	Err  error
}

func (e ErrPortSetup) Error() string {
	return fmt.Sprintf("Unable to set port settings on %s: %s", e.Port, e.Err)
}

func (e ErrPortSetup) Unwrap() error {
	return e.Err
}

// ErrBoardNotReady returned when the board rejects a default setting
// during prepare
type ErrBoardNotReady struct {
	Cmd string
	Err error
}

func (e ErrBoardNotReady) Error() string {
	return fmt.Sprintf("Board rejected default setting %q: %s", e.Cmd, e.Err)
}

func (e ErrBoardNotReady) Unwrap() error {
	return e.Err
}

// ErrBoardNotCreated returned when an operation is called before the
// session was prepared
type ErrBoardNotCreated struct {
	Op string
}

func (e ErrBoardNotCreated) Error() string {
	return fmt.Sprintf("You need to call prepare_session before %s", e.Op)
}

// ErrStreamAlreadyRunning returned when an operation requires the stream
// to be stopped first
type ErrStreamAlreadyRunning struct{}

func (e ErrStreamAlreadyRunning) Error() string {
	return "Streaming thread already running"
}

// ErrStreamNotRunning returned by stop when there is nothing to stop
type ErrStreamNotRunning struct{}

func (e ErrStreamNotRunning) Error() string {
	return "Streaming thread is not running"
}

// ErrSyncTimeout returned when no valid transaction arrived within the
// start wait window
type ErrSyncTimeout struct{}

func (e ErrSyncTimeout) Error() string {
	return "No data received within the start wait window"
}

// ErrWrite returned on a short or failed write to the transport
type ErrWrite struct {
	Cmd   string
	Wrote int
	Want  int
}

func (e ErrWrite) Error() string {
	return fmt.Sprintf("Failed to send %q to the board: wrote %d of %d bytes", e.Cmd, e.Wrote, e.Want)
}

// ErrDrain returned when the board keeps transmitting after the stop
// command despite the drain retry ceiling
type ErrDrain struct {
	Attempts int
}

func (e ErrDrain) Error() string {
	return fmt.Sprintf("Stop command was sent but streaming is still running after %d drain reads", e.Attempts)
}
