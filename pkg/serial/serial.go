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

// Package serial is the byte-level transport boundary of the acquisition
// core. It owns no protocol knowledge.
package serial

import (
	"time"

	tarm "github.com/tarm/serial"
)

// Port is the transport consumed by the streaming controller. Receive may
// return fewer bytes than requested, a zero count means no data arrived
// within the configured timeout and is not necessarily fatal.
type Port interface {
	Open() error
	Configure(timeout time.Duration, baud int) error
	Send(data []byte) (int, error)
	Receive(buf []byte) (int, error)
	Close() error
}

// TTY is a Port backed by a physical serial device file
type TTY struct {
	name string
	port *tarm.Port
}

var _ Port = &TTY{}

func NewTTY(name string) *TTY {
	return &TTY{name: name}
}

// Open opens the device file with conservative settings. The link is not
// usable for board traffic until Configure applied the custom baud rate.
func (t *TTY) Open() error {
	if t.name == "" {
		return ErrNoPortName{}
	}
	port, err := tarm.OpenPort(&tarm.Config{Name: t.name, Baud: 115200})
	if err != nil {
		return err
	}
	t.port = port
	return nil
}

// Configure reopens the device file with the read timeout and the custom
// baud rate the board requires
func (t *TTY) Configure(timeout time.Duration, baud int) error {
	if t.port == nil {
		return ErrPortNotOpen{Port: t.name}
	}
	if err := t.port.Close(); err != nil {
		return err
	}
	port, err := tarm.OpenPort(&tarm.Config{Name: t.name, Baud: baud, ReadTimeout: timeout})
	if err != nil {
		t.port = nil
		return err
	}
	t.port = port
	return nil
}

func (t *TTY) Send(data []byte) (int, error) {
	if t.port == nil {
		return 0, ErrPortNotOpen{Port: t.name}
	}
	return t.port.Write(data)
}

func (t *TTY) Receive(buf []byte) (int, error) {
	if t.port == nil {
		return 0, ErrPortNotOpen{Port: t.name}
	}
	return t.port.Read(buf)
}

func (t *TTY) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}
