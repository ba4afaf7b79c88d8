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
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// mockPort is a scripted serial.Port. Bytes queued via feed are served to
// Receive, optionally split according to a cycling chunk pattern. Sending
// the RTT probe command makes the reply appear at the front of the queue,
// like a real board answering before resuming its stream.
type mockPort struct {
	mu       sync.Mutex
	stream   []byte
	chunks   []int
	chunkPos int
	sent     []string

	probeReplyMS float32

	opened        bool
	failOpen      error
	failConfigure error
	shortWrite    bool
}

func newMockPort() *mockPort {
	return &mockPort{probeReplyMS: 1500}
}

func (m *mockPort) feed(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stream = append(m.stream, data...)
}

func (m *mockPort) setChunks(chunks []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = chunks
	m.chunkPos = 0
}

func (m *mockPort) sentCommands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *mockPort) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stream)
}

func (m *mockPort) Open() error {
	if m.failOpen != nil {
		return m.failOpen
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	return nil
}

func (m *mockPort) Configure(timeout time.Duration, baud int) error {
	return m.failConfigure
}

func (m *mockPort) Send(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, string(data))
	if m.shortWrite {
		return len(data) - 1, nil
	}
	if string(data) == timeProbeCmd {
		reply := make([]byte, 4)
		binary.LittleEndian.PutUint32(reply, math.Float32bits(m.probeReplyMS))
		m.stream = append(reply, m.stream...)
	}
	return len(data), nil
}

func (m *mockPort) Receive(buf []byte) (int, error) {
	m.mu.Lock()
	if len(m.stream) == 0 {
		m.mu.Unlock()
		// behave like a serial read timeout instead of spinning
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	n := len(buf)
	if len(m.chunks) > 0 {
		if limit := m.chunks[m.chunkPos%len(m.chunks)]; limit < n {
			n = limit
		}
		m.chunkPos++
	}
	if n > len(m.stream) {
		n = len(m.stream)
	}
	copy(buf, m.stream[:n])
	m.stream = m.stream[n:]
	m.mu.Unlock()
	return n, nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}
