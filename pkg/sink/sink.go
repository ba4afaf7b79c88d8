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

// Package sink receives decoded sample rows from the acquisition loop.
package sink

import (
	"sync"
)

// Sink gets one call per decoded sample row. The row slice is reused by
// the caller, implementations must copy what they keep.
type Sink interface {
	PushSample(row []float64)
}

// RingBuffer is a fixed-capacity Sink that evicts the oldest rows on
// overflow. It is safe for one writer and concurrent readers.
type RingBuffer struct {
	mu    sync.Mutex
	rows  [][]float64
	next  int
	count int
}

var _ Sink = &RingBuffer{}

func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		rows: make([][]float64, capacity),
	}
}

func (b *RingBuffer) PushSample(row []float64) {
	stored := make([]float64, len(row))
	copy(stored, row)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[b.next] = stored
	b.next = (b.next + 1) % len(b.rows)
	if b.count < len(b.rows) {
		b.count++
	}
}

// Count returns the number of rows currently held
func (b *RingBuffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Latest returns up to n most recent rows, oldest first
func (b *RingBuffer) Latest(n int) [][]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.count {
		n = b.count
	}
	out := make([][]float64, 0, n)
	for i := 0; i < n; i++ {
		pos := (b.next - n + i + len(b.rows)) % len(b.rows)
		out = append(out, b.rows[pos])
	}
	return out
}
