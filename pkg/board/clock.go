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
	"time"
)

// TimeDeltaWindow is the number of recent host-device clock deltas the
// applied correction is averaged over. A single delta is too noisy, a
// longer window would lag behind real drift.
const TimeDeltaWindow = 10

// Clock keeps the device/host clock reconciliation state. The delta ring
// is read and written only by the acquisition goroutine, halfRTT is only
// updated by explicit probes which are refused while streaming, so no
// locking is needed.
type Clock struct {
	halfRTT float64
	deltas  [TimeDeltaWindow]float64
	next    int
	count   int
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) SetHalfRTT(v float64) {
	c.halfRTT = v
}

func (c *Clock) HalfRTT() float64 {
	return c.halfRTT
}

// AddDelta pushes one host-device timestamp delta, evicting the oldest
// once the window is full
func (c *Clock) AddDelta(d float64) {
	c.deltas[c.next] = d
	c.next = (c.next + 1) % TimeDeltaWindow
	if c.count < TimeDeltaWindow {
		c.count++
	}
}

// Delta returns the arithmetic mean of the deltas currently in the window
func (c *Clock) Delta() float64 {
	if c.count == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < c.count; i++ {
		sum += c.deltas[i]
	}
	return sum / float64(c.count)
}

// ProbeResult is the outcome of one explicit RTT probe, serialized to the
// caller of config_board
type ProbeResult struct {
	RTT             float64 `json:"rtt"`
	DeviceTimestamp float64 `json:"timestamp_device"`
	PCTimestamp     float64 `json:"pc_timestamp"`
}

// now returns the host clock as float seconds since the epoch
func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
