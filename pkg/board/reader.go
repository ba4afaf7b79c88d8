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
	"context"

	"openbci.org/galea/go-galea/pkg/layers"
	"openbci.org/galea/go-galea/pkg/log"
)

// readLoop is the acquisition goroutine: scan for the start sentinel,
// accumulate one transaction, validate the stop sentinel, decode and push
// sample rows. Framing failures are retried silently, cancellation is
// honored inside the byte accumulation so a stop request never waits for
// a full transaction.
func (b *Board) readLoop(ctx context.Context) {
	defer close(b.done)

	buf := make([]byte, layers.TransactionSize)
	one := make([]byte, 1)
	row := make([]float64, b.layout.NumRows)
	first := false

	for ctx.Err() == nil {
		n, err := b.port.Receive(one)
		if err != nil || n != 1 {
			log.Debug("Unable to read 1 byte")
			continue
		}
		// host receipt timestamp is taken at first-byte arrival, before
		// any decoding, latency accounting depends on that
		pcTimestamp := now()
		if one[0] != layers.StartByte {
			continue
		}

		remaining := layers.TransactionSize
		pos := 0
		for remaining > 0 && ctx.Err() == nil {
			n, err = b.port.Receive(buf[pos:])
			if err != nil {
				log.Debug("Short read: %s", err)
				continue
			}
			if n > 0 {
				pos += n
				remaining -= n
			}
		}
		if ctx.Err() != nil {
			break
		}

		n, err = b.port.Receive(one)
		if err != nil || n != 1 {
			log.Debug("Failed to read last byte")
			continue
		}
		if one[0] != layers.StopByte {
			log.Debug("Wrong end byte %d", one[0])
			continue
		}

		if !first {
			first = true
			log.Info("Received first transaction, streaming is started")
			close(b.firstFrame)
		}

		t, err := layers.DecodeTransaction(buf)
		if err != nil {
			// the buffer is always exactly one transaction, reaching
			// this is an internal invariant failure
			log.Error("Transaction decode failed: %s", err)
			return
		}

		// the transaction's own delta is part of the average applied to
		// its rows, so push it before emitting anything
		last := t.Packages[len(t.Packages)-1]
		b.clock.AddDelta(pcTimestamp - last.DeviceTimestamp())
		delta := b.clock.Delta()
		halfRTT := b.clock.HalfRTT()

		for _, p := range t.Packages {
			row[b.layout.PackageNumChannel] = float64(p.PackageNum)
			for i, v := range p.ExgValues() {
				row[b.layout.ExgChannels[i]] = v
			}
			row[b.layout.PPGChannels[0]] = float64(p.PPGRed)
			row[b.layout.PPGChannels[1]] = float64(p.PPGIR)
			row[b.layout.EDAChannels[0]] = float64(p.EDA)
			row[b.layout.TemperatureChannels[0]] = p.Temperature()
			row[b.layout.BatteryChannel] = float64(p.Battery)
			deviceTimestamp := p.DeviceTimestamp()
			row[b.layout.TimestampChannel] = deviceTimestamp + delta - halfRTT
			row[b.layout.OtherChannels[0]] = pcTimestamp
			row[b.layout.OtherChannels[1]] = deviceTimestamp
			b.out.PushSample(row)

			// EXG sub-packages reuse the auxiliary values of their
			// parent row and bump the package counter
			for _, sub := range p.Sub {
				for i, v := range sub.ExgValues() {
					row[b.layout.ExgChannels[i]] = v
				}
				deviceTimestamp = sub.DeviceTimestamp()
				row[b.layout.TimestampChannel] = deviceTimestamp + delta - halfRTT
				row[b.layout.OtherChannels[0]] = pcTimestamp
				row[b.layout.OtherChannels[1]] = deviceTimestamp
				row[b.layout.PackageNumChannel]++
				b.out.PushSample(row)
			}
		}
	}
}
