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
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/require"

	"openbci.org/galea/go-galea/pkg/layers"
)

func rowsPerTransaction() int {
	return layers.RowsPerTransaction
}

// makeTransaction builds a deterministic transaction. Base package i gets
// package number 5*i so the emitted rows count 0..19 after the sub-package
// increments.
func makeTransaction(baseMS float32) *layers.TransactionLayer {
	tr := &layers.TransactionLayer{}
	for i := 0; i < layers.NumBasePackages; i++ {
		p := &layers.BasePackage{
			PackageNum:        uint8(5 * i),
			EDA:               0.25,
			Battery:           93,
			TemperatureRaw:    3650,
			PPGRed:            120000,
			PPGIR:             -3500,
			DeviceTimestampMS: baseMS + float32(i),
		}
		for c := 0; c < layers.NumExgChannels; c++ {
			p.ExgCounts[c] = int32(1000*(i+1) + c)
		}
		for k := 0; k < layers.NumExgPackagesPerBase; k++ {
			sub := &layers.ExgPackage{
				DeviceTimestampMS: baseMS + float32(i) + 0.25*float32(k+1),
			}
			for c := 0; c < layers.NumExgChannels; c++ {
				sub.ExgCounts[c] = int32(-2000*(k+1) - c)
			}
			p.Sub = append(p.Sub, sub)
		}
		tr.Packages = append(tr.Packages, p)
	}
	return tr
}

func framedTransaction(t *testing.T, baseMS float32) []byte {
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, makeTransaction(baseMS).SerializeTo(buf, gopacket.SerializeOptions{}))
	framed := append([]byte{layers.StartByte}, buf.Bytes()...)
	return append(framed, layers.StopByte)
}

// startReader launches readLoop directly, bypassing StartStream, so frame
// synchronization can be exercised without the lifecycle around it
func startReader(b *Board) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	b.done = make(chan struct{})
	b.firstFrame = make(chan struct{})
	go b.readLoop(ctx)
	return func() {
		cancel()
		<-b.done
	}
}

// The decoded rows must not depend on how the serial driver happens to
// split the byte stream
func TestReadLoopChunkedStream(t *testing.T) {
	port := newMockPort()
	b, ring := newTestBoard(t, port)
	port.setChunks([]int{1, 2, 3, 5, 7})
	port.feed(framedTransaction(t, 1000))
	port.feed(framedTransaction(t, 2000))
	port.feed(framedTransaction(t, 3000))

	stop := startReader(b)
	defer stop()

	waitRows(t, ring, 3*rowsPerTransaction())

	select {
	case <-b.firstFrame:
	default:
		t.Fatal("first frame was not signalled")
	}
}

func TestReadLoopResync(t *testing.T) {
	port := newMockPort()
	b, ring := newTestBoard(t, port)

	// leading garbage, then a frame with a broken stop sentinel, then a
	// valid one
	port.feed([]byte{0x11, 0x5a, 0x00})
	corrupted := append([]byte{layers.StartByte}, make([]byte, layers.TransactionSize)...)
	port.feed(append(corrupted, 0x00))
	port.feed(framedTransaction(t, 1000))

	stop := startReader(b)
	defer stop()

	waitRows(t, ring, rowsPerTransaction())
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, rowsPerTransaction(), ring.Count())
}

func TestReadLoopRowAssembly(t *testing.T) {
	port := newMockPort()
	b, ring := newTestBoard(t, port)
	port.feed(framedTransaction(t, 1000))

	stop := startReader(b)
	defer stop()

	waitRows(t, ring, rowsPerTransaction())
	rows := ring.Latest(rowsPerTransaction())
	l := b.layout

	// package numbers run contiguously across base and sub rows
	for j, row := range rows {
		require.Equal(t, float64(j), row[l.PackageNumChannel], "row %d", j)
	}

	base0 := rows[0]
	require.InDelta(t, 1000*layers.EmgScale, base0[l.ExgChannels[0]], 1e-9)
	require.InDelta(t, 1006*layers.EegScaleSisterBoard, base0[l.ExgChannels[6]], 1e-9)
	require.InDelta(t, 1008*layers.EegScaleMainBoard, base0[l.ExgChannels[8]], 1e-9)
	require.InDelta(t, 0.25, base0[l.EDAChannels[0]], 1e-6)
	require.Equal(t, 93.0, base0[l.BatteryChannel])
	require.InDelta(t, 36.5, base0[l.TemperatureChannels[0]], 1e-9)
	require.Equal(t, 120000.0, base0[l.PPGChannels[0]])
	require.Equal(t, -3500.0, base0[l.PPGChannels[1]])
	require.InDelta(t, 1.0, base0[l.OtherChannels[1]], 1e-9)

	// third sub-package of the first base package, row index 3. Its
	// channel data sits past the base package region so the raw counts
	// survive serialization unchanged.
	sub2 := rows[3]
	require.InDelta(t, -6011*layers.EegScaleSisterBoard, sub2[l.ExgChannels[11]], 1e-9)
	require.InDelta(t, -6007*layers.EegScaleMainBoard, sub2[l.ExgChannels[7]], 1e-9)
	require.InDelta(t, -6000*layers.EmgScale, sub2[l.ExgChannels[0]], 1e-9)
	require.InDelta(t, 1.00075, sub2[l.OtherChannels[1]], 1e-6)

	// sub rows reuse the auxiliary sensors of their parent
	require.InDelta(t, 0.25, sub2[l.EDAChannels[0]], 1e-6)
	require.Equal(t, 93.0, sub2[l.BatteryChannel])
	require.Equal(t, 120000.0, sub2[l.PPGChannels[0]])
	require.Equal(t, base0[l.OtherChannels[0]], sub2[l.OtherChannels[0]])
}

func TestReadLoopClockSmoothing(t *testing.T) {
	port := newMockPort()
	b, ring := newTestBoard(t, port)

	stop := startReader(b)
	defer stop()

	port.feed(framedTransaction(t, 1000))
	waitRows(t, ring, rowsPerTransaction())
	port.feed(framedTransaction(t, 2000))
	waitRows(t, ring, 2*rowsPerTransaction())

	rows := ring.Latest(2 * rowsPerTransaction())
	l := b.layout

	// the delta of a transaction is pc receipt time minus the device
	// timestamp of its last base package, row 15
	delta1 := rows[0][l.OtherChannels[0]] - rows[15][l.OtherChannels[1]]
	for _, j := range []int{0, 7, 19} {
		require.InDelta(t, delta1,
			rows[j][l.TimestampChannel]-rows[j][l.OtherChannels[1]], 1e-9, "row %d", j)
	}

	// the second transaction's rows get the running mean of both deltas
	delta2 := rows[20][l.OtherChannels[0]] - rows[35][l.OtherChannels[1]]
	mean := (delta1 + delta2) / 2
	require.InDelta(t, mean,
		rows[20][l.TimestampChannel]-rows[20][l.OtherChannels[1]], 1e-9)
}
