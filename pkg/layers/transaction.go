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

package layers

import (
	"encoding/binary"
	"math"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// TransactionLayerNum identifies the layer
	TransactionLayerNum = 2001
)

// Wire framing. One transaction is [StartByte][payload][StopByte] where the
// payload length is fixed. The sentinels themselves are consumed by the
// frame synchronizer, this layer decodes the payload only.
const (
	StartByte byte = 0xA0
	StopByte  byte = 0xC0

	BasePackageSize       = 68
	ExgPackageSize        = 52
	NumBasePackages       = 4
	NumExgPackagesPerBase = 4
	NumExgChannels        = 16

	// BytesInSingleEntry is the stride between consecutive base packages
	BytesInSingleEntry = BasePackageSize + ExgPackageSize*NumExgPackagesPerBase
	TransactionSize    = BytesInSingleEntry * NumBasePackages

	// RowsPerTransaction is the number of sample rows one decoded
	// transaction produces
	RowsPerTransaction = NumBasePackages * (1 + NumExgPackagesPerBase)
)

// Byte offsets of the base package fields relative to the entry start
const (
	packageNumOffset    = 0
	edaOffset           = 1
	exgDataOffset       = 5
	batteryOffset       = 53
	temperatureOffset   = 54
	ppgRedOffset        = 56
	ppgIROffset         = 60
	baseTimestampOffset = 64

	// EXG sub-packages carry their device timestamp right after the
	// channel data
	exgTimestampOffset = NumExgChannels * 3
)

// ADS1299-style conversion to microvolts, vref 2.4V, 24-bit resolution.
// The forehead sites sit on the sister board and use a different gain.
const (
	EmgScale            = 2.4 / (8388607.0 * 1.5 * 12.0) * 1000000.0
	EegScaleMainBoard   = 2.4 / (8388607.0 * 1.5 * 51.0) * 1000000.0
	EegScaleSisterBoard = 2.4 / (8388607.0 * 1.5 * 24.0) * 1000000.0
)

// ScaleGroup tags an EXG channel slot with the numeric scale it uses
type ScaleGroup uint8

const (
	ScaleEMG ScaleGroup = iota
	ScaleEEGMain
	ScaleEEGSister
)

// Scale returns the physical-unit factor for the group
func (g ScaleGroup) Scale() float64 {
	switch g {
	case ScaleEEGMain:
		return EegScaleMainBoard
	case ScaleEEGSister:
		return EegScaleSisterBoard
	default:
		return EmgScale
	}
}

// Scale-group tables for the 16 EXG slots. Slots 0-5 are EMG. The sister
// board slots differ between base packages (6,7) and EXG sub-packages
// (6,11). The asymmetry is what the firmware actually emits, keep it until
// the hardware team confirms which one is intended.
var (
	BaseScaleGroups = scaleGroupTable(6, 7)
	ExgScaleGroups  = scaleGroupTable(6, 11)
)

func scaleGroupTable(sister ...int) [NumExgChannels]ScaleGroup {
	var table [NumExgChannels]ScaleGroup
	for i := 0; i < NumExgChannels; i++ {
		if i < 6 {
			table[i] = ScaleEMG
		} else {
			table[i] = ScaleEEGMain
		}
	}
	for _, i := range sister {
		table[i] = ScaleEEGSister
	}
	return table
}

// ExgPackage is a higher-rate EXG-only sub-sample nested inside a base
// package. Counts are raw 24-bit channel readings, the timestamp is device
// milliseconds.
type ExgPackage struct {
	ExgCounts         [NumExgChannels]int32
	DeviceTimestampMS float32
}

// DeviceTimestamp returns the device clock reading in seconds
func (p *ExgPackage) DeviceTimestamp() float64 {
	return float64(p.DeviceTimestampMS) / 1000
}

// ExgValues returns the channel readings scaled to physical units using
// the sub-package scale-group table
func (p *ExgPackage) ExgValues() [NumExgChannels]float64 {
	return scaleCounts(p.ExgCounts, ExgScaleGroups)
}

// BasePackage is one full-rate sample: all EXG channels plus the auxiliary
// sensors. Sub holds the nested EXG sub-packages in wire order.
type BasePackage struct {
	PackageNum        uint8
	ExgCounts         [NumExgChannels]int32
	EDA               float32
	Battery           uint8
	TemperatureRaw    uint16
	PPGRed            int32
	PPGIR             int32
	DeviceTimestampMS float32
	Sub               []*ExgPackage
}

// DeviceTimestamp returns the device clock reading in seconds
func (p *BasePackage) DeviceTimestamp() float64 {
	return float64(p.DeviceTimestampMS) / 1000
}

// Temperature returns degrees Celsius
func (p *BasePackage) Temperature() float64 {
	return float64(p.TemperatureRaw) / 100
}

// ExgValues returns the channel readings scaled to physical units using
// the base-package scale-group table
func (p *BasePackage) ExgValues() [NumExgChannels]float64 {
	return scaleCounts(p.ExgCounts, BaseScaleGroups)
}

func scaleCounts(counts [NumExgChannels]int32, groups [NumExgChannels]ScaleGroup) [NumExgChannels]float64 {
	var values [NumExgChannels]float64
	for i, c := range counts {
		values[i] = float64(c) * groups[i].Scale()
	}
	return values
}

// TransactionLayer ...
type TransactionLayer struct {
	layers.BaseLayer
	Packages []*BasePackage
}

var TransactionLayerType = gopacket.RegisterLayerType(TransactionLayerNum,
	gopacket.LayerTypeMetadata{Name: "TransactionLayerType", Decoder: gopacket.DecodeFunc(decodeTransactionLayer)})

// LayerType returns the type of the transaction layer in the layer catalog
func (t *TransactionLayer) LayerType() gopacket.LayerType {
	return TransactionLayerType
}

// castInt24 converts a little-endian signed 24-bit value
func castInt24(b []byte) int32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if v&0x00800000 != 0 {
		v |= ^int32(0x00ffffff)
	}
	return v
}

// putInt24 writes the low 24 bits of v little-endian
func putInt24(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func decodeExgPackage(data []byte) *ExgPackage {
	p := &ExgPackage{}
	for i := 0; i < NumExgChannels; i++ {
		p.ExgCounts[i] = castInt24(data[3*i : 3*i+3])
	}
	p.DeviceTimestampMS = math.Float32frombits(binary.LittleEndian.Uint32(data[exgTimestampOffset : exgTimestampOffset+4]))
	return p
}

func decodeBasePackage(data []byte) *BasePackage {
	p := &BasePackage{
		PackageNum:     data[packageNumOffset],
		EDA:            math.Float32frombits(binary.LittleEndian.Uint32(data[edaOffset : edaOffset+4])),
		Battery:        data[batteryOffset],
		TemperatureRaw: binary.LittleEndian.Uint16(data[temperatureOffset : temperatureOffset+2]),
		PPGRed:         int32(binary.LittleEndian.Uint32(data[ppgRedOffset : ppgRedOffset+4])),
		PPGIR:          int32(binary.LittleEndian.Uint32(data[ppgIROffset : ppgIROffset+4])),
	}
	for i := 0; i < NumExgChannels; i++ {
		p.ExgCounts[i] = castInt24(data[exgDataOffset+3*i : exgDataOffset+3*i+3])
	}
	p.DeviceTimestampMS = math.Float32frombits(binary.LittleEndian.Uint32(data[baseTimestampOffset : baseTimestampOffset+4]))
	// The sub-packages overlay the entry starting at its very beginning,
	// strided by ExgPackageSize. This is how the firmware lays them out.
	for k := 0; k < NumExgPackagesPerBase; k++ {
		p.Sub = append(p.Sub, decodeExgPackage(data[ExgPackageSize*k:]))
	}
	return p
}

func (t *TransactionLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < TransactionSize {
		df.SetTruncated()
		return ErrTransactionTooShort{Length: len(data)}
	}

	t.BaseLayer = layers.BaseLayer{
		Contents: data[:TransactionSize],
		Payload:  []byte{},
	}

	for i := 0; i < NumBasePackages; i++ {
		offset := i * BytesInSingleEntry
		t.Packages = append(t.Packages, decodeBasePackage(data[offset:offset+BytesInSingleEntry]))
	}

	return nil
}

// SerializeTo serializes the transaction payload (without sentinels) into
// the SerializeBuffer. Sub-packages are written first so that where they
// overlap the base package region the base package fields win, matching
// what the decoder reads back.
func (t *TransactionLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if len(t.Packages) != NumBasePackages {
		return ErrBadPackageCount{Count: len(t.Packages)}
	}
	buf, err := b.AppendBytes(TransactionSize)
	if err != nil {
		return err
	}
	for i, p := range t.Packages {
		entry := buf[i*BytesInSingleEntry : (i+1)*BytesInSingleEntry]
		for k, sub := range p.Sub {
			if k >= NumExgPackagesPerBase {
				break
			}
			serializeExgPackage(entry[ExgPackageSize*k:], sub)
		}
		serializeBasePackage(entry, p)
	}
	return nil
}

func serializeExgPackage(data []byte, p *ExgPackage) {
	for i := 0; i < NumExgChannels; i++ {
		putInt24(data[3*i:3*i+3], p.ExgCounts[i])
	}
	binary.LittleEndian.PutUint32(data[exgTimestampOffset:exgTimestampOffset+4], math.Float32bits(p.DeviceTimestampMS))
}

func serializeBasePackage(data []byte, p *BasePackage) {
	data[packageNumOffset] = p.PackageNum
	binary.LittleEndian.PutUint32(data[edaOffset:edaOffset+4], math.Float32bits(p.EDA))
	for i := 0; i < NumExgChannels; i++ {
		putInt24(data[exgDataOffset+3*i:exgDataOffset+3*i+3], p.ExgCounts[i])
	}
	data[batteryOffset] = p.Battery
	binary.LittleEndian.PutUint16(data[temperatureOffset:temperatureOffset+2], p.TemperatureRaw)
	binary.LittleEndian.PutUint32(data[ppgRedOffset:ppgRedOffset+4], uint32(p.PPGRed))
	binary.LittleEndian.PutUint32(data[ppgIROffset:ppgIROffset+4], uint32(p.PPGIR))
	binary.LittleEndian.PutUint32(data[baseTimestampOffset:baseTimestampOffset+4], math.Float32bits(p.DeviceTimestampMS))
}

// DecodeTransaction decodes one validated transaction payload
func DecodeTransaction(data []byte) (*TransactionLayer, error) {
	t := &TransactionLayer{}
	if err := t.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeTransactionLayer(data []byte, p gopacket.PacketBuilder) error {
	t := &TransactionLayer{}
	err := t.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(t)
	return nil
}
