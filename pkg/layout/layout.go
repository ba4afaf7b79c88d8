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

// Package layout describes where each logical channel of the board lands
// in the per-sample output vector. The acquisition core never hardcodes
// output indices, it resolves them through a validated Layout exactly once
// when the session is constructed.
package layout

import (
	"io/ioutil"

	"sigs.k8s.io/yaml"

	"openbci.org/galea/go-galea/pkg/layers"
)

// Layout maps channel roles to output-vector indices
type Layout struct {
	NumRows             int   `json:"num_rows"`
	PackageNumChannel   int   `json:"package_num_channel"`
	ExgChannels         []int `json:"exg_channels"`
	PPGChannels         []int `json:"ppg_channels"`
	EDAChannels         []int `json:"eda_channels"`
	TemperatureChannels []int `json:"temperature_channels"`
	BatteryChannel      int   `json:"battery_channel"`
	TimestampChannel    int   `json:"timestamp_channel"`
	// OtherChannels carry the raw host receipt timestamp and the raw
	// device timestamp for diagnostic cross-referencing
	OtherChannels []int `json:"other_channels"`
}

// Default returns the built-in Galea layout
func Default() *Layout {
	exg := make([]int, layers.NumExgChannels)
	for i := range exg {
		exg[i] = i + 1
	}
	return &Layout{
		NumRows:             25,
		PackageNumChannel:   0,
		ExgChannels:         exg,
		PPGChannels:         []int{17, 18},
		EDAChannels:         []int{19},
		TemperatureChannels: []int{20},
		BatteryChannel:      21,
		TimestampChannel:    22,
		OtherChannels:       []int{23, 24},
	}
}

// Load reads a layout document from a yaml file and validates it
func Load(path string) (*Layout, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l := &Layout{}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks that every channel group has the width the decoder
// produces and that all indices address distinct slots of the output row
func (l *Layout) Validate() error {
	groups := map[string]int{
		"exg_channels":         len(l.ExgChannels),
		"ppg_channels":         len(l.PPGChannels),
		"eda_channels":         len(l.EDAChannels),
		"temperature_channels": len(l.TemperatureChannels),
		"other_channels":       len(l.OtherChannels),
	}
	want := map[string]int{
		"exg_channels":         layers.NumExgChannels,
		"ppg_channels":         2,
		"eda_channels":         1,
		"temperature_channels": 1,
		"other_channels":       2,
	}
	for name, n := range want {
		if groups[name] != n {
			return ErrBadGroupSize{Group: name, Size: groups[name], Want: n}
		}
	}

	seen := make(map[int]bool)
	indices := []int{l.PackageNumChannel, l.BatteryChannel, l.TimestampChannel}
	indices = append(indices, l.ExgChannels...)
	indices = append(indices, l.PPGChannels...)
	indices = append(indices, l.EDAChannels...)
	indices = append(indices, l.TemperatureChannels...)
	indices = append(indices, l.OtherChannels...)
	for _, i := range indices {
		if i < 0 || i >= l.NumRows {
			return ErrIndexOutOfRange{Index: i, NumRows: l.NumRows}
		}
		if seen[i] {
			return ErrDuplicateIndex{Index: i}
		}
		seen[i] = true
	}
	return nil
}
