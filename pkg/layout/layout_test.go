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

package layout

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func TestDefaultLayoutIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateBadGroupSize(t *testing.T) {
	l := Default()
	l.PPGChannels = []int{17}
	err := l.Validate()
	require.Error(t, err)
	require.IsType(t, ErrBadGroupSize{}, err)
}

func TestValidateDuplicateIndex(t *testing.T) {
	l := Default()
	l.BatteryChannel = l.TimestampChannel
	err := l.Validate()
	require.Error(t, err)
	require.IsType(t, ErrDuplicateIndex{}, err)
}

func TestValidateIndexOutOfRange(t *testing.T) {
	l := Default()
	l.TimestampChannel = l.NumRows
	err := l.Validate()
	require.Error(t, err)
	require.IsType(t, ErrIndexOutOfRange{}, err)
}

func TestLoadRoundTrip(t *testing.T) {
	data, err := yaml.Marshal(Default())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, ioutil.WriteFile(path, data, 0644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), loaded)
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	l := Default()
	l.EDAChannels = nil
	data, err := yaml.Marshal(l)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, ioutil.WriteFile(path, data, 0644))

	_, err = Load(path)
	require.Error(t, err)
}
