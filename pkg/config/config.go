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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// Config describes one board session: where the board is attached,
// how long reads may block and where the host-side services live.
type Config struct {
	// SerialPort is the device file of the serial link, e.g. /dev/ttyUSB0
	SerialPort string `json:"serial_port"`
	// Timeout is the serial read timeout in seconds
	Timeout int    `json:"timeout,omitempty"`
	IP      string `json:"ip,omitempty"`
	// DBPath is the path to the session diagnostics database,
	// empty value disables persistence
	DBPath string `json:"db_path,omitempty"`
	// LayoutPath points to a yaml channel layout document,
	// empty value selects the built-in Galea layout
	LayoutPath string `json:"layout_path,omitempty"`
	filepath   string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	err = ioutil.WriteFile(c.filepath, data, 0644)
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) LoadConfig() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// ClampTimeout forces the serial read timeout into the allowed window.
// Out of range values fall back to the default, same as the firmware side.
func (c *Config) ClampTimeout() {
	if c.Timeout < MinTimeout || c.Timeout > MaxTimeout {
		c.Timeout = DefaultTimeout
	}
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, DBFile)
}

// NewConfig creates a config bound to the given file path
func NewConfig(path string) *Config {
	return &Config{
		Timeout:  DefaultTimeout,
		IP:       DefaultIP,
		filepath: path,
	}
}

func NewDefaultConfig() *Config {
	return &Config{
		Timeout:  DefaultTimeout,
		IP:       DefaultIP,
		DBPath:   DefaultDBPath(),
		filepath: DefaultConfigPath(),
	}
}
