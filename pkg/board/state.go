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
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"openbci.org/galea/go-galea/pkg/log"
)

const (
	SessionBucketPrefix = "session_"
	settingKeyPrefix    = "setting_"
	probeKey            = "last_probe"
)

// SessionStore persists per-port session diagnostics: which settings were
// applied to the board and the result of the last RTT probe. Sample data
// never goes here.
type SessionStore struct {
	DB *bbolt.DB
}

func NewSessionStore(path string) (*SessionStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &SessionStore{DB: db}, nil
}

func bucketName(port string) string {
	return fmt.Sprintf("%s%s", SessionBucketPrefix, port)
}

// Close ...
func (s *SessionStore) Close() {
	s.DB.Close()
}

// RecordSetting remembers when a configuration string was applied
func (s *SessionStore) RecordSetting(port, conf string) error {
	log.Debug("Recording setting %q for port %s", conf, port)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName(port)))
		if err != nil {
			return err
		}
		return b.Put([]byte(settingKeyPrefix+conf), []byte(time.Now().Format(time.RFC3339)))
	})
}

// Settings returns the applied configuration strings with their timestamps
func (s *SessionStore) Settings(port string) (map[string]string, error) {
	settings := make(map[string]string)
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(port)))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			key := string(k)
			if len(key) > len(settingKeyPrefix) && key[:len(settingKeyPrefix)] == settingKeyPrefix {
				settings[key[len(settingKeyPrefix):]] = string(v)
			}
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return settings, nil
}

// RecordProbe remembers the last RTT probe result
func (s *SessionStore) RecordProbe(port string, r *ProbeResult) error {
	log.Debug("Recording probe result for port %s: rtt %f", port, r.RTT)
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName(port)))
		if err != nil {
			return err
		}
		return b.Put([]byte(probeKey), data)
	})
}

// LastProbe returns the last recorded RTT probe result
func (s *SessionStore) LastProbe(port string) (*ProbeResult, error) {
	var data []byte
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(port)))
		if b == nil {
			return ErrNoProbeRecorded{Port: port}
		}
		v := b.Get([]byte(probeKey))
		if v == nil {
			return ErrNoProbeRecorded{Port: port}
		}
		data = append(data, v...)
		return nil
	}); err != nil {
		return nil, err
	}
	r := &ProbeResult{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ErrNoProbeRecorded returned when no probe result was persisted for a port
type ErrNoProbeRecorded struct {
	Port string
}

func (e ErrNoProbeRecorded) Error() string {
	return fmt.Sprintf("No probe result recorded for port %s", e.Port)
}
