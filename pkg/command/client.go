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

// Package command is the client side of the go-galea control API.
package command

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	boardpkg "openbci.org/galea/go-galea/pkg/board"
	"openbci.org/galea/go-galea/pkg/config"
	srvboard "openbci.org/galea/go-galea/pkg/srv/board"
)

// ApiClient drives a remote go-galea server
type ApiClient struct {
	Cfg       *config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Cfg:       cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.IP, srvboard.ApiPort),
	}
}

func (c *ApiClient) opUrl(op string) string {
	return fmt.Sprintf("%s/board/%s", c.ApiPrefix, op)
}

func (c *ApiClient) post(op string) error {
	r, err := req.Post(c.opUrl(op))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}

// Prepare asks the server to prepare the session
func (c *ApiClient) Prepare() error {
	return c.post("prepare")
}

// Start asks the server to start streaming
func (c *ApiClient) Start() error {
	return c.post("start")
}

// Stop asks the server to stop streaming
func (c *ApiClient) Stop() error {
	return c.post("stop")
}

// Release asks the server to release the session
func (c *ApiClient) Release() error {
	return c.post("release")
}

// Config sends a configuration command, the response is non-empty only
// for calc_time
func (c *ApiClient) Config(command string) (string, error) {
	r, err := req.Post(fmt.Sprintf("%s/board/config/%s", c.ApiPrefix, command))
	if err != nil {
		return "", err
	}
	if r.Response().StatusCode != 200 {
		return "", errors.New(r.Response().Status)
	}
	resp := &srvboard.ConfigResp{}
	if err = r.ToJSON(resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// State returns the session state of the server
func (c *ApiClient) State() (string, error) {
	r, err := req.Get(c.opUrl("state"))
	if err != nil {
		return "", err
	}
	if r.Response().StatusCode != 200 {
		return "", errors.New(r.Response().Status)
	}
	state := &srvboard.StateResp{}
	if err = r.ToJSON(state); err != nil {
		return "", err
	}
	return state.State, nil
}

// LastProbe returns the last RTT probe result recorded by the server
func (c *ApiClient) LastProbe() (*boardpkg.ProbeResult, error) {
	r, err := req.Get(c.opUrl("probe"))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	probe := &boardpkg.ProbeResult{}
	if err = r.ToJSON(probe); err != nil {
		return nil, err
	}
	return probe, nil
}

// Samples returns up to count most recent sample rows
func (c *ApiClient) Samples(count int) ([][]float64, error) {
	r, err := req.Get(fmt.Sprintf("%s?count=%d", c.opUrl("samples"), count))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	samples := &srvboard.SamplesResp{}
	if err = r.ToJSON(samples); err != nil {
		return nil, err
	}
	return samples.Rows, nil
}
