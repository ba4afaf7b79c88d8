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

// go-galea API
//
// # RESTful APIs to operate a Galea board attached to this host
//
// Schemes: http
// Host: localhost:8000
// Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	boardpkg "openbci.org/galea/go-galea/pkg/board"
	"openbci.org/galea/go-galea/pkg/config"
	"openbci.org/galea/go-galea/pkg/log"
	"openbci.org/galea/go-galea/pkg/sink"
)

const (
	ApiPort = 8000
)

// Success response
// swagger:response okResp
type RespOk struct {
	// in:body
	Body struct {
		// HTTP status code 200 - OK
		Code int `json:"code"`
	}
}

// Error Bad Request
// swagger:response badReq
type ReqBadRequest struct {
	// in:body
	Body struct {
		// HTTP status code 400 - Bad Request
		Code int `json:"code"`
	}
}

// StateResp ...
type StateResp struct {
	State string `json:"state"`
}

// ConfigResp carries whatever the config operation returned, for the
// calc_time command this is the serialized probe result
type ConfigResp struct {
	Response string `json:"response,omitempty"`
}

// SamplesResp ...
type SamplesResp struct {
	Rows [][]float64 `json:"rows"`
}

// ApiServer exposes the streaming controller over HTTP
type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	board *boardpkg.Board
	ring  *sink.RingBuffer
}

func NewApiServer(ctx context.Context, cfg *config.Config, b *boardpkg.Board, ring *sink.RingBuffer) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.IP, ApiPort)
	return &ApiServer{
		Context: ctx,
		Config:  cfg,
		board:   b,
		ring:    ring,
	}, nil
}

// Run ...
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s port: %d", s.Config.IP, ApiPort)
	s.configureRouter()
	httpServer := &http.Server{
		Handler: handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(os.Stderr, s.Router)),
		Addr:    fmt.Sprintf("%s:%d", s.Config.IP, ApiPort),
	}
	return httpServer.ListenAndServe()
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	// swagger:operation POST /board/prepare prepare
	// ---
	// summary: prepare the session
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/board/prepare", s.handleOp(s.board.PrepareSession)).Methods("POST")
	// swagger:operation POST /board/start start
	// ---
	// summary: start streaming
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/board/start", s.handleOp(s.board.StartStream)).Methods("POST")
	// swagger:operation POST /board/stop stop
	// ---
	// summary: stop streaming
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/board/stop", s.handleOp(s.board.StopStream)).Methods("POST")
	// swagger:operation POST /board/release release
	// ---
	// summary: release the session
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	subRouter.HandleFunc("/board/release", s.handleOp(s.board.ReleaseSession)).Methods("POST")
	// swagger:operation POST /board/config/{command} config
	// ---
	// summary: send a configuration command to the board
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/board/config/{command}", s.handleConfig()).Methods("POST")
	subRouter.HandleFunc("/board/state", s.handleState()).Methods("GET")
	subRouter.HandleFunc("/board/probe", s.handleProbe()).Methods("GET")
	subRouter.HandleFunc("/board/samples", s.handleSamples()).Methods("GET")

	s.configureDocs(subRouter)
}

func statusFor(err error) int {
	switch {
	case errors.As(err, &boardpkg.ErrInvalidArguments{}):
		return http.StatusBadRequest
	case errors.As(err, &boardpkg.ErrBoardNotCreated{}),
		errors.As(err, &boardpkg.ErrStreamAlreadyRunning{}),
		errors.As(err, &boardpkg.ErrStreamNotRunning{}):
		return http.StatusConflict
	case errors.As(err, &boardpkg.ErrSyncTimeout{}):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *ApiServer) handleOp(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		s.writeJSON(w, &RespOk{})
	}
}

func (s *ApiServer) handleConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		resp, err := s.board.ConfigBoard(vars["command"])
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		s.writeJSON(w, &ConfigResp{Response: resp})
	}
}

func (s *ApiServer) handleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, &StateResp{State: s.board.State().String()})
	}
}

func (s *ApiServer) handleProbe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		probe, err := s.board.LastProbe()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.writeJSON(w, probe)
	}
}

func (s *ApiServer) handleSamples() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := 10
		if v := r.URL.Query().Get("count"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 {
				http.Error(w, "count must be a positive integer", http.StatusBadRequest)
				return
			}
			count = parsed
		}
		s.writeJSON(w, &SamplesResp{Rows: s.ring.Latest(count)})
	}
}

func (s *ApiServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while writing response: %s", err)
	}
}
