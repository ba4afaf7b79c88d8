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
	"net/http"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/mux"

	"openbci.org/galea/go-galea/pkg/log"
)

// swaggerJSON is the API document served to clients. It is kept inline so
// the server binary has no runtime file dependencies.
const swaggerJSON = `{
  "swagger": "2.0",
  "info": {"title": "go-galea API", "version": "1.0.0"},
  "basePath": "/api",
  "consumes": ["application/json"],
  "produces": ["application/json"],
  "paths": {
    "/board/prepare": {"post": {"summary": "prepare the session", "responses": {"200": {"description": "OK"}}}},
    "/board/start": {"post": {"summary": "start streaming", "responses": {"200": {"description": "OK"}}}},
    "/board/stop": {"post": {"summary": "stop streaming", "responses": {"200": {"description": "OK"}}}},
    "/board/release": {"post": {"summary": "release the session", "responses": {"200": {"description": "OK"}}}},
    "/board/config/{command}": {"post": {
      "summary": "send a configuration command, calc_time runs the RTT probe",
      "parameters": [{"name": "command", "in": "path", "required": true, "type": "string"}],
      "responses": {"200": {"description": "OK"}}}},
    "/board/state": {"get": {"summary": "session state", "responses": {"200": {"description": "OK"}}}},
    "/board/probe": {"get": {"summary": "last RTT probe result", "responses": {"200": {"description": "OK"}}}},
    "/board/samples": {"get": {
      "summary": "most recent decoded sample rows",
      "parameters": [{"name": "count", "in": "query", "type": "integer"}],
      "responses": {"200": {"description": "OK"}}}}
  }
}`

// configureDocs validates the embedded document and mounts it together
// with a Redoc viewer under /api/docs
func (s *ApiServer) configureDocs(subRouter *mux.Router) {
	doc, err := loads.Analyzed(json.RawMessage(swaggerJSON), "")
	if err != nil {
		log.Error("Invalid embedded swagger document: %s", err)
		return
	}
	raw := doc.Raw()
	subRouter.HandleFunc("/docs/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw)
	}).Methods("GET")
	subRouter.Handle("/docs", middleware.Redoc(middleware.RedocOpts{
		BasePath: "/api",
		Path:     "docs",
		SpecURL:  "/api/docs/swagger.json",
		Title:    "go-galea API",
	}, nil)).Methods("GET")
}
