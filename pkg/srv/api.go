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

package srv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/log"
	"jinr.ru/greenlab/go-nlx/pkg/replay"
	"jinr.ru/greenlab/go-nlx/pkg/state"
)

const shutdownTimeout = 5 * time.Second

// StatusSource reports the status of the running replay
type StatusSource interface {
	Status() replay.Status
}

// SessionStore lists stored replay sessions
type SessionStore interface {
	ListSessions() ([]*state.Progress, error)
}

type ApiServer struct {
	context.Context
	*mux.Router
	cfg      *config.ApiConfig
	replay   StatusSource
	sessions SessionStore
}

// NewApiServer creates the status API. sessions may be nil when no session database is open.
func NewApiServer(ctx context.Context, cfg *config.ApiConfig, replay StatusSource, sessions SessionStore) *ApiServer {
	log.Info("Initializing API server with address: %s", cfg.Listen())
	s := &ApiServer{
		Context:  ctx,
		cfg:      cfg,
		replay:   replay,
		sessions: sessions,
	}
	s.configureRouter()
	return s
}

// Handler is the router wrapped into the access log
func (s *ApiServer) Handler() http.Handler {
	return handlers.LoggingHandler(log.Writer(), s.Router)
}

// Run serves the API until the context is done
func (s *ApiServer) Run() error {
	log.Debug("Starting API server: address: %s", s.cfg.Listen())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.cfg.Listen(),
	}
	go func() {
		<-s.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error("Error while shutting down API server: %s", err)
		}
	}()
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/replay/status", s.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/sessions", s.handleSessions()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling replay status request")
		writeJSON(w, s.replay.Status())
	}
}

func (s *ApiServer) handleSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling sessions request")
		if s.sessions == nil {
			http.Error(w, ErrNoSessionStore{}.Error(), http.StatusServiceUnavailable)
			return
		}
		sessions, err := s.sessions.ListSessions()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if sessions == nil {
			sessions = []*state.Progress{}
		}
		writeJSON(w, sessions)
	}
}
