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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/replay"
	"jinr.ru/greenlab/go-nlx/pkg/state"
)

type fixedStatus replay.Status

func (f fixedStatus) Status() replay.Status { return replay.Status(f) }

type fixedSessions struct {
	sessions []*state.Progress
	err      error
}

func (f fixedSessions) ListSessions() ([]*state.Progress, error) { return f.sessions, f.err }

func newTestServer(t *testing.T, sessions SessionStore) *httptest.Server {
	t.Helper()
	status := fixedStatus{State: replay.StateRunning, Session: "run1", PacketsSent: 12, NextPacketID: 112}
	s := NewApiServer(context.Background(), config.NewDefaultConfig().Api, status, sessions)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestStatusHandler(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/replay/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status replay.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, replay.StateRunning, status.State)
	assert.Equal(t, int64(12), status.PacketsSent)
	assert.Equal(t, int32(112), status.NextPacketID)
}

func TestSessionsHandler(t *testing.T) {
	ts := newTestServer(t, fixedSessions{sessions: []*state.Progress{{Session: "a", NextPacketID: 5}}})
	resp, err := http.Get(ts.URL + "/api/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessions []*state.Progress
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "a", sessions[0].Session)
	assert.Equal(t, int32(5), sessions[0].NextPacketID)
}

func TestSessionsHandlerErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		store SessionStore
		code  int
	}{
		"no store":     {store: nil, code: http.StatusServiceUnavailable},
		"store failed": {store: fixedSessions{err: errors.New("db closed")}, code: http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, tc.store)
			resp, err := http.Get(ts.URL + "/api/sessions")
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.code, resp.StatusCode)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/api/replay/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
