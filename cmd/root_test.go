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

package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-nlx/cmd/csc"
	pkgconfig "jinr.ru/greenlab/go-nlx/pkg/config"
	pkgcsc "jinr.ru/greenlab/go-nlx/pkg/csc"
	"jinr.ru/greenlab/go-nlx/pkg/state"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// testConfig writes a config file that keeps the session database inside dir
func testConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := pkgconfig.NewDefaultConfig()
	cfg.SetPath(filepath.Join(dir, "config"))
	cfg.DBPath = filepath.Join(dir, "state.db")
	cfg.LogLevel = "error"
	require.NoError(t, cfg.Persist(false))
	return cfg.Path()
}

func writeCSC(t *testing.T, dir string, records int, trailing int) string {
	t.Helper()
	var b bytes.Buffer
	header := make([]byte, pkgcsc.HeaderSize)
	copy(header, "-ADChannel 0\r\n-SamplingFrequency 32000\r\n")
	b.Write(header)
	for i := 0; i < records; i++ {
		r := pkgcsc.Record{
			Timestamp:       uint64(i * 16000),
			SampleFrequency: 32000,
			NumValidSamples: 4,
		}
		b.Write(r.Bytes())
	}
	b.Write(make([]byte, trailing))
	path := filepath.Join(dir, "CSC1.ncs")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0644))
	return path
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config")
	_, err := execute("config", "init", "--config", path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = execute("config", "init", "--config", path)
	var exists pkgconfig.ErrConfigFileExists
	assert.True(t, errors.As(err, &exists))

	_, err = execute("config", "init", "--overwrite", "--config", path)
	assert.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	path := testConfig(t, t.TempDir())
	out, err := execute("config", "show", "--config", path, "--log-level", "debug")
	require.NoError(t, err)

	cfg := &pkgconfig.Config{}
	require.NoError(t, yaml.Unmarshal([]byte(out), cfg))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, pkgconfig.DefaultReplayPort, cfg.Replay.Port)
}

func TestWrongLogLevel(t *testing.T) {
	path := testConfig(t, t.TempDir())
	_, err := execute("config", "show", "--config", path, "--log-level", "loud")
	assert.Error(t, err)
}

func TestCscInfo(t *testing.T) {
	dir := t.TempDir()
	path := testConfig(t, dir)
	file := writeCSC(t, dir, 3, 10)

	out, err := execute("csc", "info", file, "--records", "5", "--config", path)
	require.NoError(t, err)

	info := &csc.FileInfo{}
	require.NoError(t, yaml.Unmarshal([]byte(out), info))
	assert.Equal(t, 3, info.Records)
	assert.Equal(t, int64(10), info.PartialFrameBytes)
	assert.Equal(t, "32000", info.Header["SamplingFrequency"])
	require.Len(t, info.FirstRecords, 3)
	assert.Equal(t, uint64(32000), info.FirstRecords[2].Timestamp)
	assert.Equal(t, uint32(4), info.FirstRecords[0].NumValidSamples)
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	path := testConfig(t, dir)
	file := writeCSC(t, dir, 2, 0)
	out := filepath.Join(dir, "replay.pcap")

	_, err := execute("dump", "--file", file, "--out", out, "--fix-packet-size", "--config", path)
	require.NoError(t, err)
	stat, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, stat.Size(), int64(0))

	_, err = execute("dump", "--file", file, "--config", path)
	assert.Error(t, err)
	_, err = execute("dump", "--out", out, "--config", path)
	assert.Error(t, err)
}

func TestSessionsLocal(t *testing.T) {
	dir := t.TempDir()
	path := testConfig(t, dir)
	st, err := state.NewState(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	require.NoError(t, st.SetProgress(&state.Progress{Session: "night", NextPacketID: 2048, State: "finished"}))
	require.NoError(t, st.Close())

	out, err := execute("sessions", "--local", "--config", path)
	require.NoError(t, err)

	var sessions []*state.Progress
	require.NoError(t, yaml.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "night", sessions[0].Session)
	assert.Equal(t, int32(2048), sessions[0].NextPacketID)
}

func TestReceiveWrongInterval(t *testing.T) {
	path := testConfig(t, t.TempDir())
	_, err := execute("receive", "--stats-interval", "-1s", "--config", path)
	var invalid pkgconfig.ErrInvalidPeriod
	assert.True(t, errors.As(err, &invalid))
}

func TestSessionsDelete(t *testing.T) {
	dir := t.TempDir()
	path := testConfig(t, dir)
	st, err := state.NewState(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	require.NoError(t, st.SetProgress(&state.Progress{Session: "night", NextPacketID: 2048}))
	require.NoError(t, st.SetProgress(&state.Progress{Session: "day", NextPacketID: 16}))
	require.NoError(t, st.Close())

	_, err = execute("sessions", "delete", "night", "--config", path)
	require.NoError(t, err)

	out, err := execute("sessions", "--local", "--config", path)
	require.NoError(t, err)
	var sessions []*state.Progress
	require.NoError(t, yaml.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "day", sessions[0].Session)

	_, err = execute("sessions", "delete", "night", "--config", path)
	var notFound state.ErrSessionNotFound
	assert.True(t, errors.As(err, &notFound))

	_, err = execute("sessions", "delete", "--config", path)
	assert.Error(t, err)
}
