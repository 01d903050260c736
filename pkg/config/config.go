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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"
)

type ReplayConfig struct {
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
	// FirstPacketID is the id of the first emitted packet
	FirstPacketID int32 `json:"firstPacketID"`
	// MaxRecords caps the number of records read from every file, negative means all
	MaxRecords int `json:"maxRecords"`
	// Period overrides the sampling period derived from the records, e.g. "31.25us"
	Period           string `json:"period,omitempty"`
	ComputeChecksums bool   `json:"computeChecksums"`
	// FixPacketSize rewrites the declared packet size to match the number of channels
	FixPacketSize bool   `json:"fixPacketSize"`
	Session       string `json:"session,omitempty"`
}

type ApiConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
}

type ReceiveConfig struct {
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
	// VerifyChecksums counts packets whose crc does not balance the packet
	VerifyChecksums bool `json:"verifyChecksums"`
	// StatsInterval is how often receive statistics are logged, e.g. "5s"
	StatsInterval string `json:"statsInterval,omitempty"`
}

type Config struct {
	LogLevel string         `json:"logLevel,omitempty"`
	LogFile  string         `json:"logFile,omitempty"`
	DBPath   string         `json:"dbPath,omitempty"`
	Replay   *ReplayConfig  `json:"replay,omitempty"`
	Api      *ApiConfig     `json:"api,omitempty"`
	Receive  *ReceiveConfig `json:"receive,omitempty"`
	filepath string
}

// ReplayPeriod parses Period. Zero means the period is taken from the sampling frequency.
func (c *ReplayConfig) ReplayPeriod() (time.Duration, error) {
	if c.Period == "" {
		return 0, nil
	}
	period, err := time.ParseDuration(c.Period)
	if err != nil {
		return 0, err
	}
	if period < 0 {
		return 0, ErrInvalidPeriod{Period: c.Period}
	}
	return period, nil
}

func (c *ReplayConfig) Destination() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

func (c *ApiConfig) Listen() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

func (c *ReceiveConfig) Listen() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// Interval parses StatsInterval, an empty value turns periodic statistics off
func (c *ReceiveConfig) Interval() (time.Duration, error) {
	if c.StatsInterval == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(c.StatsInterval)
	if err != nil {
		return 0, err
	}
	if interval < 0 {
		return 0, ErrInvalidPeriod{Period: c.StatsInterval}
	}
	return interval, nil
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	err = os.WriteFile(c.filepath, data, 0644)
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) LoadConfig() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Load reads the config file if there is one. Defaults stay in place otherwise.
func (c *Config) Load() error {
	err := c.LoadConfig()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(homeDir(), ConfigDir, DBFile)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return home
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		DBPath:   DefaultDBPath(),
		Replay: &ReplayConfig{
			Address:       DefaultReplayAddress,
			Port:          DefaultReplayPort,
			FirstPacketID: DefaultFirstPacketID,
			MaxRecords:    DefaultMaxRecords,
			Session:       DefaultSession,
		},
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		Receive: &ReceiveConfig{
			Address:         DefaultReceiveAddress,
			Port:            DefaultReplayPort,
			VerifyChecksums: true,
			StatsInterval:   DefaultStatsInterval,
		},
		filepath: DefaultConfigPath(),
	}
}
