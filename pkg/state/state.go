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

package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-nlx/pkg/log"
)

const (
	BucketPrefix = "session_"
	ProgressKey  = "progress"
)

// Progress is what a replay session left behind
type Progress struct {
	Session      string    `json:"session"`
	Files        []string  `json:"files,omitempty"`
	NextPacketID int32     `json:"nextPacketID"`
	PacketsSent  int64     `json:"packetsSent"`
	State        string    `json:"state"`
	Updated      time.Time `json:"updated"`
}

// ErrSessionNotFound returned when nothing is stored for a session
type ErrSessionNotFound struct {
	Name string
}

func (e ErrSessionNotFound) Error() string {
	return fmt.Sprintf("Session not found: %s", e.Name)
}

type State struct {
	DB *bbolt.DB
}

// NewState opens the session database, creating it and its directory if needed
func NewState(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &State{DB: db}, nil
}

func BucketName(session string) string {
	return fmt.Sprintf("%s%s", BucketPrefix, session)
}

// Close ...
func (s *State) Close() error {
	return s.DB.Close()
}

// SetProgress stores the progress of a session, replacing what was there
func (s *State) SetProgress(p *Progress) error {
	log.Debug("Setting progress: session: %s next packet id: %d", p.Session, p.NextPacketID)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketName(p.Session)))
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put([]byte(ProgressKey), data)
	})
}

// GetProgress ...
func (s *State) GetProgress(session string) (*Progress, error) {
	log.Debug("Getting progress: session: %s", session)
	p := &Progress{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName(session)))
		if b == nil {
			return ErrSessionNotFound{Name: session}
		}
		data := b.Get([]byte(ProgressKey))
		if data == nil {
			return ErrSessionNotFound{Name: session}
		}
		return yaml.Unmarshal(data, p)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListSessions returns the progress of every stored session ordered by name
func (s *State) ListSessions() ([]*Progress, error) {
	log.Debug("Getting all sessions")
	var sessions []*Progress
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			if !strings.HasPrefix(string(name), BucketPrefix) {
				return nil
			}
			data := b.Get([]byte(ProgressKey))
			if data == nil {
				return nil
			}
			p := &Progress{}
			if err := yaml.Unmarshal(data, p); err != nil {
				log.Error("Error while unmarshalling progress of %s: %s", name, err)
				return err
			}
			sessions = append(sessions, p)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Session < sessions[j].Session
	})
	return sessions, nil
}

// DeleteSession forgets a session
func (s *State) DeleteSession(session string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket([]byte(BucketName(session)))
		if err == bbolt.ErrBucketNotFound {
			return ErrSessionNotFound{Name: session}
		}
		return err
	})
}
