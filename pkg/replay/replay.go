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

package replay

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/csc"
	"jinr.ru/greenlab/go-nlx/pkg/layers"
	"jinr.ru/greenlab/go-nlx/pkg/log"
	"jinr.ru/greenlab/go-nlx/pkg/timeutil"
)

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateFailed   State = "failed"
	StateCanceled State = "canceled"
)

// progressEvery is the number of packets between two progress reports
const progressEvery = 10000

// Status is a snapshot of a replay run
type Status struct {
	State        State      `json:"state"`
	Session      string     `json:"session,omitempty"`
	Files        []string   `json:"files,omitempty"`
	PacketsSent  int64      `json:"packetsSent"`
	NextPacketID int32      `json:"nextPacketID"`
	Generations  int        `json:"generations"`
	Period       string     `json:"period,omitempty"`
	Started      *time.Time `json:"started,omitempty"`
	Finished     *time.Time `json:"finished,omitempty"`
	// Elapsed is the run time so far, or the total run time once the run ended
	Elapsed string `json:"elapsed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ProgressFunc receives a status snapshot while a replay runs and once it ends
type ProgressFunc func(Status)

// Replayer streams CSC files as paced packets through a Sender
type Replayer struct {
	cfg      *config.ReplayConfig
	clock    timeutil.Clock
	sender   Sender
	progress ProgressFunc

	mu     sync.Mutex
	status Status
}

func NewReplayer(cfg *config.ReplayConfig, clock timeutil.Clock, sender Sender) *Replayer {
	return &Replayer{
		cfg:    cfg,
		clock:  clock,
		sender: sender,
		status: Status{
			State:        StateIdle,
			Session:      cfg.Session,
			NextPacketID: cfg.FirstPacketID,
		},
	}
}

// SetProgressFunc installs a callback that is called every few thousand packets and when a run ends
func (r *Replayer) SetProgressFunc(f ProgressFunc) {
	r.progress = f
}

// Status returns a copy of the current status, safe to call from any goroutine
func (r *Replayer) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Replayer) update(f func(s *Status)) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(&r.status)
	return r.snapshot()
}

// snapshot copies the status, r.mu must be held
func (r *Replayer) snapshot() Status {
	status := r.status
	status.Files = append([]string(nil), r.status.Files...)
	switch {
	case status.Started == nil:
	case status.Finished != nil:
		status.Elapsed = status.Finished.Sub(*status.Started).String()
	default:
		status.Elapsed = r.clock.Since(*status.Started).String()
	}
	return status
}

func (r *Replayer) report(status Status) {
	if r.progress != nil {
		r.progress(status)
	}
}

// Run replays paths, one file per channel in the given order, until the shortest
// file is exhausted, a send fails or ctx is canceled
func (r *Replayer) Run(ctx context.Context, paths []string) error {
	r.mu.Lock()
	if r.status.State == StateRunning {
		r.mu.Unlock()
		return ErrReplayRunning{}
	}
	started := r.clock.Now()
	r.status = Status{
		State:        StateRunning,
		Session:      r.cfg.Session,
		Files:        append([]string(nil), paths...),
		NextPacketID: r.cfg.FirstPacketID,
		Started:      &started,
	}
	r.mu.Unlock()

	err := r.run(ctx, paths)

	status := r.update(func(s *Status) {
		finished := r.clock.Now()
		s.Finished = &finished
		switch {
		case err == nil:
			s.State = StateFinished
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			s.State = StateCanceled
			s.Error = err.Error()
		default:
			s.State = StateFailed
			s.Error = err.Error()
		}
	})
	r.report(status)
	if err != nil {
		log.Error("Replay %s: %s", status.State, err)
	} else {
		log.Info("Replay finished: %d packets from %d record generations sent in %s",
			status.PacketsSent, status.Generations, status.Elapsed)
	}
	return err
}

func (r *Replayer) run(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return ErrNoChannels
	}
	channels := make([]RecordIterator, 0, len(paths))
	for _, path := range paths {
		_, it, err := csc.NewIterator(path, r.cfg.MaxRecords)
		if err != nil {
			return err
		}
		defer it.Close()
		channels = append(channels, it)
	}

	stream, err := NewPacketStream(channels, r.cfg.FirstPacketID)
	if err != nil {
		return err
	}

	// the first packet is read up front so the sampling period is known before pacing starts
	first, err := stream.Next()
	if err == io.EOF {
		log.Warning("Nothing to replay")
		return nil
	}
	if err != nil {
		return err
	}

	period, err := r.cfg.ReplayPeriod()
	if err != nil {
		return err
	}
	if period == 0 {
		period = stream.SamplePeriod()
	}
	r.update(func(s *Status) {
		s.Period = period.String()
	})
	log.Info("Replaying %d channels with period %s starting from packet id %d", len(paths), period, first.PacketID)

	next := func() (*layers.NlxLayer, error) {
		if first != nil {
			packet := first
			first = nil
			return packet, nil
		}
		return stream.Next()
	}

	opts := gopacket.SerializeOptions{
		FixLengths:       r.cfg.FixPacketSize,
		ComputeChecksums: r.cfg.ComputeChecksums,
	}
	buf := gopacket.NewSerializeBuffer()
	send := func(packet *layers.NlxLayer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := gopacket.SerializeLayers(buf, opts, packet); err != nil {
			return err
		}
		if err := r.sender.Send(buf.Bytes()); err != nil {
			return err
		}
		status := r.update(func(s *Status) {
			s.PacketsSent++
			s.NextPacketID = packet.PacketID + 1
			s.Generations = stream.Generation()
		})
		if status.PacketsSent%progressEvery == 0 {
			log.Debug("Sent %d packets, next packet id %d", status.PacketsSent, status.NextPacketID)
			r.report(status)
		}
		return nil
	}

	return PeriodicEach(r.clock, period, next, send)
}
