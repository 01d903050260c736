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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/log"
	pkgreplay "jinr.ru/greenlab/go-nlx/pkg/replay"
	"jinr.ru/greenlab/go-nlx/pkg/state"
	"jinr.ru/greenlab/go-nlx/pkg/timeutil"
)

const (
	FileOptionName             = "file"
	AddressOptionName          = "address"
	PortOptionName             = "port"
	FirstIDOptionName          = "first-id"
	MaxRecordsOptionName       = "max-records"
	PeriodOptionName           = "period"
	ComputeChecksumsOptionName = "compute-checksums"
	FixPacketSizeOptionName    = "fix-packet-size"
	SessionOptionName          = "session"
	ResumeOptionName           = "resume"
	ApiOptionName              = "api"
	OutOptionName              = "out"
	RealtimeOptionName         = "realtime"
)

// replayFlags are the flags replay and dump share
type replayFlags struct {
	files            []string
	address          string
	port             int
	firstID          int32
	maxRecords       int
	period           string
	computeChecksums bool
	fixPacketSize    bool
	session          string
	resume           bool
}

func (f *replayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.files, FileOptionName, nil, "CSC file of a channel, repeat for every channel. E.g. CSC1.ncs")
	cmd.Flags().StringVar(&f.address, AddressOptionName, "", fmt.Sprintf("Destination address. E.g. %s", config.DefaultReplayAddress))
	cmd.Flags().IntVar(&f.port, PortOptionName, 0, fmt.Sprintf("Destination port. E.g. %d", config.DefaultReplayPort))
	cmd.Flags().Int32Var(&f.firstID, FirstIDOptionName, 0, "Id of the first packet")
	cmd.Flags().IntVar(&f.maxRecords, MaxRecordsOptionName, 0, "Maximum number of records read from every file, negative means all")
	cmd.Flags().StringVar(&f.period, PeriodOptionName, "", "Packet period, derived from the sampling frequency if empty. E.g. 31.25us")
	cmd.Flags().BoolVar(&f.computeChecksums, ComputeChecksumsOptionName, false, "Fill in the checksum of every packet")
	cmd.Flags().BoolVar(&f.fixPacketSize, FixPacketSizeOptionName, false, "Declare the real packet size instead of the fixed one")
	cmd.Flags().StringVar(&f.session, SessionOptionName, "", fmt.Sprintf("Session name used to store progress. E.g. %s", config.DefaultSession))
}

// apply overrides config fields with the flags set on the command line
func (f *replayFlags) apply(cmd *cobra.Command, cfg *config.ReplayConfig) {
	flags := cmd.Flags()
	if flags.Changed(AddressOptionName) {
		cfg.Address = f.address
	}
	if flags.Changed(PortOptionName) {
		cfg.Port = f.port
	}
	if flags.Changed(FirstIDOptionName) {
		cfg.FirstPacketID = f.firstID
	}
	if flags.Changed(MaxRecordsOptionName) {
		cfg.MaxRecords = f.maxRecords
	}
	if flags.Changed(PeriodOptionName) {
		cfg.Period = f.period
	}
	if flags.Changed(ComputeChecksumsOptionName) {
		cfg.ComputeChecksums = f.computeChecksums
	}
	if flags.Changed(FixPacketSizeOptionName) {
		cfg.FixPacketSize = f.fixPacketSize
	}
	if flags.Changed(SessionOptionName) {
		cfg.Session = f.session
	}
}

// paths returns the files given with --file followed by positional arguments
func (f *replayFlags) paths(args []string) ([]string, error) {
	paths := append(append([]string(nil), f.files...), args...)
	if len(paths) == 0 {
		return nil, errors.New("At least one CSC file is required")
	}
	return paths, nil
}

// resumeFrom moves the first packet id to where the stored session stopped
func (f *replayFlags) resumeFrom(st *state.State, cfg *config.ReplayConfig) error {
	if !f.resume {
		return nil
	}
	progress, err := st.GetProgress(cfg.Session)
	var notFound state.ErrSessionNotFound
	if errors.As(err, &notFound) {
		log.Warning("Nothing stored for session %s, starting from packet id %d", cfg.Session, cfg.FirstPacketID)
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("Resuming session %s from packet id %d", cfg.Session, progress.NextPacketID)
	cfg.FirstPacketID = progress.NextPacketID
	return nil
}

// recordProgress stores replay status snapshots as session progress
func recordProgress(st *state.State, clock timeutil.Clock) pkgreplay.ProgressFunc {
	return func(status pkgreplay.Status) {
		err := st.SetProgress(&state.Progress{
			Session:      status.Session,
			Files:        status.Files,
			NextPacketID: status.NextPacketID,
			PacketsSent:  status.PacketsSent,
			State:        string(status.State),
			Updated:      clock.Now(),
		})
		if err != nil {
			log.Error("Error while storing progress of session %s: %s", status.Session, err)
		}
	}
}
