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
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	pkgreplay "jinr.ru/greenlab/go-nlx/pkg/replay"
	"jinr.ru/greenlab/go-nlx/pkg/timeutil"
)

const (
	dumpExample = `
Write the packets of two channels into a capture file without waiting
# go-nlx dump --file CSC1.ncs --file CSC2.ncs --out replay.pcap
`
)

// NewDumpCommand creates the dump command that writes the replay into a pcap file
func NewDumpCommand(cfg *config.Config) *cobra.Command {
	flags := &replayFlags{}
	var out string
	var realtime bool
	cmd := &cobra.Command{
		Use:     "dump [FILE...]",
		Short:   "Write the replay packet stream into a pcap file",
		Example: dumpExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, cfg.Replay)
			paths, err := flags.paths(args)
			if err != nil {
				return err
			}
			if out == "" {
				return errors.New("Output file is required")
			}

			var clock timeutil.Clock = timeutil.NewVirtualClock(time.Now())
			if realtime {
				clock = timeutil.RealClock{}
			}
			sender, err := pkgreplay.NewPcapSender(out, cfg.Replay.Destination(), clock)
			if err != nil {
				return err
			}
			defer sender.Close()

			return pkgreplay.NewReplayer(cfg.Replay, clock, sender).Run(context.Background(), paths)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&out, OutOptionName, "", "Pcap file to write. E.g. replay.pcap")
	cmd.Flags().BoolVar(&realtime, RealtimeOptionName, false, "Pace the dump in real time instead of writing as fast as possible")
	return cmd
}
