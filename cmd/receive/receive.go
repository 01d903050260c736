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

package receive

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/log"
	"jinr.ru/greenlab/go-nlx/pkg/replay"
	"jinr.ru/greenlab/go-nlx/pkg/srv"
	"jinr.ru/greenlab/go-nlx/pkg/timeutil"
)

const (
	AddressOptionName  = "address"
	PortOptionName     = "port"
	NoVerifyOptionName = "no-verify"
	IntervalOptionName = "stats-interval"

	receiveExample = `
Count packets of a replay running on the same host. The replay has to declare
the real packet size and fill in checksums for the packets to decode and verify
# go-nlx receive --port 26090
# go-nlx replay --fix-packet-size --compute-checksums CSC1.ncs CSC2.ncs

Count packets of a replay that leaves checksums empty
# go-nlx receive --no-verify
`
)

// NewCommand creates the receive command that listens for replayed packets and checks them
func NewCommand(cfg *config.Config) *cobra.Command {
	var address, interval string
	var port int
	var noVerify bool
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Receive replayed packets and count checksum errors and id gaps",
		Long: `Receive replayed packets and count checksum errors and id gaps.

Packets declare the fixed size 1044 unless the replay runs with --fix-packet-size,
such packets fail to decode and are counted as fixed size errors. Checksums are
only filled in when the replay runs with --compute-checksums.`,
		Example: receiveExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			rcfg := cfg.Receive
			if cmd.Flags().Changed(AddressOptionName) {
				rcfg.Address = address
			}
			if cmd.Flags().Changed(PortOptionName) {
				rcfg.Port = port
			}
			if cmd.Flags().Changed(NoVerifyOptionName) {
				rcfg.VerifyChecksums = !noVerify
			}
			if cmd.Flags().Changed(IntervalOptionName) {
				rcfg.StatsInterval = interval
			}
			period, err := rcfg.Interval()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			receiver, err := srv.NewReceiver(ctx, rcfg)
			if err != nil {
				return err
			}
			if period > 0 {
				go func() {
					_ = replay.PeriodicWhile(timeutil.RealClock{}, period,
						func() bool { return ctx.Err() == nil },
						func() error {
							stats := receiver.Stats()
							log.Info("Received %d packets, last id %d, checksum errors %d, gaps %d, decode errors %d",
								stats.Packets, stats.LastPacketID, stats.ChecksumErrors, stats.Gaps, stats.DecodeErrors)
							return nil
						})
				}()
			}

			if err := receiver.Run(); err != nil {
				return err
			}
			out, err := yaml.Marshal(receiver.Stats())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, config.DefaultReceiveAddress, "Address to listen on")
	cmd.Flags().IntVar(&port, PortOptionName, config.DefaultReplayPort, "UDP port to listen on")
	cmd.Flags().BoolVar(&noVerify, NoVerifyOptionName, false, "Do not check packet checksums")
	cmd.Flags().StringVar(&interval, IntervalOptionName, config.DefaultStatsInterval, "How often to log statistics, empty to disable")
	return cmd
}
