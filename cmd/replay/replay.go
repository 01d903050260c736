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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/log"
	pkgreplay "jinr.ru/greenlab/go-nlx/pkg/replay"
	"jinr.ru/greenlab/go-nlx/pkg/srv"
	"jinr.ru/greenlab/go-nlx/pkg/state"
	"jinr.ru/greenlab/go-nlx/pkg/timeutil"
)

const (
	replayExample = `
Replay two channels to the default destination
# go-nlx replay --file CSC1.ncs --file CSC2.ncs

Continue packet ids of a previous run and expose the status API
# go-nlx replay --session night --resume --api CSC1.ncs CSC2.ncs
`
)

// NewCommand creates the replay command that streams CSC files over UDP in real time
func NewCommand(cfg *config.Config) *cobra.Command {
	flags := &replayFlags{}
	var api bool
	cmd := &cobra.Command{
		Use:     "replay [FILE...]",
		Short:   "Replay CSC files as a real time packet stream",
		Example: replayExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, cfg.Replay)
			if cmd.Flags().Changed(ApiOptionName) {
				cfg.Api.Enabled = api
			}
			paths, err := flags.paths(args)
			if err != nil {
				return err
			}

			st, err := state.NewState(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := flags.resumeFrom(st, cfg.Replay); err != nil {
				return err
			}

			sender, err := pkgreplay.NewUDPSender(cfg.Replay.Destination())
			if err != nil {
				return err
			}
			defer sender.Close()

			clock := timeutil.RealClock{}
			replayer := pkgreplay.NewReplayer(cfg.Replay, clock, sender)
			replayer.SetProgressFunc(recordProgress(st, clock))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Api.Enabled {
				server := srv.NewApiServer(ctx, cfg.Api, replayer, st)
				go func() {
					if err := server.Run(); err != nil {
						log.Error("API server stopped: %s", err)
					}
				}()
			}
			return replayer.Run(ctx, paths)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.resume, ResumeOptionName, false, "Continue packet ids where the session stopped")
	cmd.Flags().BoolVar(&api, ApiOptionName, false, "Serve the status API while replaying")
	return cmd
}
