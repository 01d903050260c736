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

package status

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-nlx/pkg/command"
	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/log"
	"jinr.ru/greenlab/go-nlx/pkg/state"
)

const (
	LocalOptionName = "local"
)

// NewCommand creates the status command that asks a running replay for its progress
func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running replay",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := command.NewApiClient(cfg.Api).ReplayStatus()
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), status)
		},
	}
	return cmd
}

// NewSessionsCommand creates the sessions command that lists stored replay sessions
func NewSessionsCommand(cfg *config.Config) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored replay sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sessions []*state.Progress
			var err error
			if local {
				sessions, err = localSessions(cfg.DBPath)
			} else {
				sessions, err = command.NewApiClient(cfg.Api).Sessions()
			}
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), sessions)
		},
	}
	cmd.Flags().BoolVar(&local, LocalOptionName, false, "Read the session database directly instead of asking a running replay")
	cmd.AddCommand(NewSessionsDeleteCommand(cfg))
	return cmd
}

// NewSessionsDeleteCommand creates the command that removes sessions from the session database
func NewSessionsDeleteCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete SESSION...",
		Short: "Forget stored replay sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := state.NewState(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()
			for _, session := range args {
				if err := st.DeleteSession(session); err != nil {
					return err
				}
				log.Info("Session %s deleted", session)
			}
			return nil
		},
	}
	return cmd
}

func localSessions(path string) ([]*state.Progress, error) {
	st, err := state.NewState(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.ListSessions()
}

func printYAML(out io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, string(data))
	return err
}
