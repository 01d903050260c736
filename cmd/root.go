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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-nlx/cmd/completion"
	"jinr.ru/greenlab/go-nlx/cmd/config"
	"jinr.ru/greenlab/go-nlx/cmd/csc"
	"jinr.ru/greenlab/go-nlx/cmd/receive"
	"jinr.ru/greenlab/go-nlx/cmd/replay"
	"jinr.ru/greenlab/go-nlx/cmd/status"
	pkgconfig "jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	LogFileOptionName  = "log-file"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, logFile, configPath string
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:          "go-nlx",
		Short:        "Tool to replay Neuralynx CSC recordings as acquisition packets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg.SetPath(configPath)
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFile != "" {
				cfg.LogFile = logFile
			}
			if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
			return log.SetFile(cfg.LogFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Close()
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(replay.NewCommand(cfg))
	cmd.AddCommand(replay.NewDumpCommand(cfg))
	cmd.AddCommand(csc.NewCommand())
	cmd.AddCommand(receive.NewCommand(cfg))
	cmd.AddCommand(status.NewCommand(cfg))
	cmd.AddCommand(status.NewSessionsCommand(cfg))
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&logFile, LogFileOptionName, "", "Also write logs into this file, rotated by size")
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, "", fmt.Sprintf("Config file. Default %s", pkgconfig.DefaultConfigPath()))
	return cmd
}
