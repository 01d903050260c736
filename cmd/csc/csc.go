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

package csc

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	pkgcsc "jinr.ru/greenlab/go-nlx/pkg/csc"
	"jinr.ru/greenlab/go-nlx/pkg/log"
)

const (
	RecordsOptionName = "records"
)

type RecordInfo struct {
	Timestamp       uint64 `json:"timestamp"`
	ChannelNumber   uint32 `json:"channelNumber"`
	SampleFrequency uint32 `json:"sampleFrequency"`
	NumValidSamples uint32 `json:"numValidSamples"`
}

// FileInfo is the summary of a CSC file printed by csc info
type FileInfo struct {
	File              string            `json:"file"`
	Size              int64             `json:"size"`
	Header            map[string]string `json:"header"`
	Records           int               `json:"records"`
	PartialFrameBytes int64             `json:"partialFrameBytes,omitempty"`
	FirstRecords      []RecordInfo      `json:"firstRecords,omitempty"`
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csc",
		Short: "Inspect CSC files",
	}
	cmd.AddCommand(NewInfoCommand())
	return cmd
}

func NewInfoCommand() *cobra.Command {
	var records int
	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Print header and record summary of a CSC file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := Info(args[0], records)
			if err != nil {
				return err
			}
			if info.PartialFrameBytes != 0 {
				log.Warning("%s ends with a partial record frame of %d bytes", info.File, info.PartialFrameBytes)
			}
			return printYAML(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().IntVar(&records, RecordsOptionName, 1, "Number of leading records to describe")
	return cmd
}

// Info reads the header and the first records of a CSC file
func Info(path string, records int) (*FileInfo, error) {
	src, err := pkgcsc.OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	count, partial := pkgcsc.FrameCount(src.Size())
	if records > count {
		records = count
	}
	header, it, err := pkgcsc.NewIteratorFromSource(src, records)
	if err != nil {
		return nil, err
	}
	info := &FileInfo{
		File:              path,
		Size:              src.Size(),
		Header:            header.Map(),
		Records:           count,
		PartialFrameBytes: partial,
	}
	for {
		r, err := it.Next()
		var partialFrame pkgcsc.ErrPartialFrame
		if err == io.EOF || errors.As(err, &partialFrame) {
			break
		}
		if err != nil {
			return nil, err
		}
		info.FirstRecords = append(info.FirstRecords, RecordInfo{
			Timestamp:       r.Timestamp,
			ChannelNumber:   r.ChannelNumber,
			SampleFrequency: r.SampleFrequency,
			NumValidSamples: r.NumValidSamples,
		})
	}
	return info, nil
}

func printYAML(out io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, string(data))
	return err
}
