// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package cmd

import (
	"fmt"
	"io"

	"github.com/pilosa/lakekit/parquet"
	"github.com/spf13/cobra"
)

// NewInfoCommand returns a new cobra command which prints the schema, row
// count, and sample rows of local parquet files.
func NewInfoCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var sample int
	infoCommand := &cobra.Command{
		Use:   "info file.parquet [file.parquet...]",
		Short: "info - inspect local parquet part files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				info, err := parquet.ReadInfo(path, sample)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%s: %d rows\n", info.Path, info.NumRows)
				for _, col := range info.Schema {
					fmt.Fprintf(stdout, "  %s %s\n", col.Name, col.Type)
				}
				for _, row := range info.Sample {
					fmt.Fprintf(stdout, "  %s\n", row)
				}
			}
			return nil
		},
	}
	infoCommand.Flags().IntVarP(&sample, "sample", "n", 0, "Number of sample rows to print from each file.")
	return infoCommand
}

func init() {
	subcommandFns["info"] = NewInfoCommand
}
