package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ruian/internal/decode"
	"ruian/internal/probe"
)

func newProbeCmd(f *flags) *cobra.Command {
	var (
		sample int
		limit  int
		failOnProblems bool
	)
	cmd := &cobra.Command{
		Use:   "probe [archive | URL | latest]",
		Short: "Sample each table's header and report problems without parsing rows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.start(cmd, args)
			if err != nil {
				return err
			}
			defer s.close()

			policy, err := decode.ParsePolicy(s.cfg.Decoder.Policy)
			if err != nil {
				return err
			}
			a, closeArchive, err := s.openArchive()
			if err != nil {
				return err
			}
			defer closeArchive()

			rep, err := probe.Archive(s.ctx, a, probe.Options{SampleBytes: sample, Policy: policy, Limit: limit})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if failOnProblems && rep.Problems > 0 {
				return fmt.Errorf("%d of %d entries have problems", rep.Problems, len(rep.Entries))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&sample, "sample", 4096, "bytes decompressed per entry")
	cmd.Flags().IntVar(&limit, "limit", 0, "probe at most this many entries (0 = all)")
	cmd.Flags().BoolVar(&failOnProblems, "fail", false, "exit non-zero when any entry has problems")
	return cmd
}
