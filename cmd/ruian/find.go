package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newFindCmd(f *flags) *cobra.Command {
	var adm uint32
	cmd := &cobra.Command{
		Use:   "find --adm CODE [archive | URL | latest]",
		Short: "Print the address point with the given ADM code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.start(cmd, args)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.load()
			if err != nil {
				return err
			}
			for i := range res.Records {
				if res.Records[i].ADMCode != adm {
					continue
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(&res.Records[i])
			}
			return fmt.Errorf("address point %d not found in %d records", adm, len(res.Records))
		},
	}
	cmd.Flags().Uint32Var(&adm, "adm", 0, "ADM code of the address point")
	_ = cmd.MarkFlagRequired("adm")
	return cmd
}
