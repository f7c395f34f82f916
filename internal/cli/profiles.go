package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jengzang/greenarea-go/internal/sensor"
)

func profilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List sensor profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "name\tcollection\tpixel_m\tencoding\tprefix")
			for _, name := range sensor.Names() {
				p, err := sensor.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\n", p.Name, p.Collection, p.PixelSize, p.Encoding, p.ExportPrefix)
			}
			return tw.Flush()
		},
	}
}
