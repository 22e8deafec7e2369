package cli

import (
	"time"

	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the "check" command, which connects to the source and
// to a destination, then disconnects, without moving data.
func NewCheckCmd() *cobra.Command {
	var conn ConnectionFlags
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check <family>",
		Short: "Verify the source and a destination are reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			family, err := models.ParseFamily(args[0])
			if err != nil {
				return err
			}
			return runCheck(c, family, conn.config(), timeout)
		},
	}

	conn.bind(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Connect timeout")

	return cmd
}
