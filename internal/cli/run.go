package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cotacoes-ledger/internal/app"
)

var (
	runOverwrite bool
	runAt        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one collection pass and update the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{Overwrite: runOverwrite}

		if runAt != "" {
			at, err := time.ParseInLocation("2006-01-02 15:04", runAt, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --at value: %w", err)
			}
			opts.Now = at
		}

		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOverwrite, "overwrite", false, "Rewrite quote cells even when already filled")
	runCmd.Flags().StringVar(&runAt, "at", "", "Pretend the run happens at this local time (YYYY-MM-DD HH:MM)")
}
