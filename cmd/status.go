// -- cmd/status.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/helmsman/internal/browser"
)

// statusCmd probes the configured debug port and reports what, if anything,
// is listening there.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a debuggable browser is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := browser.ProbeDebugPort(cmd.Context(), cfg.Browser.DebugPort, cfg.Browser.AttachTimeout)
		if err != nil {
			fmt.Printf("No debuggable browser on port %d\n", cfg.Browser.DebugPort)
			return nil
		}

		fmt.Printf("Debug endpoint active on port %d\n", cfg.Browser.DebugPort)
		fmt.Printf("  Browser:   %s\n", info.Browser)
		fmt.Printf("  Protocol:  %s\n", info.ProtocolVersion)
		fmt.Printf("  Debugger:  %s\n", info.WebSocketDebuggerURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
