// -- cmd/open.go --
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/helmsman/internal/browser"
	"github.com/xkilldash9x/helmsman/internal/browser/session"
	"github.com/xkilldash9x/helmsman/internal/config"
	"github.com/xkilldash9x/helmsman/internal/observability"
)

var (
	openStrategy   string
	openNewTab     bool
	openPersistent bool
	openKeepOpen   bool
)

// openCmd acquires a browser and steers a tab session to the given URL.
var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Acquire a browser and navigate a session tab to a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	openCmd.Flags().StringVar(&openStrategy, "strategy", "", "tab strategy override (always_reuse|smart|always_new)")
	openCmd.Flags().BoolVar(&openNewTab, "new-tab", false, "force the navigation into a new tab")
	openCmd.Flags().BoolVar(&openPersistent, "persistent", false, "leave a launched browser running on exit")
	openCmd.Flags().BoolVar(&openKeepOpen, "keep-open", false, "do not close the session tab on exit")
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	targetURL := args[0]

	browserCfg := cfg.Browser
	if openPersistent {
		browserCfg.Persistent = true
	}
	tabsCfg := cfg.Tabs
	if openStrategy != "" {
		tabsCfg.Strategy = config.TabStrategy(openStrategy)
		switch tabsCfg.Strategy {
		case config.StrategyAlwaysReuse, config.StrategySmart, config.StrategyAlwaysNew:
		default:
			return fmt.Errorf("unknown strategy %q", openStrategy)
		}
	}

	acquirer := browser.NewAcquirer(browserCfg, logger)
	acquirer.OnBeforeLaunch = func(context.Context) {
		fmt.Println("No running browser found; launching a new instance...")
	}

	result, err := acquirer.GetOrCreateBrowser(cmd.Context())
	if err != nil {
		return fmt.Errorf("acquiring browser: %w", err)
	}

	sess := session.New(result.Browser, tabsCfg, logger)

	// Cleanup gets its own deadline; the command context may already be
	// cancelled by the time deferred closes run.
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if !openKeepOpen {
			sess.Cleanup(ctx)
		}
		acquirer.CloseBrowser(ctx, false)
	}()

	logger.Info("Browser acquired.",
		zap.String("provenance", string(result.Provenance)),
		zap.Bool("new_instance", result.IsNewInstance))

	if openNewTab {
		if _, err := sess.RequestNewTab(cmd.Context(), targetURL, "requested via --new-tab"); err != nil {
			return err
		}
	} else {
		if _, err := sess.GetOrCreatePage(cmd.Context(), targetURL); err != nil {
			return err
		}
	}

	current := sess.CurrentURL(cmd.Context())
	fmt.Printf("Browser: %s\n", result.Provenance)
	fmt.Printf("Tab:     %s\n", current)
	return nil
}
