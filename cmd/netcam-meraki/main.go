// netcam-meraki - Meraki design validation
//
// Reconciles the live dashboard state of Meraki appliances (MX), switches
// (MS) and access points (MR) against a network design, and reports a
// pass/fail/info/skip result per check.
//
// Examples:
//
//	netcam-meraki check                        # validate every device in the design
//	netcam-meraki check sw01 mx01 --all        # two devices, show passing checks too
//	netcam-meraki check --redis localhost:6379 # keep the run for 'runs show'
//	netcam-meraki inventory                    # organization devices and their family
//	netcam-meraki settings set org_name "Lab Org"
//
// The API key is read from MERAKI_DASHBOARD_API_KEY, or prompted for when
// stdin is a terminal. It is never stored in the settings file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netcam-meraki/pkg/plugin"
	"github.com/newtron-network/netcam-meraki/pkg/settings"
	"github.com/newtron-network/netcam-meraki/pkg/util"
	"github.com/newtron-network/netcam-meraki/pkg/version"
)

var (
	// Global option flags
	designFile string
	orgID      string
	orgName    string
	baseURL    string
	verbose    bool
	logJSON    bool

	// Global state
	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "netcam-meraki",
	Short:             "Meraki Design Validation Tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `netcam-meraki validates Meraki devices against a network design.

Devices are located in the dashboard organization by name; each check
collection in the design is run against the live device state.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		// Apply defaults from settings
		if designFile == "" {
			designFile = userSettings.GetDesignFile()
		}
		if baseURL == "" {
			baseURL = userSettings.BaseURL
		}
		if orgID == "" && orgName == "" {
			orgID = userSettings.OrgID
			orgName = userSettings.OrgName
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&designFile, "design", "D", "", "Design file (default from settings, else design.yaml)")
	rootCmd.PersistentFlags().StringVar(&orgID, "org-id", "", "Dashboard organization id (env "+plugin.EnvOrgID+")")
	rootCmd.PersistentFlags().StringVar(&orgName, "org-name", "", "Dashboard organization name")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Dashboard API endpoint")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")

	rootCmd.AddGroup(
		&cobra.Group{ID: "validate", Title: "Validation:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{checkCmd, inventoryCmd, runsCmd, auditCmd} {
		cmd.GroupID = "validate"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion("netcam-meraki")
	},
}

func printVersion(tool string) {
	if version.Version == "dev" {
		fmt.Printf("%s dev build (no version info linked in)\n", tool)
	} else {
		fmt.Printf("%s %s\n", tool, version.Info())
	}
}

// ============================================================================
// Plugin configuration
// ============================================================================

// pluginConfig assembles the plugin config block from flags and settings.
// Unset values are omitted so that plugin.Init applies the environment
// fallbacks and its own defaults.
func pluginConfig(apiKey string, skipProbe bool) map[string]any {
	raw := map[string]any{}
	set := func(k, v string) {
		if v != "" {
			raw[k] = v
		}
	}
	set("org_id", orgID)
	set("org_name", orgName)
	set("base_url", baseURL)
	set("api_key", apiKey)
	if skipProbe {
		raw["skip_probe"] = true
	}
	return raw
}

// initPlugin resolves the API key and decodes the plugin config.
func initPlugin(skipProbe bool) (*plugin.Config, error) {
	key, err := resolveAPIKey(os.Stdin, os.Stderr)
	if err != nil {
		return nil, err
	}
	return plugin.Init(pluginConfig(key, skipProbe))
}
