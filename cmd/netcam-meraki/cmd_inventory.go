package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/newtron-network/netcam-meraki/pkg/cli"
	"github.com/newtron-network/netcam-meraki/pkg/dashboard"
	"github.com/newtron-network/netcam-meraki/pkg/plugin"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List organization devices",
	Long: `List the devices of the dashboard organization with the validation
family that serves each product model.

Examples:
  netcam-meraki inventory
  netcam-meraki inventory --org-name "Lab Org"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := initPlugin(true)
		if err != nil {
			return err
		}
		api, err := cfg.NewInvoker(nil)
		if err != nil {
			return err
		}

		devices, err := listInventory(cmd.Context(), api, cfg)
		if err != nil {
			return err
		}
		printInventory(os.Stdout, devices)
		return nil
	},
}

// listInventory returns the organization device records sorted by name.
func listInventory(ctx context.Context, api dashboard.Invoker, cfg *plugin.Config) ([]gjson.Result, error) {
	org := cfg.OrgID
	if org == "" {
		orgs, err := api.Invoke(ctx, "organizations.getOrganizations", nil)
		if err != nil {
			return nil, fmt.Errorf("listing organizations: %w", err)
		}
		for _, o := range orgs.Array() {
			if o.Get("name").String() == cfg.OrgName {
				if org != "" {
					return nil, util.NewConfigError("org_name", fmt.Sprintf("more than one organization named %q", cfg.OrgName))
				}
				org = o.Get("id").String()
			}
		}
		if org == "" {
			return nil, util.NewConfigError("org_name", fmt.Sprintf("no organization named %q", cfg.OrgName))
		}
	}

	payload, err := api.Invoke(ctx, "organizations.getOrganizationDevices", dashboard.Params{"organizationId": org})
	if err != nil {
		return nil, fmt.Errorf("listing devices of organization %s: %w", org, err)
	}
	devices := payload.Array()
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Get("name").String() < devices[j].Get("name").String()
	})
	return devices, nil
}

func printInventory(w io.Writer, devices []gjson.Result) {
	t := cli.NewTable("NAME", "MODEL", "SERIAL", "NETWORK", "FAMILY").WithWriter(w)
	for _, d := range devices {
		model := d.Get("model").String()
		family := cli.Dim("unsupported")
		if f, ok := plugin.FamilyFor(model); ok {
			family = f.Name
		}
		t.Row(d.Get("name").String(), model, d.Get("serial").String(), d.Get("networkId").String(), family)
	}
	t.Flush()
}
