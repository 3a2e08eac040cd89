package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// NewDropletsCommand creates the droplets command group.
func NewDropletsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "droplets",
		Aliases: []string{"droplet"},
		Short:   "Manage droplets",
		Long:    "List, inspect, create and delete droplets",
	}

	cmd.AddCommand(newDropletsListCommand())
	cmd.AddCommand(newDropletsGetCommand())
	cmd.AddCommand(newDropletsCreateCommand())
	cmd.AddCommand(newDropletsDeleteCommand())

	return cmd
}

func parseDropletID(value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", constants.ErrInvalidDropletID, value)
	}

	return id, nil
}

func newDropletsListCommand() *cobra.Command {
	var (
		allPages bool
		page     int
		perPage  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List droplets",
		Long:  "List the droplets of the account, one page at a time or with --all every page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, closeFn, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			opts := &docean.ListOptions{Page: page, PerPage: perPage}

			droplets, hasMore, err := fetchDroplets(cmd.Context(), client, opts, allPages)
			if err != nil {
				return err
			}

			return outputDropletsList(cmd, format, droplets, hasMore)
		},
	}

	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")
	cmd.Flags().IntVar(&page, "page", 0, "page to fetch")
	cmd.Flags().IntVar(&perPage, "per-page", constants.DefaultPageSize, "results per page")

	return cmd
}

func fetchDroplets(ctx context.Context, client docean.Client, opts *docean.ListOptions, allPages bool) ([]docean.Droplet, bool, error) {
	if allPages {
		droplets, err := client.Droplets().ListAll(ctx, opts)
		if err != nil {
			return nil, false, fmt.Errorf("failed to list droplets: %w", err)
		}

		return droplets, false, nil
	}

	list, err := client.Droplets().List(ctx, opts)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list droplets: %w", err)
	}

	return list.Droplets, list.Links.NextURL() != "", nil
}

func outputDropletsList(cmd *cobra.Command, format string, droplets []docean.Droplet, hasMore bool) error {
	out := cmd.OutOrStdout()

	if handled, err := writeStructured(out, format, droplets); handled {
		return err
	}

	if len(droplets) == 0 {
		_, _ = fmt.Fprintln(out, "No droplets found")

		return nil
	}

	rows := make([][]string, 0, len(droplets))
	for _, droplet := range droplets {
		rows = append(rows, []string{
			strconv.Itoa(droplet.ID),
			droplet.Name,
			droplet.Status,
			droplet.Region.Slug,
			droplet.SizeSlug,
			droplet.CreatedAt.Format("2006-01-02"),
		})
	}

	err := renderTable(out, []string{"ID", "Name", "Status", "Region", "Size", "Created"}, rows)
	if err != nil {
		return err
	}

	if hasMore {
		_, _ = fmt.Fprintln(out, "\nMore droplets are available. Use --page or --all to see them.")
	}

	return nil
}

func newDropletsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get DROPLET_ID",
		Short: "Get droplet details",
		Long:  "Display detailed information about a specific droplet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDropletID(args[0])
			if err != nil {
				return err
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, closeFn, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			droplet, err := client.Droplets().Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to get droplet: %w", err)
			}

			return outputDropletDetails(cmd, format, droplet)
		},
	}
}

func outputDropletDetails(cmd *cobra.Command, format string, droplet *docean.Droplet) error {
	out := cmd.OutOrStdout()

	if handled, err := writeStructured(out, format, droplet); handled {
		return err
	}

	tags := constants.NotAvailable
	if len(droplet.Tags) > 0 {
		tags = strings.Join(droplet.Tags, ", ")
	}

	return renderTable(out, []string{"Property", "Value"}, [][]string{
		{"ID", strconv.Itoa(droplet.ID)},
		{"Name", droplet.Name},
		{"Status", droplet.Status},
		{"Locked", strconv.FormatBool(droplet.Locked)},
		{"Region", fmt.Sprintf("%s (%s)", droplet.Region.Name, droplet.Region.Slug)},
		{"Size", droplet.SizeSlug},
		{"Memory", fmt.Sprintf("%d MB", droplet.Memory)},
		{"vCPUs", strconv.Itoa(droplet.VCPUs)},
		{"Disk", fmt.Sprintf("%d GB", droplet.Disk)},
		{"Tags", tags},
		{"Created", formatTime(droplet.CreatedAt)},
	})
}

func newDropletsCreateCommand() *cobra.Command {
	var request docean.DropletCreateRequest

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a droplet",
		Long:  "Create a droplet. Creation is attempted once: a server error does not trigger a retry.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			client, closeFn, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			request.Name = args[0]

			droplet, err := client.Droplets().Create(cmd.Context(), &request)
			if err != nil {
				return fmt.Errorf("failed to create droplet: %w", err)
			}

			if format != constants.FormatTable {
				_, err = writeStructured(cmd.OutOrStdout(), format, droplet)

				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Creating droplet '%s' (ID: %d, status: %s)\n", droplet.Name, droplet.ID, droplet.Status)

			return nil
		},
	}

	cmd.Flags().StringVar(&request.Region, "region", "", "region slug (required)")
	cmd.Flags().StringVar(&request.Size, "size", "", "size slug (required)")
	cmd.Flags().StringVar(&request.Image, "image", "", "image slug or ID (required)")
	cmd.Flags().StringSliceVar(&request.SSHKeys, "ssh-keys", nil, "SSH key IDs or fingerprints")
	cmd.Flags().StringSliceVar(&request.Tags, "tags", nil, "tags to apply")
	cmd.Flags().BoolVar(&request.Backups, "backups", false, "enable backups")
	cmd.Flags().BoolVar(&request.IPv6, "ipv6", false, "enable IPv6")
	cmd.Flags().BoolVar(&request.Monitoring, "monitoring", false, "install the monitoring agent")
	cmd.Flags().StringVar(&request.UserData, "user-data", "", "cloud-init user data")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func newDropletsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete DROPLET_ID",
		Short: "Delete a droplet",
		Long:  "Destroy a droplet and its disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDropletID(args[0])
			if err != nil {
				return err
			}

			if !force && !confirm(cmd, fmt.Sprintf("Really delete droplet %d?", id)) {
				return nil
			}

			client, closeFn, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			err = client.Droplets().Delete(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to delete droplet: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted droplet %d\n", id)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}
