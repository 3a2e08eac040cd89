package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// NewDomainsCommand creates the domains command group.
func NewDomainsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "domains",
		Aliases: []string{"domain"},
		Short:   "Manage domains",
		Long:    "List and manage DNS domains",
	}

	cmd.AddCommand(newDomainsListCommand())
	cmd.AddCommand(newDomainsGetCommand())
	cmd.AddCommand(newDomainsCreateCommand())
	cmd.AddCommand(newDomainsDeleteCommand())

	return cmd
}

func newDomainsListCommand() *cobra.Command {
	var (
		allPages bool
		page     int
		perPage  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List domains",
		Long:  "List the domains of the account, one page at a time or with --all every page",
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

			domains, hasMore, err := fetchDomains(cmd.Context(), client, opts, allPages)
			if err != nil {
				return err
			}

			return outputDomainsList(cmd, format, domains, hasMore)
		},
	}

	cmd.Flags().BoolVar(&allPages, "all", false, "fetch all pages")
	cmd.Flags().IntVar(&page, "page", 0, "page to fetch")
	cmd.Flags().IntVar(&perPage, "per-page", constants.DefaultPageSize, "results per page")

	return cmd
}

func fetchDomains(ctx context.Context, client docean.Client, opts *docean.ListOptions, allPages bool) ([]docean.Domain, bool, error) {
	if allPages {
		domains, err := client.Domains().ListAll(ctx, opts)
		if err != nil {
			return nil, false, fmt.Errorf("failed to list domains: %w", err)
		}

		return domains, false, nil
	}

	list, err := client.Domains().List(ctx, opts)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list domains: %w", err)
	}

	return list.Domains, list.Links.NextURL() != "", nil
}

func outputDomainsList(cmd *cobra.Command, format string, domains []docean.Domain, hasMore bool) error {
	out := cmd.OutOrStdout()

	if handled, err := writeStructured(out, format, domains); handled {
		return err
	}

	if len(domains) == 0 {
		_, _ = fmt.Fprintln(out, "No domains found")

		return nil
	}

	rows := make([][]string, 0, len(domains))
	for _, domain := range domains {
		rows = append(rows, []string{domain.Name, strconv.Itoa(domain.TTL)})
	}

	err := renderTable(out, []string{"Name", "TTL"}, rows)
	if err != nil {
		return err
	}

	if hasMore {
		_, _ = fmt.Fprintln(out, "\nMore domains are available. Use --page or --all to see them.")
	}

	return nil
}

func newDomainsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get DOMAIN_NAME",
		Short: "Get domain details",
		Long:  "Display detailed information about a specific domain, including its zone file",
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

			domain, err := client.Domains().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get domain: %w", err)
			}

			return outputDomainDetails(cmd, format, domain)
		},
	}
}

func outputDomainDetails(cmd *cobra.Command, format string, domain *docean.Domain) error {
	out := cmd.OutOrStdout()

	if handled, err := writeStructured(out, format, domain); handled {
		return err
	}

	err := renderTable(out, []string{"Property", "Value"}, [][]string{
		{"Name", domain.Name},
		{"TTL", strconv.Itoa(domain.TTL)},
	})
	if err != nil {
		return err
	}

	if domain.ZoneFile != "" {
		_, _ = fmt.Fprintf(out, "\nZone file:\n%s\n", domain.ZoneFile)
	}

	return nil
}

func newDomainsCreateCommand() *cobra.Command {
	var ipAddress string

	cmd := &cobra.Command{
		Use:   "create DOMAIN_NAME",
		Short: "Create a domain",
		Long:  "Add a domain to the account, optionally with an A record for the apex",
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

			domain, err := client.Domains().Create(cmd.Context(), &docean.DomainCreateRequest{
				Name:      args[0],
				IPAddress: ipAddress,
			})
			if err != nil {
				return fmt.Errorf("failed to create domain: %w", err)
			}

			if format != constants.FormatTable {
				_, err = writeStructured(cmd.OutOrStdout(), format, domain)

				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully created domain '%s'\n", domain.Name)

			return nil
		},
	}

	cmd.Flags().StringVar(&ipAddress, "ip", "", "IP address for the apex A record")

	return cmd
}

func newDomainsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete DOMAIN_NAME",
		Short: "Delete a domain",
		Long:  "Delete a domain and all of its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !force && !confirm(cmd, fmt.Sprintf("Really delete domain '%s'?", name)) {
				return nil
			}

			client, closeFn, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			err = client.Domains().Delete(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("failed to delete domain: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted domain '%s'\n", name)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}
