package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/pkg/docean"
	"github.com/fivetwenty-io/docean/pkg/doclient"
)

// NewAuthCommand creates the auth command group.
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API credentials",
		Long:  "Store and inspect the personal access token used for API requests",
	}

	cmd.AddCommand(newAuthInitCommand())
	cmd.AddCommand(newAuthStatusCommand())

	return cmd
}

func newAuthInitCommand() *cobra.Command {
	var (
		skipVerify bool
		fromStdin  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save an access token",
		Long: `Save a personal access token to the config file.

The token is read from --token, from stdin with --token-stdin, or from a hidden
prompt. It is verified with one API request unless --skip-verify is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(cmd, fromStdin)
			if err != nil {
				return err
			}

			config := loadConfig()
			config.Token = token

			if !skipVerify {
				err = verifyToken(cmd, config)
				if err != nil {
					return err
				}
			}

			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = saveConfigStruct(config, configFile)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", configFile)

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "save the token without contacting the API")
	cmd.Flags().BoolVar(&fromStdin, "token-stdin", false, "read the token from stdin")

	return cmd
}

func readToken(cmd *cobra.Command, fromStdin bool) (string, error) {
	if token := viper.GetString("token"); token != "" {
		return token, nil
	}

	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		return strings.TrimSpace(line), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", constants.ErrTokenPromptNoTTY
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), "Access token: ")

	tokenBytes, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	return strings.TrimSpace(string(tokenBytes)), nil
}

func verifyToken(cmd *cobra.Command, config *Config) error {
	client, err := doclient.NewWithEndpoint(cmd.Context(), config.API, config.Token)
	if err != nil {
		return err
	}

	_, err = client.Domains().List(cmd.Context(), &docean.ListOptions{PerPage: 1})
	if err != nil {
		return fmt.Errorf("token verification failed: %w", err)
	}

	return nil
}

// AuthStatus summarizes the configured credentials.
type AuthStatus struct {
	API        string `json:"api"         yaml:"api"`
	Token      string `json:"token"       yaml:"token"`
	ConfigFile string `json:"config_file" yaml:"config_file"`
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the configured credentials",
		Long:  "Display the API endpoint and a masked form of the configured token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			config := loadConfig()
			if config.Token == "" {
				return constants.ErrNoTokenConfigured
			}

			status := AuthStatus{
				API:        doclient.NormalizeEndpoint(config.API),
				Token:      maskToken(config.Token),
				ConfigFile: viper.ConfigFileUsed(),
			}
			if status.ConfigFile == "" {
				status.ConfigFile = constants.NotAvailable
			}

			if handled, err := writeStructured(cmd.OutOrStdout(), format, status); handled {
				return err
			}

			return renderTable(cmd.OutOrStdout(), []string{"Property", "Value"}, [][]string{
				{"API", status.API},
				{"Token", status.Token},
				{"Config File", status.ConfigFile},
			})
		},
	}
}
