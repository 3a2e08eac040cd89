package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/docean/pkg/docean"
)

// RateLimitInfo is the rendered quota window.
type RateLimitInfo struct {
	Limit     int       `json:"limit"      yaml:"limit"`
	Remaining int       `json:"remaining"  yaml:"remaining"`
	ResetAt   time.Time `json:"reset_at"   yaml:"reset_at"`
	ResetsIn  string    `json:"resets_in"  yaml:"resets_in"`
}

// NewRateLimitCommand creates the ratelimit command.
func NewRateLimitCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ratelimit",
		Aliases: []string{"rate-limit", "quota"},
		Short:   "Show the API rate limit",
		Long:    "Send one lightweight request and display the quota window reported by the API",
		Args:    cobra.NoArgs,
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

			_, err = client.Domains().List(cmd.Context(), &docean.ListOptions{PerPage: 1})
			if err != nil && !docean.IsRateLimited(err) {
				return fmt.Errorf("failed to query rate limit: %w", err)
			}

			state := client.RateLimit()
			if !state.Known {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "The API did not report a rate limit")

				return nil
			}

			return outputRateLimit(cmd, format, newRateLimitInfo(state, time.Now()))
		},
	}
}

func newRateLimitInfo(state docean.RateLimit, now time.Time) RateLimitInfo {
	resetsIn := state.ResetAt.Sub(now)
	if resetsIn < 0 {
		resetsIn = 0
	}

	return RateLimitInfo{
		Limit:     state.Limit,
		Remaining: state.Remaining,
		ResetAt:   state.ResetAt,
		ResetsIn:  resetsIn.Round(time.Second).String(),
	}
}

func outputRateLimit(cmd *cobra.Command, format string, info RateLimitInfo) error {
	if handled, err := writeStructured(cmd.OutOrStdout(), format, info); handled {
		return err
	}

	return renderTable(cmd.OutOrStdout(), []string{"Property", "Value"}, [][]string{
		{"Limit", strconv.Itoa(info.Limit)},
		{"Remaining", strconv.Itoa(info.Remaining)},
		{"Resets At", formatTime(info.ResetAt)},
		{"Resets In", info.ResetsIn},
	})
}
