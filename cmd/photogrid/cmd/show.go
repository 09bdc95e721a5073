package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/photogrid/internal/photo"
)

var showJSON bool

// showConcurrency bounds parallel detail requests.
const showConcurrency = 4

var showCmd = &cobra.Command{
	Use:   "show <id>...",
	Short: "Show photo details",
	Long: `Show the description, author, creation date and full image URL of one
or more photos. Details are fetched concurrently.

Examples:
  photogrid show Dwu85P9SOIk
  photogrid show --json Dwu85P9SOIk 9Yw4J0NsCYA`,
	Args: cobra.MinimumNArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	client, err := newUnsplashClient(logger)
	if err != nil {
		return err
	}

	details := make([]*photo.Detail, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(showConcurrency)
	for i, id := range args {
		g.Go(func() error {
			d, err := client.GetPhoto(ctx, id)
			if err != nil {
				return err
			}
			details[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var missing []string
	found := make([]*photo.Detail, 0, len(details))
	for i, d := range details {
		if d == nil {
			missing = append(missing, args[i])
			continue
		}
		found = append(found, d)
	}

	if showJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(found); err != nil {
			return err
		}
	} else {
		for i, d := range found {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			printDetail(cmd, d)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("photo not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

func printDetail(cmd *cobra.Command, d *photo.Detail) {
	out := cmd.OutOrStdout()
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	fmt.Fprintf(out, "ID:          %s\n", d.ID)
	fmt.Fprintf(out, "Alt text:    %s\n", d.Label())
	fmt.Fprintf(out, "Description: %s\n", orDash(d.Description))
	fmt.Fprintf(out, "Author:      %s\n", orDash(d.User.Name))
	fmt.Fprintf(out, "Created:     %s\n", orDash(d.CreatedAt))
	fmt.Fprintf(out, "Image:       %s\n", orDash(d.URLs.Regular))
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
}
