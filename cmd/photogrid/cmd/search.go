package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/photo"
)

var (
	searchPage    int
	searchPerPage int
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search Unsplash photos and print one page of results",
	Long: `Search Unsplash photos by keyword and print one page of results.

The query is trimmed and Unicode-normalized the same way the grid's search
box normalizes it.

Examples:
  photogrid search red cats
  photogrid search --page 2 --per-page 10 mountains
  photogrid search --json "northern lights"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Join all args to form the query (allows unquoted multi-term searches)
	queryStr := feed.NormalizeQuery(strings.Join(args, " "))
	if queryStr == "" {
		return fmt.Errorf("empty search query")
	}
	if searchPage < 1 {
		return fmt.Errorf("--page must be at least 1")
	}
	if searchPerPage < 1 {
		return fmt.Errorf("--per-page must be at least 1")
	}

	client, err := newUnsplashClient(logger)
	if err != nil {
		return err
	}

	photos, err := client.SearchPhotos(cmd.Context(), queryStr, searchPage, searchPerPage)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if searchJSON {
		return outputPhotosJSON(cmd, photos)
	}
	return outputPhotosTable(cmd, photos)
}

func outputPhotosTable(cmd *cobra.Command, photos []photo.Photo) error {
	out := cmd.OutOrStdout()
	if len(photos) == 0 {
		_, err := fmt.Fprintln(out, "No photos found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDESCRIPTION\tTHUMBNAIL")
	fmt.Fprintln(w, "──\t───────────\t─────────")
	for _, p := range photos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, truncate(p.Label(), 50), p.URLs.Thumb)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d photos\n", len(photos))
	return err
}

func outputPhotosJSON(cmd *cobra.Command, photos []photo.Photo) error {
	if photos == nil {
		photos = []photo.Photo{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(photos)
}

// truncate shortens s to width terminal cells, marking the cut with "...".
func truncate(s string, width int) string {
	return runewidth.Truncate(strings.ReplaceAll(s, "\n", " "), width, "...")
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "page number (1-based)")
	searchCmd.Flags().IntVar(&searchPerPage, "per-page", 30, "photos per page")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}
