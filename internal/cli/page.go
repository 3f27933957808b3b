package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var (
	pageNumber int
	pageSize   int
	pageSearch string
	pageReload bool
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Fetch one page of records and print it as JSON",
	Example: `  progindexd page --page 2 --size 5
  progindexd page --search ann`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		size := pageSize
		if size == 0 {
			size = cfg.Index.DefaultPageSize
		}

		fetcher := a.newFetcher(ctx, "cli")
		page, err := fetcher.FetchPageInfo(ctx, pageNumber, size, pageSearch, pageReload)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	},
}

func init() {
	rootCmd.AddCommand(pageCmd)

	pageCmd.Flags().IntVar(&pageNumber, "page", 1, "page number, starting at 1")
	pageCmd.Flags().IntVar(&pageSize, "size", 0, "page size (default from [index] default_page_size)")
	pageCmd.Flags().StringVar(&pageSearch, "search", "", "only names starting with this term")
	pageCmd.Flags().BoolVar(&pageReload, "reload", false, "ignore any saved ordering and query the ledger")
}
