package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	applog "freshpos/internal/log"
	"freshpos/internal/repos"
	"freshpos/internal/services"
)

func newCatalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and load the product catalog",
	}
	cmd.AddCommand(newCatalogImportCmd(c), newCatalogListCmd(c))
	return cmd
}

func newCatalogImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Insert or replace products from a CSV file",
		Long: `Read a CSV with a plu,name,price,unit header (any column order) and upsert
every row. A single bad row aborts the import without writing anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, closeDB, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := importFile(cat, args[0])
			if err != nil {
				return err
			}
			applog.Audit(nil, "catalog.import", map[string]any{"file": args[0], "count": n})
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d products\n", n)
			return err
		},
	}
}

func newCatalogListCmd(c *cli) *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the catalog as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, closeDB, err := openCatalog(c)
			if err != nil {
				return err
			}
			defer closeDB()

			prods, err := cat.List(page, size)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLU\tNAME\tPRICE\tUNIT\tACTIVE")
			for _, p := range prods {
				fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%t\n", p.PLU, p.Name, p.Price, p.Unit, p.Active)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, from 1")
	cmd.Flags().IntVar(&size, "size", 50, "products per page")
	return cmd
}

func openCatalog(c *cli) (*services.CatalogService, func(), error) {
	db, err := repos.OpenDB(c.cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	return services.NewCatalogService(repos.NewProductRepo(db)), func() { _ = db.Close() }, nil
}

func importFile(cat *services.CatalogService, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := cat.ImportCSV(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
