package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"freshpos/internal/config"
	applog "freshpos/internal/log"
)

// cli carries the loaded configuration into subcommands.
type cli struct {
	loader  *config.Loader
	cfgFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{loader: config.NewLoader()}

	root := &cobra.Command{
		Use:   "freshpos",
		Short: "Checkout terminal for fresh-produce barcodes",
		Long: `freshpos runs a supermarket checkout terminal that decodes fresh-produce
barcodes (plain PLU, weight, weight+amount and packing-time expiry layouts),
prices them from the product catalog and keeps one running list per terminal.

Examples:
  freshpos serve --port 8080
  freshpos decode 2012345001001 42
  freshpos catalog import products.csv
  freshpos catalog list`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loader.Load(c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			// stdout belongs to command output; serve switches to its own sink
			lvl, err := zapcore.ParseLevel(cfg.LogLevel)
			if err != nil {
				lvl = zapcore.InfoLevel
			}
			applog.Use(applog.New(cmd.ErrOrStderr(), lvl))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default is freshpos.yaml in ., $HOME/.config/freshpos, /etc/freshpos)")
	pf.String("db", "", "sqlite database path or DSN (db_dsn)")
	pf.String("log-level", "", "log level: debug, info, warn, error (log_level)")
	pf.String("time-zone", "", "zone used to read packing timestamps (time_zone)")
	v := c.loader.Viper()
	for flag, key := range map[string]string{"db": "db_dsn", "log-level": "log_level", "time-zone": "time_zone"} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", flag, err))
		}
	}

	root.AddCommand(newServeCmd(c), newDecodeCmd(c), newCatalogCmd(c))
	return root
}
