package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"freshpos/internal/barcode"
	"freshpos/internal/i18n"
	"freshpos/internal/scanner"
)

type decodeOutput struct {
	Input string `json:"input"`
	barcode.Result
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	// set for --image inputs
	Symbology string `json:"symbology,omitempty"`
}

func newDecodeCmd(c *cli) *cobra.Command {
	var (
		at     string
		lang   string
		images bool
	)
	cmd := &cobra.Command{
		Use:   "decode <barcode>...",
		Short: "Decode barcodes and print one JSON result per line",
		Long: `Decode each argument and print its result as a JSON line. With --image the
arguments are label photos; the barcode is read from the picture first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []barcode.Option{
				barcode.WithWindow(c.cfg.FreshnessWindow),
				barcode.WithLocation(c.cfg.Location()),
			}
			if at != "" {
				t, err := time.ParseInLocation(time.RFC3339, at, c.cfg.Location())
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				opts = append(opts, barcode.WithClock(func() time.Time { return t }))
			}
			dec := barcode.New(opts...)

			locales := i18n.Default()
			if lang == "" {
				lang = locales.DefaultCode()
			}
			if !locales.Has(lang) {
				return fmt.Errorf("--lang %q: %w", lang, i18n.ErrUnknownLanguage)
			}
			tr := locales.Translator(lang)

			sc := scanner.New()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			for _, arg := range args {
				out := decodeOutput{Input: arg}
				code := arg
				if images {
					sr, err := scanImage(cmd, sc, arg)
					if err != nil {
						return fmt.Errorf("%s: %w", arg, err)
					}
					code, out.Symbology = sr.Text, sr.Format
				}
				out.Result = dec.Decode(code)
				out.OK = out.Result.OK()
				out.Message = out.Result.Message(tr)
				if err := enc.Encode(out); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&at, "at", "", "decode as of this RFC 3339 time instead of now")
	f.StringVar(&lang, "lang", "", "language code for messages (default: first configured language)")
	f.BoolVar(&images, "image", false, "treat arguments as image files")
	return cmd
}

func scanImage(cmd *cobra.Command, sc *scanner.Scanner, path string) (scanner.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return scanner.Result{}, err
	}
	defer f.Close()
	return sc.DecodeReader(cmd.Context(), f)
}
