package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anvil-rt/anvil/internal/cli/config"
	"github.com/anvil-rt/anvil/internal/cli/ui"
	"github.com/anvil-rt/anvil/metadata"
)

var (
	inspectTables  []string
	inspectList    bool
	inspectNoColor bool
)

func init() {
	inspectCmd.Flags().StringArrayVarP(&inspectTables, "table", "t", nil,
		"Render only the named table (repeatable)")
	inspectCmd.Flags().BoolVar(&inspectList, "list", false, "List the known table names")
	inspectCmd.Flags().BoolVar(&inspectNoColor, "no-color", false, "Disable colored output")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Render metadata tables from a JSON dump",
	Long: `Read the JSON written by 'anvil demo --json' from a file, or from stdin
when the file is '-', and render the metadata tables it contains. With no
--table flag a row-count summary and every non-empty table is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if inspectNoColor {
			cfg.Output.NoColor = true
		}
		noColor := cfg.Output.NoColor

		if inspectList {
			ui.Header(os.Stdout, "Tables", noColor)
			for _, name := range tableNames {
				fmt.Println(name)
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("inspect needs a dump file, or '-' for stdin")
		}

		data, err := readDump(args[0])
		if err != nil {
			return err
		}

		var tables metadata.Tables
		if err := json.Unmarshal(data, &tables); err != nil {
			return fmt.Errorf("failed to parse metadata dump: %w", err)
		}

		printer := tablePrinter{noColor: noColor, blobMax: cfg.Output.BlobBytes}

		if len(inspectTables) == 0 {
			ui.Header(os.Stdout, "Summary", noColor)
			printer.RenderCounts(os.Stdout, tables)
			printer.RenderAll(os.Stdout, tables)
			return nil
		}

		for i, raw := range inspectTables {
			name, ok := matchTable(raw)
			if !ok {
				suggestions := ui.FindSimilar(raw, tableNames, nil)
				fmt.Fprint(os.Stderr, ui.TableNotFoundError(raw, suggestions, noColor))
				return fmt.Errorf("unknown table %q", raw)
			}
			if i > 0 {
				fmt.Println()
			}
			printer.RenderOne(os.Stdout, name, tables)
		}
		return nil
	},
}

func readDump(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	return data, nil
}
