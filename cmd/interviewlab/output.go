package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"golang.org/x/term"
)

// useJSON reports whether output should be JSON: when asked for, or in auto
// mode when stdout is not a terminal.
func useJSON(format string) (bool, error) {
	switch format {
	case "json":
		return true, nil
	case "table":
		return false, nil
	case "auto", "":
		return !term.IsTerminal(int(os.Stdout.Fd())), nil //nolint:gosec // fd fits in int
	default:
		return false, fmt.Errorf("unknown output format %q", format)
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printTable writes a header and rows as aligned columns.
func printTable(w io.Writer, header string, rows [][]any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, header)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				_, _ = fmt.Fprint(tw, "\t")
			}
			_, _ = fmt.Fprint(tw, cell)
		}
		_, _ = fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// emit prints v as JSON or as the table produced by rows.
func emit(w io.Writer, format string, v any, header string, rows func() [][]any) error {
	asJSON, err := useJSON(format)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, v)
	}
	return printTable(w, header, rows())
}
