package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"production-tracker/internal/domain"
	"production-tracker/internal/status"
)

var (
	renderFile    string
	renderManager bool
	renderFormat  string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an order status JSON file to the status view",
	Long: `Render reads an order status document ({"process": [...]}) and writes the
status view tables. Use --file - to read standard input. Records that had to be
skipped or degraded are reported on standard error.`,
	Example: `  production-tracker render --file status.json --manager > view.html
  production-tracker render --file - --format json < status.json`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderFile, "file", "f", "", "order status JSON file, or - for stdin (required)")
	renderCmd.Flags().BoolVar(&renderManager, "manager", false, "render as a production manager (show formulations)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "html", "html | json")
	_ = renderCmd.MarkFlagRequired("file")
}

func runRender(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if renderFile != "-" {
		f, err := os.Open(renderFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var st domain.OrderStatus
	if err := json.NewDecoder(in).Decode(&st); err != nil {
		return errors.Wrap(err, "decode order status")
	}

	res := status.Render(st, status.Options{ViewerIsManager: renderManager, Placeholder: cfg.Render.Placeholder})
	for _, is := range res.Issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "record %d (%s): %s: %s\n", is.Index, is.Kind, is.Type, is.Detail)
	}

	out := cmd.OutOrStdout()
	switch renderFormat {
	case "html":
		return status.WriteHTML(out, res.Blocks)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		return fmt.Errorf("unknown format %q", renderFormat)
	}
}
