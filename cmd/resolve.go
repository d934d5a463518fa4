package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"flashdl/internal/api"
	"flashdl/internal/media"
	"flashdl/internal/ui"
)

var flagJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a URL and print its option menu",
	Args:  cobra.ExactArgs(1),
	RunE:  resolveRun,
}

func init() {
	resolveCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the /extract response JSON even on a terminal")
}

func resolveRun(cmd *cobra.Command, args []string) error {
	a := newApp(cfg)
	defer a.proxy.Close()

	res, err := a.resolver.Resolve(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if flagJSON || !isTerminal(out) {
		return printJSON(out, res)
	}
	_, err = io.WriteString(out, ui.RenderMenu(res))
	return err
}

func printJSON(w io.Writer, res *media.Resolution) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(api.RenderResolution(res))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
