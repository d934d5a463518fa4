package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flashdl/internal/httputil"
	"flashdl/internal/log"
	"flashdl/internal/media"
	"flashdl/internal/ui"
)

var (
	flagOutputDir string
	flagOption    int
)

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Resolve a URL, pick an option and save it",
	Args:  cobra.ExactArgs(1),
	RunE:  getRun,
}

func init() {
	getCmd.Flags().StringVarP(&flagOutputDir, "output", "o", ".", "Directory to save into")
	getCmd.Flags().IntVarP(&flagOption, "option", "n", 0, "Option number to download without prompting (1-based)")
}

func getRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.WithComponent("get")

	if err := os.MkdirAll(cfg.TempDir, 0o700); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	a := newApp(cfg)
	defer a.proxy.Close()

	res, err := a.resolver.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}

	spec, err := chooseSpec(cmd, res)
	if err != nil {
		return err
	}

	d, err := a.proxy.Open(ctx, spec)
	if err != nil {
		return fmt.Errorf("opening delivery: %w", err)
	}
	defer d.Close()

	path, err := httputil.SafePath(flagOutputDir, d.Filename)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	n, err := d.CopyTo(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("saving %s: %w", path, err)
	}

	logger.Info().Str("path", path).Int64("bytes", n).Msg("saved")
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// chooseSpec turns a resolution into the fetch spec to save, prompting
// when there is more than one option and none was given on the command line.
func chooseSpec(cmd *cobra.Command, res *media.Resolution) (media.FetchSpec, error) {
	if res.Type == media.TypeImage {
		return media.FetchSpec{
			Kind:     media.Image,
			Target:   media.Target{URL: res.ImageURL},
			Ext:      "jpg",
			Filename: res.Filename,
		}, nil
	}

	idx, err := optionIndex(flagOption, len(res.Options))
	if errors.Is(err, errNoOption) {
		idx, err = ui.Choose(cfg.Picker, res, cmd.InOrStdin(), cmd.ErrOrStderr())
	}
	if err != nil {
		return media.FetchSpec{}, err
	}
	return media.FetchSpecFor(res.Options[idx], res.Title), nil
}

var errNoOption = errors.New("no option given")

// optionIndex maps a 1-based --option value to an index. A single option
// is taken without asking.
func optionIndex(n, count int) (int, error) {
	switch {
	case count == 0:
		return -1, fmt.Errorf("no options to download")
	case n == 0 && count == 1:
		return 0, nil
	case n == 0:
		return -1, errNoOption
	case n < 1 || n > count:
		return -1, fmt.Errorf("option %d out of range 1-%d", n, count)
	default:
		return n - 1, nil
	}
}
