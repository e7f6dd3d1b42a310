package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rtm0/odmaps/internal/catalog"
	"github.com/rtm0/odmaps/internal/config"
	"github.com/rtm0/odmaps/internal/logging"
)

var version = "dev"

// app carries what every subcommand needs once the environment is read.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "odmaps",
		Short:         "Download ocean datasets and draw monthly climatology maps",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cmd.ErrOrStderr(), cfg, version)
			return nil
		},
	}
	root.AddCommand(newDatasetsCmd(), newDownloadCmd(a), newPlotCmd(a))
	return root
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets that can be downloaded and plotted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SHORT NAME\tDATASET ID\tVARIABLES\tFILE")
			for _, d := range catalog.All() {
				desc := d.Descriptor()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", desc.ShortName, desc.CatalogID, strings.Join(desc.Variables, ","), desc.FileName)
			}
			return w.Flush()
		},
	}
}
