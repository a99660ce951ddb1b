package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

type syncExecutor interface {
	Execute(ctx context.Context, in usecase.SyncInput) (*usecase.SyncOutput, error)
}

type uploadExecutor interface {
	Execute(ctx context.Context, in usecase.UploadInput) (*usecase.UploadOutput, error)
}

type provisionExecutor interface {
	Execute(ctx context.Context, in usecase.ProvisionLeadsInput) (*usecase.ProvisionLeadsOutput, error)
}

type services struct {
	sync      syncExecutor
	upload    uploadExecutor
	provision provisionExecutor
}

type serviceLoader func(ctx context.Context) (*services, func(), error)

func newRootCmd(load serviceLoader) *cobra.Command {
	root := &cobra.Command{
		Use:          "npi-sync",
		Short:        "Sync NPPES providers into the lead database",
		SilenceUsage: true,
	}
	root.AddCommand(newSyncCmd(load), newImportCmd(load), newSaveLeadsCmd(load))
	return root
}

// withServices runs fn with signal-aware context and loaded services.
func withServices(cmd *cobra.Command, load serviceLoader, fn func(ctx context.Context, svc *services) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := load(ctx)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return fn(ctx, svc)
}

func newSyncCmd(load serviceLoader) *cobra.Command {
	var (
		in            usecase.SyncInput
		untilComplete bool
		maxRuns       int
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch providers from the NPPES registry",
		Long: `Fetches one resumable slice of registry results for a search and stores
new and changed providers. With --until-complete the sync is resumed until the
search is exhausted or --max-runs is reached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if untilComplete {
				in.Resume = true
			}
			return withServices(cmd, load, func(ctx context.Context, svc *services) error {
				return runSync(ctx, cmd, svc.sync, in, untilComplete, maxRuns)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.TaxonomyDescription, "taxonomy", "", "taxonomy description, e.g. \"Family Medicine\"")
	f.StringVar(&in.State, "state", "", "two-letter state code")
	f.StringVar(&in.City, "city", "", "city name")
	f.StringVar(&in.LastName, "last-name", "", "provider last name, trailing * allowed")
	f.StringVar(&in.EnumerationType, "type", "", "NPI-1 (individuals, default) or NPI-2 (organizations)")
	f.IntVar(&in.Limit, "limit", 0, "page size, at most 200")
	f.IntVar(&in.MaxRecords, "max-records", 0, "records to fetch per run")
	f.BoolVar(&in.Resume, "resume", false, "continue from the saved cursor")
	f.BoolVar(&untilComplete, "until-complete", false, "keep resuming until the search is complete")
	f.IntVar(&maxRuns, "max-runs", 50, "upper bound on runs with --until-complete")
	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, uc syncExecutor, in usecase.SyncInput, untilComplete bool, maxRuns int) error {
	if maxRuns <= 0 {
		maxRuns = 1
	}
	for run := 1; ; run++ {
		out, err := uc.Execute(ctx, in)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		if !out.Success {
			return fmt.Errorf("sync failed for %s: %s", out.SearchKey, out.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] added=%d updated=%d leads=%d\n", out.SearchKey, out.Added, out.Updated, out.LeadsCreated)
		fmt.Fprintln(cmd.OutOrStdout(), out.ProgressMessage)

		if !untilComplete || out.IsComplete {
			return nil
		}
		if run >= maxRuns {
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped after %d runs; run again with --resume to continue.\n", run)
			return nil
		}
	}
}

func newImportCmd(load serviceLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import providers from a CSV, TSV, XLSX or ZIP file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd, load, func(ctx context.Context, svc *services) error {
				out, err := svc.upload.Execute(ctx, usecase.UploadInput{FileName: filepath.Base(args[0]), Data: data})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out.Message)
				fmt.Fprintf(cmd.OutOrStdout(), "added=%d updated=%d duplicates=%d processed=%d\n", out.Added, out.Updated, out.Duplicates, out.TotalProcessed)
				for _, e := range out.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", e)
				}
				if !out.Success {
					return errors.New("no providers imported")
				}
				return nil
			})
		},
	}
}

func newSaveLeadsCmd(load serviceLoader) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "save-leads [provider-id...]",
		Short: "Create NEW leads for providers that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass either provider ids or --all")
			}
			return withServices(cmd, load, func(ctx context.Context, svc *services) error {
				out, err := svc.provision.Execute(ctx, usecase.ProvisionLeadsInput{ProviderIDs: args, SaveAll: all})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved=%d duplicates=%d total=%d\n", out.Saved, out.Duplicates, out.Total)
				if out.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(out.Message))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "provision every stored provider")
	return cmd
}
