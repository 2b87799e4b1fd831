package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

var errLocked = errors.New("another admin command is already running")

func newDeletionsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deletions",
		Short: "Inspect and resume account deletions",
	}
	cmd.AddCommand(newDeletionsListCommand())
	cmd.AddCommand(newDeletionsResumeCommand(root))
	cmd.AddCommand(newDeletionsFootprintCommand())
	return cmd
}

func newDeletionsListCommand() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List account deletions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.deletionService()
			if err != nil {
				return err
			}
			deletions, err := svc.List(cmd.Context(), models.DeletionStatus(status))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDeletions(deletions))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending|running|completed|failed)")
	return cmd
}

func newDeletionsResumeCommand(root *rootOptions) *cobra.Command {
	var allFailed bool
	cmd := &cobra.Command{
		Use:   "resume [id]",
		Short: "Resume a failed deletion from its first unfinished step",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !allFailed {
				return errors.New("pass a deletion id or --all-failed")
			}

			lock := flock.New(root.LockFile)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errLocked
			}
			defer func() { _ = lock.Unlock() }()

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.deletionService()
			if err != nil {
				return err
			}

			ids, err := resumeTargets(cmd.Context(), args, allFailed, func(ctx context.Context) ([]models.AccountDeletion, error) {
				return svc.List(ctx, models.DeletionFailed)
			})
			if err != nil {
				return err
			}

			var failed int
			for _, id := range ids {
				d, err := svc.Resume(cmd.Context(), id)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "deletion %d: %v\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deletion %d: %s\n", id, d.Status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d deletions still failing", failed, len(ids))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&allFailed, "all-failed", false, "resume every failed deletion")
	return cmd
}

func resumeTargets(ctx context.Context, args []string, allFailed bool, listFailed func(context.Context) ([]models.AccountDeletion, error)) ([]uint, error) {
	if len(args) == 1 {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid deletion id %q", args[0])
		}
		return []uint{uint(id)}, nil
	}
	if !allFailed {
		return nil, nil
	}
	deletions, err := listFailed(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(deletions))
	for _, d := range deletions {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func newDeletionsFootprintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "footprint <id>",
		Short: "Count rows still referencing a deleted account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid deletion id %q", args[0])
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.deletionService()
			if err != nil {
				return err
			}
			counts, err := svc.Footprint(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCounts(counts))
			return nil
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
