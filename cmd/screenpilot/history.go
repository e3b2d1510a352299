package main

import (
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/metalagman/screenpilot/internal/audit"
	"github.com/metalagman/screenpilot/internal/config"
	"github.com/metalagman/screenpilot/internal/db"
	"github.com/metalagman/screenpilot/internal/lock"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// openAuditDB opens the configured audit database.
func openAuditDB() (*sql.DB, config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, func() {}, err
	}
	if !cfg.Audit.Enabled {
		return nil, cfg, func() {}, fmt.Errorf("audit is disabled in %s", configPath())
	}
	storeDB, err := db.Open(cfg.Audit.DBPath)
	if err != nil {
		return nil, cfg, func() {}, err
	}
	return storeDB, cfg, func() { _ = storeDB.Close() }, nil
}

func historyCmd() *cobra.Command {
	var (
		limit   int
		typ     string
		session string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "Show recent audit events",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeDB, _, closeFn, err := openAuditDB()
			if err != nil {
				return err
			}
			defer closeFn()

			events, err := audit.NewStore(storeDB).Recent(cmd.Context(), audit.Query{
				Limit:   limit,
				Type:    audit.EventType(typ),
				Session: session,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), events)
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	cmd.Flags().StringVar(&typ, "type", "", "only show events of this type (e.g. action_executed)")
	cmd.Flags().StringVar(&session, "session", "", "only show events of this session")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON")
	cmd.AddCommand(historyPruneCmd())
	return cmd
}

func historyPruneCmd() *cobra.Command {
	var (
		keepLast int
		keepDays int
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:          "prune",
		Short:        "Delete old sessions, their events and their screenshots",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeDB, cfg, closeFn, err := openAuditDB()
			if err != nil {
				return err
			}
			defer closeFn()

			policy := audit.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				policy = audit.RetentionPolicy{KeepLast: cfg.Audit.KeepLast, KeepDays: cfg.Audit.KeepDays}
			}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure audit.keep_last/keep_days in %s)", configPath())
			}

			uiLock, err := lock.TryAcquire(filepath.Dir(configPath()))
			if err != nil {
				return err
			}
			defer func() { _ = uiLock.Release() }()

			res, err := audit.NewStore(storeDB).Prune(cmd.Context(), policy, time.Now(), dryRun)
			if err != nil {
				return err
			}
			mode := "deleted"
			if dryRun {
				mode = "would delete"
			}
			log.Info().Int("considered", res.Considered).Msg("audit sessions pruned")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d sessions and %d screenshots (kept %d, skipped %d)\n",
				mode, res.Deleted, res.Screenshots, res.Kept, res.Skipped)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N sessions")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep sessions newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}

func printEvents(w io.Writer, events []audit.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no events"))
		return
	}
	for _, ev := range events {
		mark := " "
		if ev.Success != nil {
			if *ev.Success {
				mark = okStyle.Render("✓")
			} else {
				mark = failStyle.Render("✗")
			}
		}
		fmt.Fprintf(w, "%s %s %-20s %s\n",
			dimStyle.Render(ev.Time.Local().Format("2006-01-02 15:04:05")), mark, ev.Type, ev.Message)
	}
}
