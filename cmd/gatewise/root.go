package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/config"
	"github.com/BrandonDHaskell/GateWise/server/internal/db"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store/jsonl"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store/memory"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store/sqlite"
	"github.com/BrandonDHaskell/GateWise/server/internal/logging"
)

// app carries the configuration shared by every subcommand. Environment
// variables provide the defaults and flags override them.
type app struct {
	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.FromEnv()}

	root := &cobra.Command{
		Use:           "gatewise",
		Short:         "GateWise door access station",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logging.New(logging.Options{
				Env:    a.cfg.Env,
				Level:  a.cfg.LogLevel,
				Writer: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	a.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		a.serveCmd(),
		a.sendCommandCmd(),
		a.exportLogsCmd(),
		a.decideCmd(),
		a.assignUserCmd(),
	)
	return root
}

// stores holds the audit log and door registry backends for one run.
type stores struct {
	audit store.AuditStore
	doors store.DoorStore
	close func()
}

// openStores opens the audit backend selected by --audit-backend. Only the
// sqlite backend persists the door registry; the others keep it in memory.
func (a *app) openStores(ctx context.Context) (*stores, error) {
	switch a.cfg.AuditBackend {
	case "sqlite":
		conn, err := db.Open(ctx, db.Config{Path: a.cfg.DBPath})
		if err != nil {
			return nil, store.Wrap("open", err)
		}
		if a.cfg.Env == "dev" {
			if err := db.SeedDev(ctx, conn, a.cfg.DoorName); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		writer := db.NewWorker(conn)
		return &stores{
			audit: sqlite.NewAuditStore(conn, writer),
			doors: sqlite.NewDoorStore(conn, writer),
			close: func() {
				writer.Close()
				_ = conn.Close()
			},
		}, nil

	case "jsonl":
		s, err := jsonl.Open(a.cfg.AuditLogPath)
		if err != nil {
			return nil, err
		}
		return &stores{
			audit: s,
			doors: memory.NewDoorStore(),
			close: func() { _ = s.Close() },
		}, nil

	case "memory":
		a.log.Warn("audit log is in memory and will be lost on exit")
		return &stores{
			audit: memory.NewAuditStore(),
			doors: memory.NewDoorStore(),
			close: func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown audit backend %q (want sqlite, jsonl or memory)", a.cfg.AuditBackend)
	}
}
