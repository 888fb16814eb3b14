package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/config"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/aggregator"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/export"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/service"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

func (a *app) sendCommandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-command <address> <UNLOCK|LOCK>",
		Short: "Send a lock or unlock command to a door node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &aggregator.CommandSender{Timeout: a.cfg.CommandTimeout, Logger: a.log}
			if err := s.Send(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", strings.ToUpper(args[1]), args[0])
			return nil
		},
	}
}

func (a *app) exportLogsCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-logs",
		Short: "Write the audit log to a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.CSVExportPath
			}
			st, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			n, err := export.ToFile(cmd.Context(), st.audit, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV path (default from GATEWISE_CSV_EXPORT_PATH)")
	return cmd
}

func (a *app) decideCmd() *cobra.Command {
	var req types.AccessRequest
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Make and record one access decision, as if a card were scanned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			station, err := config.OpenStation(a.cfg.UsersPath, a.cfg.StationPath)
			if err != nil {
				return err
			}
			st, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			deps := service.Dependencies{
				Logger:          a.log,
				Station:         station,
				Audit:           st.audit,
				DoorName:        a.cfg.DoorName,
				RequireSnapshot: a.cfg.RequireSnapshot,
			}
			if a.cfg.SnapshotDir != "" {
				deps.Camera = service.SnapshotNamer{Dir: a.cfg.SnapshotDir}
			}
			svc := service.NewAccessService(deps)
			resp, err := svc.Decide(cmd.Context(), req)
			if resp.Status != "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(resp)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&req.Type, "type", "rfid", "credential type (rfid|keypad)")
	cmd.Flags().StringVar(&req.UID, "uid", "", "card UID")
	cmd.Flags().StringVar(&req.PIN, "pin", "", "keypad PIN")
	return cmd
}

func (a *app) assignUserCmd() *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "assign-user <uid> <name>",
		Short: "Enroll or update a card in the user registry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			station, err := config.OpenStation(a.cfg.UsersPath, a.cfg.StationPath)
			if err != nil {
				return err
			}
			rec := types.UserRecord{UID: args[0], Name: args[1], IsAdmin: admin}
			if err := station.AssignUser(rec); err != nil {
				return err
			}
			a.log.Info("user enrolled", zap.String("uid", args[0]), zap.Bool("admin", admin))
			fmt.Fprintf(cmd.OutOrStdout(), "assigned %s to %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "exempt this user from blackout hours")
	return cmd
}
