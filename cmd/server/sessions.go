package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/i18n"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
	"github.com/DoyleJ11/hidden-role-client/internal/stats"
	"github.com/DoyleJ11/hidden-role-client/internal/store"
)

func newSessionsCmd(v *viper.Viper) *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions in the store, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := setup(v)
			if err != nil {
				return err
			}
			defer d.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), d.cfg.Flow.Timeout)
			defer cancel()

			gw := store.NewGateway(d.backend, nil, d.log)
			records, err := listRecords(ctx, gw, d.log)
			if err != nil {
				return err
			}

			address := ""
			if account != "" {
				acct, err := d.keys.Account(account)
				if err != nil {
					return err
				}
				address = acct.Address
			}
			return printSessions(cmd.OutOrStdout(), records, address, i18n.New(d.cfg.UI.Lang))
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "also summarize this account's activity")
	return cmd
}

func listRecords(ctx context.Context, gw *store.Gateway, log *zap.Logger) ([]session.Record, error) {
	ids, err := gw.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]session.Record, 0, len(ids))
	for _, id := range ids {
		r, err := gw.Record(ctx, id)
		if err != nil {
			log.Warn("skipping record", zap.String("id", id), zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	session.SortNewestFirst(records)
	return records, nil
}

func printSessions(w io.Writer, records []session.Record, address string, text *i18n.Localizer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCAPACITY\tCREATED\tSTATUS\tROLE")
	for _, r := range records {
		role := "-"
		if value, ok := r.Revealed(); ok {
			role = text.Role(session.RoleOf(value))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.DisplayName, r.Capacity, r.CreatedAt.Format(time.DateTime), text.Status(r.Verified), role)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if address == "" {
		return nil
	}
	s := stats.Summarize(records, address, 0)
	fmt.Fprintf(w, "\n%s: created %d, revealed %d of %d sessions (%d revealed overall)\n",
		address, s.CreatedByAccount, s.RevealedByAccount, s.Total, s.Revealed)
	for _, e := range s.History {
		line := fmt.Sprintf("  %s  %-8s %s", e.At.Format(time.DateTime), e.Kind, e.DisplayName)
		if e.Kind == stats.EventRevealed {
			line += " (" + text.Role(e.Role) + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
