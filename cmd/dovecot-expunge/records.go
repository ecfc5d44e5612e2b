package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/migadu/dovecot-expunge/doveadm"
	"github.com/spf13/cobra"
)

// recordsCmd prints the enabled expiry policies without touching any mail
var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List the enabled expiry policies",
	Long: `Connect to the database named in Dovecot's SQL config and print every
enabled expiry policy as it would be applied: user, mailbox and expiry in days.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := loadConfig(cmd)
		defer log.Close()

		if err := newApp(log).printRecords(cmd.Context(), cmd.OutOrStdout(), cfg.SQLConfig); err != nil {
			log.Fatal(fatalMessage(err))
		}
	},
}

func (a *app) printRecords(ctx context.Context, w io.Writer, sqlConfigPath string) error {
	database, err := a.connect(ctx, sqlConfigPath)
	if err != nil {
		return err
	}
	defer database.Close()

	records, err := database.ExpiryRecords(ctx)
	if err != nil {
		return fmt.Errorf("could not read expiry policies: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tMAILBOX\tEXPIRY")
	for _, rec := range records {
		user := rec.User
		if user == "" {
			user = "(no account)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", user, rec.Mailbox, doveadm.SavedBefore(rec.ExpiryDays))
	}
	return tw.Flush()
}
