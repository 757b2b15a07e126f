package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/evp-nightshift/messenger/internal/application"
	"github.com/evp-nightshift/messenger/internal/category"
	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/repository/sqlstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the messages and outbox tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.db == nil {
				return fmt.Errorf("STORE_DRIVER=%s has no schema to migrate", cfg.StoreDriver)
			}
			if err := sqlstore.Migrate(cmd.Context(), a.db, a.dialect); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s schema\n", a.dialect)
			return nil
		},
	}
}

func newPendingCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List messages awaiting review, newest first",
		Long: "List messages awaiting review, newest first. --status shows another lifecycle state;\n" +
			"messages stuck in approved were claimed but their delivery never settled.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var msgs []*domain.Message
			if s := domain.Status(strings.ToLower(status)); s == domain.StatusPending {
				msgs, err = a.service.ListPending(cmd.Context())
			} else {
				msgs, err = a.service.ListByStatus(cmd.Context(), s)
			}
			if err != nil {
				return err
			}
			renderPending(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(domain.StatusPending), "pending, approved, sent or rejected")
	return cmd
}

func newDecideCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "decide <message-id> approve|reject",
		Short:     "Approve or reject a pending message",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(application.ActionApprove), string(application.ActionReject)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("message id %q: %w", args[0], domain.ErrInvalidID)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.service.Decide(cmd.Context(), id, application.Action(strings.ToLower(args[1])))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (message %d is now %s)\n", res.Message, res.ID, res.Status)
			return nil
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the category directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir, err := loadDirectory(cfg)
			if err != nil {
				return err
			}
			renderCategories(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

func renderPending(w io.Writer, msgs []*domain.Message) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Created", "Category", "Recipient", "Topic", "From"})
	table.SetAutoWrapText(false)
	for _, m := range msgs {
		table.Append([]string{
			strconv.FormatInt(m.ID, 10),
			m.CreatedAt.Format("2006-01-02 15:04"),
			m.Category,
			m.RecipientEmail,
			m.Topic,
			submitter(m),
		})
	}
	table.SetFooter([]string{"", "", "", "", "Pending", strconv.Itoa(len(msgs))})
	table.Render()
}

func submitter(m *domain.Message) string {
	if m.Anonymous {
		return "anonymous"
	}
	return lo.CoalesceOrEmpty(lo.FromPtr(m.SubmitterName), lo.FromPtr(m.SubmitterEmail), "-")
}

func renderCategories(w io.Writer, dir *category.Directory) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Label", "Recipient", "Email", "Ext", "Anonymous", "Note"})
	table.SetAutoWrapText(false)

	seen := map[string]bool{}
	for _, m := range dir.Mappings() {
		note := ""
		if seen[m.Label] {
			note = "duplicate, ignored"
		}
		seen[m.Label] = true

		table.Append([]string{
			m.Label,
			m.RecipientName,
			m.Email,
			m.PhoneExt,
			strconv.FormatBool(dir.IsAnonymous(m.Label)),
			note,
		})
	}
	table.Render()

	if dups := dir.Duplicates(); len(dups) > 0 {
		fmt.Fprintf(w, "duplicate labels (first entry wins): %s\n", strings.Join(dups, ", "))
	}
}
