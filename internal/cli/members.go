package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/membership-service/internal/billing"
	"gitlab.com/dirk.krummacker/membership-service/internal/form"
	"gitlab.com/dirk.krummacker/membership-service/internal/model"
	"gitlab.com/dirk.krummacker/membership-service/internal/store"
	"gitlab.com/dirk.krummacker/membership-service/internal/view"
)

// memberFlag maps a command line flag to the form field it sets.
type memberFlag struct {
	flag  string
	field string
	usage string
}

var memberFlags = []memberFlag{
	{"name", "name", "full name"},
	{"contact", "contact", "phone number or other contact"},
	{"fee", "feeAmount", "fee per plan interval"},
	{"age", "age", "age in years"},
	{"email", "email", "e-mail address"},
	{"address", "address", "postal address"},
	{"plan", "membershipType", "monthly, quarterly or yearly"},
	{"join-date", "joinDate", "date of joining, YYYY-MM-DD"},
	{"last-payment", "lastPaymentDate", "date of the last payment, YYYY-MM-DD"},
}

func registerMemberFlags(cmd *cobra.Command) {
	for _, f := range memberFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().Bool("paid", false, "the fee for the current interval is paid")
}

// applyMemberFlags copies the flags given on the command line into the form.
func applyMemberFlags(cmd *cobra.Command, f *form.Form) error {
	for _, mf := range memberFlags {
		if !cmd.Flags().Changed(mf.flag) {
			continue
		}
		value, _ := cmd.Flags().GetString(mf.flag)
		if err := f.Set(mf.field, value); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("paid") {
		paid, _ := cmd.Flags().GetBool("paid")
		if err := f.Set("feePaid", strconv.FormatBool(paid)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) listCmd() *cobra.Command {
	var search, status string
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "list members",
		Long:    `list members in the order they were added, optionally narrowed by a search term and a payment status`,
		Example: `members list --search shah --status overdue`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := view.ParseCategory(status)
			if err != nil {
				return err
			}
			members := a.store.Filter(search, category)
			if len(members) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No members found")
				return nil
			}
			now := a.store.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCONTACT\tPLAN\tFEE\tPAID\tDUE\tDAYS\tSTATUS")
			for _, m := range members {
				days := "-"
				if d, ok := billing.DaysUntil(m.DueDate, now); ok {
					days = strconv.Itoa(d)
				}
				due := m.DueDate.String()
				if due == "" {
					due = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
					m.Id, m.Name, m.Contact, m.MembershipType, m.FeeAmount.String(), m.FeePaid,
					due, days, billing.StatusOf(m.DueDate, now))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "match name (ignoring case) or contact")
	cmd.Flags().StringVar(&status, "status", "", "all, paid, unpaid, overdue or due-soon")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "add a member",
		Long:    `add a member; the due date is derived from the last payment date and the plan`,
		Example: `members add --name "Asha Rao" --contact "98450 11111" --fee 1500 --last-payment 2024-01-15`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := form.New(a.store)
			if err := applyMemberFlags(cmd, f); err != nil {
				return err
			}
			m, err := f.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Member %d added, next payment due %s\n", m.Id, dueText(m))
			return nil
		},
	}
	registerMemberFlags(cmd)
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit ID",
		Short:   "change a member",
		Long:    `change the fields given as flags and keep all others`,
		Example: `members edit 1718000000000 --plan yearly --fee 15000`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			existing, err := a.store.Find(id)
			if err != nil {
				return err
			}
			f := form.New(a.store)
			f.Edit(existing)
			if err := applyMemberFlags(cmd, f); err != nil {
				return err
			}
			m, err := f.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Member %d updated, next payment due %s\n", m.Id, dueText(m))
			return nil
		},
	}
	registerMemberFlags(cmd)
	return cmd
}

func (a *app) payCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "pay ID",
		Short:   "record a payment made today",
		Example: `members pay 1718000000000`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.store.MarkPaid(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Payment recorded for %s, next payment due %s\n", m.Name, dueText(m))
			return nil
		},
	}
}

func (a *app) remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remind ID",
		Short:   "show the payment reminder of a member",
		Example: `members remind 1718000000000`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = a.store.SendReminder(id)
			return err
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete ID",
		Short:   "delete a member",
		Long:    `delete a member after asking for confirmation; an unknown id deletes nothing`,
		Example: `members delete 1718000000000 --yes`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var confirmer store.Confirmer = promptConfirmer{in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
			if yes {
				confirmer = store.ConfirmFunc(func(string) bool { return true })
			}
			deleted, err := a.store.Delete(cmd.Context(), id, confirmer)
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "Member %d deleted\n", id)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "count members by payment status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.store.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPaid: %d\nUnpaid: %d\nOverdue: %d\n",
				s.Total, s.Paid, s.Unpaid, s.Overdue)
			return nil
		},
	}
}

func dueText(m model.Member) string {
	if !m.DueDate.IsSet() {
		return "-"
	}
	return m.DueDate.String()
}
