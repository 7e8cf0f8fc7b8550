package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lynixity/lynix-go/internal/domain"
)

var allFeatureNames = []string{"dialer", "ai", "mail", "chat"}

func (e *env) usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Admin portal: manage the user directory",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.loadUsers(cmd); err != nil {
				return err
			}
			t := e.table("ID", "Username", "Email", "SIP ID", "Role", "Billing", "Features")
			for _, u := range e.app.Users.Items() {
				billing := string(u.BillingStatus)
				if u.BillingStatus != domain.BillingOnTime {
					billing = failure.Sprint(billing)
				}
				t.Append([]string{
					strconv.FormatInt(u.ID, 10),
					u.Username,
					deref(u.Email),
					deref(u.SipTalkID),
					string(u.Role),
					billing,
					featureList(u.Features),
				})
			}
			t.Render()
			fmt.Fprintf(e.out, "\nTotal: %d users\n", len(e.app.Users.Items()))
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user (password defaults to \"password\")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.loadUsers(cmd); err != nil {
				return err
			}
			u := domain.User{Username: args[0]}
			if err := applyUserFlags(cmd, &u, true); err != nil {
				return err
			}
			created, err := e.app.Users.Create(ctxOf(cmd), u)
			if err != nil {
				return err
			}
			e.ok("User %s created with id %d", created.Username, created.ID)
			return nil
		},
	}
	userFlags(add)
	add.Flags().String("role", string(domain.RoleStandard), "role: Admin, Standard, Trial or Custom")
	add.Flags().String("billing", string(domain.BillingOnTime), "billing status: On Time, Overdue or Suspended")
	add.Flags().StringSlice("features", allFeatureNames, "enabled features")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a user (a blank password keeps the current one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.loadUsers(cmd); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, ok := e.app.Users.Find(id)
			if !ok {
				return &domain.ErrNotFound{Resource: "User", ID: args[0]}
			}
			if cmd.Flags().Changed("username") {
				u.Username, _ = cmd.Flags().GetString("username")
			}
			if err := applyUserFlags(cmd, &u, false); err != nil {
				return err
			}
			if _, err := e.app.Users.Update(ctxOf(cmd), u); err != nil {
				return err
			}
			e.ok("User %d saved", id)
			return nil
		},
	}
	userFlags(edit)
	edit.Flags().String("username", "", "new username")
	edit.Flags().String("role", "", "role: Admin, Standard, Trial or Custom")
	edit.Flags().String("billing", "", "billing status: On Time, Overdue or Suspended")
	edit.Flags().StringSlice("features", nil, "enabled features (none to disable all)")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageAdminPortal); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.Users.Remove(ctxOf(cmd), id); err != nil {
				return err
			}
			e.ok("User %d deleted", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, rm)
	return cmd
}

func (e *env) loadUsers(cmd *cobra.Command) error {
	if err := e.enter(domain.PageAdminPortal); err != nil {
		return err
	}
	return e.app.Users.Load(ctxOf(cmd))
}

func userFlags(cmd *cobra.Command) {
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("sip", "", "SIP talk id")
	cmd.Flags().String("password", "", "password")
}

// applyUserFlags copies the user flags onto u. With all set, defaults apply
// to flags the caller left alone.
func applyUserFlags(cmd *cobra.Command, u *domain.User, all bool) error {
	flags := cmd.Flags()
	set := func(name string) bool { return all || flags.Changed(name) }

	if set("email") {
		v, _ := flags.GetString("email")
		u.Email = domain.StringPtr(v)
	}
	if set("sip") {
		v, _ := flags.GetString("sip")
		u.SipTalkID = domain.StringPtr(v)
	}
	if set("password") {
		u.Password, _ = flags.GetString("password")
	}
	if set("role") {
		v, _ := flags.GetString("role")
		u.Role = domain.Role(v)
		if u.Role == domain.RoleGuest || !u.Role.Valid() {
			return &domain.ErrValidation{Field: "role", Message: fmt.Sprintf("invalid role %q", v)}
		}
	}
	if set("billing") {
		v, _ := flags.GetString("billing")
		u.BillingStatus = domain.BillingStatus(v)
		if !u.BillingStatus.Valid() {
			return &domain.ErrValidation{Field: "billing", Message: fmt.Sprintf("invalid billing status %q", v)}
		}
	}
	if set("features") {
		names, _ := flags.GetStringSlice("features")
		f, err := parseFeatures(names)
		if err != nil {
			return err
		}
		u.Features = f
	}
	return nil
}
