package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"partner-portal/internal/model/user"
)

const recentDownloadLimit = 10

func findUser(ctx context.Context, d *deps, email string) (*user.User, error) {
	u, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %q not found", email)
	}
	return u, nil
}

func newUserShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <email>",
		Short: "Show a user's entitlements and recent downloads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.close(ctx)

			u, err := findUser(ctx, d, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("User: %s (%s)\n", u.Email, u.ID)
			fmt.Println("Local authorities:")
			if len(u.AuthorityCodes) == 0 {
				fmt.Println("  (none)")
			}
			for _, code := range u.AuthorityCodes {
				name, err := d.tables.AuthorityName(code)
				if err != nil {
					return err
				}
				fmt.Printf("  %s  %s\n", code, name)
			}
			fmt.Println("Consortia:")
			if len(u.ConsortiumCodes) == 0 {
				fmt.Println("  (none)")
			}
			for _, code := range u.ConsortiumCodes {
				name, err := d.tables.ConsortiumName(code)
				if err != nil {
					return err
				}
				fmt.Printf("  %s  %s\n", code, name)
			}

			qualifying, err := d.entitlements.ConsortiumCodesUserShouldOwn(u)
			if err != nil {
				return err
			}
			if len(qualifying) > 0 {
				fmt.Printf("Direct grants fully cover consortia: %v (run 'user fix-consortia %s')\n",
					qualifying, u.Email)
			}

			events, err := d.downloads.ListByUser(ctx, u.ID, recentDownloadLimit)
			if err != nil {
				return err
			}
			fmt.Println("Recent downloads:")
			if len(events) == 0 {
				fmt.Println("  (none)")
			}
			for _, e := range events {
				fmt.Printf("  %s %d/%02d at %s\n", e.Code, e.Year, e.Month,
					e.DownloadedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newUserGrantLaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-la <email> <code>...",
		Short: "Grant direct local authority access",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.close(ctx)

			u, err := findUser(ctx, d, args[0])
			if err != nil {
				return err
			}
			codes := args[1:]
			if !confirm(fmt.Sprintf("Grant %v to %s?", codes, u.Email)) {
				return errors.New("aborted")
			}
			if err := d.entitlements.GrantAuthorities(ctx, u, codes); err != nil {
				return err
			}
			fmt.Printf("Granted %d local authorities to %s\n", len(codes), u.Email)
			return nil
		},
	}
}

func newUserRevokeLaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-la <email> <code>...",
		Short: "Revoke direct local authority access",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.close(ctx)

			u, err := findUser(ctx, d, args[0])
			if err != nil {
				return err
			}
			codes := args[1:]
			if !confirm(fmt.Sprintf("Revoke %v from %s?", codes, u.Email)) {
				return errors.New("aborted")
			}
			if err := d.entitlements.RevokeAuthorities(ctx, u, codes); err != nil {
				return err
			}
			fmt.Printf("Revoked %d local authorities from %s\n", len(codes), u.Email)
			return nil
		},
	}
}

func newUserGrantConsortiumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-consortium <email> <code>",
		Short: "Grant consortium-level access",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.close(ctx)

			u, err := findUser(ctx, d, args[0])
			if err != nil {
				return err
			}
			code := args[1]
			if !confirm(fmt.Sprintf("Grant consortium %s to %s?", code, u.Email)) {
				return errors.New("aborted")
			}
			if err := d.entitlements.GrantConsortium(ctx, u, code); err != nil {
				return err
			}
			fmt.Printf("Granted consortium %s to %s\n", code, u.Email)
			return nil
		},
	}
}

func newUserFixConsortiaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-consortia [<email>]",
		Short: "Promote users whose direct grants cover a whole consortium",
		Long: `Detects users whose directly owned local authorities cover every member
of a consortium they do not yet own, then grants the consortium and removes
the redundant direct grants in a single transaction per user.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := setup(ctx)
			if err != nil {
				return err
			}
			defer d.close(ctx)

			if len(args) == 1 {
				return fixOneUser(ctx, d, args[0])
			}
			return fixAllUsers(ctx, d)
		},
	}
}

func fixOneUser(ctx context.Context, d *deps, email string) error {
	u, err := findUser(ctx, d, email)
	if err != nil {
		return err
	}
	plan, err := d.entitlements.PlanPromotion(u)
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		fmt.Printf("Nothing to fix for %s\n", u.Email)
		return nil
	}
	printPlan(u, plan)
	if !confirm("Apply?") {
		return errors.New("aborted")
	}
	if _, err := d.entitlements.FixUserOwnedConsortia(ctx, u); err != nil {
		return err
	}
	fmt.Printf("Fixed %s\n", u.Email)
	return nil
}

func fixAllUsers(ctx context.Context, d *deps) error {
	users, err := d.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	planned := 0
	for _, u := range users {
		plan, err := d.entitlements.PlanPromotion(u)
		if err != nil {
			return err
		}
		if len(plan) == 0 {
			continue
		}
		printPlan(u, plan)
		planned++
	}
	if planned == 0 {
		fmt.Println("Nothing to fix")
		return nil
	}
	if !confirm(fmt.Sprintf("Apply promotion for %d user(s)?", planned)) {
		return errors.New("aborted")
	}
	fixed, failed, err := d.entitlements.FixAllUsers(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Fixed %d user(s), %d failure(s)\n", fixed, failed)
	return nil
}

func printPlan(u *user.User, plan map[string][]string) {
	fmt.Printf("%s:\n", u.Email)
	for consortium, members := range plan {
		fmt.Printf("  + consortium %s, - local authorities %v\n", consortium, members)
	}
}
