package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"partner-portal/internal/config"
	"partner-portal/internal/refdata"
	"partner-portal/internal/repository/downloadRepo"
	"partner-portal/internal/repository/entitlementRepo"
	"partner-portal/internal/service/entitlement"
	"partner-portal/pkg/database/postgres"
	"partner-portal/pkg/logger"
)

var assumeYes bool

func main() {
	ctx := context.Background()
	ctx, _ = logger.New(ctx)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "portaladm: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portaladm",
		Short: "Delivery partner portal administration",
		Long: `portaladm provisions delivery partner access: granting and revoking
local authority codes, granting consortium access, and reconciling users whose
direct grants cover a whole consortium.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Skip confirmation prompts")
	cmd.AddCommand(newUserCmd())
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage portal user entitlements",
	}
	cmd.AddCommand(
		newUserShowCmd(),
		newUserGrantLaCmd(),
		newUserRevokeLaCmd(),
		newUserGrantConsortiumCmd(),
		newUserFixConsortiaCmd(),
	)
	return cmd
}

// deps holds the shared collaborators each command builds on demand.
type deps struct {
	conn         *pgx.Conn
	users        *entitlementRepo.EntitlementRepository
	downloads    *downloadRepo.DownloadRepository
	entitlements *entitlement.Service
	tables       refdata.Tables
}

func setup(ctx context.Context) (*deps, error) {
	cfg, err := config.LoadAdminConfig()
	if err != nil {
		return nil, err
	}
	conn, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	tables := refdata.Default()
	users := entitlementRepo.New(conn)
	return &deps{
		conn:         conn,
		users:        users,
		downloads:    downloadRepo.New(conn),
		entitlements: entitlement.New(tables, users),
		tables:       tables,
	}, nil
}

func (d *deps) close(ctx context.Context) {
	_ = d.conn.Close(ctx)
}

// confirm asks the operator before a mutation; --yes answers for them.
func confirm(prompt string) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
