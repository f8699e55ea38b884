package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"staff-dashboard/internal/app"
	"staff-dashboard/internal/config"
	"staff-dashboard/internal/demoaccount"
)

// opener builds the wired session stack for one command.
type opener func(ctx context.Context) (*app.App, error)

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := zap.NewNop()
	if cfg.LogLevel == "debug" {
		if logger, err = app.NewLogger(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return app.New(ctx, cfg, logger)
}

// withApp opens the stack, runs fn, and closes the stack.
func withApp(cmd *cobra.Command, open opener, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

func newRootCmd(out io.Writer, open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "staffctl",
		Short:         "Manage the staff dashboard session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(
		newLoginCmd(open),
		newLogoutCmd(open),
		newWhoamiCmd(open),
		newDemoAccountsCmd(open),
	)
	return root
}

// pinEnv supplies the PIN when --pin is not given, so it stays out of the process list.
const pinEnv = "STAFFCTL_PIN"

func newLoginCmd(open opener) *cobra.Command {
	var phone, pin string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a phone number and PIN",
		Long: `Sign in with a phone number and PIN.

The PIN is read from $` + pinEnv + ` when set, otherwise from the first line of stdin.
--pin also works but leaves the PIN in shell history and the process list.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("pin") {
				var err error
				if pin, err = readPIN(cmd); err != nil {
					return err
				}
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				a.Manager.RefreshSession(ctx)
				res := a.Manager.Login(ctx, phone, pin)
				if !res.Success {
					return errors.New(res.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", res.User.FullName, res.User.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "10-digit phone number")
	cmd.Flags().StringVar(&pin, "pin", "", "PIN (prefer $"+pinEnv+" or stdin)")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

// readPIN takes the PIN from the environment or the first line of stdin. Only the line ending is
// stripped; the PIN is otherwise passed on as typed.
func readPIN(cmd *cobra.Command) (string, error) {
	if v, ok := os.LookupEnv(pinEnv); ok && v != "" {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "PIN: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read pin: %w", err)
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	if line == "" {
		return "", errors.New("pin is required: pass it on stdin or set " + pinEnv)
	}
	return line, nil
}

func newLogoutCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				a.Manager.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Resolve the stored session and show who is signed in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				snap := a.Manager.RefreshSession(ctx)
				w := cmd.OutOrStdout()
				if !snap.IsAuthenticated {
					fmt.Fprintln(w, "Not signed in")
					return nil
				}
				fmt.Fprintf(w, "%s (%s)\n", snap.User.FullName, snap.User.Role)
				if snap.Stale {
					fmt.Fprintln(w, "Server unreachable; showing the cached profile")
				}
				return nil
			})
		},
	}
}

func newDemoAccountsCmd(open opener) *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "demo-accounts",
		Short: "List demo accounts, or export the built-in seed table as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if export != "" {
				return exportSeeds(export)
			}
			return withApp(cmd, open, func(_ context.Context, a *app.App) error {
				reg, ok := a.Registry.(*demoaccount.StaticRegistry)
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Demo accounts are disabled")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PHONE\tROLE\tNAME")
				for _, p := range reg.Profiles() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Phone, p.Role, p.FullName)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "write the built-in seed table to this YAML file (usable as DEMO_ACCOUNTS_FILE)")
	return cmd
}

func exportSeeds(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := demoaccount.EncodeSeeds(f, demoaccount.DefaultSeeds()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
