package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nextdigitalzone/jobdesk/internal/app"
	mw "github.com/nextdigitalzone/jobdesk/internal/app/api/middleware"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/sweeper"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "jobdesk",
	Short:         "Job lifecycle and escrow payment backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("APP_CONFIG_FILE", configFile)
		}
		return nil
	},
	// serve is the default
	RunE: func(cmd *cobra.Command, args []string) error { return serve() },
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the auto-cancel sweeper and the stats workers",
	RunE:  func(cmd *cobra.Command, args []string) error { return serve() },
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Cancel pending jobs that found no artisan within the timeout, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			sw  *sweeper.Service
			led *ledger.Service
			log *zap.SugaredLogger
		)
		a := fx.New(app.CoreModule, fx.NopLogger, fx.Populate(&sw, &led, &log))
		if err := a.Err(); err != nil {
			return err
		}
		startCtx, cancel := context.WithTimeout(cmd.Context(), app.DefaultStartTimeout)
		defer cancel()
		if err := a.Start(startCtx); err != nil {
			return fmt.Errorf("failed to start app: %w", err)
		}

		report, sweepErr := sw.Sweep(cmd.Context(), led.Now())
		if sweepErr == nil {
			log.Infow("sweep_command_done", "scanned", report.Scanned, "cancelled", report.Cancelled, "skipped", report.Skipped)
		}

		stopCtx, cancel2 := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
		defer cancel2()
		return errors.Join(sweepErr, a.Stop(stopCtx))
	},
}

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token with the configured secret, for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		if cfg.Env == config.EnvProd {
			return errors.New("token signing is disabled in prod")
		}
		role := types.Role(tokenRole)
		if !role.IsValid() || role == types.RoleSystem {
			return fmt.Errorf("invalid role %q", tokenRole)
		}
		if tokenSubject == "" {
			return errors.New("--sub is required")
		}
		tok, err := mw.SignToken(cfg.Auth.JWTSecret, types.Actor{ID: tokenSubject, Role: role}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the config file (overrides APP_CONFIG_FILE)")

	tokenCmd.Flags().StringVar(&tokenSubject, "sub", "", "actor id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(types.RoleCustomer), "customer, artisan or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, sweepCmd, tokenCmd)
}

// serve runs the fx application until SIGINT/SIGTERM.
func serve() error {
	a := fx.New(app.Module)
	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		// Logging might not be ready; fallback to zap example
		zap.NewExample().Sugar().Errorf("failed to start app: %v", err)
		return err
	}

	// Block until signal
	sig := <-a.Wait()

	stopCtx, cancel2 := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancel2()
	if err := a.Stop(stopCtx); err != nil {
		zap.NewExample().Sugar().Errorf("failed to stop app: %v", err)
		return err
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("app exited with code %d", sig.ExitCode)
	}
	return nil
}
