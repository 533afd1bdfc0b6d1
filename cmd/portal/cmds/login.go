package cmds

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/validation-portal/portal-client/internal/api"
	clierrors "github.com/validation-portal/portal-client/internal/cli_errors"
	"github.com/validation-portal/portal-client/internal/config"
	"github.com/validation-portal/portal-client/internal/types"
)

var (
	loginUsername         string
	loginPasswordStdin    bool
	passwordPasswordStdin bool
)

// env vars holding the passwords when not read from stdin
var (
	passwordEnv    = strings.ToUpper(config.EnvPrefix) + "_PASSWORD"
	newPasswordEnv = strings.ToUpper(config.EnvPrefix) + "_NEW_PASSWORD"
)

func newAPIClient() (*api.Client, error) {
	var (
		endpoints api.Endpoints
		err       error
	)
	if endpoints.Token, err = cfg.TokenURL(); err != nil {
		return nil, err
	}
	if endpoints.TokenRefresh, err = cfg.TokenRefreshURL(); err != nil {
		return nil, err
	}
	if endpoints.Reports, err = cfg.ReportsURL(); err != nil {
		return nil, err
	}
	if endpoints.DeleteReport, err = cfg.DeleteReportURL(); err != nil {
		return nil, err
	}
	if endpoints.ResetCredentials, err = cfg.ResetCredentialsURL(); err != nil {
		return nil, err
	}

	return api.NewClient(endpoints, openSession(), cfg.API.RetryMax), nil
}

// One secret per env var, or one line each from stdin in the same order
func readSecrets(cmd *cobra.Command, fromStdin bool, envs ...string) ([]string, error) {
	secrets := make([]string, 0, len(envs))

	if !fromStdin {
		for _, env := range envs {
			secret, ok := os.LookupEnv(env)
			if !ok || secret == "" {
				return nil, fmt.Errorf("password required: use --password-stdin or set %s", env)
			}
			secrets = append(secrets, secret)
		}
		return secrets, nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for range envs {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, errors.New("no password on stdin")
		}
		secrets = append(secrets, strings.TrimRight(scanner.Text(), "\r"))
	}

	return secrets, nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain a session token from the validation service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "loginCmd")
		defer span.End()

		span.SetAttributes(attribute.String("username", loginUsername))

		secrets, err := readSecrets(cmd, loginPasswordStdin, passwordEnv)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "no password")
			return usageError(err)
		}
		password := secrets[0]

		client, err := newAPIClient()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create api client")
			return usageError(err)
		}

		if err := client.Login(ctx, loginUsername, password); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "login failed")
			return clierrors.ExitErrorWrap(types.ExitErrored, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", loginUsername)
		span.SetStatus(codes.Ok, "logged in")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the session access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "refreshCmd")
		defer span.End()

		client, err := newAPIClient()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create api client")
			return usageError(err)
		}

		if err := client.Refresh(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refresh failed")
			if errors.Is(err, api.ErrNotLoggedIn) {
				return usageError(err)
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Session refreshed")
		span.SetStatus(codes.Ok, "refreshed")
		return nil
	},
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change the password of the logged in operator",
	Long: "Reads the current and new password from " + passwordEnv + " and " + newPasswordEnv +
		", or from the first two lines of stdin with --password-stdin",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "passwordCmd")
		defer span.End()

		secrets, err := readSecrets(cmd, passwordPasswordStdin, passwordEnv, newPasswordEnv)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "no password")
			return usageError(err)
		}

		client, err := newAPIClient()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create api client")
			return usageError(err)
		}

		if err := client.ResetCredentials(ctx, secrets[0], secrets[1]); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "password reset failed")
			if errors.Is(err, api.ErrNotLoggedIn) {
				return usageError(err)
			}
			return clierrors.ExitErrorWrap(types.ExitErrored, err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Password reset successfully.")
		span.SetStatus(codes.Ok, "password reset")
		return nil
	},
}

func init() {
	passwordCmd.Flags().BoolVar(&passwordPasswordStdin, "password-stdin", false, "Read both passwords from stdin")

	loginCmd.Flags().StringVar(&loginUsername, "username", "", "Portal username")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
	err := loginCmd.MarkFlagRequired("username")
	if err != nil {
		panic("Internal error contact a contributor [login-flag-required]")
	}

	rootCmd.AddCommand(loginCmd, refreshCmd, passwordCmd)
}
