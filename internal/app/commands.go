package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/config"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/telemetry"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=v1.2.3".
var Version = "dev"

const serviceName = "epiclinx-onboard"

type rootState struct {
	v        *viper.Viper
	cfgFile  string
	cfg      *config.Config
	log      logging.Logger
	shutdown telemetry.Shutdown
}

// NewRootCommand builds the onboard command tree reading from in and
// writing to out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	st := &rootState{v: viper.New()}

	root := &cobra.Command{
		Use:           "onboard",
		Short:         "Set up an Epiclinx creator or brand account",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(st.v, st.cfgFile)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.log = logging.New(cmd.ErrOrStderr(), cfg.LogLevel)

			st.shutdown, err = telemetry.Setup(cmd.Context(), cfg.OTLPEndpoint, serviceName, Version)
			if err != nil {
				st.log.Warn(cmd.Context(), "tracing disabled", "error", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if st.shutdown == nil {
				return nil
			}
			return st.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&st.cfgFile, "config", "c", "", "path to a JSON config file")
	if err := config.BindFlags(root, st.v); err != nil {
		panic(err)
	}

	root.AddCommand(newRunCommand(st), newStatusCommand(st), newResetCommand(st))
	return root
}

func (st *rootState) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *App) error) error {
	ctx := cmd.Context()
	a, err := New(ctx, st.cfg, st.log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newRunCommand(st *rootState) *cobra.Command {
	var (
		entryURL string
		q        = map[string]*string{}
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start or resume the onboarding wizard",
		Example: `  onboard run --role creator --plan pro --currency aud --recurring-interval month
  onboard run --url 'https://epiclinx.com/onboarding?role=brand&plan=team&currency=usd&recurring_interval=year'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entry, err := parseEntry(entryURL, q)
			if err != nil {
				return err
			}
			return st.withApp(cmd, func(ctx context.Context, a *App) error {
				_, err := a.Run(ctx, entry, cmd.InOrStdin(), cmd.OutOrStdout())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&entryURL, "url", "", "entry URL carrying the onboarding query parameters")
	for _, p := range []struct{ param, flag, usage string }{
		{models.ParamRole, "role", "account role (creator or brand)"},
		{models.ParamPlan, "plan", "subscription plan"},
		{models.ParamCurrency, "currency", "billing currency"},
		{models.ParamRecurringInterval, "recurring-interval", "billing interval (month, year)"},
		{models.ParamTrial, "trial", "start with a trial (true/false)"},
	} {
		q[p.param] = cmd.Flags().String(p.flag, "", p.usage)
	}
	cmd.MarkFlagsMutuallyExclusive("url", "plan")
	return cmd
}

// parseEntry prefers an entry URL and otherwise builds the same query from
// individual flags.
func parseEntry(entryURL string, q map[string]*string) (models.EntryContext, error) {
	if entryURL != "" {
		return models.ParseEntryURL(entryURL)
	}
	vals := url.Values{}
	for k, v := range q {
		if v != nil && *v != "" {
			vals.Set(k, *v)
		}
	}
	return models.ParseEntryQuery(vals)
}

func newStatusCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored onboarding session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Status(ctx, cmd.OutOrStdout())
			})
		},
	}
}

func newResetCommand(st *rootState) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the stored onboarding session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return st.withApp(cmd, func(ctx context.Context, a *App) error {
				if err := a.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Onboarding session discarded.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

// Execute runs the command tree against the process streams.
func Execute(ctx context.Context) int {
	root := NewRootCommand(os.Stdin, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "onboard:", err)
		return 1
	}
	return 0
}
