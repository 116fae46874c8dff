package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vaultsandbox/trustcore/internal/config"
	"github.com/vaultsandbox/trustcore/internal/observability/logger"
)

const defaultConfigFile = "trustctl.yaml"

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	envFile    string

	cfg *config.Config
	log *zap.Logger
}

// Execute runs the CLI with os.Args.
func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "trustctl",
		Short:         "Certificate authority, authentication and payload sealing for trustcore",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./"+defaultConfigFile+" if present)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before TRUSTCORE_* overrides")

	root.AddCommand(
		initCmd(a),
		anchorCmd(a),
		enrollCmd(a),
		verifyCmd(a),
		revokeCmd(a),
		crlCmd(a),
		sealCmd(a),
		openCmd(a),
		signCmd(a),
		verifySigCmd(a),
		challengeCmd(a),
	)
	return root
}

func (a *app) load() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	path := a.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger.Init(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "trustctl",
	})
	a.log = logger.L()
	return nil
}

// run adapts a command body that needs a context.
func (a *app) run(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(logger.ToContext(ctx, a.log), cmd, args)
	}
}
