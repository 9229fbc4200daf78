package main

import (
	"context"
	"errors"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wippyai/hbctool/hasm"
	"github.com/wippyai/hbctool/hbc"
	"github.com/wippyai/hbctool/pipeline"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}

// app holds state shared by every command of one invocation.
type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}
	root := &cobra.Command{
		Use:           "hbctool",
		Short:         "Disassemble and assemble Hermes-style bytecode",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.hbctool.yaml)")
	pf.BoolP("verbose", "v", false, "log codec activity to stderr")
	pf.Bool("log-json", false, "write verbose logs as JSON")
	pf.Bool("no-color", false, "disable colored output")
	_ = a.v.BindPFlags(pf)

	root.AddCommand(
		a.disasmCmd(),
		a.asmCmd(),
		a.infoCmd(),
		a.versionsCmd(),
		a.browseCmd(),
	)
	return root
}

// setup reads configuration and installs the loggers. Precedence is flags,
// then HBCTOOL_* environment variables, then the config file.
func (a *app) setup(cmd *cobra.Command) error {
	v := a.v
	_ = v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix("hbctool")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfg := v.GetString("config"); cfg != "" {
		path, err := homedir.Expand(cfg)
		if err != nil {
			return err
		}
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".hbctool")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.GetString("config") != "" {
			return err
		}
	}

	if v.GetBool("no-color") {
		color.NoColor = true
	}

	if v.GetBool("verbose") {
		var (
			l   *zap.Logger
			err error
		)
		if v.GetBool("log-json") {
			l, err = zap.NewProduction()
		} else {
			l, err = zap.NewDevelopment()
		}
		if err != nil {
			return err
		}
		a.log = l
	}
	hbc.SetLogger(a.log.Named("hbc"))
	hasm.SetLogger(a.log.Named("hasm"))
	pipeline.SetLogger(a.log.Named("pipeline"))
	a.log.Debug("configuration loaded", zap.String("file", v.ConfigFileUsed()))
	return nil
}

// bind makes a subcommand's own flags visible through viper.
func (a *app) bind(cmd *cobra.Command) {
	_ = a.v.BindPFlags(cmd.Flags())
}

// runCtx keeps commands usable when executed without a context.
func runCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
