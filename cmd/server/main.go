package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/config"
	"github.com/DoyleJ11/hidden-role-client/internal/crypto/elgamal"
	"github.com/DoyleJ11/hidden-role-client/internal/ledger"
	"github.com/DoyleJ11/hidden-role-client/internal/logging"
	"github.com/DoyleJ11/hidden-role-client/internal/store"
	"github.com/DoyleJ11/hidden-role-client/internal/wallet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "hidden-role",
		Short:         "Encrypted hidden-role session client",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return config.LoadDotEnv(envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.String("env-file", ".env", "dotenv file loaded before configuration")
	flags.String("ledger", config.DriverMemory, "ledger state driver (memory|postgres)")
	flags.String("dsn", "", "postgres DSN for the postgres driver")
	flags.String("lang", "en", "language for labels and notifications")
	flags.String("log-level", "info", "log level")
	bind(v, flags.Lookup("ledger"), "ledger.driver")
	bind(v, flags.Lookup("dsn"), "ledger.dsn")
	bind(v, flags.Lookup("lang"), "ui.lang")
	bind(v, flags.Lookup("log-level"), "log.level")

	root.AddCommand(newServeCmd(v), newSessionsCmd(v))
	return root
}

func bind(v *viper.Viper, f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// deps are the pieces every command builds from configuration.
type deps struct {
	cfg     config.Config
	log     *zap.Logger
	engine  *elgamal.Engine
	chain   *ledger.Chain
	backend store.Backend
	keys    *wallet.Keyring
	close   func()
}

func setup(v *viper.Viper) (*deps, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	seed := []byte(cfg.Wallet.Seed)
	eng := elgamal.New(seed, elgamal.WithMaxPlaintext(cfg.Crypto.MaxPlaintext))

	d := &deps{cfg: cfg, log: log, engine: eng, keys: wallet.NewKeyring(seed)}
	d.close = func() { _ = log.Sync() }

	var state ledger.State
	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		pg, err := ledger.OpenPostgres(cfg.Ledger.DSN)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		state = pg
		d.close = func() {
			if err := pg.Close(); err != nil {
				log.Warn("close ledger", zap.Error(err))
			}
			_ = log.Sync()
		}
	default:
		state = ledger.NewMemoryState()
	}

	d.chain = ledger.NewChain(cfg.Ledger.Contract, state, eng,
		ledger.WithBlockTime(cfg.Ledger.BlockTime),
		ledger.WithLogger(log),
	)
	d.backend = store.FromChain(d.chain)
	log.Info("ledger ready",
		zap.String("driver", cfg.Ledger.Driver),
		zap.String("contract", cfg.Ledger.Contract),
	)
	return d, nil
}

// initEngine builds the decryption table up front so the first flow does not wait on it.
func (d *deps) initEngine(ctx context.Context) {
	if err := d.engine.Init(ctx); err != nil {
		d.log.Warn("crypto init failed; lobbies will retry on connect", zap.Error(err))
	}
}
