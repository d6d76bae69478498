package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/borealmoveis/atendebot/followup"
	"github.com/borealmoveis/atendebot/internal/configutil"
	"github.com/borealmoveis/atendebot/internal/gateway"
	"github.com/borealmoveis/atendebot/internal/logutil"
	"github.com/borealmoveis/atendebot/ledger"
	"github.com/borealmoveis/atendebot/router"
	"github.com/borealmoveis/atendebot/session"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant against the transport bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := storeFromViper()
			if err != nil {
				return err
			}
			defer func() {
				if closer, ok := store.(interface{ Close() error }); ok {
					_ = closer.Close()
				}
			}()
			if err := store.Ensure(ctx); err != nil {
				return fmt.Errorf("init ledger: %w", err)
			}

			if execPath := strings.TrimSpace(viper.GetString("gateway.exec_path")); execPath != "" {
				launcher, err := gateway.NewLauncher(gateway.LauncherOptions{
					Path:   execPath,
					Args:   viper.GetStringSlice("gateway.exec_args"),
					Logger: logger,
				})
				if err != nil {
					return err
				}
				if err := launcher.Start(ctx); err != nil {
					return err
				}
				go func() {
					if err := launcher.Wait(); err != nil && ctx.Err() == nil {
						logger.Error("gateway_process_lost", "error", err.Error())
					}
				}()
			}

			maintenance := configutil.FlagOrViperBool(cmd, "maintenance", "maintenance")
			rt, err := router.New(router.Options{
				Config: router.Config{
					Maintenance: maintenance,
					TypingDelay: viper.GetDuration("router.typing_delay"),
					PartDelay:   viper.GetDuration("router.part_delay"),
				},
				Store:  store,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			factory := func(ctx context.Context) (session.Session, error) {
				return gateway.NewClient(gateway.Options{
					URL:              viper.GetString("gateway.url"),
					HTTPURL:          viper.GetString("gateway.http_url"),
					Token:            viper.GetString("gateway.token"),
					HandshakeTimeout: viper.GetDuration("gateway.handshake_timeout"),
					WriteTimeout:     viper.GetDuration("gateway.write_timeout"),
					Logger:           logger,
				})
			}

			manager, err := session.NewManager(session.ManagerOptions{
				Factory:         factory,
				CacheDir:        viper.GetString("session.cache_dir"),
				Policy:          session.Policy(viper.GetString("session.policy")),
				Backoff:         viper.GetDuration("session.backoff"),
				TerminalReasons: viper.GetStringSlice("session.terminal_reasons"),
				RenderPairingToken: func(code string) {
					gateway.RenderPairingToken(os.Stdout, code)
				},
				HandleMessage: rt.Handle,
				Logger:        logger,
			})
			if err != nil {
				return err
			}

			if maintenance {
				logger.Warn("maintenance_mode_enabled")
			}

			scheduler, err := followup.New(followup.Options{
				Store: store,
				Sender: func() followup.Sender {
					if s := manager.Sender(); s != nil {
						return s
					}
					return nil
				},
				Text:          router.FollowUpText,
				ThresholdDays: viper.GetInt("followup.threshold_days"),
				Interval:      viper.GetDuration("followup.interval"),
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			go func() {
				if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("followup_stopped", "error", err.Error())
				}
			}()

			logger.Info("serve_start",
				"gateway_url", viper.GetString("gateway.url"),
				"store_backend", viper.GetString("store.backend"),
				"followup_interval", viper.GetDuration("followup.interval").String(),
				"maintenance", maintenance,
			)

			err = manager.Run(ctx)
			if errors.Is(err, context.Canceled) {
				logger.Info("serve_stop", "reason", "context_canceled")
				return nil
			}
			if errors.Is(err, session.ErrSessionFatal) {
				// Non-zero exit so the supervisor relaunches with a clean cache.
				logger.Error("serve_fatal", "error", err.Error())
				return err
			}
			return err
		},
	}

	cmd.Flags().Bool("maintenance", false, "Answer every message with the maintenance notice.")
	_ = viper.BindPFlag("maintenance", cmd.Flags().Lookup("maintenance"))

	return cmd
}

func storeFromViper() (ledger.Store, error) {
	backend := strings.ToLower(strings.TrimSpace(viper.GetString("store.backend")))
	switch backend {
	case "", "file":
		path := strings.TrimSpace(viper.GetString("store.path"))
		if path == "" {
			return nil, fmt.Errorf("missing store.path (set via config or %s_STORE_PATH)", envPrefix)
		}
		return ledger.NewFileStore(path), nil
	case "sqlite":
		dsn := strings.TrimSpace(viper.GetString("store.dsn"))
		if dsn == "" {
			return nil, fmt.Errorf("missing store.dsn (set via config or %s_STORE_DSN)", envPrefix)
		}
		return ledger.NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store.backend: %s", backend)
	}
}
