package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Transport bridge
	viper.SetDefault("gateway.url", "ws://127.0.0.1:3900/stream")
	viper.SetDefault("gateway.http_url", "http://127.0.0.1:3900")
	viper.SetDefault("gateway.token", "")
	viper.SetDefault("gateway.exec_path", "")
	viper.SetDefault("gateway.exec_args", []string{})
	viper.SetDefault("gateway.handshake_timeout", 10*time.Second)
	viper.SetDefault("gateway.write_timeout", 10*time.Second)

	// Session lifecycle
	viper.SetDefault("session.cache_dir", ".wwebjs_auth")
	viper.SetDefault("session.policy", "exit")
	viper.SetDefault("session.backoff", 15*time.Second)
	viper.SetDefault("session.terminal_reasons", []string{})

	// Correspondent ledger
	viper.SetDefault("store.backend", "file")
	viper.SetDefault("store.path", "clientes_atendidos.json")
	viper.SetDefault("store.dsn", "")

	// Follow-up sweep
	viper.SetDefault("followup.threshold_days", 5)
	viper.SetDefault("followup.interval", time.Hour)

	// Router
	viper.SetDefault("maintenance", false)
	viper.SetDefault("router.typing_delay", 2*time.Second)
	viper.SetDefault("router.part_delay", 1500*time.Millisecond)
}
