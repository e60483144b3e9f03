package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. STREAMSINK_SQL_DSN
const EnvPrefix = "STREAMSINK"

// applyEnv overlays endpoints and secrets from the environment so they do not
// have to live in the config file
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	override := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	override("server.listen", &cfg.Server.Listen)
	override("log.level", &cfg.Log.Level)
	override("log.format", &cfg.Log.Format)

	if cfg.Influx != nil {
		override("influx.url", &cfg.Influx.URL)
		override("influx.token", &cfg.Influx.Token)
		override("influx.username", &cfg.Influx.Username)
		override("influx.password", &cfg.Influx.Password)
		override("influx.database", &cfg.Influx.Database)
		override("influx.measurement", &cfg.Influx.Measurement)
	}

	if cfg.SQL != nil {
		override("sql.dsn", &cfg.SQL.DSN)
		override("sql.table", &cfg.SQL.Table)
	}
}
