package app

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/adanyl0v/manageq/internal/config"
)

const configPathEnv = "CONFIG_PATH"

// MustReadConfig reads the config file named by CONFIG_PATH when it is
// set and falls back to plain environment variables otherwise.
func MustReadConfig() {
	var reader config.Reader = config.NewEnvReader()
	path := os.Getenv(configPathEnv)
	if path != "" {
		reader = config.NewFileReader(path)
	}

	cfg, err := reader.Read()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Str("config_path", path).
			Msg("failed to read config")
		panic(err)
	}
	globalLogger.Info().
		Str("env", cfg.Env).
		Str("config_path", path).
		Msg("read config")

	config.SetGlobal(cfg)
}
