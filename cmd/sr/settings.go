package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matsen/sysreview/internal/config"
	"github.com/matsen/sysreview/internal/labeler"
)

// Setting keys. Each is read from its flag, then SR_<KEY>, then the global
// config file, then the built-in default.
const (
	keyRoot       = "root"
	keyVerbose    = "verbose"
	keyOllamaURL  = "ollama_url"
	keyLabelModel = "label_model"
	keyMongoURI   = "mongo_uri"
)

// settings holds the merged CLI settings.
var settings = viper.New()

func init() {
	settings.SetEnvPrefix("SR")
	settings.AutomaticEnv()
	// DATABASE_URL is the name the review backend uses for the same URI
	_ = settings.BindEnv(keyMongoURI, "SR_MONGO_URI", "DATABASE_URL")

	settings.SetDefault(keyOllamaURL, labeler.DefaultOllamaURL)
	settings.SetDefault(keyLabelModel, labeler.DefaultModel)
}

// initSettings loads .env and layers the global config under env and flags.
func initSettings() {
	// Load .env file if present (for SR_MONGO_URI and friends)
	_ = godotenv.Load()

	global, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if global.StorePath != "" {
		settings.SetDefault(keyRoot, global.StorePath)
	}
	if global.OllamaURL != "" {
		settings.SetDefault(keyOllamaURL, global.OllamaURL)
	}
	if global.LabelModel != "" {
		settings.SetDefault(keyLabelModel, global.LabelModel)
	}
	if global.MongoURI != "" {
		settings.SetDefault(keyMongoURI, global.MongoURI)
	}
}

// bindFlag lets a command flag override the setting for key.
func bindFlag(key string, flag *pflag.Flag) {
	_ = settings.BindPFlag(key, flag)
}

func settingString(key string) string {
	return settings.GetString(key)
}

func settingBool(key string) bool {
	return settings.GetBool(key)
}
