package main

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	LogLevelKey  = "log.level"
	LogFormatKey = "log.format"
)

var operationsFile string

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "jwtgate",
	Short: "JWT bearer authentication gate",
	Long: `jwtgate serves an HTTP API whose operations are protected by RS256 bearer
tokens verified against a tenant JWKS. Operations and their required scopes
are read from an operations file; the key set location comes from AUTH_*
environment variables.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(); err != nil {
			return err
		}
		configPath, err := initConfig()
		if err != nil {
			return err
		}
		if configPath != "" {
			log.WithField("file", configPath).Debug("using operations file")
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("execution failed")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&operationsFile, "operations", "",
		"Operations file (default is ./operations.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(LogLevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	_ = viper.BindPFlag(LogFormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	viper.SetEnvPrefix("JWTGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func initLogging() error {
	level, err := logrus.ParseLevel(viper.GetString(LogLevelKey))
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if viper.GetString(LogFormatKey) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

func initConfig() (string, error) {
	if operationsFile != "" {
		viper.SetConfigFile(operationsFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("operations")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
		return "", nil
	}
	return viper.ConfigFileUsed(), nil
}
