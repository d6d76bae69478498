// Package configutil resolves configuration values with flag-over-viper
// precedence: a flag the user set on the command wins, otherwise the viper
// key (config file or environment) applies.
package configutil

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func FlagOrViperString(cmd *cobra.Command, flagName string, viperKey string) string {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err == nil {
			return value
		}
	}
	if strings.TrimSpace(viperKey) == "" {
		return ""
	}
	return viper.GetString(viperKey)
}

func FlagOrViperBool(cmd *cobra.Command, flagName string, viperKey string) bool {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetBool(flagName)
		if err == nil {
			return value
		}
	}
	if strings.TrimSpace(viperKey) == "" {
		return false
	}
	return viper.GetBool(viperKey)
}

func FlagOrViperDuration(cmd *cobra.Command, flagName string, viperKey string) time.Duration {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetDuration(flagName)
		if err == nil {
			return value
		}
	}
	if strings.TrimSpace(viperKey) == "" {
		return 0
	}
	return viper.GetDuration(viperKey)
}

func FlagOrViperInt(cmd *cobra.Command, flagName string, viperKey string) int {
	if cmd != nil && flagName != "" && cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetInt(flagName)
		if err == nil {
			return value
		}
	}
	if strings.TrimSpace(viperKey) == "" {
		return 0
	}
	return viper.GetInt(viperKey)
}
