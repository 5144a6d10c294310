// Package app provides the application initialization and wiring.
package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultDataDir returns the default data directory path.
// Uses ~/.berth for user installations, /var/lib/berth as fallback.
func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".berth")
	}
	return "/var/lib/berth"
}

// ConfigureViper sets up viper with standard config file search paths.
// Config file: berth.toml
// Search paths (in order): /etc/berth, ~/.config/berth, current directory
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("berth")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/berth")
		v.AddConfigPath("$HOME/.config/berth")
		v.AddConfigPath(".")
	}
}
