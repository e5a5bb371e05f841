package config

import (
	"runtime"
	_ "time/tzdata" // monitor.timezone must resolve on hosts without a zoneinfo database
)

// PlatformDefaults returns platform-specific default values
type PlatformDefaults struct {
	LogFile    string
	StorePath  string
	ConfigPath string
}

// GetPlatformDefaults returns platform-specific defaults based on runtime.GOOS
func GetPlatformDefaults() PlatformDefaults {
	switch runtime.GOOS {
	case "windows":
		return PlatformDefaults{
			LogFile:    `C:\ProgramData\LinksHealthMonitor\monitor.log`,
			StorePath:  `C:\ProgramData\LinksHealthMonitor\results.json`,
			ConfigPath: `C:\ProgramData\LinksHealthMonitor\config.yaml`,
		}
	case "freebsd":
		return PlatformDefaults{
			LogFile:    "/var/log/links-health-monitor/monitor.log",
			StorePath:  "/var/db/links-health-monitor/results.json",
			ConfigPath: "/usr/local/etc/links-health-monitor/config.yaml",
		}
	default:
		return PlatformDefaults{
			LogFile:    "/var/log/links-health-monitor/monitor.log",
			StorePath:  "/var/lib/links-health-monitor/results.json",
			ConfigPath: "/etc/links-health-monitor/config.yaml",
		}
	}
}

// GetDefaultConfigPath returns the platform-specific default config path
func GetDefaultConfigPath() string {
	return GetPlatformDefaults().ConfigPath
}

// UpdateConfigDefaults updates viper defaults with platform-specific values
// This should be called from setDefaults() in config.go
func UpdateConfigDefaults(v interface{}) {
	type viper interface {
		SetDefault(key string, value interface{})
	}

	if viperInstance, ok := v.(viper); ok {
		defaults := GetPlatformDefaults()

		viperInstance.SetDefault("store.path", defaults.StorePath)
		viperInstance.SetDefault("logging.file", defaults.LogFile)
	}
}
