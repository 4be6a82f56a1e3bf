package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/CataIana/solismqtt/logger"
)

// Config represents the application configuration
type Config struct {
	Global   GlobalConfig   `mapstructure:"global"`
	Inverter InverterConfig `mapstructure:"inverter"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// GlobalConfig holds daemon-wide settings
type GlobalConfig struct {
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	UptimeURI       string `mapstructure:"uptime_uri"`
}

// InverterConfig holds the inverter endpoint settings
type InverterConfig struct {
	IP             string        `mapstructure:"ip"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	FirmwareFamily string        `mapstructure:"firmware_family"`
	DecoderScript  DecoderScript `mapstructure:"decoder_script"`
}

// DecoderScript configures the scripted record decoder used when
// firmware_family is "script"
type DecoderScript struct {
	ScriptPath string `mapstructure:"script_path"`
	ScriptCode string `mapstructure:"script_code"`
}

// MQTTConfig represents the MQTT broker settings
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggerConfig represents the logging settings
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	Console    bool   `mapstructure:"console"`
}

// ChangeCallback is invoked with the re-parsed configuration after the
// config file changes on disk
type ChangeCallback func(cfg *Config) error

// Load reads and validates the configuration file at the given path
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults validates required fields and fills in defaults
func (c *Config) applyDefaults() error {
	if c.Inverter.IP == "" {
		return fmt.Errorf("inverter.ip is required")
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.Global.IntervalSeconds <= 0 {
		c.Global.IntervalSeconds = 30
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "solismqtt"
	}
	if c.Inverter.FirmwareFamily == "" {
		c.Inverter.FirmwareFamily = "solis-4g"
	}
	if c.Inverter.FirmwareFamily == "script" &&
		c.Inverter.DecoderScript.ScriptPath == "" && c.Inverter.DecoderScript.ScriptCode == "" {
		return fmt.Errorf("firmware_family is \"script\" but no decoder script is configured")
	}
	if c.Logger.FilePath == "" {
		c.Logger.FilePath = "./logs/solismqtt.log"
	}
	if c.Logger.MaxSize <= 0 {
		c.Logger.MaxSize = 10
	}
	if c.Logger.MaxBackups <= 0 {
		c.Logger.MaxBackups = 5
	}
	return nil
}

// PollInterval returns the steady-state polling cadence
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Global.IntervalSeconds) * time.Second
}

// Watch watches the configuration file for changes and calls the callback
// with the re-parsed configuration. Changes within two seconds of the last
// one are ignored to absorb editors writing in multiple operations.
func Watch(configPath string, callback ChangeCallback) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	viper.SetConfigFile(absPath)
	viper.WatchConfig()

	var lastChange time.Time
	const debounce = 2 * time.Second

	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&fsnotify.Write != fsnotify.Write {
			return
		}
		now := time.Now()
		if now.Sub(lastChange) < debounce {
			return
		}
		lastChange = now

		logger.Info("config file changed: %s", e.Name)

		var newConfig Config
		if err := viper.Unmarshal(&newConfig); err != nil {
			logger.Error("parse updated config failed: %v", err)
			return
		}
		if err := newConfig.applyDefaults(); err != nil {
			logger.Error("updated config invalid: %v", err)
			return
		}

		if err := callback(&newConfig); err != nil {
			logger.Error("apply updated config failed: %v", err)
		}
	})

	return nil
}
