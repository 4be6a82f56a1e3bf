package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/CataIana/solismqtt/bridge"
	"github.com/CataIana/solismqtt/config"
	"github.com/CataIana/solismqtt/heartbeat"
	"github.com/CataIana/solismqtt/inverter"
	"github.com/CataIana/solismqtt/logger"
	"github.com/CataIana/solismqtt/mqtt"
)

func main() {
	configPath := "configuration.yaml"

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	if err := logger.InitFromConfig(cfg.Logger.Level, cfg.Logger.FilePath,
		cfg.Logger.MaxSize, cfg.Logger.MaxBackups, cfg.Logger.Console); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logger.Close()

	logger.Info("starting solismqtt")

	decoder, err := newDecoder(cfg.Inverter)
	if err != nil {
		logger.Error("init decoder failed: %v", err)
		os.Exit(1)
	}

	reader := inverter.NewReader(cfg.Inverter.IP, cfg.Inverter.Username, cfg.Inverter.Password, decoder)

	// Stick diagnostics are useful in the log but not worth blocking on
	if info, err := reader.ReadDeviceInfo(); err == nil {
		logger.Info("WiFi stick: serial=%s firmware=%s ssid=%s rssi=%s",
			info.SerialNumber, info.FirmwareVersion, info.WirelessSTASSID, info.WirelessSTARSSI)
	} else {
		logger.Debug("WiFi stick info not available: %v", err)
	}

	session, err := mqtt.NewSession(cfg.MQTT, heartbeat.New(cfg.Global.UptimeURI))
	if err != nil {
		logger.Error("init MQTT session failed: %v", err)
		os.Exit(1)
	}
	if err := session.Connect(); err != nil {
		logger.Error("connect to MQTT broker failed: %v", err)
		os.Exit(1)
	}
	defer session.Disconnect()

	// Log level changes apply live; everything else needs a restart
	err = config.Watch(configPath, func(newCfg *config.Config) error {
		if err := logger.SetLevel(newCfg.Logger.Level); err != nil {
			return err
		}
		logger.Info("log level set to %s; other config changes apply after restart", newCfg.Logger.Level)
		return nil
	})
	if err != nil {
		logger.Warn("watching config file failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := bridge.New(reader, session, cfg.MQTT.Prefix, cfg.PollInterval())
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("bridge loop failed: %v", err)
		os.Exit(1)
	}

	logger.Info("shutting down")
}

// newDecoder selects the record decoder for the configured firmware family
func newDecoder(cfg config.InverterConfig) (inverter.Decoder, error) {
	if cfg.FirmwareFamily == "script" {
		return inverter.NewScriptDecoder(cfg.DecoderScript.ScriptCode, cfg.DecoderScript.ScriptPath)
	}
	return inverter.NewDecoder(cfg.FirmwareFamily)
}
