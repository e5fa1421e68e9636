package aqmingestor

import (
	config "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Config"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
)

// LoadFromConfig maps the service configuration onto the subscriber settings
func LoadFromConfig(cfg *config.Config) aqmmodels.IngestorConfig {
	return aqmmodels.IngestorConfig{
		BrokerHost:  cfg.MQTT.BrokerHost,
		BrokerPort:  cfg.MQTT.BrokerPort,
		BrokerUser:  cfg.MQTT.BrokerUser,
		BrokerPass:  cfg.MQTT.BrokerPass,
		UseTLS:      cfg.MQTT.UseTLS,
		CACertPath:  cfg.MQTT.CACertPath,
		Topic:       cfg.MQTT.Topic,
		ClientID:    cfg.MQTT.ClientID,
		SharedGroup: cfg.MQTT.SharedGroup,
		KeepAlive:   cfg.MQTT.KeepAlive,
		PingTimeout: cfg.MQTT.PingTimeout,

		ErrorTopicPrefix: cfg.MQTT.ErrorTopic,
		StoreTimeout:     cfg.Store.Timeout,
	}
}
