package aqmmodels

import "time"

type IngestorConfig struct {
	// MQTT
	BrokerHost  string
	BrokerPort  int
	BrokerUser  string
	BrokerPass  string
	UseTLS      bool
	CACertPath  string
	Topic       string
	ClientID    string
	SharedGroup string // e.g., "ingestors" to enable $share group consumption
	KeepAlive   time.Duration
	PingTimeout time.Duration

	// ErrorTopicPrefix receives ingestion failures as <prefix>/<device_id>
	ErrorTopicPrefix string

	// Ingestion
	StoreTimeout time.Duration
}
