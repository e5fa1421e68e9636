package aqmingestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.ApiService/implementation/telemetry"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
)

// Error types published on the error topic
const (
	ErrorTypeMalformed = "malformed_payload"
	ErrorTypeEmpty     = "empty_payload"
	ErrorTypeStore     = "store_error"
)

// ErrorMessage is published to <error topic>/<device id> when a payload is rejected
type ErrorMessage struct {
	ErrorType string    `json:"error_type"`
	Message   string    `json:"message"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
}

// publisher sends error feedback back to devices
type publisher interface {
	Publish(topic string, payload []byte) error
}

type Ingestor struct {
	cfg        aqmmodels.IngestorConfig
	ingestor   *telemetry.Ingestor
	mqttClient mqtt.Client
	errors     publisher
	logger     *logger.Logger
}

func New(cfg aqmmodels.IngestorConfig, ingestor *telemetry.Ingestor, logger *logger.Logger) *Ingestor {
	i := &Ingestor{
		cfg:      cfg,
		ingestor: ingestor,
		logger:   logger.WithComponent("mqtt"),
	}
	i.errors = mqttPublisher{i}
	return i
}

func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.brokerURL()).
		SetClientID(i.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(i.cfg.KeepAlive).
		SetPingTimeout(i.cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)

	if i.cfg.BrokerUser != "" {
		opts.SetUsername(i.cfg.BrokerUser)
		opts.SetPassword(i.cfg.BrokerPass)
	}

	if i.cfg.UseTLS {
		tlsCfg, err := i.tlsConfig(i.cfg.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.logger.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := i.subscriptionTopic()
		i.logger.Logger.Info().Str("topic", topic).Msg("MQTT connected, subscribing to topic")
		handler := func(_ mqtt.Client, m mqtt.Message) {
			i.HandleMessage(ctx, m.Topic(), m.Payload())
		}
		if token := c.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			i.logger.Logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		}
	}

	i.mqttClient = mqtt.NewClient(opts)
	if tk := i.mqttClient.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}

	return nil
}

func (i *Ingestor) Stop() {
	if i.mqttClient != nil && i.mqttClient.IsConnected() {
		i.mqttClient.Disconnect(500)
	}
}

func (i *Ingestor) IsConnected() bool {
	return i.mqttClient != nil && i.mqttClient.IsConnected()
}

// HandleMessage ingests one payload. Failures are logged and reported on the
// error topic; nothing is retried.
func (i *Ingestor) HandleMessage(ctx context.Context, topic string, payload []byte) {
	i.logger.Logger.Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("Received MQTT message")

	topicDevice := DeviceIDFromTopic(topic)

	ctx, cancel := context.WithTimeout(ctx, i.cfg.StoreTimeout)
	defer cancel()

	reading, err := i.ingestor.Ingest(ctx, payload, topicDevice)
	if err == nil {
		i.logger.Logger.Debug().Str("device_id", reading.DeviceID).Int64("timestamp", reading.Timestamp).Msg("Stored MQTT reading")
		return
	}

	errorType := ErrorTypeStore
	switch {
	case errors.Is(err, telemetry.ErrMalformedInput):
		errorType = ErrorTypeMalformed
	case errors.Is(err, telemetry.ErrEmptyPayload):
		errorType = ErrorTypeEmpty
	}

	deviceID := topicDevice
	if deviceID == "" {
		deviceID = "unknown"
	}
	i.logger.Logger.Warn().Err(err).Str("topic", topic).Str("device_id", deviceID).Msg("Rejected MQTT reading")
	i.publishError(deviceID, errorType, err.Error())
}

// DeviceIDFromTopic returns the second topic level, e.g. "kitchen" for
// air-monitor/kitchen/readings. Wildcards and empty levels yield "".
func DeviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	id := parts[1]
	if id == "+" || id == "#" {
		return ""
	}
	return id
}

func (i *Ingestor) subscriptionTopic() string {
	if i.cfg.SharedGroup != "" {
		return fmt.Sprintf("$share/%s/%s", i.cfg.SharedGroup, i.cfg.Topic)
	}
	return i.cfg.Topic
}

func (i *Ingestor) brokerURL() string {
	scheme := "tcp"
	if i.cfg.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, i.cfg.BrokerHost, i.cfg.BrokerPort)
}

func (i *Ingestor) tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}

// publishError publishes an error message to the error topic for device feedback
func (i *Ingestor) publishError(deviceID, errorType, message string) {
	payloadJSON, err := json.Marshal(ErrorMessage{
		ErrorType: errorType,
		Message:   message,
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		i.logger.Logger.Error().Err(err).Msg("Failed to marshal error payload")
		return
	}

	errorTopic := fmt.Sprintf("%s/%s", i.cfg.ErrorTopicPrefix, deviceID)
	if err := i.errors.Publish(errorTopic, payloadJSON); err != nil {
		i.logger.Logger.Error().Err(err).Str("topic", errorTopic).Msg("Failed to publish error")
		return
	}
	i.logger.Logger.Info().Str("topic", errorTopic).Str("message", message).Msg("Published error")
}

type mqttPublisher struct {
	i *Ingestor
}

func (p mqttPublisher) Publish(topic string, payload []byte) error {
	if !p.i.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	token := p.i.mqttClient.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}
