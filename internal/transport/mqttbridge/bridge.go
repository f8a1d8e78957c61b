// Package mqttbridge lets network readers use the access engine over MQTT.
// A reader publishes the raw credential on <prefix>/<reader>/scan and gets
// the serial line answer ("GRANT,<name>" or "DENY") on <prefix>/<reader>/decision.
package mqttbridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/pkg/validator"
)

// Source is reported with every decision taken over MQTT
const Source = "mqtt"

const (
	scanSuffix     = "scan"
	decisionSuffix = "decision"
	qosAtLeastOnce = byte(1)
	verifyTimeout  = 5 * time.Second
)

// Broker is the subset of Client used by the bridge
type Broker interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Unsubscribe(topics ...string) error
}

// Verifier decides on a credential
type Verifier interface {
	Verify(ctx context.Context, credential, source string) (access.Decision, error)
}

// Bridge routes scans to the verifier and publishes the answers
type Bridge struct {
	broker    Broker
	verifier  Verifier
	prefix    string
	validator *validator.CredentialValidator
	logger    *logrus.Logger
}

// NewBridge creates a new Bridge under topic prefix
func NewBridge(broker Broker, verifier Verifier, prefix string, logger *logrus.Logger) *Bridge {
	return &Bridge{
		broker:    broker,
		verifier:  verifier,
		prefix:    strings.TrimSuffix(prefix, "/"),
		validator: validator.NewCredentialValidator(),
		logger:    logger,
	}
}

// ScanTopic is the wildcard subscription of every reader
func (b *Bridge) ScanTopic() string {
	return b.prefix + "/+/" + scanSuffix
}

// Start subscribes to the scan topics
func (b *Bridge) Start() error {
	if err := b.broker.Subscribe(b.ScanTopic(), qosAtLeastOnce, b.HandleScan); err != nil {
		return err
	}
	b.logger.WithField("topic", b.ScanTopic()).Info("MQTT reader bridge started")
	return nil
}

// Stop drops the scan subscription
func (b *Bridge) Stop() error {
	return b.broker.Unsubscribe(b.ScanTopic())
}

// HandleScan answers one scan message
func (b *Bridge) HandleScan(topic string, payload []byte) error {
	reader, err := b.readerOf(topic)
	if err != nil {
		return err
	}

	credential := strings.TrimSpace(string(payload))
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	decision, verr := b.verifier.Verify(ctx, credential, Source)
	log := b.logger.WithFields(logrus.Fields{
		"reader":  reader,
		"rfid":    b.validator.Mask(credential),
		"outcome": decision.Outcome,
		"reason":  decision.Reason,
	})
	switch {
	case verr == nil:
		log.Info("MQTT decision")
	case errors.Is(verr, apperr.ErrInvalidInput):
		log.WithError(verr).Warn("Rejected malformed credential")
	default:
		log.WithError(verr).Error("MQTT decision degraded")
	}

	reply := b.prefix + "/" + reader + "/" + decisionSuffix
	return b.broker.Publish(reply, qosAtLeastOnce, false, []byte(decision.SerialLine()))
}

// readerOf extracts <reader> from <prefix>/<reader>/scan
func (b *Bridge) readerOf(topic string) (string, error) {
	rest := strings.TrimPrefix(topic, b.prefix+"/")
	parts := strings.Split(rest, "/")
	if rest == topic || len(parts) != 2 || parts[0] == "" || parts[1] != scanSuffix {
		return "", fmt.Errorf("unexpected scan topic %q", topic)
	}
	return parts[0], nil
}
