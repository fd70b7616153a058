package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/betting-settlement/config"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VerifiedDeposit is the payload announced to the downstream ledger for a gateway-verified transfer
type VerifiedDeposit struct {
	TrxID               string          `json:"trxid"`
	UserIdentifyAddress string          `json:"userIdentifyAddress"`
	Amount              decimal.Decimal `json:"amount"`
	Token               string          `json:"token"`
	Method              string          `json:"method"`
	Time                string          `json:"time"`
}

// LedgerNotifier tells the downstream ledger about verified deposits. Callers treat it as best effort.
type LedgerNotifier interface {
	Name() string
	NotifyVerifiedDeposit(ctx context.Context, deposit VerifiedDeposit) error
	Close() error
}

// NewLedgerNotifier builds the notifier selected by cfg.Provider
func NewLedgerNotifier(cfg config.LedgerNotifyConfig, logger *zap.Logger) (LedgerNotifier, error) {
	switch cfg.Provider {
	case "", "none":
		return NoopLedgerNotifier{}, nil
	case "http":
		return NewHTTPLedgerNotifier(cfg.URL, cfg.APIKey, cfg.Timeout), nil
	case "kafka":
		return NewKafkaLedgerNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown ledger notify provider: %s", cfg.Provider)
	}
}

// NoopLedgerNotifier drops every notification
type NoopLedgerNotifier struct{}

func (NoopLedgerNotifier) Name() string { return "none" }

func (NoopLedgerNotifier) NotifyVerifiedDeposit(context.Context, VerifiedDeposit) error { return nil }

func (NoopLedgerNotifier) Close() error { return nil }

// HTTPLedgerNotifier posts the deposit as JSON to a fixed endpoint
type HTTPLedgerNotifier struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

func NewHTTPLedgerNotifier(url, apiKey string, timeout time.Duration) *HTTPLedgerNotifier {
	if timeout <= 0 {
		timeout = utils.LedgerNotifyTimeout
	}
	return &HTTPLedgerNotifier{
		URL:        strings.TrimSpace(url),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (n *HTTPLedgerNotifier) Name() string { return "http" }

func (n *HTTPLedgerNotifier) NotifyVerifiedDeposit(ctx context.Context, deposit VerifiedDeposit) error {
	payload, err := json.Marshal(deposit)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if n.APIKey != "" {
		req.Header.Set("X-API-Key", n.APIKey)
	}

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ledger notify failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (n *HTTPLedgerNotifier) Close() error {
	n.HTTPClient.CloseIdleConnections()
	return nil
}

// messageWriter is the subset of *kafka.Writer the notifier needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaLedgerNotifier publishes deposits to a topic keyed by trxid
type KafkaLedgerNotifier struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaLedgerNotifier(brokers []string, topic string, timeout time.Duration, logger *zap.Logger) *KafkaLedgerNotifier {
	if timeout <= 0 {
		timeout = utils.LedgerNotifyTimeout
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  1,
		WriteTimeout: timeout,
		ReadTimeout:  timeout,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
	return &KafkaLedgerNotifier{writer: writer, timeout: timeout}
}

func (n *KafkaLedgerNotifier) Name() string { return "kafka" }

func (n *KafkaLedgerNotifier) NotifyVerifiedDeposit(ctx context.Context, deposit VerifiedDeposit) error {
	value, err := json.Marshal(deposit)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(deposit.TrxID),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (n *KafkaLedgerNotifier) Close() error {
	return n.writer.Close()
}
