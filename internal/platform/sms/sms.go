package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"fitora-backend/internal/platform/logger"
)

type Sender interface {
	Send(ctx context.Context, phoneNumber, text string) error
}

type GatewayConfig struct {
	APIURL     string
	Username   string
	Password   string
	Originator string
}

// GatewaySender posts messages to a JSON SMS gateway with basic auth.
type GatewaySender struct {
	cfg        GatewayConfig
	httpClient *http.Client
}

func NewGatewaySender(cfg GatewayConfig) *GatewaySender {
	return &GatewaySender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *GatewaySender) Send(ctx context.Context, phoneNumber, text string) error {
	body := map[string]interface{}{
		"messages": []map[string]interface{}{
			{
				"recipient":  phoneNumber,
				"message-id": 111111111 + rand.IntN(888888889),
				"sms": map[string]interface{}{
					"originator": s.cfg.Originator,
					"content": map[string]string{
						"text": text,
					},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal sms request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.Username, s.cfg.Password)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// LogSender writes the message to the log instead of delivering it.
// Used in development when no gateway is configured.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log.With("component", "sms.LogSender")}
}

func (s *LogSender) Send(_ context.Context, phoneNumber, text string) error {
	s.log.Info("sms delivery skipped, no gateway configured", "phone_number", phoneNumber, "text", text)
	return nil
}
