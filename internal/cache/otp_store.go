package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

var ErrOTPUnavailable = errors.New("otp store unavailable")

// OTPEntry is what a pending phone verification keeps between send and verify.
type OTPEntry struct {
	PhoneNumber string `json:"phone_number"`
	CodeHash    string `json:"code_hash"`
}

type OTPStore struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewOTPStore(client *redisv9.Client, ttl time.Duration) *OTPStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTPStore{client: client, ttl: ttl}
}

func (s *OTPStore) TTL() time.Duration {
	return s.ttl
}

func (s *OTPStore) Save(ctx context.Context, sessionKey string, entry OTPEntry) error {
	if s.client == nil {
		return ErrOTPUnavailable
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal otp entry failed: %w", err)
	}
	if err := s.client.Set(ctx, otpKey(sessionKey), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set otp failed: %w", err)
	}
	return nil
}

// Load returns (nil, nil) when the entry is missing or expired.
func (s *OTPStore) Load(ctx context.Context, sessionKey string) (*OTPEntry, error) {
	if s.client == nil {
		return nil, ErrOTPUnavailable
	}
	raw, err := s.client.Get(ctx, otpKey(sessionKey)).Bytes()
	if err == redisv9.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get otp failed: %w", err)
	}
	var entry OTPEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal otp entry failed: %w", err)
	}
	return &entry, nil
}

func (s *OTPStore) Delete(ctx context.Context, sessionKey string) error {
	if s.client == nil {
		return ErrOTPUnavailable
	}
	if err := s.client.Del(ctx, otpKey(sessionKey)).Err(); err != nil {
		return fmt.Errorf("redis delete otp failed: %w", err)
	}
	return nil
}

func otpKey(sessionKey string) string {
	return "otp:" + sessionKey
}
