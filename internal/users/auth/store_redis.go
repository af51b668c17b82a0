// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/bizaek/internal/platform/constants"
)

// # OTP Ledger

// Hash fields of an OTP record.
const (
	otpFieldEmail        = "email"
	otpFieldCode         = "code"
	otpFieldExpiresAt    = "expires_at"
	otpFieldReason       = "reason"
	otpFieldName         = "name"
	otpFieldPasswordHash = "password_hash"
	otpFieldAttempts     = "attempts"
	otpFieldMaxAttempts  = "max_attempts"
)

// consumeScript matches the code and the expiry and deletes the record in one
// server-side step, so two concurrent verifications cannot both succeed.
// A wrong code bumps the attempt counter and the record is deleted once the
// counter reaches max_attempts.
//
// KEYS[1] record key, ARGV[1] presented code, ARGV[2] now in unix ms.
// Returns the flattened hash on success and nil otherwise.
var consumeScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
	return false
end
local expiresAt = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if not expiresAt or expiresAt <= tonumber(ARGV[2]) then
	return false
end
if code ~= ARGV[1] then
	local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
	local budget = tonumber(redis.call('HGET', KEYS[1], 'max_attempts'))
	if not budget or attempts >= budget then
		redis.call('DEL', KEYS[1])
	end
	return false
end
local fields = redis.call('HGETALL', KEYS[1])
redis.call('DEL', KEYS[1])
return fields
`)

// RedisOTPLedger implements [OTPLedger] with one Redis hash per (reason, email).
type RedisOTPLedger struct {
	client redis.UniversalClient
}

// NewOTPLedger creates a new Redis-backed OTPLedger.
func NewOTPLedger(client redis.UniversalClient) *RedisOTPLedger {
	return &RedisOTPLedger{client: client}
}

func otpKey(reason OTPReason, email string) string {
	return constants.RedisPrefixOTP + string(reason) + ":" + email
}

/*
Issue replaces any pending record for the same (reason, email).

Description: DEL, HSET and PEXPIREAT run in one MULTI so a reader never sees
a half-written record. Concurrent issues for the same pair are last-writer-wins.
A fresh record starts with a zero attempt counter.

Parameters:
  - ctx: context.Context
  - record: *OTPRecord

Returns:
  - error: Execution errors
*/
func (ledger *RedisOTPLedger) Issue(ctx context.Context, record *OTPRecord) error {
	key := otpKey(record.Reason, record.Email)

	maxAttempts := record.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultOTPMaxAttempts
	}

	fields := map[string]any{
		otpFieldEmail:       record.Email,
		otpFieldCode:        record.Code,
		otpFieldExpiresAt:   record.ExpiresAt.UnixMilli(),
		otpFieldReason:      string(record.Reason),
		otpFieldAttempts:    0,
		otpFieldMaxAttempts: maxAttempts,
	}
	if record.Reason == OTPReasonRegister {
		fields[otpFieldName] = record.Name
		fields[otpFieldPasswordHash] = record.PasswordHash
	}

	_, err := ledger.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.PExpireAt(ctx, key, record.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_otp_ledger_issue_failed: %w", err)
	}

	return nil
}

/*
Consume atomically matches and deletes a pending record.

Parameters:
  - ctx: context.Context
  - reason: OTPReason
  - email: string
  - code: string
  - now: time.Time

Returns:
  - *OTPRecord: the consumed record
  - error: ErrInvalidOTP (wrong, expired, exhausted or missing) or connectivity errors
*/
func (ledger *RedisOTPLedger) Consume(ctx context.Context, reason OTPReason, email, code string, now time.Time) (*OTPRecord, error) {
	key := otpKey(reason, email)

	flat, err := consumeScript.Run(ctx, ledger.client, []string{key}, code, now.UnixMilli()).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("redis_otp_ledger_consume_failed: %w", err)
	}

	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		fields[flat[i]] = flat[i+1]
	}

	expiresAt, err := strconv.ParseInt(fields[otpFieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis_otp_ledger_consume_failed: bad expires_at: %w", err)
	}

	maxAttempts, _ := strconv.Atoi(fields[otpFieldMaxAttempts])

	return &OTPRecord{
		Email:        fields[otpFieldEmail],
		Code:         fields[otpFieldCode],
		ExpiresAt:    time.UnixMilli(expiresAt),
		Reason:       OTPReason(fields[otpFieldReason]),
		Name:         fields[otpFieldName],
		PasswordHash: fields[otpFieldPasswordHash],
		MaxAttempts:  maxAttempts,
	}, nil
}

// # OAuth State Store

// RedisStateStore implements [StateStore] with plain string keys.
type RedisStateStore struct {
	client redis.UniversalClient
}

// NewStateStore creates a new Redis-backed StateStore.
func NewStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client}
}

/*
Save stores the state as JSON with a TTL.

Parameters:
  - ctx: context.Context
  - state: string
  - value: OAuthState
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (store *RedisStateStore) Save(ctx context.Context, state string, value OAuthState, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis_oauth_state_marshal_failed: %w", err)
	}

	if err := store.client.Set(ctx, constants.RedisPrefixOAuthState+state, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_oauth_state_save_failed: %w", err)
	}

	return nil
}

/*
Consume reads and deletes the state with GETDEL.

Parameters:
  - ctx: context.Context
  - state: string

Returns:
  - *OAuthState: the stored value
  - error: ErrInvalidState or connectivity errors
*/
func (store *RedisStateStore) Consume(ctx context.Context, state string) (*OAuthState, error) {
	if state == "" {
		return nil, ErrInvalidState
	}

	payload, err := store.client.GetDel(ctx, constants.RedisPrefixOAuthState+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("redis_oauth_state_consume_failed: %w", err)
	}

	value := &OAuthState{}
	if err := json.Unmarshal(payload, value); err != nil {
		return nil, fmt.Errorf("redis_oauth_state_unmarshal_failed: %w", err)
	}

	return value, nil
}
