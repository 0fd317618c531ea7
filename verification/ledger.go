// Package verification stores single-use verification records in Redis,
// keyed by the digest of the secret the client holds. The raw secret never
// touches Redis; possession of the secret plus a matching purpose is the
// whole claim.
package verification

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const recordVersionV1 = 1

// Purpose scopes a record to exactly one workflow. A token minted for one
// purpose can never redeem under another because the purpose is part of the
// Redis key.
type Purpose byte

const (
	PurposeEmailVerify   Purpose = 1
	PurposePasswordReset Purpose = 2
)

func (p Purpose) String() string {
	switch p {
	case PurposeEmailVerify:
		return "email_verify"
	case PurposePasswordReset:
		return "password_reset"
	default:
		return fmt.Sprintf("purpose(%d)", byte(p))
	}
}

var (
	// ErrInvalidOrExpired covers every record-side failure: absent, expired,
	// purpose mismatch, malformed. Callers get one indistinguishable answer.
	ErrInvalidOrExpired = errors.New("verification: record invalid or expired")
	// ErrUnavailable marks a Redis transport failure, distinct from a bad
	// token so callers can log it as an internal fault.
	ErrUnavailable = errors.New("verification: store unavailable")
)

// Record is what redemption yields: the subject the secret was minted for.
type Record struct {
	UserID    string
	Purpose   Purpose
	ExpiresAt int64
}

// Ledger is a purpose-scoped single-use record store over Redis. Redemption
// is atomic (GETDEL), so two racing redemptions of the same secret resolve
// to exactly one winner.
type Ledger struct {
	redis  redis.UniversalClient
	prefix string
}

func NewLedger(redisClient redis.UniversalClient, prefix string) *Ledger {
	if prefix == "" {
		prefix = "shopauth:verif"
	}
	return &Ledger{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (l *Ledger) key(purpose Purpose, digest string) string {
	return l.prefix + ":" + purpose.String() + ":" + digest
}

// Create stores a record under the secret's digest. The Redis TTL is the
// eviction mechanism; ExpiresAt inside the record is the authoritative
// expiry checked at redemption.
func (l *Ledger) Create(ctx context.Context, purpose Purpose, digest, userID string, ttl time.Duration) error {
	record := &Record{
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}
	if err := l.redis.Set(ctx, l.key(purpose, digest), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Redeem consumes the record for (purpose, digest). The GETDEL makes the
// read and the delete one operation, so a secret redeems at most once.
func (l *Ledger) Redeem(ctx context.Context, purpose Purpose, digest string) (*Record, error) {
	data, err := l.redis.GetDel(ctx, l.key(purpose, digest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return l.validate(data, purpose)
}

// Peek reads the record without consuming it, for flows that confirm a
// secret before the caller commits to spending it.
func (l *Ledger) Peek(ctx context.Context, purpose Purpose, digest string) (*Record, error) {
	data, err := l.redis.Get(ctx, l.key(purpose, digest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return l.validate(data, purpose)
}

// Revoke discards any record for (purpose, digest). Missing records are not
// an error.
func (l *Ledger) Revoke(ctx context.Context, purpose Purpose, digest string) error {
	if err := l.redis.Del(ctx, l.key(purpose, digest)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *Ledger) validate(data []byte, purpose Purpose) (*Record, error) {
	record, err := decodeRecord(data)
	if err != nil {
		return nil, ErrInvalidOrExpired
	}
	if record.Purpose != purpose {
		return nil, ErrInvalidOrExpired
	}
	if time.Now().Unix() > record.ExpiresAt {
		return nil, ErrInvalidOrExpired
	}
	return record, nil
}

func encodeRecord(record *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)
	buf.WriteByte(byte(record.Purpose))

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.UserID) > 65535 {
		return nil, errors.New("verification: user id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersionV1 {
		return nil, errors.New("verification: unknown record version")
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &Record{Purpose: Purpose(purpose)}

	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userIDLen); err != nil {
		return nil, err
	}

	userID := make([]byte, userIDLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	record.UserID = string(userID)

	return record, nil
}
