package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Code prefixes for the human readable identifiers.
const (
	ReservationCodePrefix = "RES"
	TicketCodePrefix      = "TKT"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength      = 8
	maxCodeAttempts = 10
)

// ErrCodeAllocationExhausted is returned when every candidate code drawn
// by AllocateUniqueCode already exists.
var ErrCodeAllocationExhausted = errors.New("unique code allocation exhausted")

// GenerateCode returns prefix + "-" + 8 characters drawn uniformly from
// [A-Z0-9] using crypto/rand.
func GenerateCode(prefix string) (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return prefix + "-" + string(buf), nil
}

// AllocateUniqueCode draws codes until exists reports one as unused.  It
// gives up after 10 attempts; the last candidate is never returned when it
// collided.  Errors from exists abort the allocation.
func AllocateUniqueCode(ctx context.Context, prefix string, exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := GenerateCode(prefix)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: prefix %s after %d attempts", ErrCodeAllocationExhausted, prefix, maxCodeAttempts)
}
