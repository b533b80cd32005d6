package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/MonkyMars/gecho"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/port"
)

const DefaultCodeAttempts = 10

// alphabetLimit is the largest multiple of len(CodeAlphabet) that fits a byte;
// bytes at or above it are redrawn so every character is equally likely.
var alphabetLimit = byte(256 - 256%len(domain.CodeAlphabet))

// CodeGenerator draws order codes that no open order holds.
type CodeGenerator struct {
	orders      port.OrderRepository
	cache       port.CacheRepository
	logger      *gecho.Logger
	maxAttempts int
	draw        func() (string, error)
}

func NewCodeGenerator(orders port.OrderRepository, cache port.CacheRepository, logger *gecho.Logger, maxAttempts int) *CodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &CodeGenerator{
		orders:      orders,
		cache:       cache,
		logger:      logger,
		maxAttempts: maxAttempts,
		draw:        RandomCode,
	}
}

func (g *CodeGenerator) MaxAttempts() int {
	return g.maxAttempts
}

// Claim makes a single draw and reserves it for orderID.
// ok is false when the draw collided with an open order.
func (g *CodeGenerator) Claim(ctx context.Context, orderID string) (code string, ok bool, err error) {
	code, err = g.draw()
	if err != nil {
		return "", false, fmt.Errorf("draw code: %w", err)
	}

	inUse, err := g.orders.CodeInUse(ctx, code)
	if err != nil {
		return "", false, fmt.Errorf("check code: %w", err)
	}
	if inUse {
		return code, false, nil
	}

	reserved, err := g.cache.ReserveCode(ctx, code, orderID)
	if err != nil {
		return "", false, fmt.Errorf("reserve code: %w", err)
	}
	return code, reserved, nil
}

// Generate claims a code for orderID and hands it to insert, within the
// attempt budget. An insert failing with domain.ErrCodeTaken releases the
// code and costs one attempt; any other insert error is returned as is.
func (g *CodeGenerator) Generate(ctx context.Context, orderID string, insert func(code string) error) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, ok, err := g.Claim(ctx, orderID)
		if err != nil {
			return "", err
		}
		if !ok {
			g.logger.Warn("Order code collision", gecho.Field("code", code), gecho.Field("attempt", attempt))
			continue
		}

		err = insert(code)
		if err == nil {
			return code, nil
		}
		g.Release(context.WithoutCancel(ctx), code, orderID)
		if !errors.Is(err, domain.ErrCodeTaken) {
			return "", err
		}
		g.logger.Warn("Order code taken on insert", gecho.Field("code", code), gecho.Field("attempt", attempt))
	}
	return "", domain.ErrExhaustedCodeSpace
}

// Release frees a reservation made for orderID. Errors are logged only;
// a stale reservation expires on its own.
func (g *CodeGenerator) Release(ctx context.Context, code, orderID string) {
	if err := g.cache.ReleaseCode(ctx, code, orderID); err != nil {
		g.logger.Warn("Failed to release order code", gecho.Field("code", code), gecho.Field("error", err))
	}
}

// RandomCode returns CodeLength characters drawn uniformly from CodeAlphabet.
func RandomCode() (string, error) {
	out := make([]byte, 0, domain.CodeLength)
	buf := make([]byte, domain.CodeLength*2)
	for len(out) < domain.CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= alphabetLimit {
				continue
			}
			out = append(out, domain.CodeAlphabet[int(b)%len(domain.CodeAlphabet)])
			if len(out) == domain.CodeLength {
				break
			}
		}
	}
	return string(out), nil
}
