package auth

import (
	"context"
	"errors"
	"time"

	"github.com/surgeonmatch/gateway/internal/observability"
)

// Principal identifies the owner of a validated API key.
type Principal struct {
	OwnerID string
	Tier    string
}

// Authenticator validates presented API keys against the key store.
// It is stateless; all mutation lives in the store.
type Authenticator struct {
	store   Store
	hasher  Hasher
	logger  observability.Logger
	metrics *Metrics
}

// AuthenticatorOption is a functional option for the authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLogger sets the logger for the authenticator.
func WithLogger(logger observability.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics for the authenticator.
func WithMetrics(metrics *Metrics) AuthenticatorOption {
	return func(a *Authenticator) {
		a.metrics = metrics
	}
}

// NewAuthenticator creates an authenticator over the given store.
func NewAuthenticator(store Store, hasher Hasher, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		store:  store,
		hasher: hasher,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = GetMetrics()
	}
	return a
}

// Authenticate validates a presented raw key and returns its
// principal. All failures surface as ErrUnauthenticated; the store's
// reason is logged but never exposed to the caller.
func (a *Authenticator) Authenticate(ctx context.Context, presentedKey string) (*Principal, error) {
	start := time.Now()

	if presentedKey == "" {
		a.metrics.RecordValidation("error", "empty_key", time.Since(start))
		return nil, ErrUnauthenticated
	}

	record, err := a.resolve(ctx, presentedKey)
	if err != nil {
		reason := "store_error"
		if errors.Is(err, ErrKeyNotFound) {
			reason = "not_found"
		} else {
			a.logger.Error("key store lookup failed", observability.Error(err))
		}
		a.metrics.RecordValidation("error", reason, time.Since(start))
		return nil, ErrUnauthenticated
	}

	if !record.Active {
		a.metrics.RecordValidation("error", "revoked", time.Since(start))
		a.logger.Info("revoked API key presented",
			observability.String("owner", record.OwnerID),
		)
		return nil, ErrUnauthenticated
	}

	a.metrics.RecordValidation("success", "valid", time.Since(start))
	a.logger.Debug("API key validated",
		observability.String("owner", record.OwnerID),
		observability.String("tier", record.Tier),
	)

	return &Principal{OwnerID: record.OwnerID, Tier: record.Tier}, nil
}

// resolve finds the record matching the presented key. Deterministic
// hashers look up by computed hash; salted hashers scan and verify.
func (a *Authenticator) resolve(ctx context.Context, presentedKey string) (*KeyRecord, error) {
	if a.hasher.Deterministic() {
		keyHash, err := a.hasher.Hash(presentedKey)
		if err != nil {
			return nil, err
		}
		return a.store.Lookup(ctx, keyHash)
	}

	records, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if a.hasher.Verify(presentedKey, record.KeyHash) {
			return record, nil
		}
	}
	return nil, ErrKeyNotFound
}
