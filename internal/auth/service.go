// Service implements challenge issuance, verification, token minting and
// refresh, all gated on health. The per-IP throttle before issuance is
// grounded on beacon-chain/sync/initial-sync/blocks_fetcher.go's
// leakybucket-go rate limiter.
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"time"

	leakybucket "github.com/kevinms/leakybucket-go"
	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/base58"
	"github.com/blockrelay/relayer/internal/metrics"
)

var log = logrus.WithField("prefix", "auth")

const (
	challengeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	challengeLength   = 9

	// issueRatePerSecond and issueBurst bound how often a single IP may
	// issue challenges; deployments behind a load balancer collapse every
	// caller onto the balancer's IP, a known limitation of IP-keyed
	// rate limiting worth calling out for operators.
	issueRatePerSecond = 1
	issueBurst         = 5
)

// Role gates which callers may request a challenge.
type Role int

// RoleValidator is the only role accepted by Issue.
const RoleValidator Role = 1

// HealthChecker reports the health flag the auth service is gated on.
type HealthChecker interface {
	Healthy() bool
}

// AuthorizationPolicy decides whether a claimed pubkey may request a
// challenge: either "is in the leader schedule" or "is in a fixed allowlist".
type AuthorizationPolicy interface {
	Authorized(pubkey [32]byte) bool
}

// Config bundles the Service's dependencies and TTLs.
type Config struct {
	Store        *ChallengeStore
	Signer       *TokenSigner
	Health       HealthChecker
	Policy       AuthorizationPolicy
	ChallengeTTL time.Duration
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// Service is the auth RPC's business logic.
type Service struct {
	store        *ChallengeStore
	signer       *TokenSigner
	health       HealthChecker
	policy       AuthorizationPolicy
	challengeTTL time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
	limiter      *leakybucket.Collector
}

// NewService builds a Service from cfg.
func NewService(cfg Config) *Service {
	return &Service{
		store:        cfg.Store,
		signer:       cfg.Signer,
		health:       cfg.Health,
		policy:       cfg.Policy,
		challengeTTL: cfg.ChallengeTTL,
		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
		limiter:      leakybucket.NewCollector(issueRatePerSecond, issueBurst, false),
	}
}

// IssueChallenge rate-limits and authorizes a caller, then mints and stores
// a fresh challenge string bound to their IP and claimed pubkey.
func (s *Service) IssueChallenge(ip string, pubkey []byte, role Role) (string, error) {
	if !s.health.Healthy() {
		return "", newError(KindInternal, "auth: service unhealthy")
	}
	if s.store.Len() >= MaxChallenges {
		metrics.ChallengesIssued.WithLabelValues("exhausted").Inc()
		return "", newError(KindResourceExhausted, "auth: challenge store is full")
	}

	now := time.Now()
	if existing, ok := s.store.Get(ip, now); ok {
		metrics.ChallengesIssued.WithLabelValues("idempotent").Inc()
		return existing.Token, nil
	}

	if role != RoleValidator {
		metrics.ChallengesIssued.WithLabelValues("bad_role").Inc()
		return "", newError(KindInvalidArgument, "auth: role must be Validator")
	}
	if len(pubkey) != 32 {
		metrics.ChallengesIssued.WithLabelValues("bad_pubkey").Inc()
		return "", newError(KindInvalidArgument, "auth: pubkey must be 32 bytes")
	}

	var boundPubkey [32]byte
	copy(boundPubkey[:], pubkey)
	if !s.policy.Authorized(boundPubkey) {
		metrics.ChallengesIssued.WithLabelValues("unauthorized").Inc()
		return "", newError(KindPermissionDenied, "auth: pubkey not authorized")
	}

	if s.limiter.Remaining(ip) <= 0 {
		metrics.ChallengesIssued.WithLabelValues("rate_limited").Inc()
		return "", newError(KindResourceExhausted, "auth: too many challenge requests from this IP")
	}
	s.limiter.Add(ip, 1)

	token, err := randomChallenge()
	if err != nil {
		return "", newError(KindInternal, "auth: could not generate challenge")
	}

	expiresAt := now.Add(s.challengeTTL)
	c := Challenge{
		Token:       token,
		BoundPubkey: boundPubkey,
		BoundIP:     ip,
		AccessClaims: TokenClaims{
			ClientIP:     ip,
			ClientPubkey: base58.Encode(pubkey),
			ExpiresAt:    now.Add(s.accessTTL).Unix(),
		},
		RefreshClaims: TokenClaims{
			ClientIP:     ip,
			ClientPubkey: base58.Encode(pubkey),
			ExpiresAt:    now.Add(s.refreshTTL).Unix(),
		},
		ExpiresAt: expiresAt,
	}
	if err := s.store.Insert(ip, c); err != nil {
		return "", newError(KindResourceExhausted, err.Error())
	}
	metrics.ChallengesIssued.WithLabelValues("issued").Inc()
	return token, nil
}

// Tokens is the pair minted by GenerateTokens/RefreshAccessToken.
type Tokens struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// GenerateTokens verifies the signed challenge response and mints a fresh
// access/refresh token pair. expectedChallengeString is the caller's claimed "{pubkey_base58}-{challenge}"
// string; signed is its Ed25519 signature by the claimed pubkey.
func (s *Service) GenerateTokens(ip string, pubkey []byte, expectedChallengeString string, signed []byte) (*Tokens, error) {
	if !s.health.Healthy() {
		return nil, newError(KindInternal, "auth: service unhealthy")
	}

	now := time.Now()
	c, ok := s.store.Get(ip, now)
	if !ok {
		return nil, newError(KindPermissionDenied, "auth: no active challenge for this IP")
	}

	var claimedPubkey [32]byte
	if len(pubkey) == 32 {
		copy(claimedPubkey[:], pubkey)
	}
	if claimedPubkey != c.BoundPubkey {
		return nil, newError(KindPermissionDenied, "auth: pubkey does not match the bound challenge")
	}

	wantChallengeString := base58.Encode(c.BoundPubkey[:]) + "-" + c.Token
	if expectedChallengeString != wantChallengeString {
		return nil, newError(KindPermissionDenied, "auth: challenge string mismatch")
	}

	if len(signed) != 64 {
		return nil, newError(KindInvalidArgument, "auth: signature must be 64 bytes")
	}
	if !ed25519.Verify(ed25519.PublicKey(c.BoundPubkey[:]), []byte(wantChallengeString), signed) {
		return nil, newError(KindPermissionDenied, "auth: signature does not verify")
	}

	access, err := s.signer.Mint(c.AccessClaims)
	if err != nil {
		return nil, newError(KindInternal, "auth: could not mint access token")
	}
	refresh, err := s.signer.Mint(c.RefreshClaims)
	if err != nil {
		return nil, newError(KindInternal, "auth: could not mint refresh token")
	}

	s.store.Remove(ip)
	metrics.TokensMinted.WithLabelValues("generate").Inc()

	return &Tokens{
		AccessToken:           access,
		AccessTokenExpiresAt:  c.AccessClaims.ExpiresAtTime(),
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: c.RefreshClaims.ExpiresAtTime(),
	}, nil
}

// RefreshAccessToken verifies a refresh token and mints a fresh access token.
func (s *Service) RefreshAccessToken(refreshToken string) (string, time.Time, error) {
	if !s.health.Healthy() {
		return "", time.Time{}, newError(KindInternal, "auth: service unhealthy")
	}

	claims, err := s.signer.Verify(refreshToken)
	if err != nil {
		return "", time.Time{}, newError(KindPermissionDenied, "auth: refresh token does not verify")
	}

	fresh := TokenClaims{
		ClientIP:     claims.ClientIP,
		ClientPubkey: claims.ClientPubkey,
		ExpiresAt:    time.Now().Add(s.accessTTL).Unix(),
	}
	access, err := s.signer.Mint(fresh)
	if err != nil {
		return "", time.Time{}, newError(KindInternal, "auth: could not mint access token")
	}
	metrics.TokensMinted.WithLabelValues("refresh").Inc()
	return access, fresh.ExpiresAtTime(), nil
}

// Sweep removes expired challenges; intended to be called on a timer from a
// background goroutine.
func (s *Service) Sweep() int {
	purged := s.store.PurgeExpired(time.Now())
	if purged > 0 {
		log.WithField("purged", purged).Debug("swept expired challenges")
	}
	return purged
}

func randomChallenge() (string, error) {
	buf := make([]byte, challengeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, challengeLength)
	for i, b := range buf {
		out[i] = challengeAlphabet[int(b)%len(challengeAlphabet)]
	}
	return string(out), nil
}
