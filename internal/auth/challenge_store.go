// Package auth implements the challenge/response authentication machinery:
// the per-IP challenge store, the auth service, and the request
// interceptor.
//
// The priority queue shape favors a single coarse mutex around low-rate
// operations, each a map lookup plus O(log n) heap work per touched entry,
// in the same spirit as
// validator/rpc/auth.go's straight-line bcrypt/jwt handling, which never
// reaches for finer-grained locking than it needs.
package auth

import (
	"container/heap"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MaxChallenges is the store's fixed capacity; once reached, new IPs are
// rejected until existing challenges expire or are consumed.
const MaxChallenges = 100_000

// Challenge is one active authentication challenge bound to a single IP.
type Challenge struct {
	Token         string
	BoundPubkey   [32]byte
	BoundIP       string
	AccessClaims  TokenClaims
	RefreshClaims TokenClaims
	ExpiresAt     time.Time
}

type challengeItem struct {
	challenge Challenge
	index     int
}

// challengeHeap orders items by soonest expiry first (a min-heap on
// ExpiresAt), equivalent to the spec's Reverse(expires_at) priority.
type challengeHeap []*challengeItem

func (h challengeHeap) Len() int { return len(h) }
func (h challengeHeap) Less(i, j int) bool {
	return h[i].challenge.ExpiresAt.Before(h[j].challenge.ExpiresAt)
}
func (h challengeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *challengeHeap) Push(x interface{}) {
	item := x.(*challengeItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *challengeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// ErrStoreFull is returned by Insert when the store is at capacity.
var ErrStoreFull = errors.New("auth: challenge store is full")

// ChallengeStore is a per-IP bounded store of active challenges with
// priority-ordered expiry, exactly one active challenge per IP.
type ChallengeStore struct {
	mu    sync.Mutex
	byIP  map[string]*challengeItem
	queue challengeHeap
}

// NewChallengeStore creates an empty store.
func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		byIP:  make(map[string]*challengeItem),
		queue: make(challengeHeap, 0),
	}
}

// Len reports the number of active challenges.
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byIP)
}

// Insert replaces any existing challenge for ip with c. Returns
// ErrStoreFull if the store is at capacity and ip has no existing entry.
func (s *ChallengeStore) Insert(ip string, c Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byIP[ip]; ok {
		existing.challenge = c
		heap.Fix(&s.queue, existing.index)
		return nil
	}
	if len(s.byIP) >= MaxChallenges {
		return ErrStoreFull
	}
	item := &challengeItem{challenge: c}
	heap.Push(&s.queue, item)
	s.byIP[ip] = item
	return nil
}

// Get returns the active, non-expired challenge for ip, if any.
func (s *ChallengeStore) Get(ip string, now time.Time) (Challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.byIP[ip]
	if !ok || item.challenge.ExpiresAt.Before(now) {
		return Challenge{}, false
	}
	return item.challenge, true
}

// Remove deletes the challenge for ip, if any.
func (s *ChallengeStore) Remove(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(ip)
}

func (s *ChallengeStore) removeLocked(ip string) {
	item, ok := s.byIP[ip]
	if !ok {
		return
	}
	heap.Remove(&s.queue, item.index)
	delete(s.byIP, ip)
}

// PurgeExpired pops every challenge whose expiry is at or before now,
// starting from the soonest-to-expire head of the queue.
func (s *ChallengeStore) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for s.queue.Len() > 0 {
		head := s.queue[0]
		if head.challenge.ExpiresAt.After(now) {
			break
		}
		ip := head.challenge.BoundIP
		heap.Pop(&s.queue)
		delete(s.byIP, ip)
		purged++
	}
	return purged
}
