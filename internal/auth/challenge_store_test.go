package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChallengeStore_InsertAndGet(t *testing.T) {
	s := NewChallengeStore()
	c := Challenge{Token: "tok1", BoundIP: "1.2.3.4", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, s.Insert("1.2.3.4", c))

	got, ok := s.Get("1.2.3.4", time.Now())
	require.True(t, ok)
	require.Equal(t, "tok1", got.Token)
	require.Equal(t, 1, s.Len())
}

func TestChallengeStore_GetExpired(t *testing.T) {
	s := NewChallengeStore()
	c := Challenge{Token: "tok1", BoundIP: "1.2.3.4", ExpiresAt: time.Now().Add(-time.Second)}
	require.NoError(t, s.Insert("1.2.3.4", c))

	_, ok := s.Get("1.2.3.4", time.Now())
	require.False(t, ok)
}

func TestChallengeStore_InsertReplacesExisting(t *testing.T) {
	s := NewChallengeStore()
	require.NoError(t, s.Insert("1.2.3.4", Challenge{Token: "first", BoundIP: "1.2.3.4", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, s.Insert("1.2.3.4", Challenge{Token: "second", BoundIP: "1.2.3.4", ExpiresAt: time.Now().Add(time.Minute)}))

	require.Equal(t, 1, s.Len())
	got, ok := s.Get("1.2.3.4", time.Now())
	require.True(t, ok)
	require.Equal(t, "second", got.Token)
}

func TestChallengeStore_RemoveDeletes(t *testing.T) {
	s := NewChallengeStore()
	require.NoError(t, s.Insert("1.2.3.4", Challenge{Token: "tok", BoundIP: "1.2.3.4", ExpiresAt: time.Now().Add(time.Minute)}))
	s.Remove("1.2.3.4")
	_, ok := s.Get("1.2.3.4", time.Now())
	require.False(t, ok)
	require.Equal(t, 0, s.Len())
}

func TestChallengeStore_PurgeExpiredRemovesOnlyExpired(t *testing.T) {
	s := NewChallengeStore()
	now := time.Now()
	require.NoError(t, s.Insert("a", Challenge{Token: "a", BoundIP: "a", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, s.Insert("b", Challenge{Token: "b", BoundIP: "b", ExpiresAt: now.Add(time.Hour)}))

	purged := s.PurgeExpired(now)
	require.Equal(t, 1, purged)
	require.Equal(t, 1, s.Len())
	_, ok := s.Get("b", now)
	require.True(t, ok)
}

func TestChallengeStore_FullRejectsNewIPs(t *testing.T) {
	s := NewChallengeStore()
	for i := 0; i < MaxChallenges; i++ {
		ip := strconv.Itoa(i)
		require.NoError(t, s.Insert(ip, Challenge{Token: "t", BoundIP: ip, ExpiresAt: time.Now().Add(time.Minute)}))
	}
	err := s.Insert("overflow", Challenge{Token: "t", BoundIP: "overflow", ExpiresAt: time.Now().Add(time.Minute)})
	require.ErrorIs(t, err, ErrStoreFull)
}
