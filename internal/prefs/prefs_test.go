package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}

func (failingStore) Delete(context.Context, string) error { return errors.New("down") }

func TestService_DefaultsAndToggles(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), 0)

	p, err := svc.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Preferences{Theme: Dark, Language: English}, p)
	assert.Equal(t, "ltr", p.Dir())

	p, err = svc.ToggleTheme(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Light, p.Theme)

	p, err = svc.ToggleLanguage(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Farsi, p.Language)
	assert.Equal(t, "rtl", p.Dir())

	p, err = svc.MarkOnboarded(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, p.HasOnboarded)

	reloaded, err := svc.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Preferences{Theme: Light, Language: Farsi, HasOnboarded: true}, reloaded)

	other, err := svc.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, Default(), other)
}

func TestService_StoredShape(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, 0)
	require.NoError(t, svc.Save(ctx, "abc", Preferences{Theme: Light, Language: English, HasOnboarded: true}))

	raw, ok, err := store.Get(ctx, "tradeflow_state:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"theme":"light","language":"en","hasOnboarded":true}`, string(raw))
}

func TestService_RejectsAndRecovers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, 0)

	err := svc.Save(ctx, "s", Preferences{Theme: "neon", Language: English})
	assert.ErrorIs(t, err, ErrInvalidPreference)
	err = svc.Save(ctx, "s", Preferences{Theme: Dark, Language: "de"})
	assert.ErrorIs(t, err, ErrInvalidPreference)

	require.NoError(t, store.Set(ctx, Key("s"), []byte("{not json"), 0))
	p, err := svc.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)

	_, err = NewService(failingStore{}, 0).Load(ctx, "s")
	assert.Error(t, err)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	now = now.Add(2 * time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStore_ExpiryKeepsConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, "k", []byte("old"), time.Minute))

	// The clock is read between the lookup and the expiry delete; a Set
	// slipped in there must not be removed.
	now = now.Add(2 * time.Minute)
	refreshed := false
	s.now = func() time.Time {
		if !refreshed {
			refreshed = true
			s.now = func() time.Time { return now }
			require.NoError(t, s.Set(ctx, "k", []byte("new"), time.Minute))
		}
		return now
	}

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", string(v))
}
