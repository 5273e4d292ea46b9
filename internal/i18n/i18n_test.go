package i18n

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPluralize(t *testing.T) {
	tests := []struct {
		template string
		count    int
		want     string
	}{
		{"{count} Booking|{count} Bookings Found", 1, "1 Booking"},
		{"{count} Booking|{count} Bookings Found", 3, "3 Bookings Found"},
		{"{count} Booking|{count} Bookings Found", 0, "0 Bookings Found"},
		{"{count} Document Attached|{count} Documents Attached", 2, "2 Documents Attached"},
		{"No separator {count}", 5, "No separator {count}"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Pluralize(tt.template, tt.count))
		})
	}
}

func TestCatalog(t *testing.T) {
	c, err := Load(zap.NewNop())
	require.NoError(t, err)

	t.Run("nested keys", func(t *testing.T) {
		assert.Equal(t, "Phone Number *", c.T(English, "booking.form.phoneNumberLabel"))
		assert.Equal(t, "In Progress", c.T(English, "track.statuses.inProgress"))
		assert.NotEqual(t, c.T(English, "nav.home"), c.T(French, "nav.home"))
	})

	t.Run("missing key returns the key", func(t *testing.T) {
		assert.Equal(t, "booking.form.nope", c.T(English, "booking.form.nope"))
		assert.Equal(t, []string{"x.y"}, c.List(French, "x.y"))
	})

	t.Run("list values", func(t *testing.T) {
		steps := c.List(English, "booking.infoBox.steps")
		assert.Len(t, steps, 4)
		assert.Len(t, c.List(French, "contact.info.hours.value"), 3)
		assert.Equal(t, []string{"Home"}, c.List(English, "nav.home"))
	})

	t.Run("plural", func(t *testing.T) {
		assert.Equal(t, "1 Booking", c.Plural(English, "track.bookingsFound", 1))
	})

	t.Run("unknown language uses default", func(t *testing.T) {
		assert.Equal(t, "Home", c.T(Language("de"), "nav.home"))
	})
}

func TestParseLanguage(t *testing.T) {
	lang, ok := ParseLanguage(" FR ")
	assert.True(t, ok)
	assert.Equal(t, French, lang)

	_, ok = ParseLanguage("rw")
	assert.False(t, ok)
}

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func (m *memSettings) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], m.err
}

func (m *memSettings) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func TestPreference(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to english", func(t *testing.T) {
		p, err := LoadPreference(ctx, &memSettings{values: map[string]string{}}, nil)
		require.NoError(t, err)
		assert.Equal(t, English, p.Get())
	})

	t.Run("unknown stored value ignored", func(t *testing.T) {
		p, err := LoadPreference(ctx, &memSettings{values: map[string]string{SettingKey: "xx"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, English, p.Get())
	})

	t.Run("set persists", func(t *testing.T) {
		store := &memSettings{values: map[string]string{SettingKey: "en"}}
		p, err := LoadPreference(ctx, store, nil)
		require.NoError(t, err)

		require.NoError(t, p.Set(ctx, French))
		assert.Equal(t, French, p.Get())
		assert.Equal(t, "fr", store.values[SettingKey])

		reloaded, err := LoadPreference(ctx, store, nil)
		require.NoError(t, err)
		assert.Equal(t, French, reloaded.Get())
	})

	t.Run("rejects unsupported", func(t *testing.T) {
		p, _ := LoadPreference(ctx, &memSettings{values: map[string]string{}}, nil)
		assert.Error(t, p.Set(ctx, Language("de")))
		assert.Equal(t, English, p.Get())
	})

	t.Run("store failure keeps previous value", func(t *testing.T) {
		store := &memSettings{values: map[string]string{}}
		p, _ := LoadPreference(ctx, store, nil)
		store.err = errors.New("disk full")
		assert.Error(t, p.Set(ctx, French))
		assert.Equal(t, English, p.Get())
	})
}
