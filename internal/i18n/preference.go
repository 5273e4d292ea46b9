package i18n

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"psnrwanda/internal/logger"
	"psnrwanda/internal/repository"
)

// SettingKey is the settings-store key holding the language preference
const SettingKey = "language"

// Preference is the site default language, used for visitors who have not
// picked one. It is written through to the settings store on change.
type Preference struct {
	mu     sync.RWMutex
	lang   Language
	store  repository.SettingsRepository
	logger *zap.Logger
}

// LoadPreference reads the stored language; missing or unknown values fall
// back to the default language
func LoadPreference(ctx context.Context, store repository.SettingsRepository, log *zap.Logger) (*Preference, error) {
	p := &Preference{
		lang:   DefaultLanguage,
		store:  store,
		logger: logger.OrNop(log),
	}

	stored, err := store.Get(ctx, SettingKey)
	if err != nil {
		return nil, fmt.Errorf("load language preference: %w", err)
	}
	if lang, ok := ParseLanguage(stored); ok {
		p.lang = lang
	} else if stored != "" {
		p.logger.Warn("ignoring unknown stored language", zap.String("language", stored))
	}

	return p, nil
}

// Get returns the site default language
func (p *Preference) Get() Language {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lang
}

// Set changes the site default and persists it before returning
func (p *Preference) Set(ctx context.Context, lang Language) error {
	if _, ok := ParseLanguage(string(lang)); !ok {
		return fmt.Errorf("unsupported language %q", lang)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Set(ctx, SettingKey, string(lang)); err != nil {
		return fmt.Errorf("save language preference: %w", err)
	}
	p.lang = lang
	p.logger.Info("default language changed", zap.String("language", string(lang)))
	return nil
}
