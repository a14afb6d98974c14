// Package preferences reads and writes the durable client-side settings: display language,
// dark mode and the last known category order. Values are plain strings with no schema version.
package preferences

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/storage"
)

// ErrUnsupportedLanguage is returned for a language code outside constants.Languages
var ErrUnsupportedLanguage = errors.New("unsupported language")

type Preferences struct {
	store storage.Provider
}

func New(store storage.Provider) *Preferences {
	return &Preferences{store: store}
}

func (p *Preferences) get(key string) (string, bool) {
	value, err := p.store.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("Failed to read preference", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

// Language returns the stored display language, or the default when unset or unknown.
func (p *Preferences) Language() constants.Language {
	if code, ok := p.get(constants.KeyLanguage); ok {
		if lang, known := constants.LookupLanguage(code); known {
			return lang
		}
		logger.Warn("Ignoring unknown stored language", "code", code)
	}
	lang, _ := constants.LookupLanguage(constants.DefaultLanguage)
	return lang
}

func (p *Preferences) SetLanguage(code string) error {
	if _, ok := constants.LookupLanguage(code); !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	return p.store.Set(constants.KeyLanguage, code)
}

// DarkMode returns the stored dark mode flag and whether one is stored.
func (p *Preferences) DarkMode() (enabled, set bool) {
	raw, ok := p.get(constants.KeyDarkMode)
	if !ok {
		return false, false
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warn("Ignoring invalid dark mode preference", "value", raw)
		return false, false
	}
	return enabled, true
}

// UseDarkMode resolves dark mode, following the terminal background when unset.
func (p *Preferences) UseDarkMode() bool {
	if enabled, set := p.DarkMode(); set {
		return enabled
	}
	return lipgloss.HasDarkBackground()
}

func (p *Preferences) SetDarkMode(enabled bool) error {
	return p.store.Set(constants.KeyDarkMode, strconv.FormatBool(enabled))
}

// ResetDarkMode removes the stored flag so the terminal background decides again.
func (p *Preferences) ResetDarkMode() error {
	if err := p.store.Delete(constants.KeyDarkMode); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// CategoryOrder returns the mirrored category order, or nil when none is stored.
func (p *Preferences) CategoryOrder() ([]string, error) {
	raw, ok := p.get(constants.KeyCategoryOrder)
	if !ok {
		return nil, nil
	}
	var order []string
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("failed to decode stored category order: %w", err)
	}
	return order, nil
}

func (p *Preferences) SetCategoryOrder(order []string) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return p.store.Set(constants.KeyCategoryOrder, string(data))
}
