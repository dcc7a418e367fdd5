package store

import (
	"github.com/go-playground/validator/v10"

	"github.com/muurk/homesensor/internal/flash"
)

// SettingsNamespace holds the user-editable sensor settings.
const SettingsNamespace = "data"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings is the user-editable identity of the sensor. Fields carry no
// omitempty: Merge only updates keys that appear in the encoded document.
type Settings struct {
	Name     string  `json:"name" validate:"max=64"`
	Location string  `json:"location" validate:"max=64"`
	Features *uint32 `json:"features"`
}

// Default returns empty settings.
func (Settings) Default() Settings { return Settings{} }

// Validate checks field bounds.
func (s Settings) Validate() error {
	return validate.Struct(s)
}

// SettingsStore persists Settings under the "data" namespace.
type SettingsStore struct {
	*Store[Settings]
}

// NewSettingsStore creates the settings store.
func NewSettingsStore(storage flash.Storage) *SettingsStore {
	return &SettingsStore{Store: New[Settings](storage, SettingsNamespace, DefaultCapacity)}
}
