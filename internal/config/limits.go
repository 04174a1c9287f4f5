package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// Folders
	MaxFolderChats = 100

	// Sticker packs
	MaxPackStickers = 50
	MinPackStickers = 1

	// Plans
	RegularSavedPackQuota = 10
	DefaultAdFrequency    = 5

	// Chats
	PrivateChatCap  = 2
	DefaultGroupCap = 200
	MaxGroupCap     = 200000
)

// Limits are the cardinality bounds the domain model enforces.
type Limits struct {
	MaxFolderChats        int `yaml:"max_folder_chats" json:"max_folder_chats"`
	MaxPackStickers       int `yaml:"max_pack_stickers" json:"max_pack_stickers"`
	MinPackStickers       int `yaml:"min_pack_stickers" json:"min_pack_stickers"`
	RegularSavedPackQuota int `yaml:"regular_saved_pack_quota" json:"regular_saved_pack_quota"`
	DefaultAdFrequency    int `yaml:"default_ad_frequency" json:"default_ad_frequency"`
	DefaultGroupCap       int `yaml:"default_group_cap" json:"default_group_cap"`
	MaxGroupCap           int `yaml:"max_group_cap" json:"max_group_cap"`
}

// DefaultLimits returns the built-in bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxFolderChats:        MaxFolderChats,
		MaxPackStickers:       MaxPackStickers,
		MinPackStickers:       MinPackStickers,
		RegularSavedPackQuota: RegularSavedPackQuota,
		DefaultAdFrequency:    DefaultAdFrequency,
		DefaultGroupCap:       DefaultGroupCap,
		MaxGroupCap:           MaxGroupCap,
	}
}

// LoadLimits reads a YAML file on top of the defaults. Keys missing from the
// file keep their default value.
func LoadLimits(path string) (Limits, error) {
	limits := DefaultLimits()
	b, err := os.ReadFile(path)
	if err != nil {
		return limits, err
	}
	if err := yaml.Unmarshal(b, &limits); err != nil {
		return limits, fmt.Errorf("parse limits %s: %w", path, err)
	}
	if err := limits.Validate(); err != nil {
		return DefaultLimits(), fmt.Errorf("limits %s: %w", path, err)
	}
	return limits, nil
}

// Validate checks the bounds are usable together.
func (l Limits) Validate() error {
	switch {
	case l.MaxFolderChats <= 0:
		return fmt.Errorf("max_folder_chats must be positive, got %d", l.MaxFolderChats)
	case l.MinPackStickers < 0:
		return fmt.Errorf("min_pack_stickers must not be negative, got %d", l.MinPackStickers)
	case l.MaxPackStickers < l.MinPackStickers || l.MaxPackStickers == 0:
		return fmt.Errorf("max_pack_stickers %d must be positive and >= min_pack_stickers %d", l.MaxPackStickers, l.MinPackStickers)
	case l.RegularSavedPackQuota < 0:
		return fmt.Errorf("regular_saved_pack_quota must not be negative, got %d", l.RegularSavedPackQuota)
	case l.DefaultGroupCap < PrivateChatCap:
		return fmt.Errorf("default_group_cap must be at least %d, got %d", PrivateChatCap, l.DefaultGroupCap)
	case l.MaxGroupCap < l.DefaultGroupCap:
		return fmt.Errorf("max_group_cap %d below default_group_cap %d", l.MaxGroupCap, l.DefaultGroupCap)
	}
	return nil
}
