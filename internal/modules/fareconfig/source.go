package fareconfig

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// LoadFile reads a widget config file:
//
//	json = '''{"displayMode": "B", "vehicles": [...]}'''
//
//	[attributes]
//	pricing-behavior = "lead_time_pricing"
func LoadFile(path string) (RawConfig, error) {
	var raw RawConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return RawConfig{}, fmt.Errorf("decode widget config %s: %w", path, err)
	}
	return raw, nil
}
