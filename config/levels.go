package config

import (
	_ "embed"
	"fmt"
	"os"

	"rewardledger/models"

	"gopkg.in/yaml.v3"
)

//go:embed levels.yaml
var defaultLevels []byte

// LoadVipLevels reads the VIP level table from path, or the embedded table
// when path is empty
func LoadVipLevels(path string) (models.VipLevelTable, error) {
	data := defaultLevels
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read vip levels file %s: %w", path, err)
		}
	}
	return ParseVipLevels(data)
}

// ParseVipLevels decodes and validates a YAML level table
func ParseVipLevels(data []byte) (models.VipLevelTable, error) {
	var levels models.VipLevelTable
	if err := yaml.Unmarshal(data, &levels); err != nil {
		return nil, fmt.Errorf("failed to parse vip levels: %w", err)
	}
	if err := levels.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vip levels: %w", err)
	}
	return levels, nil
}
