package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/core/tariff"
)

// AccountSeed funds one account at startup.
type AccountSeed struct {
	Account string         `json:"account"`
	Balance *tariff.Amount `json:"balance"`
}

// Seeds holds the inventory, tariffs and balances loaded at startup. The
// seed file is plain json so tariff prices keep their full 18 decimal
// precision.
type Seeds struct {
	Connectors []model.Connector `json:"connectors"`
	Tariffs    []tariff.Tariff   `json:"tariffs"`
	Accounts   []AccountSeed     `json:"accounts"`
}

// LoadSeeds reads and validates a seed file.
func LoadSeeds(path string) (*Seeds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var s Seeds
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i := range s.Tariffs {
		if err := s.Tariffs[i].Validate(); err != nil {
			return nil, fmt.Errorf("tariff %s: %w", s.Tariffs[i].Id, err)
		}
	}
	for _, c := range s.Connectors {
		if c.EvseId == "" {
			return nil, fmt.Errorf("connector without evse_id")
		}
	}
	return &s, nil
}
