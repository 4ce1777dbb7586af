package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/atmx/synthetics-engine/internal/model"
)

// RefData is the reference data file format: the token and market tables
// of one chain. Fixed-point fields are bare JSON integers.
type RefData struct {
	ChainID int64          `json:"chain_id"`
	Tokens  []model.Token  `json:"tokens"`
	Markets []model.Market `json:"markets"`
}

// ReadRefData decodes a reference data file.
func ReadRefData(path string) (*RefData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	var rd RefData
	if err := json.Unmarshal(data, &rd); err != nil {
		return nil, fmt.Errorf("decode reference data %s: %w", path, err)
	}
	return &rd, nil
}

// Snapshot indexes the file's tables without going through a store.
func (rd *RefData) Snapshot() *model.Snapshot {
	return model.NewSnapshot(rd.ChainID, rd.Tokens, rd.Markets)
}

// Seed upserts every token and market of rd into st.
func Seed(ctx context.Context, st Store, rd *RefData) error {
	for i := range rd.Tokens {
		if err := st.UpsertToken(ctx, &rd.Tokens[i]); err != nil {
			return err
		}
	}
	for i := range rd.Markets {
		if err := st.UpsertMarket(ctx, &rd.Markets[i]); err != nil {
			return err
		}
	}
	return nil
}

// SeedFromFile reads path and seeds st with it.
func SeedFromFile(ctx context.Context, st Store, path string) (*RefData, error) {
	rd, err := ReadRefData(path)
	if err != nil {
		return nil, err
	}
	if err := Seed(ctx, st, rd); err != nil {
		return nil, err
	}
	return rd, nil
}
