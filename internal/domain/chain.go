package domain

import "fmt"

// ChainID represents an EVM network identifier
type ChainID uint64

const (
	ChainBSC     ChainID = 56
	ChainPolygon ChainID = 137
	ChainTelos   ChainID = 40
)

// Chains lists every network the aggregator serves, in display order
var Chains = []ChainID{ChainBSC, ChainPolygon, ChainTelos}

// IsValidChain checks if a chain id is one of the supported networks
func IsValidChain(id ChainID) bool {
	for _, c := range Chains {
		if c == id {
			return true
		}
	}
	return false
}

// Name returns a human-readable network name
func (id ChainID) Name() string {
	switch id {
	case ChainBSC:
		return "bsc"
	case ChainPolygon:
		return "polygon"
	case ChainTelos:
		return "telos"
	default:
		return fmt.Sprintf("chain-%d", uint64(id))
	}
}
