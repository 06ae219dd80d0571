package dict

import (
	"fmt"
	"strings"
)

// ChainEntry describes one EVM network a Chain ID value may refer to.
type ChainEntry struct {
	ChainID   uint64
	Name      string
	ShortName string
	Testnet   bool
}

// Store is an immutable chain registry keyed by chain id.
type Store struct {
	chains map[uint64]ChainEntry
}

type JSONFile struct {
	Chains []JSONChainEntry `json:"chains"`
}

type JSONChainEntry struct {
	ChainID   uint64 `json:"chainId"`
	Name      string `json:"name"`
	ShortName string `json:"shortName,omitempty"`
	Testnet   bool   `json:"testnet,omitempty"`
}

func FromJSON(file JSONFile) (*Store, error) {
	store := &Store{chains: make(map[uint64]ChainEntry)}
	for i, entry := range file.Chains {
		if entry.ChainID == 0 {
			return nil, fmt.Errorf("chains[%d]: chain id must be positive", i)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("chains[%d]: name is required", i)
		}
		if _, exists := store.chains[entry.ChainID]; exists {
			return nil, fmt.Errorf("chains[%d]: duplicate chain id %d", i, entry.ChainID)
		}
		store.chains[entry.ChainID] = ChainEntry{
			ChainID:   entry.ChainID,
			Name:      name,
			ShortName: strings.TrimSpace(entry.ShortName),
			Testnet:   entry.Testnet,
		}
	}
	return store, nil
}

func (s *Store) Lookup(chainID uint64) (ChainEntry, bool) {
	if s == nil {
		return ChainEntry{}, false
	}
	entry, ok := s.chains[chainID]
	return entry, ok
}

func (s *Store) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.chains) == 0
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.chains)
}

// Builtin returns the registry of well-known EVM networks, used whenever no
// chain dictionary file is configured.
func Builtin() *Store {
	store := &Store{chains: make(map[uint64]ChainEntry, len(builtinChains))}
	for _, entry := range builtinChains {
		store.chains[entry.ChainID] = entry
	}
	return store
}

var builtinChains = []ChainEntry{
	{ChainID: 1, Name: "Ethereum Mainnet", ShortName: "eth"},
	{ChainID: 10, Name: "OP Mainnet", ShortName: "oeth"},
	{ChainID: 56, Name: "BNB Smart Chain", ShortName: "bnb"},
	{ChainID: 100, Name: "Gnosis", ShortName: "gno"},
	{ChainID: 137, Name: "Polygon", ShortName: "pol"},
	{ChainID: 324, Name: "zkSync Era", ShortName: "zksync"},
	{ChainID: 8453, Name: "Base", ShortName: "base"},
	{ChainID: 42161, Name: "Arbitrum One", ShortName: "arb1"},
	{ChainID: 43114, Name: "Avalanche C-Chain", ShortName: "avax"},
	{ChainID: 59144, Name: "Linea", ShortName: "linea"},
	{ChainID: 534352, Name: "Scroll", ShortName: "scr"},
	{ChainID: 11155111, Name: "Sepolia", ShortName: "sep", Testnet: true},
	{ChainID: 17000, Name: "Holesky", ShortName: "holesky", Testnet: true},
}
