package domain

import "time"

// BillTerms holds the static vesting terms of one bill contract. Terms never
// change after deployment so they are memoized per contract address.
type BillTerms struct {
	ContractAddress string `json:"contractAddress"`
	PrincipalToken  string `json:"principalToken"`
	PayoutToken     string `json:"payoutToken"`
	VestingSeconds  uint64 `json:"vestingTerm"`
}

// BillData is the resolved on-chain state of one minted bill NFT
type BillData struct {
	ChainID         ChainID   `json:"chainId"`
	ContractAddress string    `json:"billAddress"`
	NFTContract     string    `json:"billNftAddress"`
	TokenID         string    `json:"billNftId"`
	MintTxHash      string    `json:"transactionHash"`
	BlockNumber     uint64    `json:"blockNumber"`
	Owner           string    `json:"ownerAddress"`
	Deposit         float64   `json:"deposit"`
	DepositUSD      float64   `json:"depositUsd"`
	Payout          float64   `json:"payout"`
	PayoutToken     string    `json:"payoutToken"`
	PrincipalToken  string    `json:"principalToken"`
	PairName        string    `json:"pairName"`
	BillType        string    `json:"type"`
	VestingSeconds  uint64    `json:"vestingTerm"`
	ExpiresAt       time.Time `json:"expires"`
	CreatedAt       time.Time `json:"createdAt"`
}

// BillMetadata is the NFT metadata document served for a bill token. While
// the bill is still being resolved a placeholder with Processing=true is
// returned; the finished document is immutable.
type BillMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Processing  bool            `json:"processing,omitempty"`
	Attributes  []BillAttribute `json:"attributes,omitempty"`
	Data        *BillData       `json:"data,omitempty"`
}

// BillAttribute is one display attribute of a bill NFT
type BillAttribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}
