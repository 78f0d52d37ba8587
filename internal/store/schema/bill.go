package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Bill stores the resolved metadata document of one minted bill NFT. A bill
// is content-addressed by its mint transaction and immutable once resolved.
type Bill struct {
	ID              uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	ChainID         uint64         `gorm:"column:chain_id;not null;uniqueIndex:idx_bills_chain_tx,priority:1"`
	MintTxHash      string         `gorm:"column:mint_tx_hash;not null;type:text;uniqueIndex:idx_bills_chain_tx,priority:2"`
	ContractAddress string         `gorm:"column:contract_address;not null;type:text"`
	NFTContract     string         `gorm:"column:nft_contract;not null;type:text;index:idx_bills_nft_token,priority:1"`
	TokenID         string         `gorm:"column:token_id;not null;type:text;index:idx_bills_nft_token,priority:2"`
	Payload         datatypes.JSON `gorm:"column:payload;type:jsonb"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (Bill) TableName() string {
	return "bills"
}
