package domain

const (
	// EVM_ZERO_ADDRESS is the burn/mint sentinel address
	EVM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// SECONDS_PER_YEAR is used to annualize per-second reward emission rates
	SECONDS_PER_YEAR = 31536000

	// BLOCKS_PER_YEAR assumes a 3-second block time (20 blocks/min)
	BLOCKS_PER_YEAR = 20 * 60 * 24 * 365

	// TREASURY_HISTORY_GENESIS is the unix timestamp of the first recorded
	// treasury history point (2021-02-13T00:00:00Z)
	TREASURY_HISTORY_GENESIS = 1613174400

	// SECONDS_PER_DAY is the step of the day-by-day history backfill
	SECONDS_PER_DAY = 86400
)

// Snapshot keys owned by the freshness policies. Each key names exactly one
// persisted snapshot row.
const (
	SnapshotGeneralStats = "general-stats"
	SnapshotTvlStats     = "tvl-stats"
	SnapshotTreasury     = "treasury"
)

// NetworkStatsSnapshotKey returns the per-chain snapshot key for network stats
func NetworkStatsSnapshotKey(chainID ChainID) string {
	return "network-stats-" + chainID.Name()
}
