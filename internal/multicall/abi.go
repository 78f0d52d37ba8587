package multicall

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract interfaces used by the stats and treasury engines. Parsed once at
// package load; a malformed constant is a programming error.
var (
	MulticallABI   = mustParseABI(multicallABIJSON)
	ERC20ABI       = mustParseABI(erc20ABIJSON)
	PairABI        = mustParseABI(pairABIJSON)
	MasterChefABI  = mustParseABI(masterChefABIJSON)
	MiniChefABI    = mustParseABI(miniChefABIJSON)
	RewarderABI    = mustParseABI(rewarderABIJSON)
	PriceGetterABI = mustParseABI(priceGetterABIJSON)
	BillABI        = mustParseABI(billABIJSON)
	BillNFTABI     = mustParseABI(billNFTABIJSON)
	RewardPoolABI  = mustParseABI(rewardPoolABIJSON)
	LendingABI     = mustParseABI(lendingABIJSON)
	ComptrollerABI = mustParseABI(comptrollerABIJSON)
)

func mustParseABI(js string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(err)
	}
	return parsed
}

const multicallABIJSON = `[
{"constant":true,"inputs":[{"components":[{"name":"target","type":"address"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],"name":"aggregate","outputs":[{"name":"blockNumber","type":"uint256"},{"name":"returnData","type":"bytes[]"}],"stateMutability":"view","type":"function"}
]`

const erc20ABIJSON = `[
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const pairABIJSON = `[
{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

const masterChefABIJSON = `[
{"constant":true,"inputs":[],"name":"poolLength","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalAllocPoint","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"digiPerBlock","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"pid","type":"uint256"}],"name":"poolInfo","outputs":[{"name":"lpToken","type":"address"},{"name":"allocPoint","type":"uint256"},{"name":"lastRewardBlock","type":"uint256"},{"name":"accDigiPerShare","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"pid","type":"uint256"},{"name":"user","type":"address"}],"name":"userInfo","outputs":[{"name":"amount","type":"uint256"},{"name":"rewardDebt","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"pid","type":"uint256"},{"name":"user","type":"address"}],"name":"pendingDigi","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"startBlock","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"bonusEndBlock","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const miniChefABIJSON = `[
{"constant":true,"inputs":[],"name":"poolLength","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalAllocPoint","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"digiPerSecond","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"pid","type":"uint256"}],"name":"lpToken","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"pid","type":"uint256"}],"name":"rewarder","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"pid","type":"uint256"}],"name":"poolInfo","outputs":[{"name":"accDigiPerShare","type":"uint128"},{"name":"lastRewardTime","type":"uint64"},{"name":"allocPoint","type":"uint64"}],"stateMutability":"view","type":"function"}
]`

const rewarderABIJSON = `[
{"constant":true,"inputs":[],"name":"rewardPerSecond","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"rewardToken","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const priceGetterABIJSON = `[
{"constant":true,"inputs":[{"name":"token","type":"address"},{"name":"decimals","type":"uint256"}],"name":"getPrice","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"lp","type":"address"},{"name":"decimals","type":"uint256"}],"name":"getLPPrice","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const billABIJSON = `[
{"constant":true,"inputs":[],"name":"terms","outputs":[{"name":"controlVariable","type":"uint256"},{"name":"vestingTerm","type":"uint256"},{"name":"minimumPrice","type":"uint256"},{"name":"maxPayout","type":"uint256"},{"name":"maxDebt","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"principalToken","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"payoutToken","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"trueBillPrice","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"billId","type":"uint256"}],"name":"billInfo","outputs":[{"name":"payout","type":"uint256"},{"name":"vesting","type":"uint256"},{"name":"lastBlockTimestamp","type":"uint256"},{"name":"truePricePaid","type":"uint256"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":false,"name":"deposit","type":"uint256"},{"indexed":true,"name":"payout","type":"uint256"},{"indexed":true,"name":"expires","type":"uint256"},{"indexed":true,"name":"billId","type":"uint256"}],"name":"BillCreated","type":"event"}
]`

const billNFTABIJSON = `[
{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":true,"name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}
]`

const rewardPoolABIJSON = `[
{"constant":true,"inputs":[],"name":"startBlock","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"bonusEndBlock","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"rewardPerBlock","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"user","type":"address"}],"name":"userInfo","outputs":[{"name":"amount","type":"uint256"},{"name":"rewardDebt","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"user","type":"address"}],"name":"pendingReward","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const lendingABIJSON = `[
{"constant":true,"inputs":[],"name":"borrowRatePerSecond","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalBorrows","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"exchangeRateStored","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"reserveFactorMantissa","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"underlying","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"borrowBalanceStored","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

const comptrollerABIJSON = `[
{"constant":true,"inputs":[],"name":"getAllMarkets","outputs":[{"name":"","type":"address[]"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"market","type":"address"}],"name":"rewardSupplySpeeds","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"market","type":"address"}],"name":"rewardBorrowSpeeds","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`
