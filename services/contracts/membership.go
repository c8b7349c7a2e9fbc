package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// MembershipMetaData contains the subset of the kycDAO membership NFT
// interface this SDK calls. The contract exposes more, but only these
// functions and the ERC-721 Transfer event are needed by the minting flow.
var MembershipMetaData = &bind.MetaData{
	ABI: `[{"inputs":[],"name":"SUBSCRIPTION_COST_DECIMALS","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"getSubscriptionCostPerYearUSD","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint32","name":"_authCode","type":"uint32"},{"internalType":"address","name":"_dst","type":"address"}],"name":"getRequiredMintCostForCode","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint32","name":"_seconds","type":"uint32"}],"name":"getRequiredMintCostForSeconds","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"_addr","type":"address"}],"name":"hasValidToken","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint32","name":"_authCode","type":"uint32"}],"name":"mintWithCode","outputs":[],"stateMutability":"payable","type":"function"},{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":true,"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}]`,
}
