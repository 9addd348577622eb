package differ

import (
	"github.com/defistate/defistate-amm-go/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StateDiff represents a summary of changes FromSequence to ToSequence.
type StateDiff struct {
	Registry     common.Address                `json:"registry"`
	Timestamp    uint64                        `json:"timestamp"`
	FromSequence uint64                        `json:"fromSequence"`
	ToSequence   uint64                        `json:"toSequence"`
	Pools        uniswapv2.SystemDiff          `json:"pools"`
	Tokens       tokenregistry.TokenSystemDiff `json:"tokens"`
}
