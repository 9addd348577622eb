package pool

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is shared by every pool of a registry; series are labelled by pool address.
type Metrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	reserves    *prometheus.GaugeVec
	totalShares *prometheus.GaugeVec
}

// NewMetrics creates the pool collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "pool",
			Name:      "operations_total",
			Help:      "Pool operations by outcome.",
		}, []string{"pool", "op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amm",
			Subsystem: "pool",
			Name:      "operation_duration_seconds",
			Help:      "Latency of pool operations, including ledger settlement.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op"}),
		reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "amm",
			Subsystem: "pool",
			Name:      "reserve",
			Help:      "Committed reserve of a pool token, in base units.",
		}, []string{"pool", "token"}),
		totalShares: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "amm",
			Subsystem: "pool",
			Name:      "total_shares",
			Help:      "Outstanding LP shares of a pool, in base units.",
		}, []string{"pool"}),
	}
	reg.MustRegister(m.operations, m.duration, m.reserves, m.totalShares)
	return m
}

func (m *Metrics) observe(pool common.Address, op string, err error, took time.Duration) {
	m.operations.WithLabelValues(pool.Hex(), op, resultLabel(err)).Inc()
	m.duration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) setState(pool, tokenA, tokenB common.Address, reserveA, reserveB, totalShares *uint256.Int) {
	m.reserves.WithLabelValues(pool.Hex(), tokenA.Hex()).Set(toFloat(reserveA))
	m.reserves.WithLabelValues(pool.Hex(), tokenB.Hex()).Set(toFloat(reserveB))
	m.totalShares.WithLabelValues(pool.Hex()).Set(toFloat(totalShares))
}

func toFloat(x *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrReentrancy):
		return "reentrancy"
	case errors.Is(err, ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrInvariantViolated), errors.Is(err, ErrOverflow):
		return "invariant"
	case errors.Is(err, ErrInsufficientLiquidity),
		errors.Is(err, ErrInsufficientInitialLiquidity),
		errors.Is(err, ErrNoLiquidityMinted),
		errors.Is(err, ErrInsufficientBurnAmount),
		errors.Is(err, ErrInsufficientOutputAmount):
		return "liquidity"
	default:
		return "rejected"
	}
}
