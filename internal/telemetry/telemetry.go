// Package telemetry wires structured logging and metrics for the SDK.
// Logging follows the teacher's audit.AuditLogger role (record every
// operation outcome) but promoted to zap's structured logger instead of a
// hand-rolled NDJSON writer. Metrics replace the teacher's hand-rolled
// "Prometheus-compatible" exporter (src/chainadapter/metrics.PrometheusMetrics)
// with the real github.com/prometheus/client_golang library — the
// teacher's own type name already signaled the intent this library now
// fulfills directly.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// NewLogger builds a zap.Logger; development mode enables human-readable
// console output and debug level, matching the verbosity switch the
// teacher's internal/cli/mode.go makes for interactive vs scripted runs.
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Recorder is the SDK's metrics surface. It satisfies
// chaingate.MetricsRecorder, so EVMGate.WithRecorder feeds it RPC call
// counts; AuctionClient and IndexerGate do not record against it.
type Recorder struct {
	log *zap.Logger

	rpcCalls        *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	auctionBids      *prometheus.CounterVec
	auctionDuration   prometheus.Histogram
	auctionOutcome   *prometheus.CounterVec
}

// NewRecorder builds a Recorder, registering its collectors against reg (or
// prometheus.DefaultRegisterer if reg is nil).
func NewRecorder(log *zap.Logger, reg prometheus.Registerer) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		log: log,
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nxtp_sdk",
			Name:      "rpc_calls_total",
			Help:      "Total RPC calls issued to chain providers.",
		}, []string{"method", "chain_id", "outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nxtp_sdk",
			Name:      "rpc_call_duration_seconds",
			Help:      "RPC call latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		auctionBids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nxtp_sdk",
			Name:      "auction_bids_total",
			Help:      "Bids received per auction outcome (valid/rejected).",
		}, []string{"outcome"}),
		auctionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nxtp_sdk",
			Name:      "auction_duration_seconds",
			Help:      "Wall-clock duration of a single auction window.",
			Buckets:   prometheus.DefBuckets,
		}),
		auctionOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nxtp_sdk",
			Name:      "auction_outcomes_total",
			Help:      "Auction terminal outcomes (won/no_bids/no_valid_bids).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(r.rpcCalls, r.rpcDuration, r.auctionBids, r.auctionDuration, r.auctionOutcome)
	return r
}

// RecordRPCCall implements chaingate.MetricsRecorder.
func (r *Recorder) RecordRPCCall(method string, chainId types.ChainId, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.rpcCalls.WithLabelValues(method, chainIdLabel(chainId), outcome).Inc()
	if !success {
		r.log.Warn("rpc call failed", zap.String("method", method), zap.Uint64("chainId", uint64(chainId)))
	}
}

// RecordRPCDuration observes how long an RPC call took.
func (r *Recorder) RecordRPCDuration(method string, d time.Duration) {
	r.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordBidOutcome tracks a single bid's accept/reject verdict during an
// auction (spec.md §4.5 per-bid validation).
func (r *Recorder) RecordBidOutcome(accepted bool) {
	outcome := "valid"
	if !accepted {
		outcome = "rejected"
	}
	r.auctionBids.WithLabelValues(outcome).Inc()
}

// RecordAuctionOutcome tracks how an auction resolved and how long it took.
func (r *Recorder) RecordAuctionOutcome(outcome string, d time.Duration) {
	r.auctionOutcome.WithLabelValues(outcome).Inc()
	r.auctionDuration.Observe(d.Seconds())
	r.log.Info("auction resolved", zap.String("outcome", outcome), zap.Duration("duration", d))
}

func chainIdLabel(c types.ChainId) string {
	return strconv.FormatUint(uint64(c), 10)
}
