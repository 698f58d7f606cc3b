package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecoveriesTotal counts recovery requests by terminal outcome
	RecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_requests_total",
			Help: "Total number of recovery requests",
		},
		[]string{"status"},
	)

	// ApprovalsTotal counts guardian approvals by result
	ApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_approvals_total",
			Help: "Total number of guardian approval attempts",
		},
		[]string{"result"},
	)

	// BridgeOperationsTotal counts CCTP operations by step and status
	BridgeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_bridge_operations_total",
			Help: "Total number of CCTP bridge operations",
		},
		[]string{"step", "status"},
	)

	// BridgeOperationDuration tracks end-to-end bridge operation time
	BridgeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recovery_bridge_operation_duration_seconds",
			Help:    "CCTP bridge operation duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"source_chain", "destination_chain"},
	)

	// AttestationPollsTotal counts attestation poll requests by outcome
	AttestationPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_attestation_polls_total",
			Help: "Total number of attestation service polls",
		},
		[]string{"outcome"},
	)

	// MigrationPhaseResults counts migration phase item outcomes
	MigrationPhaseResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_migration_phase_results_total",
			Help: "Per-network migration phase outcomes",
		},
		[]string{"phase", "status"},
	)

	// PendingRecoveries tracks recoveries currently awaiting quorum
	PendingRecoveries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recovery_pending_requests",
			Help: "Number of recovery requests awaiting guardian quorum",
		},
	)

	// ErrorsTotal counts errors by component and type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
