package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_payment_messages_total",
			Help: "Device notifications ingested, by outcome",
		},
		[]string{"result"}, // stored, duplicate, incomplete, ignored, error
	)

	depositsCreditedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_deposits_credited_total",
			Help: "Deposits credited to account balances",
		},
		[]string{"source"},
	)

	commissionCreditedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_commission_credited_amount_total",
			Help: "Sum of commission credited, by bucket",
		},
		[]string{"bucket"},
	)

	gameCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_game_callbacks_total",
			Help: "Game provider callbacks, by bet type and outcome",
		},
		[]string{"bet_type", "result"},
	)

	ledgerNotifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_ledger_notify_total",
			Help: "Downstream ledger notifications, by provider and outcome",
		},
		[]string{"provider", "result"},
	)

	balanceTransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_balance_transfers_total",
			Help: "Commission to main balance transfers, by bucket and outcome",
		},
		[]string{"bucket", "result"},
	)

	bridgeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_bridge_accounts_total",
			Help: "Bridge operation results per affiliate",
		},
		[]string{"role", "status"},
	)
)
