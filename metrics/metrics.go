package metrics

import (
	"strconv"

	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts governance activity as seen in finalized block events.
type Metrics struct {
	Height            prometheus.Gauge
	ProposalsCreated  prometheus.Counter
	VotesCast         *prometheus.CounterVec
	ProposalsQueued   prometheus.Counter
	ProposalsExecuted prometheus.Counter
	ProposalsCanceled prometheus.Counter
	CallsScheduled    prometheus.Counter
	CallsExecuted     prometheus.Counter
	TreasuryReleases  *prometheus.CounterVec
	TxResults         *prometheus.CounterVec
}

func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	return &Metrics{
		Height: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "height",
			Help:      "last finalized height",
		}),
		ProposalsCreated: counter("proposals_created_total", "proposals created"),
		VotesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "ballots recorded by support",
		}, []string{"support"}),
		ProposalsQueued:   counter("proposals_queued_total", "proposals queued on the timelock"),
		ProposalsExecuted: counter("proposals_executed_total", "proposals executed"),
		ProposalsCanceled: counter("proposals_canceled_total", "proposals canceled"),
		CallsScheduled:    counter("timelock_calls_scheduled_total", "timelock calls scheduled"),
		CallsExecuted:     counter("timelock_calls_executed_total", "timelock calls executed"),
		TreasuryReleases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "treasury_releases_total",
			Help:      "treasury releases by asset kind",
		}, []string{"kind"}),
		TxResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_results_total",
			Help:      "delivered txs by result code",
		}, []string{"code"}),
	}
}

// Nop registers on a private registry; tests and tools use it.
func Nop() *Metrics {
	return New(prometheus.NewRegistry(), "dao")
}

func (m *Metrics) ObserveTx(res *abcitypes.ExecTxResult) {
	m.TxResults.WithLabelValues(strconv.FormatUint(uint64(res.Code), 10)).Inc()
	for _, ev := range res.Events {
		m.observe(ev)
	}
}

func (m *Metrics) observe(ev abcitypes.Event) {
	switch ev.Type {
	case types.EventProposalCreatedType:
		m.ProposalsCreated.Inc()
	case types.EventVoteCastType:
		if vote := types.DecodeEventVoteCast(ev); vote != nil {
			m.VotesCast.WithLabelValues(vote.Support.String()).Inc()
		}
	case types.EventProposalQueuedType:
		m.ProposalsQueued.Inc()
	case types.EventProposalExecutedType:
		m.ProposalsExecuted.Inc()
	case types.EventProposalCanceledType:
		m.ProposalsCanceled.Inc()
	case types.EventCallScheduledType:
		m.CallsScheduled.Inc()
	case types.EventCallExecutedType:
		m.CallsExecuted.Inc()
	case types.EventReleasedType:
		for _, a := range ev.Attributes {
			if a.Key == "kind" {
				m.TreasuryReleases.WithLabelValues(a.Value).Inc()
			}
		}
	}
}
