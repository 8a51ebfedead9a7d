package metrics

import (
	"math/big"
	"testing"

	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTx(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "test")

	m.ObserveTx(&abcitypes.ExecTxResult{Events: []abcitypes.Event{
		types.EncodeEventProposalCreated(&types.EventProposalCreated{
			ProposalId: common.HexToHash("0x01"), Description: "x",
		}),
		types.EncodeEventVoteCast(&types.EventVoteCast{Support: types.VoteFor, Weight: big.NewInt(3)}),
	}})
	m.ObserveTx(&abcitypes.ExecTxResult{Events: []abcitypes.Event{
		types.EncodeEventVoteCast(&types.EventVoteCast{Support: types.VoteAgainst, Weight: big.NewInt(1)}),
		types.EncodeEventReleased(&types.EventReleased{Kind: "native", Amount: big.NewInt(5)}),
		types.EncodeEventProposalTransition(&types.EventProposalTransition{Type: types.EventProposalExecutedType}),
	}})
	m.ObserveTx(&abcitypes.ExecTxResult{Code: 17})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProposalsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast.WithLabelValues("For")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast.WithLabelValues("Against")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProposalsExecuted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TreasuryReleases.WithLabelValues("native")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxResults.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxResults.WithLabelValues("17")))

	n, err := testutil.GatherAndCount(reg, "test_tx_results_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
