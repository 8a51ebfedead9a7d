package main

import (
	"math/big"
	"testing"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActions(t *testing.T) {
	a := &actionArguments{
		Targets:   []string{"0x00000000000000000000000000000000000000b1", "0x00000000000000000000000000000000000000b2"},
		Values:    []string{"0x10"},
		Calldatas: []string{"0xdead"},
	}
	targets, values, calldatas, err := a.actions()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xb2"), targets[1])
	assert.EqualValues(t, 16, values[0].Int64())
	assert.Zero(t, values[1].Sign())
	assert.Equal(t, []byte{0xde, 0xad}, []byte(calldatas[0]))
	assert.Empty(t, calldatas[1])

	_, _, _, err = (&actionArguments{}).actions()
	assert.ErrorIs(t, err, errNoActions)
	_, _, _, err = (&actionArguments{Targets: []string{"0xb1"}}).actions()
	assert.Error(t, err)
	_, _, _, err = (&actionArguments{Targets: a.Targets[:1], Values: []string{"1", "2"}}).actions()
	assert.Error(t, err)
	_, _, _, err = (&actionArguments{Targets: a.Targets[:1], Values: []string{"-1"}}).actions()
	assert.Error(t, err)
}

func TestParseSupport(t *testing.T) {
	for in, want := range map[string]types.VoteType{
		"for": types.VoteFor, "Against": types.VoteAgainst, "ABSTAIN": types.VoteAbstain, "1": types.VoteFor,
	} {
		got, err := parseSupport(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseSupport("3")
	assert.Error(t, err)
	_, err = parseSupport("maybe")
	assert.Error(t, err)
}

func TestInitAppState(t *testing.T) {
	deployer := common.HexToAddress("0xd0")
	a := &initArguments{
		Members:      []string{"0x00000000000000000000000000000000000000a1", "0x00000000000000000000000000000000000000a2"},
		MemberAmount: "500",
		Deposit:      "700",
		VotingPeriod: 20,
	}
	gs, err := a.appState(deployer)
	require.NoError(t, err)
	assert.EqualValues(t, 20, gs.Params.VotingPeriod)
	assert.EqualValues(t, 5, gs.Params.VotingDelay)
	require.Len(t, gs.Distribution, 2)
	assert.Equal(t, big.NewInt(500), (*big.Int)(gs.Distribution[1].Amount))
	require.Len(t, gs.Balances, 1)
	assert.Equal(t, deployer, gs.Balances[0].Address)
	assert.Equal(t, big.NewInt(700), (*big.Int)(gs.Deposit))

	a.Quorum = 101
	_, err = a.appState(deployer)
	assert.Error(t, err)
}
