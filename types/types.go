package types

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	EventProposalCreatedType   = "proposal_created"
	EventVoteCastType          = "vote_cast"
	EventProposalQueuedType    = "proposal_queued"
	EventProposalExecutedType  = "proposal_executed"
	EventProposalCanceledType  = "proposal_canceled"
	EventGovernorParamType     = "governor_param_changed"
	EventCallScheduledType     = "call_scheduled"
	EventCallExecutedType      = "call_executed"
	EventOperationCanceledType = "operation_canceled"
	EventMinDelayChangeType    = "min_delay_change"
	EventRoleGrantedType       = "role_granted"
	EventRoleRevokedType       = "role_revoked"
	EventTransferType          = "transfer"
	EventApprovalType          = "approval"
	EventDelegateChangedType   = "delegate_changed"
	EventDelegateVotesType     = "delegate_votes_changed"
	EventOwnershipType         = "ownership_transferred"
	EventReceivedType          = "received"
	EventReleasedType          = "released"
	EventNativeTransferType    = "native_transfer"

	// AttrContract is appended to every event emitted by a contract.
	AttrContract = "contract"
)

// Release kinds reported by EventReleased.
const (
	ReleaseNative = "native"
	ReleaseERC20  = "erc20"
	ReleaseERC721 = "erc721"
)

func bigStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}

type EventProposalCreated struct {
	ProposalId  common.Hash      `json:"proposalId"`
	Proposer    common.Address   `json:"proposer"`
	Targets     []common.Address `json:"targets"`
	Values      []*big.Int       `json:"values"`
	Calldatas   [][]byte         `json:"calldatas"`
	VoteStart   uint64           `json:"voteStart"`
	VoteEnd     uint64           `json:"voteEnd"`
	Description string           `json:"description"`
}

func EncodeEventProposalCreated(event *EventProposalCreated) abci.Event {
	targets := make([]string, len(event.Targets))
	for i, t := range event.Targets {
		targets[i] = t.Hex()
	}
	values := make([]string, len(event.Values))
	for i, v := range event.Values {
		values[i] = bigStr(v)
	}
	calldatas := make([]string, len(event.Calldatas))
	for i, c := range event.Calldatas {
		calldatas[i] = hexutil.Encode(c)
	}
	return abci.Event{
		Type: EventProposalCreatedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposalId", Value: event.ProposalId.Hex(), Index: true},
			{Key: "proposer", Value: event.Proposer.Hex(), Index: true},
			{Key: "targets", Value: strings.Join(targets, ","), Index: false},
			{Key: "values", Value: strings.Join(values, ","), Index: false},
			{Key: "calldatas", Value: strings.Join(calldatas, ","), Index: false},
			{Key: "voteStart", Value: fmt.Sprintf("%v", event.VoteStart), Index: false},
			{Key: "voteEnd", Value: fmt.Sprintf("%v", event.VoteEnd), Index: false},
			{Key: "description", Value: event.Description, Index: false},
		},
	}
}

func DecodeEventProposalCreated(originEvent abci.Event) *EventProposalCreated {
	if originEvent.Type != EventProposalCreatedType {
		return nil
	}
	event := &EventProposalCreated{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposalId":
			event.ProposalId = common.HexToHash(v.Value)
		case "proposer":
			if !common.IsHexAddress(v.Value) {
				return nil
			}
			event.Proposer = common.HexToAddress(v.Value)
		case "targets":
			for _, s := range strings.Split(v.Value, ",") {
				if !common.IsHexAddress(s) {
					return nil
				}
				event.Targets = append(event.Targets, common.HexToAddress(s))
			}
		case "values":
			for _, s := range strings.Split(v.Value, ",") {
				value, ok := parseBig(s)
				if !ok {
					return nil
				}
				event.Values = append(event.Values, value)
			}
		case "calldatas":
			for _, s := range strings.Split(v.Value, ",") {
				data, err := hexutil.Decode(s)
				if err != nil {
					return nil
				}
				event.Calldatas = append(event.Calldatas, data)
			}
		case "voteStart":
			start, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.VoteStart = start
		case "voteEnd":
			end, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.VoteEnd = end
		case "description":
			event.Description = v.Value
		}
	}
	if len(event.Targets) != len(event.Values) || len(event.Targets) != len(event.Calldatas) {
		return nil
	}
	return event
}

type EventVoteCast struct {
	Voter      common.Address `json:"voter"`
	ProposalId common.Hash    `json:"proposalId"`
	Support    VoteType       `json:"support"`
	Weight     *big.Int       `json:"weight"`
	Reason     string         `json:"reason"`
}

func EncodeEventVoteCast(event *EventVoteCast) abci.Event {
	return abci.Event{
		Type: EventVoteCastType,
		Attributes: []abci.EventAttribute{
			{Key: "voter", Value: event.Voter.Hex(), Index: true},
			{Key: "proposalId", Value: event.ProposalId.Hex(), Index: true},
			{Key: "support", Value: fmt.Sprintf("%v", uint8(event.Support)), Index: false},
			{Key: "weight", Value: bigStr(event.Weight), Index: false},
			{Key: "reason", Value: event.Reason, Index: false},
		},
	}
}

func DecodeEventVoteCast(originEvent abci.Event) *EventVoteCast {
	if originEvent.Type != EventVoteCastType {
		return nil
	}
	event := &EventVoteCast{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "voter":
			event.Voter = common.HexToAddress(v.Value)
		case "proposalId":
			event.ProposalId = common.HexToHash(v.Value)
		case "support":
			support, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.Support = VoteType(support)
		case "weight":
			weight, ok := parseBig(v.Value)
			if !ok {
				return nil
			}
			event.Weight = weight
		case "reason":
			event.Reason = v.Value
		}
	}
	return event
}

// EventProposalTransition covers queued, executed and canceled; Eta is set only when queued.
type EventProposalTransition struct {
	Type       string      `json:"type"`
	ProposalId common.Hash `json:"proposalId"`
	Eta        uint64      `json:"eta"`
}

func EncodeEventProposalTransition(event *EventProposalTransition) abci.Event {
	attrs := []abci.EventAttribute{
		{Key: "proposalId", Value: event.ProposalId.Hex(), Index: true},
	}
	if event.Type == EventProposalQueuedType {
		attrs = append(attrs, abci.EventAttribute{Key: "eta", Value: fmt.Sprintf("%v", event.Eta), Index: false})
	}
	return abci.Event{Type: event.Type, Attributes: attrs}
}

func DecodeEventProposalTransition(originEvent abci.Event) *EventProposalTransition {
	switch originEvent.Type {
	case EventProposalQueuedType, EventProposalExecutedType, EventProposalCanceledType:
	default:
		return nil
	}
	event := &EventProposalTransition{Type: originEvent.Type}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposalId":
			event.ProposalId = common.HexToHash(v.Value)
		case "eta":
			eta, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Eta = eta
		}
	}
	return event
}

type EventGovernorParam struct {
	Param string `json:"param"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

func EncodeEventGovernorParam(event *EventGovernorParam) abci.Event {
	return abci.Event{
		Type: EventGovernorParamType,
		Attributes: []abci.EventAttribute{
			{Key: "param", Value: event.Param, Index: true},
			{Key: "old", Value: event.Old, Index: false},
			{Key: "new", Value: event.New, Index: false},
		},
	}
}

// EventCall is emitted once per call of a scheduled or executed batch.
type EventCall struct {
	Type        string         `json:"type"`
	Id          common.Hash    `json:"id"`
	Index       int            `json:"index"`
	Target      common.Address `json:"target"`
	Value       *big.Int       `json:"value"`
	Data        []byte         `json:"data"`
	Predecessor common.Hash    `json:"predecessor"`
	Eta         uint64         `json:"eta"`
}

func EncodeEventCall(event *EventCall) abci.Event {
	attrs := []abci.EventAttribute{
		{Key: "id", Value: event.Id.Hex(), Index: true},
		{Key: "index", Value: strconv.Itoa(event.Index), Index: false},
		{Key: "target", Value: event.Target.Hex(), Index: false},
		{Key: "value", Value: bigStr(event.Value), Index: false},
		{Key: "data", Value: hexutil.Encode(event.Data), Index: false},
	}
	if event.Type == EventCallScheduledType {
		attrs = append(attrs,
			abci.EventAttribute{Key: "predecessor", Value: event.Predecessor.Hex(), Index: false},
			abci.EventAttribute{Key: "eta", Value: fmt.Sprintf("%v", event.Eta), Index: false},
		)
	}
	return abci.Event{Type: event.Type, Attributes: attrs}
}

func EncodeEventOperationCanceled(id common.Hash) abci.Event {
	return abci.Event{
		Type: EventOperationCanceledType,
		Attributes: []abci.EventAttribute{
			{Key: "id", Value: id.Hex(), Index: true},
		},
	}
}

func EncodeEventMinDelayChange(oldDelay, newDelay uint64) abci.Event {
	return abci.Event{
		Type: EventMinDelayChangeType,
		Attributes: []abci.EventAttribute{
			{Key: "oldDuration", Value: fmt.Sprintf("%v", oldDelay), Index: false},
			{Key: "newDuration", Value: fmt.Sprintf("%v", newDelay), Index: false},
		},
	}
}

type EventRole struct {
	Granted bool           `json:"granted"`
	Role    common.Hash    `json:"role"`
	Account common.Address `json:"account"`
	Sender  common.Address `json:"sender"`
}

func EncodeEventRole(event *EventRole) abci.Event {
	tp := EventRoleRevokedType
	if event.Granted {
		tp = EventRoleGrantedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			{Key: "role", Value: event.Role.Hex(), Index: true},
			{Key: "account", Value: event.Account.Hex(), Index: true},
			{Key: "sender", Value: event.Sender.Hex(), Index: false},
		},
	}
}

// EventTransfer is shared by fungible and non-fungible ledgers; TokenId is nil for fungible ones.
type EventTransfer struct {
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Value   *big.Int       `json:"value"`
	TokenId *big.Int       `json:"tokenId"`
}

func EncodeEventTransfer(event *EventTransfer) abci.Event {
	attrs := []abci.EventAttribute{
		{Key: "from", Value: event.From.Hex(), Index: true},
		{Key: "to", Value: event.To.Hex(), Index: true},
	}
	if event.TokenId != nil {
		attrs = append(attrs, abci.EventAttribute{Key: "tokenId", Value: bigStr(event.TokenId), Index: true})
	} else {
		attrs = append(attrs, abci.EventAttribute{Key: "value", Value: bigStr(event.Value), Index: false})
	}
	return abci.Event{Type: EventTransferType, Attributes: attrs}
}

func DecodeEventTransfer(originEvent abci.Event) *EventTransfer {
	if originEvent.Type != EventTransferType {
		return nil
	}
	event := &EventTransfer{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "from":
			event.From = common.HexToAddress(v.Value)
		case "to":
			event.To = common.HexToAddress(v.Value)
		case "value":
			value, ok := parseBig(v.Value)
			if !ok {
				return nil
			}
			event.Value = value
		case "tokenId":
			id, ok := parseBig(v.Value)
			if !ok {
				return nil
			}
			event.TokenId = id
		}
	}
	return event
}

func EncodeEventApproval(owner, spender common.Address, value *big.Int) abci.Event {
	return abci.Event{
		Type: EventApprovalType,
		Attributes: []abci.EventAttribute{
			{Key: "owner", Value: owner.Hex(), Index: true},
			{Key: "spender", Value: spender.Hex(), Index: true},
			{Key: "value", Value: bigStr(value), Index: false},
		},
	}
}

func EncodeEventDelegateChanged(delegator, from, to common.Address) abci.Event {
	return abci.Event{
		Type: EventDelegateChangedType,
		Attributes: []abci.EventAttribute{
			{Key: "delegator", Value: delegator.Hex(), Index: true},
			{Key: "fromDelegate", Value: from.Hex(), Index: false},
			{Key: "toDelegate", Value: to.Hex(), Index: true},
		},
	}
}

func EncodeEventDelegateVotes(delegate common.Address, previous, current *big.Int) abci.Event {
	return abci.Event{
		Type: EventDelegateVotesType,
		Attributes: []abci.EventAttribute{
			{Key: "delegate", Value: delegate.Hex(), Index: true},
			{Key: "previousVotes", Value: bigStr(previous), Index: false},
			{Key: "newVotes", Value: bigStr(current), Index: false},
		},
	}
}

func EncodeEventOwnership(previous, next common.Address) abci.Event {
	return abci.Event{
		Type: EventOwnershipType,
		Attributes: []abci.EventAttribute{
			{Key: "previousOwner", Value: previous.Hex(), Index: false},
			{Key: "newOwner", Value: next.Hex(), Index: true},
		},
	}
}

func EncodeEventReceived(from common.Address, amount *big.Int) abci.Event {
	return abci.Event{
		Type: EventReceivedType,
		Attributes: []abci.EventAttribute{
			{Key: "from", Value: from.Hex(), Index: true},
			{Key: "amount", Value: bigStr(amount), Index: false},
		},
	}
}

type EventReleased struct {
	Kind   string         `json:"kind"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
	Token  common.Address `json:"token"`
}

func EncodeEventReleased(event *EventReleased) abci.Event {
	return abci.Event{
		Type: EventReleasedType,
		Attributes: []abci.EventAttribute{
			{Key: "kind", Value: event.Kind, Index: true},
			{Key: "to", Value: event.To.Hex(), Index: true},
			{Key: "amount", Value: bigStr(event.Amount), Index: false},
			{Key: "token", Value: event.Token.Hex(), Index: false},
		},
	}
}

func EncodeEventNativeTransfer(from, to common.Address, amount *big.Int) abci.Event {
	return abci.Event{
		Type: EventNativeTransferType,
		Attributes: []abci.EventAttribute{
			{Key: "from", Value: from.Hex(), Index: true},
			{Key: "to", Value: to.Hex(), Index: true},
			{Key: "amount", Value: bigStr(amount), Index: false},
		},
	}
}

// EventContract returns the emitting contract of event, if tagged.
func EventContract(event abci.Event) (addr common.Address, ok bool) {
	for _, v := range event.Attributes {
		if v.Key == AttrContract {
			return common.HexToAddress(v.Value), true
		}
	}
	return
}
