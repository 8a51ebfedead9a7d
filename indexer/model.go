package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primaryKey" json:"id"`
	Height uint64 `json:"height"`
}

// Proposal status follows the events seen so far: Pending until queued,
// executed or canceled. Active, Defeated and Expired depend on the clock and
// are answered by the node itself.
type Proposal struct {
	Id              uint64 `gorm:"primaryKey" json:"id"`
	ProposalId      string `gorm:"unique_index" json:"proposal_id"`
	ProposerAddress string `gorm:"index" json:"proposer_address"`
	Description     string `json:"description"`
	VoteStart       uint64 `json:"vote_start"`
	VoteEnd         uint64 `json:"vote_end"`
	Status          string `json:"status"`
	Eta             uint64 `json:"eta"`
	NewHeight       uint64 `json:"new_height"`
	UpdateHeight    uint64 `json:"update_height"`
}

type ProposalAction struct {
	Id         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProposalId string `gorm:"index" json:"proposal_id"`
	Seq        int    `json:"seq"`
	Target     string `json:"target"`
	Value      string `json:"value"`
	Calldata   string `json:"calldata"`
}

type Vote struct {
	Id           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProposalId   string `gorm:"index" json:"proposal_id"`
	VoterAddress string `gorm:"index" json:"voter_address"`
	Support      uint8  `json:"support"`
	Weight       string `json:"weight"`
	Reason       string `json:"reason"`
	Height       uint64 `json:"height"`
}
