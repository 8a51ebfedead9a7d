package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/hac-dao/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// ChainClient is the part of the node RPC the indexer reads.
type ChainClient interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error)
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           ChainClient
	eventHandlers map[string]eventHandler
}

func Dial(url string) (*comethttp.HTTP, error) {
	return comethttp.New(url, "/websocket")
}

func OpenDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Proposal{}, &ProposalAction{}, &Vote{}, &Height{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewChainIndexer resumes after the last indexed height stored in db.
func NewChainIndexer(logger cmtlog.Logger, db *gorm.DB, url string, cli ChainClient) (*ChainIndexer, error) {
	h := Height{Id: 1}
	if err := db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &ChainIndexer{
		logger: logger.With("module", "indexer"),
		Url:    url,
		Height: int64(h.Height + 1),
		db:     db,
		cli:    cli,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventProposalCreatedType:  c.handleEventProposalCreated,
		types.EventVoteCastType:         c.handleEventVoteCast,
		types.EventProposalQueuedType:   c.handleEventProposalTransition,
		types.EventProposalExecutedType: c.handleEventProposalTransition,
		types.EventProposalCanceledType: c.handleEventProposalTransition,
	}
	return c, nil
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

func (c *ChainIndexer) handleEventProposalCreated(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalCreated(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	id := ev.ProposalId.Hex()
	proposal := Proposal{
		ProposalId:      id,
		ProposerAddress: ev.Proposer.Hex(),
		Description:     ev.Description,
		VoteStart:       ev.VoteStart,
		VoteEnd:         ev.VoteEnd,
		Status:          types.ProposalStatePending.String(),
		NewHeight:       uint64(height),
		UpdateHeight:    uint64(height),
	}
	if err := db.Create(&proposal).Error; err != nil {
		return fmt.Errorf("save proposal %s: %w", id, err)
	}
	for i := range ev.Targets {
		action := ProposalAction{
			ProposalId: id,
			Seq:        i,
			Target:     ev.Targets[i].Hex(),
			Value:      ev.Values[i].String(),
			Calldata:   hexutil.Encode(ev.Calldatas[i]),
		}
		if err := db.Create(&action).Error; err != nil {
			return fmt.Errorf("save action %d of %s: %w", i, id, err)
		}
	}
	return nil
}

func (c *ChainIndexer) handleEventVoteCast(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVoteCast(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	vote := Vote{
		ProposalId:   ev.ProposalId.Hex(),
		VoterAddress: ev.Voter.Hex(),
		Support:      uint8(ev.Support),
		Weight:       ev.Weight.String(),
		Reason:       ev.Reason,
		Height:       uint64(height),
	}
	return db.Create(&vote).Error
}

func (c *ChainIndexer) handleEventProposalTransition(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalTransition(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	var proposal Proposal
	if err := db.Where("proposal_id = ?", ev.ProposalId.Hex()).First(&proposal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logger.Error("transition of unknown proposal", "id", ev.ProposalId.Hex(), "type", ev.Type)
			return nil
		}
		return err
	}
	switch ev.Type {
	case types.EventProposalQueuedType:
		proposal.Status = types.ProposalStateQueued.String()
		proposal.Eta = ev.Eta
	case types.EventProposalExecutedType:
		proposal.Status = types.ProposalStateExecuted.String()
	case types.EventProposalCanceledType:
		proposal.Status = types.ProposalStateCanceled.String()
	}
	proposal.UpdateHeight = uint64(height)
	return db.Save(&proposal).Error
}

// IndexBlock stores the governance events of the successful txs of one block
// and advances the stored height, all in one sqlite transaction.
func (c *ChainIndexer) IndexBlock(ctx context.Context, height int64) error {
	res, err := c.cli.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	tx := c.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	for _, r := range res.TxsResults {
		if r.Code != abci.CodeTypeOK {
			continue
		}
		for _, event := range r.Events {
			if err := c.handleEvent(tx, event, height); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	if err := tx.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// Sync indexes every block up to the node's latest height.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	b, err := c.cli.Status(ctx)
	if err != nil {
		return err
	}
	for c.Height <= b.SyncInfo.LatestBlockHeight {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.IndexBlock(ctx, c.Height); err != nil {
			return fmt.Errorf("index height %d: %w", c.Height, err)
		}
		c.logger.Debug("indexed", "height", c.Height)
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
				if hc, ok := c.cli.(*comethttp.HTTP); ok && !hc.IsRunning() {
					cli, err := Dial(c.Url)
					if err != nil {
						c.logger.Error("reconnect fail", "err", err)
						continue
					}
					c.cli = cli
				}
			}
		}
	}
}

func (c *ChainIndexer) getProposals(proposer, status string, page int, pageSize int) ([]Proposal, uint64, error) {
	proposals := make([]Proposal, 0)
	q := c.db.Model(&Proposal{})
	if proposer != "" {
		q = q.Where("proposer_address = ?", proposer)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId string) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("proposal_id = ?", proposalId).First(&proposal).Error
	return proposal, err
}

func (c *ChainIndexer) getProposalActions(proposalId string) ([]ProposalAction, error) {
	actions := make([]ProposalAction, 0)
	err := c.db.Where("proposal_id = ?", proposalId).Order("seq asc").Find(&actions).Error
	return actions, err
}

func (c *ChainIndexer) getVotes(proposalId, voter string, page int, pageSize int) ([]Vote, uint64, error) {
	votes := make([]Vote, 0)
	q := c.db.Model(&Vote{})
	if proposalId != "" {
		q = q.Where("proposal_id = ?", proposalId)
	}
	if voter != "" {
		q = q.Where("voter_address = ?", voter)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error; err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) allVotes(proposalId string) ([]Vote, error) {
	votes := make([]Vote, 0)
	err := c.db.Where("proposal_id = ?", proposalId).Find(&votes).Error
	return votes, err
}
