package indexer

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/calehh/hac-dao/types"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const maxPageSize = 100

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getProposal", s.handleGetProposal)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.GET("/status", s.handleStatus)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.listenAddr, Handler: s.engine}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type Tally struct {
	AgainstVotes string `json:"againstVotes"`
	ForVotes     string `json:"forVotes"`
	AbstainVotes string `json:"abstainVotes"`
	Voters       int    `json:"voters"`
}

type ProposalInfo struct {
	Proposal Proposal         `json:"proposal"`
	Actions  []ProposalAction `json:"actions"`
	Tally    Tally            `json:"tally"`
}

type GetProposalsReq struct {
	ProposerAddress string `json:"proposer"`
	Status          string `json:"status"`
	Page            int    `json:"page"`
	PageSize        int    `json:"pageSize"`
}

type GetProposalsResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func pageSize(n int) int {
	if n <= 0 || n > maxPageSize {
		return maxPageSize
	}
	return n
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalsResponse
	response.Proposals = make([]ProposalInfo, 0)
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.Status != "" {
		st, err := types.ParseProposalState(requestData.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		requestData.Status = st.String()
	}

	proposals, total, err := s.indexer.getProposals(requestData.ProposerAddress, requestData.Status, requestData.Page, pageSize(requestData.PageSize))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Total = total
	for _, proposal := range proposals {
		info, err := s.proposalInfo(proposal)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, info)
	}
	c.JSON(http.StatusOK, response)
}

type GetProposalReq struct {
	ProposalId string `json:"proposalId" binding:"required"`
}

// GetProposalResponse carries everything needed to queue, execute or cancel
// the proposal: its actions and description.
type GetProposalResponse struct {
	ProposalInfo
	Votes []Vote `json:"votes"`
}

func (s *Service) handleGetProposal(c *gin.Context) {
	var requestData GetProposalReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proposal, err := s.indexer.getProposalById(requestData.ProposalId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	votes, err := s.indexer.allVotes(proposal.ProposalId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	actions, err := s.indexer.getProposalActions(proposal.ProposalId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetProposalResponse{
		ProposalInfo: ProposalInfo{Proposal: proposal, Actions: actions, Tally: VotesToTally(votes)},
		Votes:        votes,
	})
}

func (s *Service) proposalInfo(proposal Proposal) (ProposalInfo, error) {
	actions, err := s.indexer.getProposalActions(proposal.ProposalId)
	if err != nil {
		return ProposalInfo{}, err
	}
	votes, err := s.indexer.allVotes(proposal.ProposalId)
	if err != nil {
		return ProposalInfo{}, err
	}
	return ProposalInfo{
		Proposal: proposal,
		Actions:  actions,
		Tally:    VotesToTally(votes),
	}, nil
}

// VotesToTally sums vote weights per support value.
func VotesToTally(votes []Vote) Tally {
	sums := [3]*big.Int{new(big.Int), new(big.Int), new(big.Int)}
	for _, vote := range votes {
		if !types.VoteType(vote.Support).Valid() {
			continue
		}
		w, ok := new(big.Int).SetString(vote.Weight, 10)
		if !ok {
			continue
		}
		sums[vote.Support].Add(sums[vote.Support], w)
	}
	return Tally{
		AgainstVotes: sums[types.VoteAgainst].String(),
		ForVotes:     sums[types.VoteFor].String(),
		AbstainVotes: sums[types.VoteAbstain].String(),
		Voters:       len(votes),
	}
}

type GetVotesReq struct {
	ProposalId   string `json:"proposalId"`
	VoterAddress string `json:"voter"`
	Page         int    `json:"page"`
	PageSize     int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []Vote `json:"votes"`
	Total uint64 `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.ProposalId == "" && requestData.VoterAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposalId or voter is required"})
		return
	}
	votes, total, err := s.indexer.getVotes(requestData.ProposalId, requestData.VoterAddress, requestData.Page, pageSize(requestData.PageSize))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votes, Total: total})
}

func (s *Service) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"height": s.indexer.Height - 1})
}
