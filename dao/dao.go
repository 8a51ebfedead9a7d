package dao

import (
	"fmt"
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/timelock"
	"github.com/calehh/hac-dao/token"
	"github.com/calehh/hac-dao/treasury"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var KeyDeployment = state.Key("deployment")

const (
	AssetERC20  = "erc20"
	AssetERC721 = "erc721"
)

type Asset struct {
	Kind    string         `json:"kind" yaml:"kind"`
	Name    string         `json:"name" yaml:"name"`
	Address common.Address `json:"address" yaml:"address"`
}

// Deployment is the persisted address book of one organization.
type Deployment struct {
	Deployer common.Address `json:"deployer" yaml:"deployer"`
	Timelock common.Address `json:"timelock" yaml:"timelock"`
	Token    common.Address `json:"token" yaml:"token"`
	Governor common.Address `json:"governor" yaml:"governor"`
	Treasury common.Address `json:"treasury" yaml:"treasury"`
	Assets   []Asset        `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// DAO is a deployment bound to live contract instances.
type DAO struct {
	Deployment

	timelock *timelock.Timelock
	token    *token.VotesToken
	governor *governance.Engine
	treasury *treasury.Treasury
	erc20s   map[common.Address]*token.ERC20
	erc721s  map[common.Address]*token.ERC721
}

func (d *DAO) TimelockContract() *timelock.Timelock   { return d.timelock }
func (d *DAO) TokenContract() *token.VotesToken       { return d.token }
func (d *DAO) GovernorContract() *governance.Engine   { return d.governor }
func (d *DAO) TreasuryContract() *treasury.Treasury   { return d.treasury }
func (d *DAO) ERC20(addr common.Address) *token.ERC20 { return d.erc20s[addr] }

func (d *DAO) ERC721(addr common.Address) *token.ERC721 {
	return d.erc721s[addr]
}

// nextAddress derives a contract address the way an EVM create does and
// consumes one deployer nonce.
func nextAddress(s state.KVStore, deployer common.Address) (common.Address, error) {
	nonce, err := state.GetNonce(s, deployer)
	if err != nil {
		return common.Address{}, err
	}
	if err = state.SetNonce(s, deployer, nonce+1); err != nil {
		return common.Address{}, err
	}
	return crypto.CreateAddress(deployer, nonce), nil
}

func bind(d Deployment) *DAO {
	tl := timelock.New(d.Timelock)
	tok := token.NewVotesToken(d.Token)
	return &DAO{
		Deployment: d,
		timelock:   tl,
		token:      tok,
		governor:   governance.NewEngine(d.Governor, tok, tl),
		treasury:   treasury.New(d.Treasury),
		erc20s:     make(map[common.Address]*token.ERC20),
		erc721s:    make(map[common.Address]*token.ERC721),
	}
}

func (d *DAO) register(r *contract.Router) error {
	for _, c := range []contract.Contract{d.timelock, d.token, d.governor, d.treasury} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	for _, a := range d.Assets {
		if err := d.registerAsset(r, a); err != nil {
			return err
		}
	}
	return nil
}

func (d *DAO) registerAsset(r *contract.Router, a Asset) error {
	switch a.Kind {
	case AssetERC20:
		t := token.NewERC20(a.Address)
		d.erc20s[a.Address] = t
		return r.Register(t)
	case AssetERC721:
		t := token.NewERC721(a.Address)
		d.erc721s[a.Address] = t
		return r.Register(t)
	}
	return fmt.Errorf("unknown asset kind %q", a.Kind)
}

// Deploy creates the four linked contracts in the order timelock, token,
// governor, treasury and wires their ownership. The deployer keeps the token
// distribution right and, with bootstrap admin, timelock admin.
func Deploy(ctx *contract.Context, deployer common.Address, params types.GenesisParams) (*DAO, error) {
	s := ctx.Store()
	var dep Deployment
	dep.Deployer = deployer
	for _, addr := range []*common.Address{&dep.Timelock, &dep.Token, &dep.Governor, &dep.Treasury} {
		a, err := nextAddress(s, deployer)
		if err != nil {
			return nil, err
		}
		*addr = a
	}
	d := bind(dep)
	if err := d.register(ctx.Router()); err != nil {
		return nil, err
	}

	dc := ctx.WithCaller(deployer)
	executors := []common.Address{timelock.Anyone}
	if len(params.Executors) > 0 {
		executors = append([]common.Address{dep.Governor}, params.Executors...)
	}
	var admin common.Address
	if params.BootstrapAdmin {
		admin = deployer
	}
	if err := d.timelock.Init(dc, params.TimelockMinDelay, []common.Address{dep.Governor}, executors, admin); err != nil {
		return nil, fmt.Errorf("timelock: %w", err)
	}
	if err := d.token.Init(dc, params.TokenName, params.TokenSymbol, dep.Timelock, deployer); err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	threshold := new(big.Int)
	if params.ProposalThreshold != nil {
		threshold = (*big.Int)(params.ProposalThreshold)
	}
	if err := d.governor.Init(dc, &governance.Params{
		Name:                  params.GovernorName,
		VotingDelay:           params.VotingDelay,
		VotingPeriod:          params.VotingPeriod,
		ProposalThreshold:     new(big.Int).Set(threshold),
		QuorumNumerator:       params.QuorumNumerator,
		GracePeriod:           params.GracePeriod,
		RejectZeroWeightVotes: params.RejectZeroWeightVotes,
	}); err != nil {
		return nil, fmt.Errorf("governor: %w", err)
	}
	if err := d.treasury.Init(dc, dep.Timelock); err != nil {
		return nil, fmt.Errorf("treasury: %w", err)
	}
	if err := d.save(s); err != nil {
		return nil, err
	}
	ctx.Logger().Info("dao deployed", "timelock", dep.Timelock.Hex(), "token", dep.Token.Hex(),
		"governor", dep.Governor.Hex(), "treasury", dep.Treasury.Hex())
	return d, nil
}

// DeployAsset adds an extra ledger owned by the deployer.
func (d *DAO) DeployAsset(ctx *contract.Context, kind, name, symbol string) (common.Address, error) {
	s := ctx.Store()
	addr, err := nextAddress(s, d.Deployer)
	if err != nil {
		return addr, err
	}
	a := Asset{Kind: kind, Name: name, Address: addr}
	if err = d.registerAsset(ctx.Router(), a); err != nil {
		return addr, err
	}
	dc := ctx.WithCaller(d.Deployer)
	switch kind {
	case AssetERC20:
		err = d.erc20s[addr].Init(dc, name, symbol, d.Deployer)
	case AssetERC721:
		err = d.erc721s[addr].Init(dc, name, symbol, d.Deployer)
	}
	if err != nil {
		return addr, err
	}
	d.Assets = append(d.Assets, a)
	return addr, d.save(s)
}

func (d *DAO) save(s state.KVStore) error {
	return state.SetJSON(s, KeyDeployment, &d.Deployment)
}

// Load reads the deployment record.
func Load(s state.KVStore) (*Deployment, error) {
	dep := new(Deployment)
	found, err := state.GetJSON(s, KeyDeployment, dep)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return dep, nil
}

// Attach rebuilds the contract set of a stored deployment on r. It returns
// nil when nothing has been deployed yet.
func Attach(s state.KVStore, r *contract.Router) (*DAO, error) {
	dep, err := Load(s)
	if err != nil || dep == nil {
		return nil, err
	}
	d := bind(*dep)
	if err = d.register(r); err != nil {
		return nil, err
	}
	return d, nil
}
