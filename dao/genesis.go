package dao

import (
	"fmt"
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/timelock"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

func amount(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(v))
}

// InitGenesis funds the genesis accounts, deploys the organization and
// applies the optional distribution, assets and treasury deposit.
func InitGenesis(ctx *contract.Context, gs *types.AppState) (*DAO, error) {
	s := ctx.Store()
	for _, b := range gs.Balances {
		if err := contract.Mint(s, b.Address, amount(b.Amount)); err != nil {
			return nil, err
		}
	}
	d, err := Deploy(ctx, gs.Deployer, gs.Params)
	if err != nil {
		return nil, err
	}
	dc := ctx.WithCaller(gs.Deployer)

	if len(gs.Distribution) > 0 {
		recipients := make([]common.Address, len(gs.Distribution))
		amounts := make([]*big.Int, len(gs.Distribution))
		for i, b := range gs.Distribution {
			recipients[i] = b.Address
			amounts[i] = amount(b.Amount)
		}
		if err = d.token.TokenDistribution(dc, recipients, amounts); err != nil {
			return nil, fmt.Errorf("distribution: %w", err)
		}
		if gs.SelfDelegate {
			for _, r := range recipients {
				if err = d.token.Delegate(ctx.WithCaller(r), r); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, a := range gs.Assets {
		addr, err := d.DeployAsset(ctx, a.Kind, a.Name, a.Symbol)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", a.Name, err)
		}
		for _, h := range a.Holders {
			switch a.Kind {
			case AssetERC20:
				err = d.erc20s[addr].Mint(dc, h.Address, amount(h.Amount))
			case AssetERC721:
				err = d.erc721s[addr].Mint(dc, h.Address, amount(h.Amount))
			}
			if err != nil {
				return nil, fmt.Errorf("asset %s holder %s: %w", a.Name, h.Address.Hex(), err)
			}
		}
	}

	if gs.Deposit != nil {
		if _, err = ctx.Router().Call(ctx, gs.Deployer, d.Treasury, amount(gs.Deposit), nil); err != nil {
			return nil, fmt.Errorf("treasury deposit: %w", err)
		}
	}
	return d, nil
}

// Violation is one broken ownership rule.
type Violation struct {
	Rule    string
	Account common.Address
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Account.Hex())
}

// VerifyOwnership reports every account that holds authority it should not.
// Token and treasury must be owned by the timelock, the governor must be able
// to schedule and cancel, and timelock admin must be held by the timelock
// alone once bootstrap is over.
func VerifyOwnership(s state.KVStore, d *DAO) ([]Violation, error) {
	var out []Violation
	owner, err := d.token.Owner(s)
	if err != nil {
		return nil, err
	}
	if owner != d.Timelock {
		out = append(out, Violation{Rule: "token owner", Account: owner})
	}
	if owner, err = d.treasury.Owner(s); err != nil {
		return nil, err
	}
	if owner != d.Timelock {
		out = append(out, Violation{Rule: "treasury owner", Account: owner})
	}
	for _, role := range []common.Hash{timelock.ProposerRole, timelock.CancellerRole} {
		ok, err := d.timelock.HasRole(s, role, d.Governor)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, Violation{Rule: "governor lacks " + timelock.RoleName(role), Account: d.Governor})
		}
	}
	admins, err := d.timelock.AdminMembers(s)
	if err != nil {
		return nil, err
	}
	for _, a := range admins {
		if a != d.Timelock {
			out = append(out, Violation{Rule: "ungoverned admin", Account: a})
		}
	}
	return out, nil
}
