package timelock

import (
	"slices"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	DefaultAdminRole = common.Hash{}
	ProposerRole     = crypto.Keccak256Hash([]byte("PROPOSER_ROLE"))
	ExecutorRole     = crypto.Keccak256Hash([]byte("EXECUTOR_ROLE"))
	CancellerRole    = crypto.Keccak256Hash([]byte("CANCELLER_ROLE"))
)

// Anyone granted a role opens it to every account.
var Anyone = common.Address{}

func RoleName(role common.Hash) string {
	switch role {
	case DefaultAdminRole:
		return "DEFAULT_ADMIN_ROLE"
	case ProposerRole:
		return "PROPOSER_ROLE"
	case ExecutorRole:
		return "EXECUTOR_ROLE"
	case CancellerRole:
		return "CANCELLER_ROLE"
	}
	return role.Hex()
}

func (tl *Timelock) HasRole(s state.KVStore, role common.Hash, account common.Address) (bool, error) {
	return s.Has(tl.key("r%x%x", role.Bytes(), account.Bytes()))
}

func (tl *Timelock) GetRoleAdmin(s state.KVStore, role common.Hash) (common.Hash, error) {
	val, err := s.Get(tl.key("admin%x", role.Bytes()))
	return common.BytesToHash(val), err
}

// Members lists the accounts holding role in grant order.
func (tl *Timelock) Members(s state.KVStore, role common.Hash) (members []common.Address, err error) {
	_, err = state.GetJSON(s, tl.key("rm%x", role.Bytes()), &members)
	return
}

// AdminMembers is who can still change timelock policy outside a proposal.
func (tl *Timelock) AdminMembers(s state.KVStore) ([]common.Address, error) {
	return tl.Members(s, DefaultAdminRole)
}

func (tl *Timelock) checkRole(ctx *contract.Context, role common.Hash) error {
	ok, err := tl.HasRole(ctx.Store(), role, ctx.Caller)
	if err != nil {
		return err
	}
	if !ok {
		return types.Wrapf(types.ErrUnauthorized, "account %s is missing role %s", ctx.Caller.Hex(), RoleName(role))
	}
	return nil
}

// checkOpenRole passes when the role is granted to Anyone.
func (tl *Timelock) checkOpenRole(ctx *contract.Context, role common.Hash) error {
	open, err := tl.HasRole(ctx.Store(), role, Anyone)
	if err != nil || open {
		return err
	}
	return tl.checkRole(ctx, role)
}

func (tl *Timelock) grant(ctx *contract.Context, role common.Hash, account common.Address) error {
	s := ctx.Store()
	has, err := tl.HasRole(s, role, account)
	if err != nil || has {
		return err
	}
	if err = s.Set(tl.key("r%x%x", role.Bytes(), account.Bytes()), []byte{1}); err != nil {
		return err
	}
	members, err := tl.Members(s, role)
	if err != nil {
		return err
	}
	if err = state.SetJSON(s, tl.key("rm%x", role.Bytes()), append(members, account)); err != nil {
		return err
	}
	ctx.EmitFrom(tl.Self, types.EncodeEventRole(&types.EventRole{Granted: true, Role: role, Account: account, Sender: ctx.Caller}))
	return nil
}

func (tl *Timelock) revoke(ctx *contract.Context, role common.Hash, account common.Address) error {
	s := ctx.Store()
	has, err := tl.HasRole(s, role, account)
	if err != nil || !has {
		return err
	}
	if err = s.Delete(tl.key("r%x%x", role.Bytes(), account.Bytes())); err != nil {
		return err
	}
	members, err := tl.Members(s, role)
	if err != nil {
		return err
	}
	members = slices.DeleteFunc(members, func(a common.Address) bool { return a == account })
	if err = state.SetJSON(s, tl.key("rm%x", role.Bytes()), members); err != nil {
		return err
	}
	ctx.EmitFrom(tl.Self, types.EncodeEventRole(&types.EventRole{Granted: false, Role: role, Account: account, Sender: ctx.Caller}))
	return nil
}

func (tl *Timelock) GrantRole(ctx *contract.Context, role common.Hash, account common.Address) error {
	admin, err := tl.GetRoleAdmin(ctx.Store(), role)
	if err != nil {
		return err
	}
	if err = tl.checkRole(ctx, admin); err != nil {
		return err
	}
	return tl.grant(ctx, role, account)
}

func (tl *Timelock) RevokeRole(ctx *contract.Context, role common.Hash, account common.Address) error {
	admin, err := tl.GetRoleAdmin(ctx.Store(), role)
	if err != nil {
		return err
	}
	if err = tl.checkRole(ctx, admin); err != nil {
		return err
	}
	return tl.revoke(ctx, role, account)
}

// RenounceRole drops one of the caller's own roles; confirmation must be the caller.
func (tl *Timelock) RenounceRole(ctx *contract.Context, role common.Hash, confirmation common.Address) error {
	if confirmation != ctx.Caller {
		return types.Wrapf(types.ErrUnauthorized, "bad confirmation %s", confirmation.Hex())
	}
	return tl.revoke(ctx, role, confirmation)
}
