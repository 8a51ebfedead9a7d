package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"
)

type client struct {
	cli     *http.HTTP
	chainId string
}

func newClient(ctx context.Context, url string) (*client, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain genesis: %w", err)
	}
	return &client{cli: cli, chainId: gres.Genesis.ChainID}, nil
}

// query decodes a JSON answer of the app into v.
func (c *client) query(ctx context.Context, path string, data []byte, v any) error {
	res, err := c.cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return err
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %s: code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	if v == nil {
		return nil
	}
	if raw, ok := v.(*[]byte); ok {
		*raw = res.Response.Value
		return nil
	}
	return json.Unmarshal(res.Response.Value, v)
}

func (c *client) account(ctx context.Context, addr common.Address) (*state.Account, error) {
	var act state.Account
	if err := c.query(ctx, "/accounts/", addr.Bytes(), &act); err != nil {
		return nil, err
	}
	return &act, nil
}

// broadcast signs body with the next nonce of key and waits for CheckTx.
func (c *client) broadcast(ctx context.Context, key *ecdsa.PrivateKey, tp tx.DAOTxType, body any) (map[string]any, error) {
	act, err := c.account(ctx, crypto.Address(key))
	if err != nil {
		return nil, err
	}
	btx, err := tx.NewSigned(c.chainId, key, act.Nonce, tp, body)
	if err != nil {
		return nil, err
	}
	dat, err := tx.MarshalDAOTx(btx)
	if err != nil {
		return nil, err
	}
	res, err := c.cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return nil, fmt.Errorf("broadcast tx: %w", err)
	}
	if res.Code != 0 {
		return nil, fmt.Errorf("tx rejected: code %d: %s", res.Code, res.Log)
	}
	return map[string]any{
		"hash":   res.Hash.String(),
		"type":   tp.String(),
		"sender": btx.Sender.Hex(),
		"nonce":  btx.Nonce,
	}, nil
}

func printOut(format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case outputJSON, "":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(os.Stdout, "%s\n", out)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid 32 byte hex %q", s)
	}
	return common.BytesToHash(b), nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

var errNoActions = errors.New("at least one --target is required")

// actions turns the repeated flags into parallel arrays. Missing values and
// calldatas default to zero and empty.
func (a *actionArguments) actions() (targets []common.Address, values []*big.Int, calldatas []hexutil.Bytes, err error) {
	if len(a.Targets) == 0 {
		return nil, nil, nil, errNoActions
	}
	if len(a.Values) > len(a.Targets) || len(a.Calldatas) > len(a.Targets) {
		return nil, nil, nil, fmt.Errorf("%d targets, %d values, %d calldatas", len(a.Targets), len(a.Values), len(a.Calldatas))
	}
	for i, t := range a.Targets {
		addr, err := parseAddress(t)
		if err != nil {
			return nil, nil, nil, err
		}
		targets = append(targets, addr)
		v := new(big.Int)
		if i < len(a.Values) {
			if v, err = parseAmount(a.Values[i]); err != nil {
				return nil, nil, nil, err
			}
		}
		values = append(values, v)
		var data hexutil.Bytes
		if i < len(a.Calldatas) {
			if data, err = hexutil.Decode(a.Calldatas[i]); err != nil {
				return nil, nil, nil, fmt.Errorf("calldata %d: %w", i, err)
			}
		}
		calldatas = append(calldatas, data)
	}
	return targets, values, calldatas, nil
}
