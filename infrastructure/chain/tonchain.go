package chain

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"dashboard/domain"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/tlb"
)

const (
	masterchain      = int32(-1)
	masterchainShard = uint64(0x8000000000000000)

	// LookupBlock mode: search by seqno.
	lookupBySeqno = uint32(1)
)

var (
	ErrorGetMethod = fmt.Errorf("get-method failed")
)

// TonChain reads contract state through a lite server. Reads for a resolved
// block are pinned to that masterchain block; pending reads use the head.
type TonChain struct {
	client  *liteapi.Client
	testnet bool
}

func NewTonChain(network string) (*TonChain, error) {
	var client *liteapi.Client
	var err error
	switch network {
	case domain.MainNetwork:
		client, err = liteapi.NewClientWithDefaultMainnet()
	case domain.TestNetwork:
		client, err = liteapi.NewClientWithDefaultTestnet()
	default:
		return nil, domain.ErrorInvalidNetwork
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create tongo client: %w", err)
	}
	return &TonChain{client: client, testnet: network == domain.TestNetwork}, nil
}

// BlockNumber returns the masterchain head seqno.
func (c *TonChain) BlockNumber(ctx context.Context) (uint64, error) {
	info, err := c.client.GetMasterchainInfo(ctx)
	if err != nil {
		return 0, transient(ctx, "masterchain info", err)
	}
	return uint64(info.Last.Seqno), nil
}

// RunGetMethod runs method on contract at block and returns its stack.
func (c *TonChain) RunGetMethod(ctx context.Context, contract domain.Address, method string, block domain.ResolvedBlock) (tlb.VmStack, error) {
	accountId, err := accountID(contract)
	if err != nil {
		return nil, err
	}
	client, err := c.at(ctx, block)
	if err != nil {
		return nil, err
	}

	code, stack, err := client.RunSmcMethod(ctx, accountId, method, tlb.VmStack{})
	if err != nil {
		return nil, transient(ctx, method, err)
	}
	if code != 0 && code != 1 {
		log.Printf("❗️ %v on %v exited with code %v at %v\n", method, contract, code, block)
		return nil, fmt.Errorf("%w: %v exit code %v", ErrorGetMethod, method, code)
	}
	return stack, nil
}

// RunIntGetMethod is RunGetMethod keeping only integer entries; other
// entries are nil.
func (c *TonChain) RunIntGetMethod(ctx context.Context, contract domain.Address, method string, block domain.ResolvedBlock) ([]*big.Int, error) {
	stack, err := c.RunGetMethod(ctx, contract, method, block)
	if err != nil {
		return nil, err
	}
	return StackInts(stack), nil
}

// JettonWallet returns owner's wallet address for the jetton master.
func (c *TonChain) JettonWallet(ctx context.Context, master domain.Address, owner domain.Address, block domain.ResolvedBlock) (domain.Address, error) {
	masterId, err := accountID(master)
	if err != nil {
		return "", err
	}
	ownerId, err := accountID(owner)
	if err != nil {
		return "", err
	}
	client, err := c.at(ctx, block)
	if err != nil {
		return "", err
	}

	wallet, err := client.GetJettonWallet(ctx, masterId, ownerId)
	if err != nil {
		return "", transient(ctx, "jetton wallet", err)
	}
	return domain.Address(wallet.ToHuman(true, c.testnet)), nil
}

// JettonBalance returns the balance of a jetton wallet. A wallet that was
// never deployed holds zero.
func (c *TonChain) JettonBalance(ctx context.Context, wallet domain.Address, block domain.ResolvedBlock) (*big.Int, error) {
	walletId, err := accountID(wallet)
	if err != nil {
		return nil, err
	}
	client, err := c.at(ctx, block)
	if err != nil {
		return nil, err
	}

	state, err := client.GetAccountState(ctx, walletId)
	if err != nil {
		return nil, transient(ctx, "account state", err)
	}
	if state.Account.SumType == "AccountNone" {
		return new(big.Int), nil
	}

	balance, err := client.GetJettonBalance(ctx, walletId)
	if err != nil {
		return nil, transient(ctx, "jetton balance", err)
	}
	return balance, nil
}

func (c *TonChain) at(ctx context.Context, block domain.ResolvedBlock) (*liteapi.Client, error) {
	if block.Pending {
		return c.client, nil
	}
	id, _, err := c.client.LookupBlock(ctx, tongo.BlockID{
		Workchain: masterchain,
		Shard:     masterchainShard,
		Seqno:     uint32(block.Number),
	}, lookupBySeqno, nil, nil)
	if err != nil {
		return nil, transient(ctx, fmt.Sprintf("lookup block %v", block.Number), err)
	}
	return c.client.WithBlock(id), nil
}

func accountID(address domain.Address) (tongo.AccountID, error) {
	id, err := tongo.AccountIDFromBase64Url(string(address))
	if err != nil {
		return tongo.AccountID{}, fmt.Errorf("%w: %v", domain.ErrorInvalidAddress, address)
	}
	return id, nil
}

func transient(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v - %v", domain.ErrorCancelled, what, ctx.Err())
	}
	return fmt.Errorf("%w: %v - %v", domain.ErrorTransientNetwork, what, err)
}

// StackInts converts integer stack entries to big.Int. Non-integer entries
// map to nil so positions are preserved.
func StackInts(stack tlb.VmStack) []*big.Int {
	values := make([]*big.Int, len(stack))
	for i, entry := range stack {
		values[i] = stackInt(entry)
	}
	return values
}

func stackInt(entry tlb.VmStackValue) *big.Int {
	switch entry.SumType {
	case "VmStkTinyInt":
		return big.NewInt(entry.VmStkTinyInt)
	case "VmStkInt":
		v := big.Int(entry.VmStkInt)
		return new(big.Int).Set(&v)
	default:
		return nil
	}
}
