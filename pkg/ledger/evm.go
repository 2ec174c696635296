// Package ledger talks to the settlement contract: the authoritative
// balance and trade-settlement system outside this process.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dhkim0428/simple-dex/pkg/venue"
)

// Settlement contract surface used by the venue.
const contractABI = `[
	{"type":"function","name":"settleTrade","stateMutability":"nonpayable","inputs":[
		{"name":"buyerA","type":"address"},
		{"name":"sellerB","type":"address"},
		{"name":"ethAmount","type":"uint256"},
		{"name":"usdtAmount","type":"uint256"},
		{"name":"orderId","type":"string"}],"outputs":[]},
	{"type":"function","name":"getBalance","stateMutability":"view","inputs":[
		{"name":"user","type":"address"}],"outputs":[
		{"name":"ethBalance","type":"uint256"},
		{"name":"usdtBalance","type":"uint256"}]}
]`

// readMaxTries bounds the backoff retry loop around balance reads.
const readMaxTries = 3

// EVMConfig configures the contract client.
type EVMConfig struct {
	RPCURL          string
	ContractAddress common.Address
	// PrivateKey is the hex-encoded key of the venue's backend signer,
	// the only address allowed to call settleTrade.
	PrivateKey string
	ChainID    int64
}

// EVMLedger implements venue.Ledger against an EVM settlement
// contract over JSON-RPC.
type EVMLedger struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	addr     common.Address
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	log      *zap.SugaredLogger
}

var _ venue.Ledger = (*EVMLedger)(nil)

// DialEVM connects to the RPC endpoint and binds the settlement
// contract.
func DialEVM(cfg EVMConfig, log *zap.SugaredLogger) (*EVMLedger, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse backend key: %w", err)
	}

	l := &EVMLedger{
		client:   client,
		contract: bind.NewBoundContract(cfg.ContractAddress, parsed, client, client, client),
		addr:     cfg.ContractAddress,
		key:      key,
		chainID:  big.NewInt(cfg.ChainID),
		log:      log,
	}
	log.Infow("ledger_connected", "rpc", cfg.RPCURL,
		"contract", cfg.ContractAddress.Hex(), "backend", l.BackendAddress().Hex())
	return l, nil
}

// BackendAddress is the address the venue signs settlements with.
func (l *EVMLedger) BackendAddress() common.Address {
	return crypto.PubkeyToAddress(l.key.PublicKey)
}

// ContractAddress is the settlement contract's address.
func (l *EVMLedger) ContractAddress() common.Address { return l.addr }

// Deployed reports whether code exists at the contract address.
func (l *EVMLedger) Deployed(ctx context.Context) (bool, error) {
	code, err := l.client.CodeAt(ctx, l.addr, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", venue.ErrLedgerUnavailable, err)
	}
	return len(code) > 0, nil
}

// SettleTrade submits the trade to the contract and waits for the
// transaction to be mined. Returns the transaction hash.
func (l *EVMLedger) SettleTrade(ctx context.Context, buyer, seller common.Address, baseAmount, quoteAmount decimal.Decimal, tradeID string) (string, error) {
	baseUnits, err := ToBaseUnits(baseAmount)
	if err != nil {
		return "", fmt.Errorf("base amount: %w", err)
	}
	quoteUnits, err := ToQuoteUnits(quoteAmount)
	if err != nil {
		return "", fmt.Errorf("quote amount: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(l.key, l.chainID)
	if err != nil {
		return "", fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx

	l.log.Infow("settle_trade_submitting", "trade", tradeID,
		"buyer", buyer.Hex(), "seller", seller.Hex(),
		"base_units", baseUnits.String(), "quote_units", quoteUnits.String())

	tx, err := l.contract.Transact(opts, "settleTrade", buyer, seller, baseUnits, quoteUnits, tradeID)
	if err != nil {
		return "", fmt.Errorf("settleTrade call: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, l.client, tx)
	if err != nil {
		return "", fmt.Errorf("wait for settlement tx %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("settlement tx %s reverted", tx.Hash().Hex())
	}

	return receipt.TxHash.Hex(), nil
}

// GetBalances reads a wallet's holdings from the contract. Transient
// RPC failures are retried with exponential backoff before the read is
// reported as venue.ErrLedgerUnavailable.
func (l *EVMLedger) GetBalances(ctx context.Context, wallet common.Address) (decimal.Decimal, decimal.Decimal, error) {
	bo := backoff.NewExponentialBackOff()

	var out []interface{}
	var err error
	for attempt := 0; attempt < readMaxTries; attempt++ {
		out = out[:0]
		err = l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getBalance", wallet)
		if err == nil {
			break
		}
		l.log.Warnw("balance_read_retry", "wallet", wallet.Hex(), "attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", venue.ErrLedgerUnavailable, ctx.Err())
		case <-time.After(bo.NextBackOff()):
		}
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", venue.ErrLedgerUnavailable, err)
	}

	if len(out) != 2 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: getBalance returned %d values", venue.ErrLedgerUnavailable, len(out))
	}
	baseUnits, ok1 := out[0].(*big.Int)
	quoteUnits, ok2 := out[1].(*big.Int)
	if !ok1 || !ok2 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: unexpected getBalance result types", venue.ErrLedgerUnavailable)
	}

	return FromBaseUnits(baseUnits), FromQuoteUnits(quoteUnits), nil
}
