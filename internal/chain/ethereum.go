package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/settleco/usdt-ledger/internal/money"
)

var (
	transferTopic     = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	transferSelector  = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
)

const (
	// Safety margin over the gas estimate so transfers are not underpriced.
	gasMarginPct = 20

	minePollInterval = 2 * time.Second
)

// EthereumClient settles against an ERC-20 token contract through a single
// hot wallet. Submissions are serialized so concurrent withdrawals never
// reuse a nonce.
type EthereumClient struct {
	client   *ethclient.Client
	token    common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	decimals int32

	submitMu sync.Mutex
}

func Dial(ctx context.Context, rpcURL, tokenContract, hotWalletKeyHex string) (*EthereumClient, error) {
	if !common.IsHexAddress(tokenContract) {
		return nil, fmt.Errorf("Dial: bad token contract %q", tokenContract)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("Dial: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hotWalletKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("Dial: hot wallet key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("Dial: chain id: %w", err)
	}

	return &EthereumClient{
		client:   client,
		token:    common.HexToAddress(tokenContract),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		decimals: money.TokenScale,
	}, nil
}

func (c *EthereumClient) Balance(ctx context.Context, address string) (money.Amount, error) {
	if !common.IsHexAddress(address) {
		return money.Zero, fmt.Errorf("Balance: %q is not an address", address)
	}

	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)...)

	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: data}, nil)
	if err != nil {
		return money.Zero, fmt.Errorf("Balance: %w", err)
	}
	return money.FromUnits(new(big.Int).SetBytes(out), c.decimals), nil
}

func (c *EthereumClient) Receipt(ctx context.Context, ref string) (*Receipt, error) {
	rcpt, err := c.client.TransactionReceipt(ctx, common.HexToHash(ref))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("Receipt: %w", ErrReceiptNotFound)
		}
		return nil, fmt.Errorf("Receipt: %w", err)
	}
	return c.buildReceipt(rcpt), nil
}

func (c *EthereumClient) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	n, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("CurrentBlockHeight: %w", err)
	}
	return n, nil
}

func (c *EthereumClient) SubmitTransfer(ctx context.Context, to string, amount money.Amount) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("SubmitTransfer: %q is not an address", to)
	}

	data := transferCalldata(common.HexToAddress(to), amount.Units(c.decimals))

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("SubmitTransfer: nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("SubmitTransfer: gas price: %w", err)
	}

	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.token,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("SubmitTransfer: estimate gas: %w", err)
	}
	gasLimit += gasLimit * gasMarginPct / 100

	tx := types.NewTransaction(nonce, c.token, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("SubmitTransfer: sign: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("SubmitTransfer: send: %w", err)
	}

	return signed.Hash().Hex(), nil
}

// WaitMined polls for the receipt until the transfer is mined or ctx is done.
func (c *EthereumClient) WaitMined(ctx context.Context, ref string) (*Receipt, error) {
	hash := common.HexToHash(ref)
	ticker := time.NewTicker(minePollInterval)
	defer ticker.Stop()

	for {
		rcpt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if rcpt.Status != types.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("WaitMined: transaction %s reverted", ref)
			}
			return c.buildReceipt(rcpt), nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("WaitMined: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("WaitMined: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *EthereumClient) IsValidAddress(addr string) bool {
	return common.IsHexAddress(addr)
}

func (c *EthereumClient) Close() {
	c.client.Close()
}

// HotWalletAddress is the address withdrawals are paid from.
func (c *EthereumClient) HotWalletAddress() string {
	return c.from.Hex()
}

var _ Client = (*EthereumClient)(nil)

func (c *EthereumClient) buildReceipt(rcpt *types.Receipt) *Receipt {
	r := &Receipt{
		TxHash:      rcpt.TxHash.Hex(),
		BlockNumber: rcpt.BlockNumber.Uint64(),
	}
	if rcpt.Status == types.ReceiptStatusSuccessful {
		r.Transfers = parseTransferLogs(c.token, c.decimals, rcpt.Logs)
	}
	return r
}

// parseTransferLogs extracts ERC-20 Transfer events emitted by the token
// contract. Indexed from/to live in topics 1 and 2, the value in the data.
func parseTransferLogs(token common.Address, decimals int32, logs []*types.Log) []TransferEvent {
	var out []TransferEvent
	for _, l := range logs {
		if l == nil || l.Address != token || len(l.Topics) != 3 || l.Topics[0] != transferTopic {
			continue
		}
		out = append(out, TransferEvent{
			From:   common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
			To:     common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
			Amount: money.FromUnits(new(big.Int).SetBytes(l.Data), decimals),
		})
	}
	return out
}

func transferCalldata(to common.Address, units *big.Int) []byte {
	data := make([]byte, 0, 68)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(units.Bytes(), 32)...)
	return data
}
