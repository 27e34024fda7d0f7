package chain

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleco/usdt-ledger/internal/money"
)

var (
	testToken = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	testFrom  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTo    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func transferLog(token common.Address, from, to common.Address, units int64) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(common.LeftPadBytes(from.Bytes(), 32)),
			common.BytesToHash(common.LeftPadBytes(to.Bytes(), 32)),
		},
		Data: common.LeftPadBytes(big.NewInt(units).Bytes(), 32),
	}
}

func TestParseTransferLogs(t *testing.T) {
	logs := []*types.Log{
		// 10.123400 tokens to our deposit address
		transferLog(testToken, testFrom, testTo, 10_123_400),
		// different contract, must be ignored
		transferLog(common.HexToAddress("0x9999999999999999999999999999999999999999"), testFrom, testTo, 1),
		// wrong topic shape, must be ignored
		{Address: testToken, Topics: []common.Hash{transferTopic}},
	}

	events := parseTransferLogs(testToken, money.TokenScale, logs)
	require.Len(t, events, 1)

	assert.Equal(t, testFrom.Hex(), events[0].From)
	assert.Equal(t, testTo.Hex(), events[0].To)

	want, err := money.ParseToken("10.1234")
	require.NoError(t, err)
	assert.True(t, events[0].Amount.Equal(want))
}

func TestTransferCalldata(t *testing.T) {
	amount, err := money.ParseToken("1.5")
	require.NoError(t, err)

	data := transferCalldata(testTo, amount.Units(money.TokenScale))
	require.Len(t, data, 68)

	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	assert.Equal(t, testTo, common.BytesToAddress(data[4:36]))
	assert.Equal(t, big.NewInt(1_500_000), new(big.Int).SetBytes(data[36:]))
}

func TestIsValidReference(t *testing.T) {
	assert.True(t, IsValidReference("0x4e3a3754410177e6937ef1f84bba68ea139e8d1a2258c5f85db9f1cd715a1bdd"))
	assert.True(t, IsValidReference("0x4E3A3754410177E6937EF1F84BBA68EA139E8D1A2258C5F85DB9F1CD715A1BDD"))
	assert.False(t, IsValidReference("4e3a3754410177e6937ef1f84bba68ea139e8d1a2258c5f85db9f1cd715a1bdd"))
	assert.False(t, IsValidReference("0x1234"))
	assert.False(t, IsValidReference("0xZZ3a3754410177e6937ef1f84bba68ea139e8d1a2258c5f85db9f1cd715a1bdd"))
	assert.False(t, IsValidReference(""))
}
