package service

import (
	"context"
	"sync"
	"testing"

	"github.com/austrobank/interswitch/internal/accounts"
	"github.com/austrobank/interswitch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle_MovesBalancesAtomically(t *testing.T) {
	f := newFixture(t, "")
	local := NewLocalSettlement(f.store, f.results, nil)

	result := local.Settle(context.Background(), validRequest("tx-1", localPAN))
	assert.Equal(t, domain.StatusApproved, result.Status)
	assert.Equal(t, domain.Money(899_500_000), f.balance(t, cardAccount))
	assert.Equal(t, domain.Money(100_500_000), f.balance(t, merchantAccount))
}

func TestSettle_InsufficientFunds(t *testing.T) {
	f := newFixture(t, "")
	f.store.SeedAccount(cardAccount, domain.Money(50_000_000)) // 50.00
	local := NewLocalSettlement(f.store, f.results, nil)

	result := local.Settle(context.Background(), validRequest("tx-1", localPAN))
	assert.Equal(t, domain.StatusDeclined, result.Status)
	assert.Equal(t, domain.CodeInsufficientFunds, result.ErrorCode)

	// Neither leg moved.
	assert.Equal(t, domain.Money(50_000_000), f.balance(t, cardAccount))
	assert.Equal(t, domain.Money(0), f.balance(t, merchantAccount))
}

func TestSettle_CardChecks(t *testing.T) {
	f := newFixture(t, "")
	f.store.SeedCard(accounts.Card{PAN: "4111000011110000", CVC: "123", Expiry: "12/49", AccountRef: "acct:frozen", Active: false})
	local := NewLocalSettlement(f.store, f.results, nil)

	cases := []struct {
		name   string
		mutate func(*domain.TransactionRequest)
	}{
		{"unknown card", func(r *domain.TransactionRequest) { r.CardNumber = "4111999999999999" }},
		{"inactive card", func(r *domain.TransactionRequest) { r.CardNumber = "4111000011110000" }},
		{"cvc mismatch", func(r *domain.TransactionRequest) { r.CardCVC = "999" }},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest("tx-"+string(rune('a'+i)), localPAN)
			tc.mutate(&req)
			result := local.Settle(context.Background(), req)
			assert.Equal(t, domain.StatusDeclined, result.Status)
			assert.Equal(t, domain.CodeValidationError, result.ErrorCode)
		})
	}
	assert.Equal(t, domain.Money(1_000_000_000), f.balance(t, cardAccount))
}

func TestSettle_IdempotentReplay(t *testing.T) {
	f := newFixture(t, "")
	local := NewLocalSettlement(f.store, f.results, nil)
	req := validRequest("tx-1", localPAN)

	first := local.Settle(context.Background(), req)
	second := local.Settle(context.Background(), req)

	assert.Equal(t, first, second)
	// Only one debit happened.
	assert.Equal(t, domain.Money(899_500_000), f.balance(t, cardAccount))
	assert.Equal(t, domain.Money(100_500_000), f.balance(t, merchantAccount))
}

func TestSettle_DeclinesAreReplayedToo(t *testing.T) {
	f := newFixture(t, "")
	f.store.SeedAccount(cardAccount, domain.Money(1_000_000)) // 1.00
	local := NewLocalSettlement(f.store, f.results, nil)
	req := validRequest("tx-1", localPAN)

	first := local.Settle(context.Background(), req)
	require.Equal(t, domain.CodeInsufficientFunds, first.ErrorCode)

	// Funding the account afterwards does not change the stored answer.
	f.store.SeedAccount(cardAccount, domain.Money(1_000_000_000))
	second := local.Settle(context.Background(), req)
	assert.Equal(t, first, second)
	assert.Equal(t, domain.Money(1_000_000_000), f.balance(t, cardAccount))
}

func TestSettle_ConcurrentSameID_DebitsOnce(t *testing.T) {
	f := newFixture(t, "")
	local := NewLocalSettlement(f.store, f.results, nil)
	req := validRequest("tx-1", localPAN)

	const racers = 16
	results := make([]domain.TransactionResult, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = local.Settle(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for _, result := range results {
		assert.Equal(t, domain.StatusApproved, result.Status)
	}
	assert.Equal(t, domain.Money(899_500_000), f.balance(t, cardAccount))
	assert.Equal(t, domain.Money(100_500_000), f.balance(t, merchantAccount))
}

func TestAuthorize_ParksFundsOnSuspense(t *testing.T) {
	f := newFixture(t, "")
	local := NewLocalSettlement(f.store, f.results, nil)

	req := validRequest("tx-1", localPAN)
	req.ReceivingBankCode = partnerCode
	req.ReceivingMerchantID = "MERCH-REMOTE" // lives at the acquiring bank

	result := local.Authorize(context.Background(), req)
	assert.Equal(t, domain.StatusApproved, result.Status)
	assert.Equal(t, domain.Money(899_500_000), f.balance(t, cardAccount))
	assert.Equal(t, domain.Money(100_500_000), f.balance(t, accounts.SuspenseAccountRef))
}
