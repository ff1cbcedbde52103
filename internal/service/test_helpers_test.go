package service

import (
	"context"
	"testing"
	"time"

	"github.com/austrobank/interswitch/internal/accounts"
	"github.com/austrobank/interswitch/internal/bin"
	"github.com/austrobank/interswitch/internal/directory"
	"github.com/austrobank/interswitch/internal/domain"
	"github.com/austrobank/interswitch/internal/idempotency"
	"github.com/austrobank/interswitch/internal/journal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	ownCode     = "0001"
	partnerCode = "0002"

	localPAN  = "4111111111111111" // BIN 4111 -> own bank
	remotePAN = "5200001234567890" // BIN 52 -> partner bank

	cardAccount     = "acct:card-1"
	merchantAccount = "acct:merchant-1"
	merchantID      = "MERCH-1"
)

// fixture wires the full transaction path against in-memory backends.
// The partner endpoint defaults to an unroutable address; tests that
// exercise forwarding re-point it at an httptest server.
type fixture struct {
	dir      *directory.Directory
	bins     *bin.Router
	store    *accounts.MemoryStore
	results  *idempotency.Store
	recorder *journal.MemoryRecorder
	svc      *PaymentService
}

func newFixture(t *testing.T, partnerEndpoint string) *fixture {
	t.Helper()

	dir, err := directory.New(domain.BankNode{
		Code:    ownCode,
		Name:    "Banco Austral",
		LegalID: "J-10000001-0",
	}, directory.NewMemoryStore())
	require.NoError(t, err)

	if partnerEndpoint == "" {
		partnerEndpoint = "http://127.0.0.1:1" // connection refused
	}
	require.NoError(t, dir.Register(domain.BankNode{
		Code:        partnerCode,
		Name:        "Banco del Caribe",
		LegalID:     "J-30123456-7",
		APIEndpoint: partnerEndpoint,
		Kind:        domain.KindPartnerBank,
	}))

	bins, err := bin.NewRouter(ownCode, []bin.Rule{
		{Prefix: "4111", BankCode: ownCode},
		{Prefix: "52", BankCode: partnerCode},
	})
	require.NoError(t, err)

	store := accounts.NewMemoryStore()
	store.SeedCard(accounts.Card{PAN: localPAN, CVC: "123", Expiry: "12/49", AccountRef: cardAccount, Active: true})
	store.SeedAccount(cardAccount, domain.Money(1_000_000_000)) // 1000.00
	store.SeedMerchant(accounts.Merchant{ID: merchantID, Name: "Panaderia Central", AccountRef: merchantAccount, Active: true})

	results := idempotency.NewStore(nil, time.Hour, nil)
	recorder := journal.NewMemoryRecorder()
	validator := NewValidator(dir, store)
	local := NewLocalSettlement(store, results, zap.NewNop())
	remote := NewRemoteDispatcher(500*time.Millisecond, zap.NewNop())
	svc := NewPaymentService(dir, bins, validator, local, remote, recorder, zap.NewNop())

	return &fixture{dir: dir, bins: bins, store: store, results: results, recorder: recorder, svc: svc}
}

func validRequest(txID, pan string) domain.TransactionRequest {
	return domain.TransactionRequest{
		TransactionID:       txID,
		CardNumber:          pan,
		CardExpiry:          "12/49",
		CardCVC:             "123",
		ReceivingBankCode:   ownCode,
		ReceivingMerchantID: merchantID,
		Amount:              domain.Money(100_500_000), // 100.50
	}
}

func (f *fixture) balance(t *testing.T, ref string) domain.Money {
	t.Helper()
	balance, err := f.store.GetBalance(context.Background(), ref)
	require.NoError(t, err)
	return balance
}
