package directory

import (
	"errors"
	"sync"
	"testing"

	"github.com/austrobank/interswitch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownBank() domain.BankNode {
	return domain.BankNode{Code: "0001", Name: "Banco Austral", LegalID: "J-10000001-0"}
}

func partner(code string) domain.BankNode {
	return domain.BankNode{
		Code:        code,
		Name:        "Banco " + code,
		LegalID:     "J-30123456-7",
		APIEndpoint: "https://switch-" + code + ".example.com",
		Kind:        domain.KindPartnerBank,
	}
}

func TestNew_SeedsOwnBank(t *testing.T) {
	dir, err := New(ownBank(), NewMemoryStore())
	require.NoError(t, err)

	own, err := dir.Lookup("0001")
	require.NoError(t, err)
	assert.Equal(t, domain.KindOwn, own.Kind)
	assert.Equal(t, domain.NodeActive, own.Status)
	assert.Equal(t, "0001", dir.OwnCode())
}

func TestNew_RejectsBadOwnRecord(t *testing.T) {
	_, err := New(domain.BankNode{Code: "001", LegalID: "J-10000001-0"}, nil)
	assert.Error(t, err)

	_, err = New(domain.BankNode{Code: "0001", LegalID: "10000001"}, nil)
	assert.Error(t, err)
}

func TestRegister_Validation(t *testing.T) {
	dir, err := New(ownBank(), nil)
	require.NoError(t, err)

	cases := []struct {
		name string
		node domain.BankNode
		code domain.ErrorCode
	}{
		{"own kind", domain.BankNode{Code: "0002", Name: "x", LegalID: "J-30123456-7", APIEndpoint: "https://x.example.com", Kind: domain.KindOwn}, domain.CodeInvalidFormat},
		{"short code", domain.BankNode{Code: "02", Name: "x", LegalID: "J-30123456-7", APIEndpoint: "https://x.example.com", Kind: domain.KindPartnerBank}, domain.CodeInvalidFormat},
		{"bad legal id", domain.BankNode{Code: "0002", Name: "x", LegalID: "30123456", APIEndpoint: "https://x.example.com", Kind: domain.KindPartnerBank}, domain.CodeInvalidFormat},
		{"relative endpoint", domain.BankNode{Code: "0002", Name: "x", LegalID: "J-30123456-7", APIEndpoint: "/v1", Kind: domain.KindPartnerBank}, domain.CodeInvalidEndpoint},
		{"ftp endpoint", domain.BankNode{Code: "0002", Name: "x", LegalID: "J-30123456-7", APIEndpoint: "ftp://x.example.com", Kind: domain.KindPartnerBank}, domain.CodeInvalidEndpoint},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := dir.Register(tc.node)
			var dirErr *Error
			require.ErrorAs(t, err, &dirErr)
			assert.Equal(t, tc.code, dirErr.Code)
		})
	}
}

func TestRegister_DuplicateCode(t *testing.T) {
	dir, err := New(ownBank(), nil)
	require.NoError(t, err)

	require.NoError(t, dir.Register(partner("0002")))

	err = dir.Register(partner("0002"))
	var dirErr *Error
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, domain.CodeDuplicateCode, dirErr.Code)
}

// Two concurrent registrations of the same code: exactly one wins.
func TestRegister_ConcurrentDuplicate(t *testing.T) {
	dir, err := New(ownBank(), nil)
	require.NoError(t, err)

	const attempts = 32
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = dir.Register(partner("0002"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var dirErr *Error
		require.ErrorAs(t, err, &dirErr)
		assert.Equal(t, domain.CodeDuplicateCode, dirErr.Code)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, dir.List(), 2) // own + one partner
}

func TestSetStatus(t *testing.T) {
	dir, err := New(ownBank(), NewMemoryStore())
	require.NoError(t, err)
	require.NoError(t, dir.Register(partner("0002")))

	require.NoError(t, dir.SetStatus("0002", domain.NodeDisabled))
	node, err := dir.Lookup("0002")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeDisabled, node.Status)
	assert.Len(t, dir.ListActive(), 1)
	assert.Len(t, dir.List(), 2)

	require.NoError(t, dir.SetStatus("0002", domain.NodeActive))
	assert.Len(t, dir.ListActive(), 2)
}

func TestSetStatus_Guards(t *testing.T) {
	dir, err := New(ownBank(), nil)
	require.NoError(t, err)
	require.NoError(t, dir.Register(partner("0002")))

	assert.True(t, errors.Is(dir.SetStatus("9999", domain.NodeDisabled), ErrNotFound))

	var dirErr *Error
	require.ErrorAs(t, dir.SetStatus("0002", "RETIRED"), &dirErr)
	assert.Equal(t, domain.CodeInvalidFormat, dirErr.Code)

	require.ErrorAs(t, dir.SetStatus("0001", domain.NodeDisabled), &dirErr)
	assert.Equal(t, domain.CodeForbidden, dirErr.Code)
}

func TestNew_ReplaysStore(t *testing.T) {
	store := NewMemoryStore()
	dir, err := New(ownBank(), store)
	require.NoError(t, err)
	require.NoError(t, dir.Register(partner("0002")))
	require.NoError(t, dir.Register(partner("0003")))
	require.NoError(t, dir.SetStatus("0003", domain.NodeDisabled))

	// A fresh directory over the same store sees the same nodes.
	reloaded, err := New(ownBank(), store)
	require.NoError(t, err)
	assert.Len(t, reloaded.List(), 3)
	node, err := reloaded.Lookup("0003")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeDisabled, node.Status)
}

func TestList_InsertionOrder(t *testing.T) {
	dir, err := New(ownBank(), nil)
	require.NoError(t, err)
	require.NoError(t, dir.Register(partner("0004")))
	require.NoError(t, dir.Register(partner("0002")))
	require.NoError(t, dir.Register(partner("0003")))

	codes := make([]string, 0, 4)
	for _, node := range dir.List() {
		codes = append(codes, node.Code)
	}
	assert.Equal(t, []string{"0001", "0004", "0002", "0003"}, codes)
}
