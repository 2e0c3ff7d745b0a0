package bankimport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/reconcile"
	"github.com/qiuethan/RT1M-sub001/store"
)

type fakeItems struct {
	mu       sync.Mutex
	items    []*models.PlaidItem
	statuses map[string]models.SyncStatus
}

func (f *fakeItems) GetPlaidItemsByUserID(_ context.Context, uid string) ([]*models.PlaidItem, error) {
	var out []*models.PlaidItem
	for _, it := range f.items {
		if it.UserID == uid {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItems) GetPlaidItemByItemID(_ context.Context, id string) (*models.PlaidItem, error) {
	for _, it := range f.items {
		if it.ItemID == id {
			return it, nil
		}
	}
	return nil, nil
}

func (f *fakeItems) SetSyncStatus(_ context.Context, id string, s models.SyncStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[string]models.SyncStatus{}
	}
	f.statuses[id] = s
	return nil
}

type fakeFetcher map[string][]Account

func (f fakeFetcher) Accounts(_ context.Context, token string) ([]Account, error) {
	accts, ok := f[token]
	if !ok {
		return nil, errors.New("ITEM_LOGIN_REQUIRED")
	}
	return accts, nil
}

type recorder struct{ events []models.ProfileUpdateEvent }

func (r *recorder) PublishProfileUpdate(_ context.Context, ev models.ProfileUpdateEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func TestCandidateMapping(t *testing.T) {
	cases := []struct {
		acct  Account
		asset models.AssetType
		debt  models.DebtType
	}{
		{Account{Name: "Everyday", Type: "depository", Subtype: "checking", Current: 1200}, models.AssetSavings, ""},
		{Account{Name: "Work plan", Type: "investment", Subtype: "401k", Current: 50000}, models.AssetRetirement, ""},
		{Account{Name: "Brokerage", Type: "investment", Subtype: "brokerage", Current: 9000}, models.AssetStocks, ""},
		{Account{Name: "Coins", Type: "investment", Subtype: "crypto exchange", Current: 300}, models.AssetCrypto, ""},
		{Account{Name: "Visa", Type: "credit", Subtype: "credit card", Current: 450}, "", models.DebtCreditCard},
		{Account{Name: "Home", Type: "loan", Subtype: "mortgage", Current: 250000}, "", models.DebtMortgage},
		{Account{Name: "Tuition", Type: "loan", Subtype: "student", Current: 20000}, "", models.DebtStudentLoan},
		{Account{Name: "Car", Type: "loan", Subtype: "auto", Current: 8000}, "", models.DebtCarLoan},
		{Account{Name: "Misc", Type: "other", Current: 10}, models.AssetOther, ""},
	}
	for _, tc := range cases {
		asset, debt := Candidate(tc.acct)
		if tc.asset != "" {
			require.NotNil(t, asset, tc.acct.Name)
			assert.Nil(t, debt)
			assert.Equal(t, tc.asset, asset.Type, tc.acct.Name)
		} else {
			require.NotNil(t, debt, tc.acct.Name)
			assert.Nil(t, asset)
			assert.Equal(t, tc.debt, debt.Type, tc.acct.Name)
		}
	}

	asset, _ := Candidate(Account{Name: "Savings", Mask: "0042", Type: "depository", Current: -5})
	assert.Equal(t, "Savings (0042)", asset.Name)
	assert.Equal(t, 5.0, asset.Value)
}

func TestSyncUserRefreshesBalances(t *testing.T) {
	gw := store.NewMemory()
	rec := reconcile.New(gw)
	items := &fakeItems{items: []*models.PlaidItem{{UserID: "u1", ItemID: "item-1", AccessToken: "tok-1"}}}
	fetch := fakeFetcher{"tok-1": {
		{Name: "Savings", Mask: "0042", Type: "depository", Current: 1000},
		{Name: "Visa", Mask: "9999", Type: "credit", Current: 300},
	}}
	events := &recorder{}
	s := NewSyncer(items, fetch, rec, events)

	sum, err := s.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, sum.UpdatedSections[reconcile.SectionAssets])
	assert.True(t, sum.UpdatedSections[reconcile.SectionDebts])
	assert.Equal(t, models.SyncIdle, items.statuses["item-1"])
	require.Len(t, events.events, 1)

	fetch["tok-1"][0].Current = 1500
	_, err = s.SyncUser(context.Background(), "u1")
	require.NoError(t, err)

	var doc models.FinancialsDoc
	found, err := gw.Get(context.Background(), store.UserRef(store.FinancialsCollection, "u1"), &doc)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, doc.Assets, 1)
	assert.Equal(t, 1500.0, doc.Assets[0].Value)
	assert.Equal(t, reconcile.SourcePlaid, doc.Assets[0].Source)
	assert.Equal(t, 1500.0, doc.FinancialInfo.TotalAssets)
	assert.Equal(t, 300.0, doc.FinancialInfo.TotalDebts)
}

func TestSyncUserMarksFailedItems(t *testing.T) {
	gw := store.NewMemory()
	items := &fakeItems{items: []*models.PlaidItem{{UserID: "u1", ItemID: "item-1", AccessToken: "expired"}}}
	s := NewSyncer(items, fakeFetcher{}, reconcile.New(gw), nil)

	sum, err := s.SyncUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, sum.Changed())
	assert.Equal(t, models.SyncFailed, items.statuses["item-1"])
}

func TestHandleJobResolvesItemOwner(t *testing.T) {
	gw := store.NewMemory()
	items := &fakeItems{items: []*models.PlaidItem{{UserID: "u7", ItemID: "item-7", AccessToken: "tok"}}}
	fetch := fakeFetcher{"tok": {{Name: "Checking", Type: "depository", Current: 42}}}
	s := NewSyncer(items, fetch, reconcile.New(gw), nil)

	require.NoError(t, s.HandleJob(context.Background(), []byte(`{"item_id":"item-7","reason":"DEFAULT_UPDATE"}`)))
	var doc models.FinancialsDoc
	found, err := gw.Get(context.Background(), store.UserRef(store.FinancialsCollection, "u7"), &doc)
	require.NoError(t, err)
	assert.True(t, found)

	assert.NoError(t, s.HandleJob(context.Background(), []byte(`{"item_id":"unknown"}`)))
	assert.Error(t, s.HandleJob(context.Background(), []byte(`{}`)))
}
