package bankimport

import (
	"context"
	"fmt"
	"strings"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/qiuethan/RT1M-sub001/models"
)

// Account is the part of a linked bank account the import needs.
type Account struct {
	Name    string
	Mask    string
	Type    string
	Subtype string
	Current float64
}

// AccountFetcher lists the accounts behind one access token.
type AccountFetcher interface {
	Accounts(ctx context.Context, accessToken string) ([]Account, error)
}

type PlaidFetcher struct {
	client *plaid.APIClient
}

func NewPlaidFetcher(client *plaid.APIClient) *PlaidFetcher {
	return &PlaidFetcher{client: client}
}

func (f *PlaidFetcher) Accounts(ctx context.Context, accessToken string) ([]Account, error) {
	req := plaid.NewAccountsGetRequest(accessToken)
	resp, _, err := f.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*req).Execute()
	if err != nil {
		if plaidErr, ok := err.(*plaid.GenericOpenAPIError); ok {
			return nil, fmt.Errorf("plaid accounts: %s: %w", string(plaidErr.Body()), err)
		}
		return nil, fmt.Errorf("plaid accounts: %w", err)
	}
	var out []Account
	for _, a := range resp.GetAccounts() {
		balances := a.GetBalances()
		out = append(out, Account{
			Name:    a.GetName(),
			Mask:    a.GetMask(),
			Type:    string(a.GetType()),
			Subtype: string(a.GetSubtype()),
			Current: balances.GetCurrent(),
		})
	}
	return out, nil
}

var retirementSubtypes = map[string]bool{
	"401a": true, "401k": true, "403b": true, "457b": true, "ira": true, "roth": true, "roth 401k": true,
	"sep ira": true, "simple ira": true, "sarsep": true, "pension": true, "retirement": true,
	"rrsp": true, "rrif": true, "lira": true, "lrif": true, "lrsp": true, "prif": true, "rdsp": true,
	"keogh": true, "thrift savings plan": true, "profit sharing plan": true,
}

// Candidate maps an account to an asset or a debt candidate. Exactly one of
// the results is non-nil.
func Candidate(a Account) (*models.AssetCandidate, *models.DebtCandidate) {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = "Linked account"
	}
	if a.Mask != "" {
		name += " (" + a.Mask + ")"
	}
	amount := a.Current
	if amount < 0 {
		amount = -amount
	}
	subtype := strings.ToLower(a.Subtype)
	desc := "Imported from linked bank account"

	switch strings.ToLower(a.Type) {
	case "credit":
		return nil, &models.DebtCandidate{Name: name, Type: models.DebtCreditCard, Balance: amount, Description: desc}
	case "loan":
		t := models.DebtOther
		switch {
		case subtype == "mortgage" || subtype == "home equity":
			t = models.DebtMortgage
		case subtype == "student":
			t = models.DebtStudentLoan
		case subtype == "auto":
			t = models.DebtCarLoan
		case subtype == "business" || subtype == "commercial":
			t = models.DebtBusinessLoan
		case subtype == "consumer" || subtype == "line of credit" || subtype == "loan":
			t = models.DebtPersonalLoan
		}
		return nil, &models.DebtCandidate{Name: name, Type: t, Balance: amount, Description: desc}
	case "depository":
		return &models.AssetCandidate{Name: name, Type: models.AssetSavings, Value: amount, Description: desc}, nil
	case "investment", "brokerage":
		t := models.AssetStocks
		switch {
		case retirementSubtypes[subtype]:
			t = models.AssetRetirement
		case subtype == "tfsa":
			t = models.AssetSavings
		case subtype == "crypto exchange" || subtype == "non-custodial wallet":
			t = models.AssetCrypto
		}
		return &models.AssetCandidate{Name: name, Type: t, Value: amount, Description: desc}, nil
	}
	return &models.AssetCandidate{Name: name, Type: models.AssetOther, Value: amount, Description: desc}, nil
}
