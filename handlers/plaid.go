package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plaid/plaid-go/v20/plaid"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
)

// PlaidLinker is the part of Plaid the link flow needs.
type PlaidLinker interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error)
	RemoveItem(ctx context.Context, accessToken string) error
}

type PlaidAPI struct {
	Client *plaid.APIClient
}

// NewPlaidClient builds an API client for env: sandbox, development or production.
func NewPlaidClient(clientID, secret, env string) *plaid.APIClient {
	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)
	switch env {
	case "production":
		configuration.UseEnvironment(plaid.Production)
	default:
		configuration.UseEnvironment(plaid.Sandbox)
	}
	return plaid.NewAPIClient(configuration)
}

func plaidError(err error) error {
	if plaidErr, ok := err.(*plaid.GenericOpenAPIError); ok {
		return fmt.Errorf("%w: %s", err, string(plaidErr.Body()))
	}
	return err
}

func (p PlaidAPI) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	linkTokenRequest := plaid.NewLinkTokenCreateRequest(
		"RT1M",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US, plaid.COUNTRYCODE_CA},
		plaid.LinkTokenCreateRequestUser{ClientUserId: userID},
	)
	linkTokenRequest.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	linkToken, _, err := p.Client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*linkTokenRequest).Execute()
	if err != nil {
		return "", plaidError(err)
	}
	return linkToken.GetLinkToken(), nil
}

func (p PlaidAPI) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	exchangeRequest := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := p.Client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*exchangeRequest).Execute()
	if err != nil {
		return "", "", plaidError(err)
	}
	return resp.GetAccessToken(), resp.GetItemId(), nil
}

func (p PlaidAPI) RemoveItem(ctx context.Context, accessToken string) error {
	req := plaid.NewItemRemoveRequest(accessToken)
	if _, _, err := p.Client.PlaidApi.ItemRemove(ctx).ItemRemoveRequest(*req).Execute(); err != nil {
		return plaidError(err)
	}
	return nil
}

type ExchangeTokenRequest struct {
	PublicToken string `json:"public_token" binding:"required"`
}

// CreateLinkToken: POST /api/plaid/link-token.
func (h *Handler) CreateLinkToken(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Plaid == nil {
		unavailable(c, "Plaid")
		return
	}
	token, err := h.Plaid.CreateLinkToken(c.Request.Context(), uid)
	if err != nil {
		respondError(c, "Failed to create link token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link_token": token})
}

// ExchangePublicToken stores the linked item and queues its first import:
// POST /api/plaid/exchange. The access token never leaves the server.
func (h *Handler) ExchangePublicToken(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Plaid == nil || h.Items == nil {
		unavailable(c, "Plaid")
		return
	}
	var req ExchangeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "Invalid request body", models.NewError(models.KindValidation, "exchange token", err))
		return
	}

	accessToken, itemID, err := h.Plaid.ExchangePublicToken(c.Request.Context(), req.PublicToken)
	if err != nil {
		respondError(c, "Failed to exchange public token", err)
		return
	}
	item, err := h.Items.CreatePlaidItem(c.Request.Context(), uid, accessToken, itemID)
	if err != nil {
		respondError(c, "Failed to store linked account", err)
		return
	}
	h.queueBankSync(c.Request.Context(), models.BankSyncJob{UserID: uid, ItemID: itemID, Reason: "linked"})
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

// GetItems: GET /api/plaid/items.
func (h *Handler) GetItems(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Items == nil {
		unavailable(c, "Plaid")
		return
	}
	items, err := h.Items.GetPlaidItemsByUserID(c.Request.Context(), uid)
	if err != nil {
		respondError(c, "Failed to list linked accounts", err)
		return
	}
	if items == nil {
		items = []*models.PlaidItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// SyncAccounts imports current balances right away: POST /api/plaid/sync.
func (h *Handler) SyncAccounts(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Bank == nil {
		unavailable(c, "Bank import")
		return
	}
	sum, err := h.Bank.SyncUser(c.Request.Context(), uid)
	if err != nil {
		respondError(c, "Failed to import accounts", err)
		return
	}
	c.JSON(http.StatusOK, summaryBody(sum))
}

type plaidWebhook struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
}

var syncWebhookTypes = map[string]bool{
	"TRANSACTIONS":             true,
	"HOLDINGS":                 true,
	"LIABILITIES":              true,
	"INVESTMENTS_TRANSACTIONS": true,
}

// HandlePlaidWebhook reacts to verified Plaid webhooks: POST /webhook/plaid.
// Balance-affecting updates queue a re-import; item errors mark the item.
func (h *Handler) HandlePlaidWebhook(c *gin.Context) {
	var hook plaidWebhook
	if err := c.ShouldBindJSON(&hook); err != nil {
		logger.Get().Warn("invalid plaid webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook body"})
		return
	}
	log := logger.Get().With(
		zap.String("webhook_type", hook.WebhookType),
		zap.String("webhook_code", hook.WebhookCode),
		zap.String("item_id", hook.ItemID))
	log.Info("plaid webhook received")

	switch {
	case hook.WebhookType == "ITEM" && (hook.WebhookCode == "ERROR" || hook.WebhookCode == "PENDING_EXPIRATION"):
		if h.Items != nil {
			if err := h.Items.UpdatePlaidItemStatus(c.Request.Context(), hook.ItemID, "error"); err != nil {
				log.Error("failed to mark item", zap.Error(err))
			}
		}
	case syncWebhookTypes[hook.WebhookType] && hook.ItemID != "":
		h.queueBankSync(c.Request.Context(), models.BankSyncJob{ItemID: hook.ItemID, Reason: hook.WebhookCode})
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) queueBankSync(ctx context.Context, job models.BankSyncJob) {
	if h.BankSync == nil {
		return
	}
	if err := h.BankSync.PublishBankSync(ctx, job); err != nil {
		logger.Get().Error("failed to queue bank sync",
			zap.String("user_id", job.UserID),
			zap.String("item_id", job.ItemID),
			zap.Error(err))
	}
}

// PlaidItemRemover unlinks the user's items at Plaid. tokens is called first
// so the access tokens are read before the rows go away.
func PlaidItemRemover(p PlaidLinker, tokens func(ctx context.Context, uid string) ([]string, error)) UserDeleter {
	return UserDeleter{Name: "postgres", Delete: func(ctx context.Context, uid string) error {
		accessTokens, err := tokens(ctx, uid)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		for _, t := range accessTokens {
			if err := p.RemoveItem(ctx, t); err != nil {
				logger.Get().Warn("failed to remove plaid item", zap.String("user_id", uid), zap.Error(err))
			}
		}
		return nil
	}}
}
