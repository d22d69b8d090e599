// Package authority реализует клиент биллингового сервиса — внешнего
// источника истины по подпискам, каталогу планов и кредитам.
//
// Все вызовы ограничены по времени и ретраятся на транспортных ошибках.
// Клиент никогда не используется резолвером напрямую: чтения прав идут
// из кеша, сюда ходят только каталог и агент сверки.
package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/magabrotheeeer/entitlement-service/internal/config"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Client клиент биллингового сервиса.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

// NewClient создаёт клиент с таймаутом и количеством повторов из конфига.
func NewClient(cfg config.Authority) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.HTTPClient.Timeout = cfg.TimeoutAuthority
	rc.Logger = nil
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: rc,
	}
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status: " + resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// FetchSubscriptionStatus запрашивает авторитетное состояние подписки.
func (c *Client) FetchSubscriptionStatus(ctx context.Context, userUID string) (*SubscriptionStatus, error) {
	const op = "authority.FetchSubscriptionStatus"
	var status SubscriptionStatus
	if err := c.get(ctx, "/v1/users/"+userUID+"/subscription", &status); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &status, nil
}

// FetchPlans запрашивает список планов и приводит нетипизированные
// features к типизированному набору флагов.
func (c *Client) FetchPlans(ctx context.Context) ([]models.Plan, error) {
	const op = "authority.FetchPlans"
	var raw []models.RawPlan
	if err := c.get(ctx, "/v1/plans", &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	plans := make([]models.Plan, 0, len(raw))
	for _, r := range raw {
		plans = append(plans, r.ToPlan())
	}
	return plans, nil
}

// FetchCreditBalances запрашивает авторитетные остатки кредитов.
func (c *Client) FetchCreditBalances(ctx context.Context, userUID string) (*CreditBalances, error) {
	const op = "authority.FetchCreditBalances"
	var balances CreditBalances
	if err := c.get(ctx, "/v1/users/"+userUID+"/credits", &balances); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &balances, nil
}
