package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"marketplace/internal/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type paypalGateway struct {
	httpClient   *http.Client
	baseApiURL   string
	clientID     string
	clientSecret string
	returnURL    string
	cancelURL    string
}

type paypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type paypalOrderResult struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

// NewPaypalGateway はPayPal REST APIを叩くGateway実装を返す。
func NewPaypalGateway(cfg config.Paypal) Gateway {
	return &paypalGateway{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:   cfg.BaseApiURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		returnURL:    cfg.ReturnURL,
		cancelURL:    cfg.CancelURL,
	}
}

// client_credentialsでアクセストークンを取得
func (g *paypalGateway) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(g.clientID + ":" + g.clientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: token %d: %s", ErrUnavailable, resp.StatusCode, string(b))
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	return res.AccessToken, nil
}

func (g *paypalGateway) CreateIntent(ctx context.Context, amount int64, currency string, meta Metadata) (Intent, error) {
	accessToken, err := g.getAccessToken(ctx)
	if err != nil {
		return Intent{}, err
	}

	//最小通貨単位→"123.45"形式
	value := decimal.New(amount, -2).StringFixed(2)

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": strconv.FormatInt(meta.OrderID, 10),
				"amount": map[string]string{
					"currency_code": currency,
					"value":         value,
				},
			},
		},
		"application_context": map[string]string{
			"return_url": g.returnURL,
			"cancel_url": g.cancelURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Intent{}, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseApiURL+"/v2/checkout/orders",
		bytes.NewBuffer(body))
	if err != nil {
		return Intent{}, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	//同じ注文作成リクエストの再送で取引が二重にならないように
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Intent{}, fmt.Errorf("%w: create order %d: %s", ErrUnavailable, resp.StatusCode, string(b))
	}

	var result paypalOrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Intent{}, fmt.Errorf("decode create order response: %w", err)
	}

	return Intent{
		GatewayRef: result.ID,
		ApproveURL: extractApproveURL(result.Links),
	}, nil
}

func (g *paypalGateway) ConfirmCapture(ctx context.Context, gatewayRef string) (CaptureResult, error) {
	accessToken, err := g.getAccessToken(ctx)
	if err != nil {
		return CaptureResult{}, err
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", g.baseApiURL, gatewayRef)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("create capture request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	//4xxはゲートウェイによる拒否（リトライしても結果は同じ）
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return CaptureResult{Paid: false, RawStatus: string(body)}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CaptureResult{}, fmt.Errorf("%w: capture %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var result paypalOrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return CaptureResult{}, fmt.Errorf("decode capture response: %w", err)
	}

	return CaptureResult{
		Paid:      result.Status == "COMPLETED",
		RawStatus: result.Status,
	}, nil
}

func extractApproveURL(links []paypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}
