package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PayPalサンドボックスを模したテストサーバー
func newPaypalTestServer(t *testing.T, orderStatus string, captureCode int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		//Basic認証でclient_credentialsを投げてくること
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	})

	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		//再送防止ヘッダが付いていること
		assert.NotEmpty(t, r.Header.Get("PayPal-Request-Id"))

		var payload struct {
			Intent        string `json:"intent"`
			PurchaseUnits []struct {
				ReferenceID string `json:"reference_id"`
				Amount      struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"purchase_units"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "CAPTURE", payload.Intent)
		require.Equal(t, 1, len(payload.PurchaseUnits))
		assert.Equal(t, "777", payload.PurchaseUnits[0].ReferenceID)
		assert.Equal(t, "USD", payload.PurchaseUnits[0].Amount.CurrencyCode)
		//最小通貨単位460 → "4.60"
		assert.Equal(t, "4.60", payload.PurchaseUnits[0].Amount.Value)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "PAY-abc",
			"status": "CREATED",
			"links": []map[string]string{
				{"rel": "self", "href": "https://api.sandbox.paypal.com/v2/checkout/orders/PAY-abc"},
				{"rel": "approve", "href": "https://www.sandbox.paypal.com/checkoutnow?token=PAY-abc"},
			},
		})
	})

	mux.HandleFunc("/v2/checkout/orders/PAY-abc/capture", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(captureCode)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "PAY-abc",
			"status": orderStatus,
		})
	})

	return httptest.NewServer(mux)
}

func newTestGateway(baseURL string) payment.Gateway {
	return payment.NewPaypalGateway(config.Paypal{
		BaseApiURL:   baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		ReturnURL:    "https://shop.example/checkout/return",
		CancelURL:    "https://shop.example/checkout/cancel",
	})
}

func TestPaypalCreateIntent_Success(t *testing.T) {
	srv := newPaypalTestServer(t, "COMPLETED", http.StatusCreated)
	defer srv.Close()

	g := newTestGateway(srv.URL)

	intent, err := g.CreateIntent(context.Background(), 460, "USD", payment.Metadata{OrderID: 777, UserID: 1})
	assert.NoError(t, err)
	assert.Equal(t, "PAY-abc", intent.GatewayRef)
	assert.Equal(t, "https://www.sandbox.paypal.com/checkoutnow?token=PAY-abc", intent.ApproveURL)
}

func TestPaypalCreateIntent_ServerError_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)

	_, err := g.CreateIntent(context.Background(), 460, "USD", payment.Metadata{OrderID: 777, UserID: 1})
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}

func TestPaypalCreateIntent_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() //接続できないURLを作る

	g := newTestGateway(srv.URL)

	_, err := g.CreateIntent(context.Background(), 460, "USD", payment.Metadata{OrderID: 777, UserID: 1})
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}

func TestPaypalConfirmCapture_Completed(t *testing.T) {
	srv := newPaypalTestServer(t, "COMPLETED", http.StatusCreated)
	defer srv.Close()

	g := newTestGateway(srv.URL)

	res, err := g.ConfirmCapture(context.Background(), "PAY-abc")
	assert.NoError(t, err)
	assert.True(t, res.Paid)
	assert.Equal(t, "COMPLETED", res.RawStatus)
}

func TestPaypalConfirmCapture_NotCompleted_IsNotPaid(t *testing.T) {
	srv := newPaypalTestServer(t, "PENDING", http.StatusCreated)
	defer srv.Close()

	g := newTestGateway(srv.URL)

	res, err := g.ConfirmCapture(context.Background(), "PAY-abc")
	assert.NoError(t, err)
	assert.False(t, res.Paid)
}

func TestPaypalConfirmCapture_Declined4xx_IsNotPaidNotError(t *testing.T) {
	//4xxは拒否であってエラーではない
	srv := newPaypalTestServer(t, "DECLINED", http.StatusUnprocessableEntity)
	defer srv.Close()

	g := newTestGateway(srv.URL)

	res, err := g.ConfirmCapture(context.Background(), "PAY-abc")
	assert.NoError(t, err)
	assert.False(t, res.Paid)
}

func TestPaypalConfirmCapture_5xx_Unavailable(t *testing.T) {
	srv := newPaypalTestServer(t, "", http.StatusBadGateway)
	defer srv.Close()

	g := newTestGateway(srv.URL)

	_, err := g.ConfirmCapture(context.Background(), "PAY-abc")
	assert.ErrorIs(t, err, payment.ErrUnavailable)
}
