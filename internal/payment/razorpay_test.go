package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/printgate/printgate/internal/config"
)

func testConfig(baseURL string) config.PaymentConfig {
	return config.PaymentConfig{
		BaseURL:   baseURL,
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		Currency:  "INR",
		Timeout:   2 * time.Second,
	}
}

func TestCreateOrder(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "rzp_test_secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"id":"order_abc123"}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))

	orderID, err := client.CreateOrder(context.Background(), 2000)
	require.NoError(t, err)
	require.Equal(t, "order_abc123", orderID)

	require.Equal(t, float64(2000), gotBody["amount"])
	require.Equal(t, "INR", gotBody["currency"])
	require.Equal(t, float64(1), gotBody["payment_capture"])
}

func TestCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.CreateOrder(context.Background(), 2000)
	require.Error(t, err)
}

func TestCreateOrderGatewayUnreachable(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"))
	_, err := client.CreateOrder(context.Background(), 2000)
	require.Error(t, err)
}

func validSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPayment(t *testing.T) {
	client := NewClient(testConfig("http://unused"))

	sig := validSignature("rzp_test_secret", "order_1", "pay_1")
	require.NoError(t, client.VerifyPayment("order_1", "pay_1", sig))
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	client := NewClient(testConfig("http://unused"))

	err := client.VerifyPayment("order_1", "pay_1", "deadbeef")
	require.ErrorIs(t, err, ErrSignatureInvalid)

	// Signature computed with the wrong secret.
	sig := validSignature("some_other_secret", "order_1", "pay_1")
	require.ErrorIs(t, client.VerifyPayment("order_1", "pay_1", sig), ErrSignatureInvalid)

	// Signature for a different order.
	sig = validSignature("rzp_test_secret", "order_2", "pay_1")
	require.ErrorIs(t, client.VerifyPayment("order_1", "pay_1", sig), ErrSignatureInvalid)
}

func TestVerifyPaymentRejectsEmptyFields(t *testing.T) {
	client := NewClient(testConfig("http://unused"))

	require.ErrorIs(t, client.VerifyPayment("", "pay_1", "sig"), ErrSignatureInvalid)
	require.ErrorIs(t, client.VerifyPayment("order_1", "", "sig"), ErrSignatureInvalid)
	require.ErrorIs(t, client.VerifyPayment("order_1", "pay_1", ""), ErrSignatureInvalid)
}
