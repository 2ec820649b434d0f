package talksim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/domain/catalog"
	"github.com/netesim/backend/internal/domain/fulfillment"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		BaseURL:  baseURL,
		Email:    "dealer@example.com",
		Password: "secret",
		DealerID: "D42",
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(&Config{BaseURL: "https://api.example.com"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")

	_, err = NewClient(&Config{Email: "a@b.com", Password: "x"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}

func TestAuthenticate(t *testing.T) {
	t.Run("stores token on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, authPath, r.URL.Path)
			var req authRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "dealer@example.com", req.Identifier)
			assert.Equal(t, "secret", req.Password)
			json.NewEncoder(w).Encode(authResponse{JWT: "token-1"})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		require.NoError(t, client.Authenticate(context.Background()))
		assert.Equal(t, "token-1", client.currentToken())
	})

	t.Run("rejected credentials surface ErrAuthFailed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		err := client.Authenticate(context.Background())
		assert.ErrorIs(t, err, fulfillment.ErrAuthFailed)
	})

	t.Run("missing JWT surfaces ErrAuthFailed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		err := client.Authenticate(context.Background())
		assert.ErrorIs(t, err, fulfillment.ErrAuthFailed)
	})
}

func TestCheckAndRefresh(t *testing.T) {
	var authCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCalls.Add(1)
		json.NewEncoder(w).Encode(authResponse{JWT: "token-1"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	require.NoError(t, client.CheckAndRefresh(ctx))
	assert.Equal(t, int32(1), authCalls.Load())

	// valid token is reused, no second auth call
	require.NoError(t, client.CheckAndRefresh(ctx))
	assert.Equal(t, int32(1), authCalls.Load())

	// expired window forces a re-auth
	client.mu.Lock()
	client.tokenExpiry = time.Now().Add(-time.Minute)
	client.mu.Unlock()
	require.NoError(t, client.CheckAndRefresh(ctx))
	assert.Equal(t, int32(2), authCalls.Load())
}

func TestListActive(t *testing.T) {
	t.Run("filters tombstones and strips label suffix", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, packagesPath, r.URL.Path)
			w.Write([]byte(`{
				"status": {"code": 0},
				"listPrepaidPackageTemplate": {"template": [
					{
						"prepaidpackagetemplateid": 131519,
						"userUiName": "Turkey_LZ",
						"cost": 12.5,
						"databyte": 5368709120,
						"perioddays": 30,
						"sponsors": {"sponsorname": "Turkcell"},
						"deleted": false
					},
					{
						"prepaidpackagetemplateid": 131520,
						"userUiName": "Japan_LZ",
						"cost": 20,
						"databyte": 1073741824,
						"perioddays": 7,
						"deleted": true
					}
				]}
			}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		packages, err := client.ListActive(context.Background())
		require.NoError(t, err)
		require.Len(t, packages, 1)

		pkg := packages[0]
		assert.Equal(t, "131519", pkg.PackageID)
		assert.Equal(t, "Turkey", pkg.CountryLabel)
		assert.Equal(t, "12.5", pkg.Cost.String())
		assert.Equal(t, int64(5368709120), pkg.DataBytes)
		assert.Equal(t, 30, pkg.PeriodDays)
		assert.Equal(t, "Turkcell", pkg.SponsorName)
	})

	t.Run("non-zero envelope status is an invalid response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status": {"code": 7, "message": "maintenance"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.ListActive(context.Background())
		assert.ErrorIs(t, err, catalog.ErrSourceInvalidResponse)
	})

	t.Run("unreachable source", func(t *testing.T) {
		client := newTestClient(t, "http://127.0.0.1:1")
		_, err := client.ListActive(context.Background())
		assert.ErrorIs(t, err, catalog.ErrSourceUnavailable)
	})
}

func TestPurchase(t *testing.T) {
	t.Run("maps a successful purchase", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case authPath:
				json.NewEncoder(w).Encode(authResponse{JWT: "token-1"})
			case purchasePath:
				assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
				var req purchaseRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "131519", req.Data.PackageID)
				assert.Equal(t, "D42", req.Data.DealerID)
				assert.Equal(t, "Ada Lovelace", req.Data.CustomerName)
				w.Write([]byte(`{
					"status": {"code": 0},
					"transactionid": "T1",
					"qrcode": "LPA:1$smdp$X",
					"activationcode": "X",
					"iccid": "890100",
					"packagename": "Turkey 5GB",
					"databyte": 5368709120,
					"validitydays": 30,
					"networkname": "Turkcell"
				}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		result, err := client.Purchase(context.Background(), "131519", "a@b.com", "Ada Lovelace")
		require.NoError(t, err)
		assert.Equal(t, "T1", result.TransactionID)
		assert.Equal(t, "890100", result.ESIM.ICCID)
		assert.Equal(t, int64(5368709120), result.ESIM.DataBytes)
		assert.Equal(t, 30, result.ESIM.ValidityDays)
	})

	t.Run("defaults customer name to mailbox part", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == authPath {
				json.NewEncoder(w).Encode(authResponse{JWT: "token-1"})
				return
			}
			var req purchaseRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ada", req.Data.CustomerName)
			w.Write([]byte(`{"status": {"code": 0}, "transactionid": "T1"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Purchase(context.Background(), "131519", "ada@example.com", "")
		require.NoError(t, err)
	})

	t.Run("vendor rejection is terminal", func(t *testing.T) {
		var purchaseCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == authPath {
				json.NewEncoder(w).Encode(authResponse{JWT: "token-1"})
				return
			}
			purchaseCalls.Add(1)
			w.Write([]byte(`{"status": {"code": 14, "message": "insufficient balance"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Purchase(context.Background(), "131519", "a@b.com", "Ada")
		require.Error(t, err)

		var rejection *fulfillment.RejectionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, 14, rejection.Code)
		assert.Equal(t, "insufficient balance", rejection.Message)
		assert.Equal(t, int32(1), purchaseCalls.Load())
	})

	t.Run("expired token re-authenticates once and retries", func(t *testing.T) {
		var authCalls, purchaseCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == authPath {
				authCalls.Add(1)
				json.NewEncoder(w).Encode(authResponse{JWT: "token-fresh"})
				return
			}
			if purchaseCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "Bearer token-fresh", r.Header.Get("Authorization"))
			w.Write([]byte(`{"status": {"code": 0}, "transactionid": "T2"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		// seed a token the server will reject once
		client.mu.Lock()
		client.token = "token-stale"
		client.tokenExpiry = time.Now().Add(time.Hour)
		client.mu.Unlock()

		result, err := client.Purchase(context.Background(), "131519", "a@b.com", "Ada")
		require.NoError(t, err)
		assert.Equal(t, "T2", result.TransactionID)
		assert.Equal(t, int32(1), authCalls.Load())
		assert.Equal(t, int32(2), purchaseCalls.Load())
	})

	t.Run("persistent 401 gives up after one re-auth", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == authPath {
				json.NewEncoder(w).Encode(authResponse{JWT: "token-1"})
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Purchase(context.Background(), "131519", "a@b.com", "Ada")
		assert.ErrorIs(t, err, fulfillment.ErrAuthFailed)
	})

	t.Run("transient server fault is retried", func(t *testing.T) {
		var purchaseCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == authPath {
				json.NewEncoder(w).Encode(authResponse{JWT: "token-1"})
				return
			}
			if purchaseCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"status": {"code": 0}, "transactionid": "T3"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		result, err := client.Purchase(context.Background(), "131519", "a@b.com", "Ada")
		require.NoError(t, err)
		assert.Equal(t, "T3", result.TransactionID)
		assert.Equal(t, int32(2), purchaseCalls.Load())
	})
}
