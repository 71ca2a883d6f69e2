// ABOUTME: HTTP client for the remote zone-based record store
// ABOUTME: Per-request ES256 bearer tokens, sentinel error mapping, circuit breaker around every call

package driver

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/utils"

	"github.com/golang-jwt/jwt/v4"
)

// Record store failure modes, mapped from HTTP status and error codes.
var (
	ErrZoneNotFound       = errors.New("remote zone does not exist")
	ErrUserDeletedZone    = errors.New("remote zone was deleted by the user")
	ErrChangeTokenExpired = errors.New("change token is no longer valid")
	ErrRecordNotFound     = errors.New("remote record not found")
	ErrConflict           = errors.New("remote record conflict")
	ErrRateLimited        = errors.New("record store rate limit exceeded")
	ErrTemporaryFailure   = errors.New("temporary record store failure")
	ErrUnauthorized       = errors.New("record store rejected the signing key")
)

const tokenLifetime = 5 * time.Minute

// RecordStoreClient talks to the remote record store's zone API. Every
// request carries a short-lived ES256-signed bearer token minted from
// the configured server-to-server key.
type RecordStoreClient struct {
	baseURL    string
	keyID      string
	signingKey *ecdsa.PrivateKey
	httpClient *http.Client
	breaker    *utils.CircuitBreaker
	logger     *slog.Logger
}

// NewRecordStoreClient creates a record store client from a PEM-encoded
// EC private key.
func NewRecordStoreClient(baseURL, keyID, privateKeyPEM string, logger *slog.Logger) (*RecordStoreClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	signingKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse record store signing key: %w", err)
	}

	return &RecordStoreClient{
		baseURL:    baseURL,
		keyID:      keyID,
		signingKey: signingKey,
		breaker:    utils.NewCircuitBreaker(nil, logger),
		logger:     logger,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
			},
		},
	}, nil
}

// SetHTTPClient allows injecting a custom HTTP client (useful for testing).
func (c *RecordStoreClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// FetchChanges fetches the records changed in a zone since changeToken.
// An empty token fetches the zone's full change history.
func (c *RecordStoreClient) FetchChanges(ctx context.Context, zone models.Zone, changeToken string) (*models.ZoneChangeBatch, error) {
	var batch *models.ZoneChangeBatch

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		body, err := c.doJSON(ctx, http.MethodPost,
			fmt.Sprintf("/zones/%s/changes", zone),
			changesRequest{ChangeToken: changeToken})
		if err != nil {
			return err
		}

		var resp changesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to decode changes response: %w", err)
		}

		batch = &models.ZoneChangeBatch{
			Zone:           zone,
			ChangedRecords: resp.ChangedRecords,
			DeletedRecords: resp.DeletedRecords,
			ChangeToken:    resp.ChangeToken,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched zone changes",
		"zone", zone,
		"changed", len(batch.ChangedRecords),
		"deleted", len(batch.DeletedRecords))

	return batch, nil
}

// Push delivers a batch of record mutations to a zone and returns the
// records the store accepted. Mutations are idempotent per record ID;
// replaying a batch after a partial failure is safe.
func (c *RecordStoreClient) Push(ctx context.Context, zone models.Zone, mutations []models.RecordMutation) ([]models.RemoteRecord, error) {
	if len(mutations) == 0 {
		return nil, nil
	}

	var saved []models.RemoteRecord

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		body, err := c.doJSON(ctx, http.MethodPost,
			fmt.Sprintf("/zones/%s/records", zone),
			pushRequest{Mutations: mutations})
		if err != nil {
			return err
		}

		var resp pushResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to decode push response: %w", err)
		}

		saved = resp.SavedRecords
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Pushed record mutations",
		"zone", zone,
		"mutations", len(mutations),
		"saved", len(saved))

	return saved, nil
}

// SubscribeToChanges registers this service for push notifications on a
// zone. Subscribing twice is a remote no-op.
func (c *RecordStoreClient) SubscribeToChanges(ctx context.Context, zone models.Zone) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := c.doJSON(ctx, http.MethodPost,
			fmt.Sprintf("/zones/%s/subscriptions", zone),
			subscribeRequest{Zone: zone})
		if err != nil {
			return fmt.Errorf("failed to subscribe to zone %s: %w", zone, err)
		}
		return nil
	})
}

// Reachable probes the record store. Unreachability is not an error
// condition; a standard refresh cycle is skipped entirely when the
// store cannot be reached.
func (c *RecordStoreClient) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", "sync-core/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Record store unreachable", "error", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// doJSON executes one authenticated JSON request and maps non-2xx
// statuses onto the driver sentinels.
func (c *RecordStoreClient) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request payload: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create record store request: %w", err)
	}

	token, err := c.mintToken()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sync-core/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemporaryFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read record store response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	return nil, c.mapError(resp.StatusCode, body, resp.Header)
}

// mintToken signs a short-lived bearer token for one request window.
func (c *RecordStoreClient) mintToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.keyID,
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	})
	token.Header["kid"] = c.keyID

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign record store token: %w", err)
	}
	return signed, nil
}

func (c *RecordStoreClient) mapError(statusCode int, body []byte, header http.Header) error {
	var storeErr storeErrorResponse
	_ = json.Unmarshal(body, &storeErr)

	// The error code in the body is more specific than the HTTP status,
	// so it wins when present.
	switch storeErr.Code {
	case errCodeZoneNotFound:
		return ErrZoneNotFound
	case errCodeZoneDeleted:
		// The user deleted the zone out from under us. The caller must
		// tear down all local state mirroring it.
		c.logger.Warn("Remote zone deleted", "status_code", statusCode)
		return ErrUserDeletedZone
	case errCodeChangeTokenExpired:
		return ErrChangeTokenExpired
	case errCodeRecordNotFound:
		return ErrRecordNotFound
	case errCodeConflict:
		return fmt.Errorf("%w: %s", ErrConflict, storeErr.Message)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.Error("Record store rejected credentials", "status_code", statusCode)
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, statusCode)

	case http.StatusNotFound:
		return ErrRecordNotFound

	case http.StatusGone:
		c.logger.Warn("Remote zone deleted", "code", storeErr.Code)
		return ErrUserDeletedZone

	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, storeErr.Message)

	case http.StatusPreconditionFailed:
		return ErrChangeTokenExpired

	case http.StatusTooManyRequests:
		retryAfter := header.Get("Retry-After")
		c.logger.Warn("Record store rate limited", "retry_after", retryAfter)
		return fmt.Errorf("%w: retry after %s", ErrRateLimited, retryAfter)

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		c.logger.Warn("Record store temporary failure", "status_code", statusCode)
		return fmt.Errorf("%w: HTTP %d", ErrTemporaryFailure, statusCode)

	default:
		return fmt.Errorf("record store request failed with status %d: %s", statusCode, storeErr.Message)
	}
}
