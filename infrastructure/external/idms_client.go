package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/config"
	"github.com/habibshaikh14/drivesoft-final-round/domain/service"
)

// apiStatus is the status code of an IDMS response. The API reports it as a
// JSON number on the authentication endpoint and as a numeric string on the
// account list endpoint, so both representations decode into the same type.
type apiStatus int

func (s *apiStatus) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid status %q: %w", raw, err)
	}
	*s = apiStatus(code)
	return nil
}

// OK reports whether the status indicates success.
func (s apiStatus) OK() bool {
	return int(s) == http.StatusOK
}

// authorizationResponse is the payload of GetUserAuthorizationToken.
type authorizationResponse struct {
	Status  apiStatus `json:"Status"`
	Token   string    `json:"Token"`
	Message string    `json:"Message"`
}

// accountRowWrapper carries one account row; the list endpoint nests each
// record under a "Row" field.
type accountRowWrapper struct {
	Row service.AccountRow `json:"Row"`
}

// accountListResponse is the payload of GetAccountList.
type accountListResponse struct {
	Status  apiStatus           `json:"Status"`
	Message string              `json:"Message"`
	Data    []accountRowWrapper `json:"Data"`
}

// IDMSClient implements service.AccountSource against the IDMS HTTP API.
// Outbound calls run through a circuit breaker and carry an explicit request
// timeout so a stalled upstream cannot block a sync worker indefinitely.
type IDMSClient struct {
	baseURL       string
	username      string
	password      string
	institutionID int
	layoutID      int
	accountStatus string
	pageNumber    int

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewIDMSClient creates a new IDMS client from configuration.
func NewIDMSClient(cfg *config.IDMSConfig, logger *zap.Logger) *IDMSClient {
	settings := gobreaker.Settings{
		Name:        "idms",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= cfg.Breaker.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("IDMS circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &IDMSClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		username:      cfg.Username,
		password:      cfg.Password,
		institutionID: cfg.InstitutionID,
		layoutID:      cfg.LayoutID,
		accountStatus: cfg.AccountStatus,
		pageNumber:    cfg.PageNumber,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Authenticate obtains an authorization token from IDMS. It fails with an
// AuthenticationError on non-success status, missing token, or transport
// failure.
func (c *IDMSClient) Authenticate(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("username", c.username)
	params.Set("password", c.password)
	params.Set("InstitutionID", strconv.Itoa(c.institutionID))

	var response authorizationResponse
	if err := c.get(ctx, "/api/authenticate/GetUserAuthorizationToken", params, &response); err != nil {
		return "", &service.AuthenticationError{Message: "token request failed", Err: err}
	}

	if !response.Status.OK() {
		return "", &service.AuthenticationError{
			Message: fmt.Sprintf("status %d: %s", response.Status, response.Message),
		}
	}
	if response.Token == "" {
		return "", &service.AuthenticationError{Message: "response contained no token"}
	}

	c.logger.Debug("IDMS authentication succeeded")
	return response.Token, nil
}

// FetchAccounts authenticates and retrieves the full account list. It fails
// with a FetchError on non-success status or transport failure; an
// authentication failure surfaces as an AuthenticationError.
func (c *IDMSClient) FetchAccounts(ctx context.Context) ([]service.AccountRow, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("Token", token)
	params.Set("LayoutID", strconv.Itoa(c.layoutID))
	params.Set("AccountStatus", c.accountStatus)
	params.Set("InstitutionID", strconv.Itoa(c.institutionID))
	params.Set("PageNumber", strconv.Itoa(c.pageNumber))

	start := time.Now()
	var response accountListResponse
	if err := c.get(ctx, "/api/Account/GetAccountList", params, &response); err != nil {
		return nil, &service.FetchError{Message: "account list request failed", Err: err}
	}

	if !response.Status.OK() {
		return nil, &service.FetchError{
			Message: fmt.Sprintf("status %d: %s", response.Status, response.Message),
		}
	}

	rows := make([]service.AccountRow, 0, len(response.Data))
	for _, wrapper := range response.Data {
		rows = append(rows, wrapper.Row)
	}

	c.logger.Info("Fetched account list from IDMS",
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return rows, nil
}

// get performs a GET request through the circuit breaker and decodes the JSON
// response into out.
func (c *IDMSClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	requestURL := c.baseURL + path + "?" + params.Encode()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "execute request")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("unexpected HTTP status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, errors.Wrap(err, "decode response")
		}
		return nil, nil
	})
	return err
}
