package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

type Service struct {
	apiURL     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

func (s *Service) LoggerComponent() string {
	return "Gateway.Service"
}

func NewService(apiURL string, opts ...ServiceOption) (*Service, error) {
	c := &Service{
		apiURL:     apiURL,
		httpClient: http.DefaultClient,
		logger:     log.Logger,
	}

	for _, o := range opts {
		o(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	c.logger = c.logger.With().Str("component", c.LoggerComponent()).Logger()

	return c, nil
}

type ServiceOption func(*Service)

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = c
	}
}

// Initiate registers a charge intent with the gateway and returns the
// reference and redirect target for the client.
func (s *Service) Initiate(ctx context.Context, in *InitiateRequest, out *InitiateResponse) error {
	l := s.logger.With().
		Str("method", "Initiate").
		Str("transaction_id", in.TransactionID).
		Logger()
	ctx = l.WithContext(ctx)

	if err := s.genericCall(ctx, http.MethodPost, "/api/payments", in, out); err != nil {
		return err
	}

	l.Debug().
		Str("reference", out.Reference).
		Msg("Initiate success")

	return nil
}

// Verify asks the gateway for the authoritative status of a transaction.
// Used by both the client-confirmation path and manual retries; the webhook
// path carries the status inline.
func (s *Service) Verify(ctx context.Context, in *VerifyRequest, out *VerifyResponse) error {
	l := s.logger.With().
		Str("method", "Verify").
		Str("transaction_id", in.TransactionID).
		Logger()
	ctx = l.WithContext(ctx)

	err := s.genericCall(ctx, http.MethodGet, fmt.Sprintf("/api/payments/%s", in.TransactionID), nil, out)
	if err != nil {
		return err
	}

	l.Debug().
		Str("status", out.Status).
		Msg("Verify success")

	return nil
}

type RemoteError struct {
	ResponseBody string
	StatusCode   int
}

func NewRemoteError(responseBody string, statusCode int) *RemoteError {
	return &RemoteError{ResponseBody: responseBody, StatusCode: statusCode}
}

func (e *RemoteError) Error() string {
	return e.ResponseBody
}

func (s *Service) genericCall(ctx context.Context, method, endpoint string, in interface{}, out interface{}) error {
	l := zerolog.Ctx(ctx).With().Str("http_method", method).Str("endpoint", endpoint).Logger()
	ctx = l.WithContext(ctx)

	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.request(ctx, method, endpoint, in)
	})
	if err != nil {
		l.Error().Err(err).Msg("Service request failed")
		return fmt.Errorf("request: %w", err)
	}
	res := v.(*http.Response)

	if res.StatusCode >= 400 {
		resBody := readString(res.Body)
		l.Error().
			Str("http_body", resBody).
			Msg("Service responded with error")
		return NewRemoteError(resBody, res.StatusCode)
	}

	if err := readJSON(res.Body, out); err != nil {
		return fmt.Errorf("body read: %w", err)
	}

	return nil
}

func (s *Service) request(
	ctx context.Context,
	method string,
	endpoint string,
	bodyParams interface{},
) (*http.Response, error) {
	fullURL := s.apiURL + endpoint
	l := zerolog.Ctx(ctx).With().
		Str("http_method", method).
		Str("url", fullURL).
		Logger()
	l.Debug().Msg("HTTP request")

	rawJSON, err := json.Marshal(bodyParams)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(rawJSON))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	res, err := s.httpClient.Do(req)
	if err != nil {
		l.Error().Err(err).Msg("Call failed")
		return nil, fmt.Errorf("do request: %w", err)
	}

	return res, nil
}
