// Package clients holds the HTTP clients for the portal's external
// collaborators: the auth service, the warehouse directory service and
// the heat data service.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/wms-platform/heatmap-portal/pkg/errors"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
	"github.com/wms-platform/heatmap-portal/pkg/resilience"
)

const defaultTimeout = 30 * time.Second

// Config holds the downstream service URLs
type Config struct {
	AuthServiceURL      string
	WarehouseServiceURL string
	HeatmapServiceURL   string
}

// DownstreamMetrics records downstream call outcomes
type DownstreamMetrics interface {
	RecordDownstreamRequest(downstream, operation, status string, duration time.Duration)
}

// serviceClient is the shared base for the concrete clients. Calls are
// trace-propagated, metered and routed through a per-service circuit
// breaker.
type serviceClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
	metrics    DownstreamMetrics
}

func newServiceClient(name, baseURL string, breaker *resilience.CircuitBreaker, logger *logging.Logger, m DownstreamMetrics) serviceClient {
	return serviceClient{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		breaker:    breaker,
		logger:     logger.WithComponent(name + "-client"),
		metrics:    m,
	}
}

// doRequest performs a JSON request and decodes the response into result.
// Transport errors and 5xx responses map to NETWORK_FAILURE for this
// service; 401 maps to UNAUTHORIZED; other 4xx responses carry the
// backend's error body. operation is the stable metric label for the call.
func (c *serviceClient) doRequest(ctx context.Context, operation, method, path, token string, body interface{}, result interface{}) error {
	start := time.Now()
	err := c.execute(ctx, method, path, token, body, result)
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordDownstreamRequest(c.name, operation, status, time.Since(start))
	c.logger.ServiceCall(ctx, c.name, operation, err == nil, time.Since(start))
	return err
}

func (c *serviceClient) execute(ctx context.Context, method, path, token string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return errors.ErrInternal("failed to encode request body").Wrap(err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.ErrInternal("failed to create request").Wrap(err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	out, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, errors.ErrNetworkFailure(c.name).Wrap(err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.ErrNetworkFailure(c.name).Wrap(err)
		}

		if appErr := c.mapStatus(resp.StatusCode, respBody); appErr != nil {
			return nil, appErr
		}
		return respBody, nil
	})
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return appErr
		}
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			return errors.ErrServiceUnavailable(c.name).Wrap(err)
		}
		return errors.ErrNetworkFailure(c.name).Wrap(err)
	}

	respBody := out.([]byte)
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return errors.ErrInternal("failed to decode " + c.name + " response").Wrap(err)
		}
	}
	return nil
}

func (c *serviceClient) mapStatus(status int, body []byte) *errors.AppError {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		return errors.ErrUnauthorized(apiErrorMessage(body, "authentication required"))
	case status == http.StatusForbidden:
		return errors.ErrForbidden(apiErrorMessage(body, ""))
	case status == http.StatusNotFound:
		return errors.ErrNotFound(c.name + " resource")
	case status >= 500:
		return errors.ErrNetworkFailure(c.name).
			WithDetail("status", strconv.Itoa(status))
	default:
		return errors.ErrBadRequest(apiErrorMessage(body, fmt.Sprintf("%s rejected the request", c.name)))
	}
}

// apiErrorMessage pulls the message out of a backend error body when the
// body follows the common {"error": {"message": ...}} shape
func apiErrorMessage(body []byte, fallback string) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return fallback
}
