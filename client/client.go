// Package client is the transport boundary to the museum collection API.
// Every outbound request passes the shared rate limiter first, then the
// circuit breaker; responses come back classified so callers never inspect
// raw status codes.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/utils"
)

const (
	objectsPath     = "/objects"
	searchPath      = "/search"
	departmentsPath = "/departments"
)

type MetClient struct {
	logger         types.Logger
	limiter        types.RateLimiter
	metrics        types.MetricsManager
	client         *fasthttp.Client
	config         *types.UpstreamConfig
	circuitBreaker *CircuitBreaker
	started        int32
}

type searchResponse struct {
	Total     int   `json:"total"`
	ObjectIDs []int `json:"objectIDs"`
}

type departmentsResponse struct {
	Departments []types.Department `json:"departments"`
}

func NewMetClient(logger types.Logger, limiter types.RateLimiter, metrics types.MetricsManager, config *types.UpstreamConfig) *MetClient {
	httpClient := &fasthttp.Client{
		ReadTimeout:  config.ListingTimeout,
		WriteTimeout: config.RequestTimeout,
	}

	return &MetClient{
		logger:         logger,
		limiter:        limiter,
		metrics:        metrics,
		client:         httpClient,
		config:         config,
		circuitBreaker: NewCircuitBreaker(config.CircuitBreaker, logger),
	}
}

func (c *MetClient) Start() error {
	if !atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		return types.ErrServiceIsRunning
	}

	c.logger.Debug("Upstream client started",
		zap.String("base_url", c.config.BaseURL))

	return nil
}

func (c *MetClient) Stop() error {
	if !atomic.CompareAndSwapInt32(&c.started, 1, 0) {
		return types.ErrServiceIsNotRunning
	}

	c.client.CloseIdleConnections()

	return nil
}

func (c *MetClient) IsRunning() bool {
	return atomic.LoadInt32(&c.started) == 1
}

// FetchObject retrieves and parses one object record. A 2xx body missing the
// identifying field is reported as malformed; everything else maps through
// the shared classification.
func (c *MetClient) FetchObject(ctx context.Context, objectID int) (*types.MuseumObject, *types.FetchFailure) {
	path := fmt.Sprintf("%s/%d", objectsPath, objectID)

	body, statusCode, err := c.doGet(ctx, path, c.config.RequestTimeout)

	class := types.ClassifyStatus(statusCode, err)
	c.countRequest(objectsPath, class)

	if class != types.FailureNone {
		return nil, &types.FetchFailure{
			ObjectID: objectID,
			Status:   statusCode,
			Class:    class,
			Err:      err,
		}
	}

	var object types.MuseumObject
	if err := utils.Unmarshal(body, &object); err != nil {
		return nil, &types.FetchFailure{
			ObjectID: objectID,
			Status:   statusCode,
			Class:    types.FailureUpstream,
			Err:      types.WrapError(err, "failed to parse object response"),
		}
	}

	if object.ObjectID == 0 {
		return nil, &types.FetchFailure{
			ObjectID: objectID,
			Status:   statusCode,
			Class:    types.FailureMalformed,
			Err:      types.Errorf(types.ErrUpstreamResponseInvalid, "object %d response has no object id", objectID),
		}
	}

	return &object, nil
}

// SearchObjectIDs resolves the ordered id listing for a query. An empty query
// string asks for the full image-bearing collection.
func (c *MetClient) SearchObjectIDs(ctx context.Context, query types.SearchQuery) ([]int, error) {
	params := url.Values{}

	q := query.Query
	if q == "" {
		q = "*"
	}
	params.Set("q", q)

	if query.HasImages {
		params.Set("hasImages", "true")
	}
	if query.IsHighlight != nil {
		params.Set("isHighlight", strconv.FormatBool(*query.IsHighlight))
	}
	if query.DepartmentID != nil {
		params.Set("departmentId", strconv.Itoa(*query.DepartmentID))
	}

	path := searchPath + "?" + params.Encode()

	body, statusCode, err := c.doGet(ctx, path, c.config.ListingTimeout)

	class := types.ClassifyStatus(statusCode, err)
	c.countRequest(searchPath, class)

	if class != types.FailureNone {
		if err != nil {
			return nil, types.WrapError(err, "search request failed")
		}
		return nil, types.Errorf(types.ErrUpstreamRequestFailed, "search returned HTTP %d", statusCode)
	}

	var result searchResponse
	if err := utils.Unmarshal(body, &result); err != nil {
		return nil, types.WrapError(err, "failed to parse search response")
	}

	return result.ObjectIDs, nil
}

func (c *MetClient) FetchDepartments(ctx context.Context) ([]types.Department, error) {
	body, statusCode, err := c.doGet(ctx, departmentsPath, c.config.RequestTimeout)

	class := types.ClassifyStatus(statusCode, err)
	c.countRequest(departmentsPath, class)

	if class != types.FailureNone {
		if err != nil {
			return nil, types.WrapError(err, "departments request failed")
		}
		return nil, types.Errorf(types.ErrUpstreamRequestFailed, "departments returned HTTP %d", statusCode)
	}

	var result departmentsResponse
	if err := utils.Unmarshal(body, &result); err != nil {
		return nil, types.WrapError(err, "failed to parse departments response")
	}

	return result.Departments, nil
}

func (c *MetClient) BreakerState() string {
	return c.circuitBreaker.GetStateString()
}

func (c *MetClient) doGet(ctx context.Context, path string, timeout time.Duration) ([]byte, int, error) {
	// Breaker first: a rejected request must not consume rate-window budget.
	if !c.circuitBreaker.CanExecute() {
		return nil, 0, types.ErrCircuitBreakerOpen
	}

	if err := c.limiter.AcquireSlot(ctx); err != nil {
		return nil, 0, err
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, types.WrapError(err, "request aborted")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.config.UserAgent != "" {
		req.Header.SetUserAgent(c.config.UserAgent)
	}

	start := time.Now()
	err := c.client.DoTimeout(req, resp, timeout)
	statusCode := resp.StatusCode()

	c.observeDuration(path, start)

	if err != nil {
		c.circuitBreaker.RecordFailure()
		c.logger.Warn("Upstream request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, 0, types.WrapError(err, "upstream request failed")
	}

	if IsCircuitBreakerFailure(statusCode, nil) {
		c.circuitBreaker.RecordFailure()
	} else if statusCode >= 200 && statusCode < 300 {
		c.circuitBreaker.RecordSuccess()
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())

	return body, statusCode, nil
}

func (c *MetClient) countRequest(endpoint string, class types.FailureClass) {
	if c.metrics == nil {
		return
	}
	c.metrics.Counter("upstream_requests_total", map[string]string{
		"endpoint": endpoint,
		"result":   class.String(),
	}).Inc()
}

func (c *MetClient) observeDuration(path string, start time.Time) {
	if c.metrics == nil {
		return
	}
	endpoint := path
	if idx := strings.IndexAny(endpoint, "?"); idx >= 0 {
		endpoint = endpoint[:idx]
	}
	if strings.HasPrefix(endpoint, objectsPath+"/") {
		endpoint = objectsPath
	}
	c.metrics.Histogram("upstream_request_duration_seconds", nil, map[string]string{
		"endpoint": endpoint,
	}).ObserveDuration(start)
}

var _ types.UpstreamClient = (*MetClient)(nil)
