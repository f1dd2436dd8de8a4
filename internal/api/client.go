// Package api is the HTTP client for the run backend
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/twieo/internal/domain/route"
	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
	"github.com/danghamo/twieo/pkg/logger"
)

const (
	runsPath   = "/api/runs"
	coursePath = "/generate_course"

	maxResponseBody = 4 << 20
)

// Course response statuses
const (
	StatusSuccess    = "success"
	StatusBadWeather = "bad_weather"
	StatusError      = "error"
)

// Client talks to the backend over JSON/HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
	now        func() time.Time
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces the clock used for credential expiry checks
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for baseURL
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithComponent("api-client"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitRun posts a finished run. Any failure, including a credential that is
// missing or expired, is returned as a domain error and nothing is retried.
func (c *Client) SubmitRun(ctx context.Context, token string, record run.Record) error {
	if err := CheckToken(token, c.now()); err != nil {
		c.logger.Debug("Skipping submission", zap.String("run_id", record.ID), zap.Error(err))
		return err
	}

	body, err := json.Marshal(record)
	if err != nil {
		return shared.WrapDomainError(err, shared.ErrCodeSubmissionFailed, "failed to encode run")
	}

	start := time.Now()
	status, respBody, err := c.post(ctx, runsPath, bearerHeader(token), body)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("Run submission failed",
			zap.String("run_id", record.ID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return shared.WrapDomainError(err, shared.ErrCodeSubmissionFailed, "run submission failed")
	}

	if status < 200 || status >= 300 {
		c.logger.Warn("Run submission rejected",
			zap.String("run_id", record.ID),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		)
		return shared.NewDomainErrorf(shared.ErrCodeSubmissionFailed,
			"run submission rejected with status %d: %s", status, strings.TrimSpace(string(respBody)))
	}

	c.logger.Info("Run submitted",
		zap.String("run_id", record.ID),
		zap.Float64("distance_km", record.DistanceKm),
		zap.Int("duration_s", record.DurationSeconds),
		zap.Duration("duration", duration),
	)
	return nil
}

type courseResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Routes  []route.Course `json:"routes"`
}

// GenerateCourse asks the backend for loop courses around a start point
func (c *Client) GenerateCourse(ctx context.Context, req route.CourseRequest) ([]route.Course, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Preference == "" {
		req.Preference = route.PreferenceNone
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, shared.WrapDomainError(err, shared.ErrCodeInvalidInput, "failed to encode course request")
	}

	status, respBody, err := c.post(ctx, coursePath, "", body)
	if err != nil {
		return nil, shared.WrapDomainError(err, shared.ErrCodeCourseRejected, "course request failed")
	}

	if status == http.StatusNotImplemented {
		return nil, shared.NewDomainError(shared.ErrCodeCourseRejected, "course generation is not available")
	}

	var resp courseResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, shared.NewDomainErrorf(shared.ErrCodeCourseRejected,
			"unexpected course response with status %d", status)
	}

	switch resp.Status {
	case StatusBadWeather:
		return nil, shared.NewDomainErrorf(shared.ErrCodeBadWeather, "bad weather: %s", resp.Message)
	case StatusSuccess:
	default:
		return nil, shared.NewDomainErrorf(shared.ErrCodeCourseRejected, "course generation failed: %s", resp.Message)
	}

	if len(resp.Routes) == 0 {
		return nil, shared.NewDomainError(shared.ErrCodeNoCourse, "no course could be generated")
	}

	c.logger.Debug("Courses generated",
		zap.Int("count", len(resp.Routes)),
		zap.Float64("distance_km", req.DistanceKm),
		zap.String("preference", string(req.Preference)),
	)
	return resp.Routes, nil
}

func (c *Client) post(ctx context.Context, path, authorization string, body []byte) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if authorization != "" {
		httpReq.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
