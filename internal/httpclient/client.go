// Package httpclient is the outbound HTTP client shared by the identity
// provider and payment processor integrations. Every call goes through a
// circuit breaker; 5xx and transport errors count as failures, 4xx do not.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Skotchmaster/storefront/internal/metrics"
)

var ErrCircuitOpen = gobreaker.ErrOpenState

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*Response]
	name    string
}

func New(cfg BreakerConfig, hc *http.Client, logger *slog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && se.Code < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	metrics.BreakerState.WithLabelValues(cfg.Name).Set(0)

	return &Client{
		http:    hc,
		breaker: gobreaker.NewCircuitBreaker[*Response](settings),
		name:    cfg.Name,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Do sends req and reads the whole body. A non-2xx status is returned as
// *StatusError alongside the response.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	return c.breaker.Execute(func() (*Response, error) {
		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", c.name, err)
		}
		out := &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return out, &StatusError{Code: resp.StatusCode, Body: string(body)}
		}
		return out, nil
	})
}

func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}
