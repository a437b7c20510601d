package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	"github.com/naka-gawa/star-neighbours/internal/domain"
)

// call runs fn under the gateway's throttle, per-call timeout and retry budget.
//
// Errors are classified into domain kinds. Transport and rate-limit failures are
// retried with doubling backoff (or the delay GitHub asked for); once the budget is
// spent the last failure is wrapped as KindUpstreamUnavailable. Cancellation of ctx
// is returned unchanged.
func (g *GitHubGateway) call(ctx context.Context, op string, classify func(error) error, fn func(context.Context) error) error {
	delay := g.opts.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= g.opts.RetryAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return domain.WrapError(domain.KindUpstreamUnavailable, err, "%s: throttled past the request deadline", op)
		}

		callCtx, cancel := g.callContext(ctx)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = classify(err)
		if !domain.Retryable(lastErr) {
			return wrapOp(lastErr, op)
		}
		if attempt == g.opts.RetryAttempts {
			break
		}

		wait := delay
		var kinded *domain.Error
		if errors.As(lastErr, &kinded) && kinded.RetryAfter > 0 {
			wait = kinded.RetryAfter
		}
		if g.opts.MaxRetryWait > 0 && wait > g.opts.MaxRetryWait {
			g.logger.Warn("GitHub asked to wait longer than allowed", "op", op, "wait", wait)
			break
		}
		g.logger.Debug("Retrying GitHub call", "op", op, "attempt", attempt, "wait", wait, "err", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			delay *= 2
		}
	}
	return domain.WrapError(domain.KindUpstreamUnavailable, lastErr, "%s: retry budget exhausted", op)
}

func (g *GitHubGateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.opts.CallTimeout)
}

func wrapOp(err error, op string) error {
	var kinded *domain.Error
	if errors.As(err, &kinded) {
		kinded.Message = op + ": " + kinded.Message
		return kinded
	}
	return err
}

// classifyREST maps go-github errors onto domain kinds.
func classifyREST(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.Error{
			Kind:       domain.KindRateLimited,
			Message:    "primary rate limit exceeded",
			RetryAfter: time.Until(rateErr.Rate.Reset.Time),
			Cause:      err,
		}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &domain.Error{
			Kind:       domain.KindRateLimited,
			Message:    "secondary rate limit exceeded",
			RetryAfter: abuseErr.GetRetryAfter(),
			Cause:      err,
		}
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return classifyStatus(respErr.Response.StatusCode, respErr.Response.Header, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.KindTransport, err, "call timed out")
	}
	return domain.WrapError(domain.KindTransport, err, "request failed")
}

func classifyStatus(code int, header http.Header, err error) error {
	switch {
	case code == http.StatusNotFound:
		return domain.WrapError(domain.KindNotFound, err, "not found")
	case code == http.StatusUnprocessableEntity:
		return domain.WrapError(domain.KindPaginationLimit, err, "pagination limit reached")
	case code == http.StatusTooManyRequests,
		code == http.StatusForbidden && header.Get("X-RateLimit-Remaining") == "0":
		return &domain.Error{
			Kind:       domain.KindRateLimited,
			Message:    "rate limited",
			RetryAfter: parseRetryAfter(header),
			Cause:      err,
		}
	case code >= http.StatusInternalServerError:
		return domain.WrapError(domain.KindTransport, err, "server error %d", code)
	default:
		return domain.WrapError(domain.KindUpstreamUnavailable, err, "unexpected status %d", code)
	}
}

// parseRetryAfter reads Retry-After, falling back to X-RateLimit-Reset.
func parseRetryAfter(header http.Header) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	if v := header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Until(time.Unix(epoch, 0))
		}
	}
	return 0
}

// classifyGraphQL maps githubv4 errors onto domain kinds. The GraphQL API reports
// a missing repository as an error message on an HTTP 200 response.
func classifyGraphQL(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Could not resolve to a Repository"):
		return domain.WrapError(domain.KindNotFound, err, "not found")
	case strings.Contains(msg, "non-200 OK status code: 5"):
		return domain.WrapError(domain.KindTransport, err, "server error")
	case strings.Contains(msg, "non-200 OK status code: 429"),
		strings.Contains(msg, "non-200 OK status code: 403"),
		strings.Contains(msg, "API rate limit exceeded"):
		return domain.WrapError(domain.KindRateLimited, err, "rate limited")
	case strings.Contains(msg, "non-200 OK status code"):
		return domain.WrapError(domain.KindUpstreamUnavailable, err, "unexpected status")
	case errors.Is(err, context.DeadlineExceeded):
		return domain.WrapError(domain.KindTransport, err, "call timed out")
	}
	return domain.WrapError(domain.KindTransport, err, "request failed")
}
