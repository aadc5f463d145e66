package acceptance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prperemyshlev/bridge-service/internal/service"
)

func (s *Suite) TestRateLimiter_ConcurrentRequestsRespectLimit() {
	limiter := service.NewRateLimiter(s.Redis)
	ctx := context.Background()

	const (
		limit    = 10
		attempts = 25
	)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := limiter.Allow(ctx, "burst-client", limit, time.Minute)
			s.NoError(err)
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int64(limit), allowed.Load())
}

func (s *Suite) TestRateLimiter_ReportsRetryAfter() {
	limiter := service.NewRateLimiter(s.Redis)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := limiter.Allow(ctx, "patient-client", 3, time.Minute)
		s.Require().NoError(err)
		s.Require().True(ok)
	}

	ok, retryAfter, err := limiter.Allow(ctx, "patient-client", 3, time.Minute)
	s.Require().NoError(err)
	s.False(ok)
	s.Greater(retryAfter, time.Duration(0))
	s.LessOrEqual(retryAfter, time.Minute)

	remaining, err := limiter.GetRemainingRequests(ctx, "patient-client", 3, time.Minute)
	s.Require().NoError(err)
	s.Equal(0, remaining)
}
