// Package retry wraps vendor API calls with bounded attempts and
// exponential backoff. Client-error responses (4xx) short-circuit: quota,
// auth, and validation failures will not self-heal on retry, while 5xx and
// network failures might.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/internal/netutil"
)

// Policy 定义重试策略配置。
type Policy struct {
	Retries int           // 额外重试次数（总尝试次数 = Retries + 1）
	Delay   time.Duration // 初始延迟
	Backoff float64       // 延迟倍增因子（指数退避）
}

// DefaultPolicy returns the policy used for all vendor calls.
func DefaultPolicy() Policy {
	return Policy{
		Retries: 2,
		Delay:   1500 * time.Millisecond,
		Backoff: 2,
	}
}

// Operation is a single vendor call. Returning a response with a non-2xx
// status is not an error; only transport-level failures are.
type Operation func() (*netutil.JSONResponse, error)

// Do 执行 op，失败时按策略重试。
//
// 语义与各 adapter 的约定：
//   - op 返回 4xx 响应：立即返回该响应，不再重试；
//   - op 返回 5xx 响应或抛出错误：等待 Delay*Backoff^attempt 后重试；
//   - 重试耗尽：返回最后一个响应或错误。
func Do(ctx context.Context, logger *zap.Logger, policy Policy, op Operation) (*netutil.JSONResponse, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Retries < 0 {
		policy.Retries = 0
	}
	if policy.Delay <= 0 {
		policy.Delay = 1500 * time.Millisecond
	}
	if policy.Backoff < 1 {
		policy.Backoff = 2
	}

	var lastResp *netutil.JSONResponse
	var lastErr error

	for attempt := 0; attempt <= policy.Retries; attempt++ {
		resp, err := op()
		if err == nil {
			// 4xx 不重试：配额、认证、参数错误不会自愈。
			if resp.Status >= 400 && resp.Status < 500 {
				return resp, nil
			}
			if resp.Status < 400 {
				return resp, nil
			}
			lastResp, lastErr = resp, nil
		} else {
			lastResp, lastErr = nil, err
		}

		if attempt >= policy.Retries {
			break
		}

		wait := time.Duration(float64(policy.Delay) * math.Pow(policy.Backoff, float64(attempt)))
		fields := []zap.Field{
			zap.Int("attempt", attempt+1),
			zap.Int("retries", policy.Retries),
			zap.Duration("wait", wait),
		}
		if lastErr != nil {
			fields = append(fields, zap.Error(lastErr))
		} else {
			fields = append(fields, zap.Int("status", lastResp.Status))
		}
		logger.Warn("attempt failed, retrying", fields...)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry canceled: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}
