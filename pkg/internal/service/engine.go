package service

import (
	"context"
	"fmt"
	"os"
	"time"

	clamd "github.com/dutchcoders/go-clamd"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yeisme/filegate/pkg/configs"
	nlog "github.com/yeisme/filegate/pkg/log"
	"github.com/yeisme/filegate/pkg/metrics"
)

// Engine 外部扫描引擎能力. 引擎缺席或不可达时，
// 扫描阶段降级为仅启发式模式，不无限阻塞摄取.
type Engine interface {
	IsAvailable(ctx context.Context) bool
	Scan(ctx context.Context, path string) (clean bool, reason string, err error)
}

// ClamdEngine 通过 clamd 协议委托扫描，带熔断与限速保护.
type ClamdEngine struct {
	client  *clamd.Clamd
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClamdEngine 按扫描配置创建引擎适配器. 未启用时返回 nil，
// 调用方据此进入仅启发式模式.
func NewClamdEngine(cfg *configs.ScanConfig) *ClamdEngine {
	if !cfg.EngineEnabled {
		return nil
	}

	e := &ClamdEngine{
		client:  clamd.NewClamd(cfg.EngineAddr),
		timeout: cfg.Timeout(),
	}

	if cfg.Breaker.Enabled {
		bc := cfg.Breaker
		e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "scan-engine",
			MaxRequests: bc.MaxRequestsInHalf,
			Interval:    time.Duration(bc.IntervalSeconds) * time.Second,
			Timeout:     time.Duration(bc.TimeoutSeconds) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= bc.MinRequests && failureRate >= bc.FailureRate
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				nlog.Logger().Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("scan engine breaker state changed")
			},
		})
	}

	if cfg.RateLimit.Enabled {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	return e
}

// EngineFromConfig 按配置装配扫描引擎. 未启用时返回空接口值，
// 避免 typed-nil 指针落进接口导致 nil 判断失效.
func EngineFromConfig(cfg *configs.ScanConfig) Engine {
	if e := NewClamdEngine(cfg); e != nil {
		return e
	}

	return nil
}

// IsAvailable 探测引擎可达性. 熔断器打开时视为不可达，直接降级.
func (e *ClamdEngine) IsAvailable(ctx context.Context) bool {
	if e.breaker != nil && e.breaker.State() == gobreaker.StateOpen {
		metrics.ScanEngineState.Set(0)
		return false
	}

	err := e.client.Ping()
	if err != nil {
		metrics.ScanEngineState.Set(0)
		return false
	}

	metrics.ScanEngineState.Set(1)

	return true
}

// Scan 把文件流送入引擎扫描. 限速等待与单次扫描都受超时约束.
func (e *ClamdEngine) Scan(ctx context.Context, path string) (bool, string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return false, "", fmt.Errorf("scan rate limit: %w", err)
		}
	}

	run := func() (any, error) {
		return e.scanStream(ctx, path)
	}

	var (
		result any
		err    error
	)

	if e.breaker != nil {
		result, err = e.breaker.Execute(run)
	} else {
		result, err = run()
	}

	if err != nil {
		return false, "", err
	}

	verdict := result.(*clamd.ScanResult)
	if verdict.Status == clamd.RES_FOUND {
		return false, verdict.Description, nil
	}

	return true, "", nil
}

// scanStream 打开文件并通过 INSTREAM 协议送扫.
func (e *ClamdEngine) scanStream(ctx context.Context, path string) (*clamd.ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open for scan: %w", err)
	}
	defer f.Close()

	abort := make(chan bool)
	defer close(abort)

	results, err := e.client.ScanStream(f, abort)
	if err != nil {
		return nil, fmt.Errorf("scan stream: %w", err)
	}

	select {
	case r, ok := <-results:
		if !ok || r == nil {
			return nil, fmt.Errorf("scan stream closed without result")
		}

		if r.Status == clamd.RES_ERROR || r.Status == clamd.RES_PARSE_ERROR {
			return nil, fmt.Errorf("scan engine error: %s", r.Raw)
		}

		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
