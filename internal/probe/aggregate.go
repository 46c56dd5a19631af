package probe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/metrics"
)

// RunService runs every test definition for one service in parallel and
// aggregates the results.
func (c *Client) RunService(ctx context.Context, svc domain.Service) domain.ServiceProbeSummary {
	results := make([]domain.ProbeResult, len(svc.Tests))
	var wg sync.WaitGroup
	for i, test := range svc.Tests {
		wg.Add(1)
		go func(i int, test domain.TestDefinition) {
			defer wg.Done()
			results[i] = c.runWithRegistry(ctx, c.registry, test, svc.Critical)
		}(i, test)
	}
	wg.Wait()

	return summarize(svc.ID, svc.Critical, results)
}

// RunServices runs RunService for every service in parallel.
func (c *Client) RunServices(ctx context.Context, services []domain.Service) []domain.ServiceProbeSummary {
	summaries := make([]domain.ServiceProbeSummary, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc domain.Service) {
			defer wg.Done()
			summaries[i] = c.RunService(ctx, svc)
		}(i, svc)
	}
	wg.Wait()
	return summaries
}

func (c *Client) run(ctx context.Context, test domain.TestDefinition, critical bool) domain.ProbeResult {
	timeout := test.ClampedTimeout()
	started := time.Now()
	var result domain.ProbeResult

	switch test.Kind {
	case domain.TestHTTPSGet:
		result = c.HTTPGet(ctx, test.URL, timeout, test.AcceptedStatus, test.MinBodySize)
	case domain.TestHTTPSHead:
		result = c.HTTPHead(ctx, test.URL, timeout)
	case domain.TestTCPConnect:
		result = c.TCP(ctx, test.Host, test.Port, timeout)
	case domain.TestDNS:
		result = c.DNS(ctx, test.Domain, timeout)
	case domain.TestWebSocket:
		result = c.WebSocket(ctx, test.URL, timeout)
	default:
		result = domain.ProbeResult{Success: false, Error: "unknown test kind: " + string(test.Kind)}
	}
	result.Critical = critical
	metrics.RecordProbe(string(test.Kind), result.Success, time.Since(started))
	return result
}

func summarize(serviceID string, critical bool, results []domain.ProbeResult) domain.ServiceProbeSummary {
	summary := domain.ServiceProbeSummary{
		ServiceID:  serviceID,
		Critical:   critical,
		Total:      len(results),
		ErrorTypes: make(map[domain.ErrorClass]int),
	}

	var latencySum float64
	latencyCount := 0
	for _, r := range results {
		if r.Success {
			summary.Passed++
			if r.LatencyMS != nil {
				latencySum += *r.LatencyMS
				latencyCount++
			}
			continue
		}
		class := classify(errors.New(r.Error))
		summary.ErrorTypes[class]++
	}

	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Passed) / float64(summary.Total)
	}
	if latencyCount > 0 {
		summary.AvgLatencySuccess = latencySum / float64(latencyCount)
	}
	return summary
}
