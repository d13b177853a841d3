// Package metrics provides implementations for pushing metrics to remote endpoints.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"backupmgr/internal/domain"
	"backupmgr/internal/http"
	"backupmgr/pkg/version"
)

const (
	metricsJobName = "backupmgr"
	contentType    = "text/plain; charset=utf-8"
)

// PushgatewayClient pushes metrics to a Prometheus Pushgateway.
type PushgatewayClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// PushgatewayOption configures a PushgatewayClient.
type PushgatewayOption func(*PushgatewayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.logger = logger
	}
}

// NewPushgatewayClient creates a new PushgatewayClient.
func NewPushgatewayClient(url string, opts ...PushgatewayOption) *PushgatewayClient {
	p := &PushgatewayClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Push sends metrics to the Pushgateway. PUT replaces the whole metric
// group for this job and instance, so stale gauges from a previous push
// do not linger.
func (p *PushgatewayClient) Push(ctx context.Context, metrics *domain.Metrics) error {
	body := p.buildMetrics(metrics)

	pushURL := fmt.Sprintf("%s/metrics/job/%s/instance/%s", p.url, metricsJobName, metrics.Hostname)

	p.logger.Debug("pushing metrics to pushgateway", "url", pushURL)

	resp, err := p.httpClient.Put(ctx, pushURL, contentType, []byte(body))
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushgateway returned status %d: %s", resp.StatusCode, string(resp.Body))
	}

	p.logger.Debug("metrics pushed successfully")
	return nil
}

// Validate checks if the Pushgateway is reachable.
func (p *PushgatewayClient) Validate(ctx context.Context) error {
	// Pushgateway typically has a /-/ready endpoint
	readyURL := fmt.Sprintf("%s/-/ready", p.url)

	if err := p.httpClient.CheckConnectivity(ctx, readyURL); err != nil {
		// Try the root URL as fallback
		if err2 := p.httpClient.CheckConnectivity(ctx, p.url); err2 != nil {
			return fmt.Errorf("pushgateway not reachable at %s: %w", p.url, err)
		}
	}

	return nil
}

// buildMetrics constructs the Prometheus text format metrics.
func (p *PushgatewayClient) buildMetrics(m *domain.Metrics) string {
	var b strings.Builder

	up := 0
	if m.ServiceUp {
		up = 1
	}
	b.WriteString("# HELP backupmgr_up Service is running\n")
	b.WriteString("# TYPE backupmgr_up gauge\n")
	b.WriteString(fmt.Sprintf("backupmgr_up %d\n", up))
	b.WriteString("\n")

	versionInfo := version.Get()
	b.WriteString("# HELP backupmgr_info Build information\n")
	b.WriteString("# TYPE backupmgr_info gauge\n")
	b.WriteString(fmt.Sprintf("backupmgr_info{version=%q,go_version=%q} 1\n",
		versionInfo.Version, runtime.Version()))
	b.WriteString("\n")

	b.WriteString("# HELP backupmgr_backups_due Backups attempted by the last run\n")
	b.WriteString("# TYPE backupmgr_backups_due gauge\n")
	b.WriteString(fmt.Sprintf("backupmgr_backups_due %d\n", m.BackupsDue))
	b.WriteString("# HELP backupmgr_backups_succeeded Backups that completed on every backend\n")
	b.WriteString("# TYPE backupmgr_backups_succeeded gauge\n")
	b.WriteString(fmt.Sprintf("backupmgr_backups_succeeded %d\n", m.BackupsSucceeded))
	b.WriteString("# HELP backupmgr_backups_failed Backups with at least one backend failure\n")
	b.WriteString("# TYPE backupmgr_backups_failed gauge\n")
	b.WriteString(fmt.Sprintf("backupmgr_backups_failed %d\n", m.BackupsFailed))
	b.WriteString("# HELP backupmgr_archives_pruned Archives destroyed by the last prune pass\n")
	b.WriteString("# TYPE backupmgr_archives_pruned gauge\n")
	b.WriteString(fmt.Sprintf("backupmgr_archives_pruned %d\n", m.ArchivesPruned))
	b.WriteString("# HELP backupmgr_last_run_timestamp_seconds Unix timestamp of last completed run\n")
	b.WriteString("# TYPE backupmgr_last_run_timestamp_seconds gauge\n")
	b.WriteString(fmt.Sprintf("backupmgr_last_run_timestamp_seconds %g\n", m.LastRunUnix))

	return b.String()
}

// Ensure PushgatewayClient implements domain.MetricsPusher.
var _ domain.MetricsPusher = (*PushgatewayClient)(nil)
