package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Client wraps client-go plus the metrics.k8s.io clientset. A nil *Client
// is valid and means "no cluster": callers degrade instead of failing.
type Client struct {
	Clientset kubernetes.Interface
	Metrics   metricsclient.Interface
	Config    *rest.Config
	// Timeout for outbound K8s API calls; 0 means use request context only.
	Timeout time.Duration
	// limiter optionally rate-limits outbound API calls. Nil = no limit.
	limiter *rate.Limiter

	// Health status: last successful call time, last error.
	lastSuccessTime time.Time
	lastError       error
	healthMu        sync.RWMutex
}

// NewClient creates a Kubernetes client, trying in-cluster config first and
// falling back to the default kubeconfig.
func NewClient(kubeconfigPath string) (*Client, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		if kubeconfigPath == "" {
			homeDir, _ := os.UserHomeDir()
			if homeDir != "" {
				kubeconfigPath = filepath.Join(homeDir, ".kube", "config")
			}
		}
		config, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
			&clientcmd.ConfigOverrides{},
		).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to build config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	mc, err := metricsclient.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics clientset: %w", err)
	}

	return &Client{
		Clientset:       clientset,
		Metrics:         mc,
		Config:          config,
		lastSuccessTime: time.Now(),
	}, nil
}

// SetTimeout sets the timeout for outbound K8s API calls.
func (c *Client) SetTimeout(d time.Duration) {
	c.Timeout = d
}

// SetLimiter sets a token-bucket rate limiter for outbound K8s API calls.
func (c *Client) SetLimiter(l *rate.Limiter) {
	c.limiter = l
}

// Begin prepares the context for an outbound K8s API call: waits on the
// rate limiter (if any) and applies the per-call timeout. Callers must
// invoke the returned cancel func.
func (c *Client) Begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return ctx, func() {}, err
		}
	}
	if c.Timeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		return callCtx, cancel, nil
	}
	return ctx, func() {}, nil
}

// GetServerVersion returns the Kubernetes server version string.
func (c *Client) GetServerVersion(ctx context.Context) (string, error) {
	version, err := c.Clientset.Discovery().ServerVersion()
	c.RecordOutcome(err)
	if err != nil {
		return "", err
	}
	return version.GitVersion, nil
}

// RecordOutcome records the outcome of an API call for /health reporting.
func (c *Client) RecordOutcome(err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	if err == nil {
		c.lastSuccessTime = time.Now()
		c.lastError = nil
	} else {
		c.lastError = err
	}
}

// HealthStatus returns whether the last API call succeeded, plus the last
// success time and error.
func (c *Client) HealthStatus() (isHealthy bool, lastSuccess time.Time, lastErr error) {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.lastError == nil, c.lastSuccessTime, c.lastError
}

// NewClientForTest creates a Client backed by the given clientsets. Config
// is nil; callers must not use methods that need it.
func NewClientForTest(clientset kubernetes.Interface, metrics metricsclient.Interface) *Client {
	return &Client{
		Clientset:       clientset,
		Metrics:         metrics,
		lastSuccessTime: time.Now(),
	}
}
