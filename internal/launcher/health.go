package launcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// readinessTimeout bounds how long RunBoth waits for the API before starting
// the UI.
const readinessTimeout = 30 * time.Second

// WaitReady polls the API's health endpoint until it answers 200, falling
// back to a TCP probe for builds without a health route. This replaces the
// fixed start-up delay: the UI only starts once the API is actually
// reachable.
func WaitReady(ctx context.Context, port int, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)

	retry := retrypolicy.Builder[any]().
		WithDelay(250 * time.Millisecond).
		WithMaxDuration(timeout).
		WithMaxRetries(-1).
		Build()

	err := failsafe.NewExecutor[any](retry).WithContext(ctx).Run(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			// HTTP not answering yet: accept an open TCP port as "starting".
			return tcpProbe(port)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("service on port %d not ready within %s: %w", port, timeout, err)
	}
	return nil
}

func tcpProbe(port int) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}

// RunBoth starts the API as a background process, waits for it to become
// ready, then runs the UI in the foreground. When the UI exits the API is
// signalled to stop; that final signal is best-effort.
func (l *Launcher) RunBoth(ctx context.Context) error {
	api, err := l.Launch(ctx, ServiceAPI, l.Config.APIPort, false)
	if err != nil {
		return fmt.Errorf("failed to start API: %w", err)
	}
	l.effectiveAPIPort = api.Port
	defer func() {
		l.printf("Stopping background API (pid %d)", api.PID())
		if err := api.Stop(); err != nil {
			l.Logger.Warn("failed to stop background API", "error", err)
		}
	}()

	l.printf("Waiting for API on port %d...", api.Port)
	if err := WaitReady(ctx, api.Port, readinessTimeout); err != nil {
		return err
	}
	l.printf("API ready; starting UI")

	if _, err := l.Launch(ctx, ServiceUI, l.Config.UIPort, true); err != nil {
		return err
	}
	return nil
}
