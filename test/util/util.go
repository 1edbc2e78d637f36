// Package util holds helpers for tests that need real infrastructure: a
// throwaway MQTT broker in Docker and polling helpers for asynchronous
// effects such as subscriptions and scraped metrics.
package util

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	BrokerStartTimeout = 2 * time.Minute
	BrokerReadyTimeout = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// mosquittoConf accepts anonymous clients on 1883 and keeps nothing on disk.
const mosquittoConf = "listener 1883\nallow_anonymous true\npersistence false\nlog_dest stdout\nlog_type error\n"

// RequireDocker skips t in -short mode or when the docker CLI is missing.
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
}

// StartMosquitto runs an eclipse-mosquitto container for the duration of t
// and returns its tcp:// broker URL. The test is skipped when Docker is not
// usable.
func StartMosquitto(t *testing.T) string {
	t.Helper()
	RequireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), BrokerStartTimeout)
	defer cancel()

	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
			Files: []tc.ContainerFile{{
				Reader:            strings.NewReader(mosquittoConf),
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0o644,
			}},
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("start mosquitto: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	endpoint, err := cont.PortEndpoint(ctx, "1883/tcp", "tcp")
	if err != nil {
		t.Fatalf("mosquitto endpoint: %v", err)
	}
	readyCtx, readyCancel := context.WithTimeout(ctx, BrokerReadyTimeout)
	defer readyCancel()
	if err := Eventually(readyCtx, func() bool { return brokerAccepts(endpoint) }); err != nil {
		t.Fatalf("mosquitto not ready: %v", err)
	}
	return endpoint
}

func brokerAccepts(url string) bool {
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(url).SetClientID("evsense-readiness"))
	tok := cli.Connect()
	if !tok.WaitTimeout(time.Second) || tok.Error() != nil {
		return false
	}
	cli.Disconnect(50)
	return true
}

// Eventually polls cond until it holds or ctx is done.
func Eventually(ctx context.Context, cond func() bool) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// WaitForMetric scrapes url until its body contains substr.
func WaitForMetric(ctx context.Context, url, substr string) error {
	var last error
	err := Eventually(ctx, func() bool {
		body, err := scrape(ctx, url)
		last = err
		return err == nil && strings.Contains(body, substr)
	})
	if err != nil {
		return fmt.Errorf("metric %q not exposed at %s (last error: %v): %w", substr, url, last, err)
	}
	return nil
}

func scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return string(b), err
}

// FreeAddr returns a loopback address with a port that was free a moment ago.
func FreeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}
