// Package push associates the device's push identifier with the
// authenticated session. Registration is fire-and-forget: failures are
// logged and retried only on the next natural trigger (the next AUTH_TOKEN
// message or the next app start), never in a dedicated retry loop.
package push

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/webshell/webshell/internal/infrastructure/resilience"
)

// DeviceStore persists the device push identifier across launches.
type DeviceStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// deviceIDKey is where the push identifier lives in the general store.
const deviceIDKey = "webshell.push_device_id"

// Registrar talks to the application backend's push-registration endpoint.
type Registrar struct {
	client   *resty.Client
	breaker  *resilience.Breaker
	devices  DeviceStore
	endpoint string
	platform string
	logger   *zap.Logger
}

// New creates a registrar for the given endpoint. The HTTP stack retries
// transient failures at the transport level and trips a breaker when the
// endpoint is down, so background registration never piles up requests.
func New(endpoint, platform string, devices DeviceStore, logger *zap.Logger) *Registrar {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "webshell-push/1.0")
	client.SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("push-registration", resilience.Settings{
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Registrar{
		client:   client,
		breaker:  breaker,
		devices:  devices,
		endpoint: endpoint,
		platform: platform,
		logger:   logger,
	}
}

// SetDeviceID records the push identifier delivered by the platform's
// notification service.
func (r *Registrar) SetDeviceID(id string) error {
	if err := r.devices.Set(deviceIDKey, id); err != nil {
		return fmt.Errorf("failed to persist device id: %w", err)
	}
	return nil
}

// Associate binds the stored device identifier to the authenticated
// session. A missing identifier or endpoint is a no-op: there is nothing
// to associate yet.
func (r *Registrar) Associate(ctx context.Context, token string) error {
	if r.endpoint == "" || token == "" {
		return nil
	}

	deviceID, err := r.devices.Get(deviceIDKey)
	if err != nil {
		return fmt.Errorf("failed to read device id: %w", err)
	}
	if deviceID == "" {
		r.logger.Debug("no push identifier registered yet, skipping association")
		return nil
	}

	err = r.breaker.Execute(func() error {
		resp, err := r.client.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetBody(map[string]string{
				"device_id": deviceID,
				"platform":  r.platform,
			}).
			Post(r.endpoint)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("push endpoint returned %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("push association failed: %w", err)
	}

	r.logger.Info("push identifier associated with session",
		zap.String("platform", r.platform))
	return nil
}
