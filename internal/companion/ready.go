package companion

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/liangyou/mcversion/pkg/models"
)

// Prober 用于探测版本服务是否可用。
type Prober interface {
	FetchVersions(ctx context.Context) (models.VersionSet, error)
}

// WaitReady 以指数退避探测 /versions，直到成功、超时或 ctx 取消。
func WaitReady(ctx context.Context, prober Prober, maxWait time.Duration) error {
	expBackOff := backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     200 * time.Millisecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         2 * time.Second,
		MaxElapsedTime:      maxWait,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, ctx)

	operation := func() error {
		_, err := prober.FetchVersions(ctx)
		return err
	}
	notify := func(err error, next time.Duration) {
		log.Debugf("version server not ready, retrying in %s: %v", next, err)
	}

	if err := backoff.RetryNotify(operation, expBackOff, notify); err != nil {
		return fmt.Errorf("companion: server not ready: %w", err)
	}
	return nil
}
