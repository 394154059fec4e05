// Package notifier delivers digests by email, Gmail, Slack or the log.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amishk599/jobdigest/internal/digest"
	"github.com/amishk599/jobdigest/internal/model"
)

// Multi fans a digest out to several notifiers. Every notifier is tried;
// failures are joined.
type Multi []model.Notifier

// Send delivers d through every notifier in order.
func (m Multi) Send(ctx context.Context, d model.Digest) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendTest sends a sample digest to verify the integration works.
func SendTest(ctx context.Context, n model.Notifier) error {
	if err := n.Send(ctx, digest.Sample(time.Now())); err != nil {
		return fmt.Errorf("send test digest: %w", err)
	}
	return nil
}

func asHTTPError(err error, target **model.HTTPError) bool {
	return err != nil && errors.As(err, target)
}
