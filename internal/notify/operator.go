package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/mr1hm/safetywatch/internal/models"
)

// Operator broadcasts every alert to the configured shoutrrr service urls
// (slack, discord, ntfy, smtp and so on) regardless of the owner's channels.
//
// The shoutrrr router has no context support. Each send is bounded by the
// router timeout given to NewOperator, and Notify returns early when ctx is
// done while the send finishes in the background.
type Operator struct {
	sender *router.ServiceRouter
}

func NewOperator(urls []string, timeout time.Duration) (*Operator, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one notification url is required")
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("invalid notification url: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &Operator{sender: sender}, nil
}

func (o *Operator) Name() string { return "operator" }

func (o *Operator) Notify(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operator broadcast skipped for alert %s: %w", alert.ID, err)
	}

	params := stypes.Params{}
	params.SetTitle(AlertTitle(alert))

	done := make(chan []error, 1)
	go func() { done <- o.sender.Send(FormatAlertText(alert), &params) }()

	select {
	case errs := <-done:
		for _, err := range errs {
			if err != nil {
				return fmt.Errorf("operator broadcast failed for alert %s: %w", alert.ID, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("operator broadcast for alert %s: %w", alert.ID, ctx.Err())
	}
}
