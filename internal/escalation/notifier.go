package escalation

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/onwatch/sentinel/internal/domain"
)

// Notifier delivers a page for one escalation target. spec.md's
// Non-goals exclude building a full notification-transport layer;
// this enqueues a best-effort Slack message and returns, it does not
// track delivery receipts or retries across channels.
type Notifier interface {
	Notify(ctx context.Context, target domain.EscalationTarget, incident *domain.Incident) error
}

// SlackNotifier posts one message per escalation target to a resolved
// Slack channel or user DM. Channel resolution (user id / schedule id
// -> Slack channel id) is left to resolveChannel, a small seam so the
// on-call-schedule lookup can be swapped without touching the paging
// logic itself.
type SlackNotifier struct {
	client         *slack.Client
	resolveChannel func(target domain.EscalationTarget) (string, error)
}

func NewSlackNotifier(token string, resolveChannel func(domain.EscalationTarget) (string, error)) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), resolveChannel: resolveChannel}
}

func (n *SlackNotifier) Notify(ctx context.Context, target domain.EscalationTarget, incident *domain.Incident) error {
	channel, err := n.resolveChannel(target)
	if err != nil {
		return fmt.Errorf("escalation: resolving channel for target %s: %w", target.ID, err)
	}

	text := fmt.Sprintf(":rotating_light: Incident `%s` (%s) is at escalation level %d and unacknowledged.",
		incident.ID, incident.Priority, incident.CurrentLevel)

	_, _, err = n.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("escalation: posting slack message to %s: %w", channel, err)
	}
	return nil
}
