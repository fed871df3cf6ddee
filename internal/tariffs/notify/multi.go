package notify

import (
	"context"

	tariffapp "optifactura/internal/tariffs/application"
	tariffs "optifactura/internal/tariffs/domain"
)

// MultiNotifier dispatches change events to multiple notifiers.
type MultiNotifier struct {
	notifiers []tariffapp.ChangeNotifier
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(notifiers ...tariffapp.ChangeNotifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// NotifyChanges forwards events to all notifiers.
func (m *MultiNotifier) NotifyChanges(ctx context.Context, events []tariffs.TariffChangeEvent) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		if notifier != nil {
			notifier.NotifyChanges(ctx, events)
		}
	}
}
