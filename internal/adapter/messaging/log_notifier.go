package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

// LogNotifier records workflow requests in the log. It is used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) StartFulfillment(ctx context.Context, event domain.OrderUpdated) error {
	n.log(WorkflowStartFulfillment, event)
	return nil
}

func (n *LogNotifier) CompleteOrder(ctx context.Context, event domain.OrderUpdated) error {
	n.log(WorkflowCompleteOrder, event)
	return nil
}

func (n *LogNotifier) ReleaseOrder(ctx context.Context, event domain.OrderUpdated) error {
	n.log(WorkflowReleaseOrder, event)
	return nil
}

func (n *LogNotifier) NotifyFailure(ctx context.Context, event domain.OrderUpdated) error {
	n.log(WorkflowNotifyFailure, event)
	return nil
}

func (n *LogNotifier) log(workflow string, event domain.OrderUpdated) {
	n.logger.Info("workflow requested",
		zap.String("workflow", workflow),
		zap.String("order_id", event.OrderID.String()),
		zap.String("old_status", string(event.OldStatus)),
		zap.String("new_status", string(event.NewStatus)),
		zap.String("updated_by", event.UpdatedBy),
	)
}
