package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"staybook/internal/app/policies"
	domainunits "staybook/internal/domain/units"
)

// CalendarInvalidationHandler reacts to upstream calendar-change events by
// dropping the affected snapshot sub-range, so the next availability read
// refetches instead of serving stale facts.
type CalendarInvalidationHandler struct {
	Snapshots policies.SnapshotSource
	Logger    *slog.Logger
}

type calendarChangedEvent struct {
	UnitID string `json:"unit_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (h *CalendarInvalidationHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt calendarChangedEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("dropping malformed calendar change event", "topic", msg.Topic, "error", err)
		}
		// Malformed events are not retryable.
		return nil
	}
	from, err := time.Parse("2006-01-02", evt.From)
	if err != nil {
		return fmt.Errorf("kafka: bad calendar change from date %q: %w", evt.From, err)
	}
	to, err := time.Parse("2006-01-02", evt.To)
	if err != nil {
		return fmt.Errorf("kafka: bad calendar change to date %q: %w", evt.To, err)
	}
	h.Snapshots.InvalidateRange(domainunits.UnitID(evt.UnitID), from, to)
	if h.Logger != nil {
		h.Logger.Info("calendar snapshot invalidated", "unit_id", evt.UnitID, "from", evt.From, "to", evt.To)
	}
	return nil
}

var _ MessageHandler = (*CalendarInvalidationHandler)(nil)
