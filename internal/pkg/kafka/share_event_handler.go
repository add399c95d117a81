package kafka

import (
	"Evergreen/internal/api/dto"
	"Evergreen/internal/service"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const (
	EventTypeShare      = "share"
	EventTypeClick      = "click"
	EventTypeConversion = "conversion"
)

// ShareEventHandler 消费站外埋点上报的分享事件流
type ShareEventHandler struct {
	eventSvc service.EventService
}

func NewShareEventHandler(eventSvc service.EventService) *ShareEventHandler {
	return &ShareEventHandler{eventSvc: eventSvc}
}

func (h *ShareEventHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("share event consumer setup")
	return nil
}

func (h *ShareEventHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("share event consumer cleanup")
	return nil
}

func (h *ShareEventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	return pullMessageBatch(session, claim, h.handleMessage)
}

func (h *ShareEventHandler) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event dto.ShareEventMessage
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.ErrorContext(ctx, "unmarshal share event error", "err", err)
		return nil
	}

	var err error
	switch event.EventType {
	case EventTypeShare:
		_, err = h.eventSvc.RecordShare(ctx, event.UserID, &dto.ShareCreateDTO{
			ContentID:   event.ContentID,
			ContentType: event.ContentType,
			Platform:    event.Platform,
			Metadata:    event.Metadata,
		})
	case EventTypeClick:
		_, err = h.eventSvc.RecordClick(ctx, event.ShareID)
	case EventTypeConversion:
		err = h.eventSvc.RecordConversion(ctx, event.ShareID, &dto.ShareConversionDTO{
			ConversionType:  event.ConversionType,
			ConversionValue: event.ConversionValue,
		})
	default:
		log.WarnContext(ctx, "unknown share event type", "event_type", event.EventType)
		return nil
	}

	// 业务性拒绝不重投，只有基础设施错误才交给重试
	if err != nil {
		if _, permanent := service.ErrorMap[err]; permanent {
			log.WarnContext(ctx, "share event rejected", "event_type", event.EventType, "err", err)
			return nil
		}
		return err
	}
	return nil
}
