package kafka

import (
	"Evergreen/internal/api/config"
	"Evergreen/internal/service"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理 Kafka 消费者
type ConsumerManager struct {
	shareConsumer sarama.ConsumerGroup
	shareHandler  sarama.ConsumerGroupHandler
}

func NewConsumerManager(cfg *config.Config, eventSvc service.EventService) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	shareConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaShareConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		shareConsumer: shareConsumer,
		shareHandler:  NewShareEventHandler(eventSvc),
	}, nil
}

// Start 启动消费者，阻塞到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go func() {
		topic := cfg.KafkaShareConsumer.Topic
		log.Info("Share event consumer started", "topic", topic)
		for {
			if err := m.shareConsumer.Consume(ctx, []string{topic}, m.shareHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.shareConsumer.Close(); err != nil {
		log.Error("Failed to close share consumer", "err", err)
	}
	return nil
}
