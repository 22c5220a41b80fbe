package repository

import (
	"context"

	"PairPull/internal/domain/models"
	"PairPull/internal/domain/repository"
	pkgkafka "PairPull/pkg/kafka"
)

// KafkaSignalSink publishes signal and portfolio snapshots to Kafka.
type KafkaSignalSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalSink(producer *pkgkafka.Producer, topic string) repository.SignalSink {
	return &KafkaSignalSink{producer: producer, topic: topic}
}

func (s *KafkaSignalSink) PublishSignals(ctx context.Context, snaps []models.SignalSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(snaps))
	for i, sn := range snaps {
		msgs[i] = pkgkafka.Message{Key: []byte(sn.PairID), Value: sn}
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}

func (s *KafkaSignalSink) PublishPortfolio(ctx context.Context, snap *models.PortfolioSnapshot) error {
	if snap == nil {
		return nil
	}
	return s.producer.Publish(ctx, s.topic, []byte("portfolio"), snap)
}

func (s *KafkaSignalSink) Close() error {
	// producer lifecycle owned by the bar publisher
	return nil
}
