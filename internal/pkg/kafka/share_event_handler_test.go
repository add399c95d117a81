package kafka

import (
	"Evergreen/internal/api/dto"
	"Evergreen/internal/service"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

type stubEventService struct {
	shares      int
	clicks      int
	conversions int
	err         error
}

func (s *stubEventService) RecordShare(ctx context.Context, userID *uint64, req *dto.ShareCreateDTO) (*dto.ShareCreatedDTO, error) {
	s.shares++
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ShareCreatedDTO{ShareID: 1}, nil
}

func (s *stubEventService) RecordClick(ctx context.Context, shareID uint64) (bool, error) {
	s.clicks++
	return s.err == nil, s.err
}

func (s *stubEventService) RecordConversion(ctx context.Context, shareID uint64, req *dto.ShareConversionDTO) error {
	s.conversions++
	return s.err
}

func (s *stubEventService) PurgeExpiredShares(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func shareMessage(t *testing.T, event *dto.ShareEventMessage) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "share-events", Value: raw}
}

func TestHandleMessage_Dispatch(t *testing.T) {
	stub := &stubEventService{}
	handler := NewShareEventHandler(stub)
	ctx := context.Background()

	events := []*dto.ShareEventMessage{
		{EventType: EventTypeShare, ContentID: 42, ContentType: "post", Platform: "twitter"},
		{EventType: EventTypeClick, ShareID: 1},
		{EventType: EventTypeConversion, ShareID: 1, ConversionType: "donation", ConversionValue: 10},
	}
	for _, event := range events {
		if err := handler.handleMessage(ctx, shareMessage(t, event)); err != nil {
			t.Fatalf("handle %s: %v", event.EventType, err)
		}
	}
	if stub.shares != 1 || stub.clicks != 1 || stub.conversions != 1 {
		t.Fatalf("unexpected dispatch counts %+v", stub)
	}
}

func TestHandleMessage_UnknownTypeSkipped(t *testing.T) {
	stub := &stubEventService{}
	handler := NewShareEventHandler(stub)

	err := handler.handleMessage(context.Background(), shareMessage(t, &dto.ShareEventMessage{EventType: "typo"}))
	if err != nil {
		t.Fatalf("unknown type must not retry: %v", err)
	}
	if stub.shares+stub.clicks+stub.conversions != 0 {
		t.Fatalf("unexpected service calls %+v", stub)
	}
}

func TestHandleMessage_MalformedPayloadSkipped(t *testing.T) {
	handler := NewShareEventHandler(&stubEventService{})

	msg := &sarama.ConsumerMessage{Topic: "share-events", Value: []byte("{not json")}
	if err := handler.handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("malformed payload must not retry: %v", err)
	}
}

func TestHandleMessage_BusinessErrorAcked(t *testing.T) {
	stub := &stubEventService{err: service.ErrContentNotFound}
	handler := NewShareEventHandler(stub)

	err := handler.handleMessage(context.Background(), shareMessage(t, &dto.ShareEventMessage{
		EventType: EventTypeShare, ContentID: 42, ContentType: "post", Platform: "twitter",
	}))
	if err != nil {
		t.Fatalf("business rejection must not retry: %v", err)
	}
}

func TestHandleMessage_InfraErrorRetried(t *testing.T) {
	infraErr := errors.New("mysql gone away")
	stub := &stubEventService{err: infraErr}
	handler := NewShareEventHandler(stub)

	err := handler.handleMessage(context.Background(), shareMessage(t, &dto.ShareEventMessage{
		EventType: EventTypeConversion, ShareID: 1, ConversionType: "donation",
	}))
	if !errors.Is(err, infraErr) {
		t.Fatalf("expected infra error to surface for retry, got %v", err)
	}
}
