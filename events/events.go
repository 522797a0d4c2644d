package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tryfix/averager/data"
	"github.com/tryfix/averager/encoding"
	"github.com/tryfix/averager/producer"
	"github.com/tryfix/averager/window"
	"github.com/tryfix/errors"
	"github.com/tryfix/log"
)

const HeaderEventId = `event_id`

// Event is the published form of a single window update.
type Event struct {
	Id        uuid.UUID           `json:"id"`
	Category  string              `json:"category"`
	Size      int                 `json:"size"`
	Result    window.UpdateResult `json:"result"`
	CreatedAt time.Time           `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, category string, size int, res window.UpdateResult) error
	Close() error
}

type kafkaPublisher struct {
	topic      string
	producer   producer.Producer
	keyEncoder encoding.Encoder
	valEncoder encoding.Encoder
	logger     log.Logger
}

func NewKafkaPublisher(topic string, p producer.Producer, logger log.Logger) Publisher {
	return &kafkaPublisher{
		topic:      topic,
		producer:   p,
		keyEncoder: encoding.StringEncoder{},
		valEncoder: NewEventEncoder(),
		logger:     logger.NewLog(log.Prefixed(`events`)),
	}
}

// NewEventEncoder returns the value encoder used for published events.
func NewEventEncoder() encoding.Encoder {
	return encoding.NewJsonEncoder(func() interface{} { return new(Event) })
}

func (p *kafkaPublisher) Publish(ctx context.Context, category string, size int, res window.UpdateResult) error {
	event := Event{
		Id:        uuid.New(),
		Category:  category,
		Size:      size,
		Result:    res,
		CreatedAt: time.Now(),
	}

	key, err := p.keyEncoder.Encode(category)
	if err != nil {
		return errors.WithPrevious(err, `event key encode error`)
	}

	val, err := p.valEncoder.Encode(event)
	if err != nil {
		return errors.WithPrevious(err, `event value encode error`)
	}

	record := &data.Record{
		Key:       key,
		Value:     val,
		Topic:     p.topic,
		Timestamp: event.CreatedAt,
		UUID:      event.Id,
		Headers: data.RecordHeaders{
			{Key: []byte(HeaderEventId), Value: []byte(event.Id.String())},
		},
	}

	if _, _, err := p.producer.Produce(ctx, record); err != nil {
		return errors.WithPrevious(err, fmt.Sprintf(`cannot publish event [%s]`, event.Id))
	}

	p.logger.DebugContext(ctx, fmt.Sprintf(`event [%s] published to %s`, event.Id, p.topic))

	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, int, window.UpdateResult) error { return nil }

func (noopPublisher) Close() error { return nil }
