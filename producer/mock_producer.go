package producer

import (
	"context"
	"sync"

	"github.com/tryfix/averager/data"
	"github.com/tryfix/errors"
)

// MockProducer keeps produced records in memory, per topic.
type MockProducer struct {
	mu      sync.Mutex
	records map[string][]*data.Record
	closed  bool
}

func NewMockProducer() *MockProducer {
	return &MockProducer{
		records: make(map[string][]*data.Record),
	}
}

func (mp *MockProducer) Produce(ctx context.Context, message *data.Record) (partition int32, offset int64, err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.closed {
		return 0, 0, errors.New(`producer closed`)
	}

	message.Offset = int64(len(mp.records[message.Topic]))
	mp.records[message.Topic] = append(mp.records[message.Topic], message)

	return message.Partition, message.Offset, nil
}

// Records returns the records produced to topic so far.
func (mp *MockProducer) Records(topic string) []*data.Record {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	out := make([]*data.Record, len(mp.records[topic]))
	copy(out, mp.records[topic])
	return out
}

func (mp *MockProducer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.closed = true
	return nil
}
