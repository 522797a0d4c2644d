/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package data

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RecordHeader struct {
	Key   []byte
	Value []byte
}

type RecordHeaders []*RecordHeader

// Read returns the value of the first header matching key.
func (h RecordHeaders) Read(key []byte) []byte {
	for _, header := range h {
		if string(header.Key) == string(key) {
			return header.Value
		}
	}

	return nil
}

// Record is a single outgoing message
type Record struct {
	Key, Value []byte
	Topic      string
	Partition  int32
	Offset     int64
	Timestamp  time.Time
	Headers    RecordHeaders
	UUID       uuid.UUID
}

func (r *Record) String() string {
	return fmt.Sprintf(`%s_%d_%d`, r.Topic, r.Partition, r.Offset)
}
