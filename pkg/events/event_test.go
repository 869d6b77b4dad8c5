package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	got []Event
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestMultiPublisher(t *testing.T) {
	ok := &recordingPublisher{}
	broken := &recordingPublisher{err: errors.New("nats down")}
	multi := MultiPublisher{ok, nil, broken}

	err := multi.Publish(context.Background(), NewEvent("DOCUMENT_PROCESSED", map[string]interface{}{"document_id": 1}))

	assert.ErrorContains(t, err, "nats down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, broken.got, 1)
	assert.Equal(t, "DOCUMENT_PROCESSED", ok.got[0].EventType())
	assert.False(t, ok.got[0].Timestamp().IsZero())
}

func TestMultiPublisher_Empty(t *testing.T) {
	assert.NoError(t, MultiPublisher{}.Publish(context.Background(), NewEvent("X", nil)))
}
