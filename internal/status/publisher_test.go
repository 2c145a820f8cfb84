package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"propcheck/internal/deficiency/models"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var results kgo.ProduceResults
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestMessage(t *testing.T) {
	got := Message(models.Ref{PropertyID: "prop-1", ID: "di-9"}, models.StateOverdue)
	assert.Equal(t, "prop-1/di-9/state/overdue", got)
}

func TestPublishStateChange(t *testing.T) {
	ctx := context.Background()
	ref := models.Ref{PropertyID: "prop-1", ID: "di-9"}

	t.Run("produces a keyed record", func(t *testing.T) {
		producer := &fakeProducer{}
		p, err := NewPublisher(producer, "deficient-item-status")
		require.NoError(t, err)

		require.NoError(t, p.PublishStateChange(ctx, ref, models.StatePending))
		require.Len(t, producer.records, 1)
		rec := producer.records[0]
		assert.Equal(t, "deficient-item-status", rec.Topic)
		assert.Equal(t, "di-9", string(rec.Key))
		assert.Equal(t, "prop-1/di-9/state/pending", string(rec.Value))
	})

	t.Run("returns broker errors", func(t *testing.T) {
		p, err := NewPublisher(&fakeProducer{err: errors.New("broker down")}, "t")
		require.NoError(t, err)
		assert.Error(t, p.PublishStateChange(ctx, ref, models.StatePending))
	})

	t.Run("constructor guards", func(t *testing.T) {
		_, err := NewPublisher(nil, "t")
		assert.Error(t, err)
		_, err = NewPublisher(&fakeProducer{}, "")
		assert.Error(t, err)
	})
}
