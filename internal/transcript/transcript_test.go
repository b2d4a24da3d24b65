package transcript

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msgAt(seq int64, offset time.Duration) types.Message {
	return types.Message{
		Id:        uuid.New(),
		Seq:       seq,
		Content:   "m",
		Timestamp: base.Add(offset),
	}
}

func ids(msgs []types.Message) []uuid.UUID {
	return lo.Map(msgs, func(m types.Message, _ int) uuid.UUID { return m.Id })
}

func TestTranscript_MergeDeduplicates(t *testing.T) {
	tr := New()
	m := msgAt(1, 0)

	assert.Equal(t, 1, tr.Merge(m))
	assert.Equal(t, 0, tr.Merge(m), "expected duplicate delivery to be ignored")
	assert.Equal(t, 0, tr.Merge(m, m))
	assert.Equal(t, 1, tr.Len())
	assert.True(t, tr.Contains(m.Id))
	assert.False(t, tr.Contains(uuid.New()))
}

func TestTranscript_DescendingPageBecomesAscending(t *testing.T) {
	t1 := msgAt(1, 0)
	t2 := msgAt(2, time.Second)
	t3 := msgAt(3, 2*time.Second)

	tr := New()
	tr.Merge(t3, t2, t1)

	assert.Equal(t, []uuid.UUID{t1.Id, t2.Id, t3.Id}, ids(tr.Messages()))
}

func TestTranscript_Ordering(t *testing.T) {
	early := msgAt(1, 0)
	sameTimeLowSeq := msgAt(5, time.Second)
	sameTimeHighSeq := msgAt(6, time.Second)
	late := msgAt(2, time.Minute)

	tcases := []struct {
		name  string
		input [][]types.Message
	}{
		{
			name:  "single batch shuffled",
			input: [][]types.Message{{late, sameTimeHighSeq, early, sameTimeLowSeq}},
		},
		{
			name:  "push before history",
			input: [][]types.Message{{late}, {sameTimeHighSeq, sameTimeLowSeq, early}},
		},
		{
			name:  "overlapping batches",
			input: [][]types.Message{{early, sameTimeHighSeq}, {sameTimeHighSeq, late, sameTimeLowSeq}, {early}},
		},
	}

	expected := []uuid.UUID{early.Id, sameTimeLowSeq.Id, sameTimeHighSeq.Id, late.Id}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			tr := New()
			for _, batch := range tc.input {
				tr.Merge(batch...)
			}
			assert.Equal(t, expected, ids(tr.Messages()))
		})
	}
}

func TestTranscript_MessagesReturnsCopy(t *testing.T) {
	tr := New()
	tr.Merge(msgAt(1, 0))

	msgs := tr.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "m", tr.Messages()[0].Content)
}

func TestTranscript_ConcurrentMerge(t *testing.T) {
	tr := New()
	msgs := make([]types.Message, 50)
	for i := range msgs {
		msgs[i] = msgAt(int64(i+1), time.Duration(i)*time.Millisecond)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Merge(msgs...)
		}()
	}
	wg.Wait()

	got := tr.Messages()
	require.Len(t, got, len(msgs))
	assert.Equal(t, ids(msgs), ids(got))
}
