package event_test

import (
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/event"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	q := event.New(4)
	q.Push(event.Event{Type: event.RxObjectNew})
	q.Push(event.Event{Type: event.RxObjectCompleted})

	ev, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, event.RxObjectNew, ev.Type)

	ev, ok = q.TryPop()
	require.True(t, ok)
	require.Equal(t, event.RxObjectCompleted, ev.Type)

	_, ok = q.TryPop()
	require.False(t, ok)
}

func TestSendErrorCollapsesDuplicates(t *testing.T) {
	q := event.New(4)
	require.True(t, q.Push(event.Event{Type: event.SendError}))
	require.False(t, q.Push(event.Event{Type: event.SendError}))
	require.Equal(t, 1, q.Len())

	ev, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, event.SendError, ev.Type)

	// after delivery, a new SEND_ERROR is accepted again.
	require.True(t, q.Push(event.Event{Type: event.SendError}))
}

func TestPushDropsOldestWhenFull(t *testing.T) {
	q := event.New(2)
	q.Push(event.Event{Type: event.RxObjectNew})
	q.Push(event.Event{Type: event.RxObjectInfo})
	q.Push(event.Event{Type: event.RxObjectCompleted})

	ev, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, event.RxObjectInfo, ev.Type)
}

func TestPurgeObject(t *testing.T) {
	q := event.New(8)
	target := event.Handle{Index: 1, Gen: 1}
	other := event.Handle{Index: 2, Gen: 1}
	q.Push(event.Event{Type: event.RxObjectUpdated, ObjectRef: target})
	q.Push(event.Event{Type: event.RxObjectUpdated, ObjectRef: other})
	q.Push(event.Event{Type: event.RxObjectCompleted, ObjectRef: target})

	purged := q.PurgeObject(target)
	require.Equal(t, 2, purged)
	require.Equal(t, 1, q.Len())

	ev, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, other, ev.ObjectRef)
}

func TestPurgeWatermarkOnlyRemovesThatType(t *testing.T) {
	q := event.New(8)
	target := event.Handle{Index: 1, Gen: 1}
	q.Push(event.Event{Type: event.TxWatermarkCompleted, ObjectRef: target})
	q.Push(event.Event{Type: event.RxObjectCompleted, ObjectRef: target})

	purged := q.PurgeWatermark(target)
	require.Equal(t, 1, purged)
	require.Equal(t, 1, q.Len())
}

func TestCloseUnblocksPop(t *testing.T) {
	q := event.New(2)
	done := make(chan struct{})
	go func() {
		_, ok := q.Pop()
		require.False(t, ok)
		close(done)
	}()
	q.Close()
	<-done
}

func TestHandleValid(t *testing.T) {
	require.False(t, event.Handle{}.Valid())
	require.True(t, event.Handle{Index: 0, Gen: 1}.Valid())
}
