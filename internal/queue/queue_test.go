package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCityQueuePreservesOrder(t *testing.T) {
	q := NewCityQueue([]string{"Bandung", "Medan", "Surabaya"})
	assert.Equal(t, 3, q.Size())

	var got []string
	for {
		task, err := q.Pop()
		if errors.Is(err, ErrQueueEmpty) {
			break
		}
		require.NoError(t, err)
		got = append(got, task.City)
	}

	assert.Equal(t, []string{"Bandung", "Medan", "Surabaya"}, got)
}

func TestCityQueueRequeueGoesToBack(t *testing.T) {
	q := NewCityQueue([]string{"Bandung", "Medan"})

	first, err := q.Pop()
	require.NoError(t, err)

	cause := errors.New("navigation failed")
	require.NoError(t, q.Requeue(first, cause))

	next, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, "Medan", next.City)

	retried, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, "Bandung", retried.City)
	assert.Equal(t, 1, retried.Attempt)
	assert.Equal(t, cause, retried.LastError)
}

func TestCityQueueClosed(t *testing.T) {
	q := NewCityQueue([]string{"Bandung"})
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(&Task{City: "Medan"}), ErrQueueClosed)

	task, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, "Bandung", task.City)

	_, err = q.Pop()
	assert.ErrorIs(t, err, ErrQueueClosed)
}
