package queue

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
)

type Task struct {
	City      string
	Attempt   int
	LastError error
	AddedAt   time.Time
}

type Queue interface {
	Push(task *Task) error
	Pop() (*Task, error)
	Size() int
	Close() error
}

// CityQueue hands out cities in insertion order. Requeued tasks go to the back.
type CityQueue struct {
	tasks  []*Task
	mu     sync.Mutex
	closed bool
}

func NewCityQueue(cities []string) *CityQueue {
	q := &CityQueue{
		tasks: make([]*Task, 0, len(cities)),
	}
	now := time.Now()
	for _, city := range cities {
		q.tasks = append(q.tasks, &Task{City: city, AddedAt: now})
	}
	return q
}

func (q *CityQueue) Push(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if task.AddedAt.IsZero() {
		task.AddedAt = time.Now()
	}

	q.tasks = append(q.tasks, task)
	return nil
}

// Requeue puts a failed task back with its attempt counter bumped.
func (q *CityQueue) Requeue(task *Task, cause error) error {
	task.Attempt++
	task.LastError = cause
	return q.Push(task)
}

func (q *CityQueue) Pop() (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		return nil, ErrQueueEmpty
	}

	task := q.tasks[0]
	q.tasks = q.tasks[1:]

	return task, nil
}

func (q *CityQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *CityQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}
