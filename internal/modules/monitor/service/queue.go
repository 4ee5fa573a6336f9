package service

import (
	"log"
	"sync"
)

const queueCapacity = 1024

// TaskQueue — FIFO-очередь замыканий с единственным потребителем.
// Все мутирующие операции леджера проходят через неё: один потребитель
// исключает гонку read-modify-write на средневзвешенной цене.
type TaskQueue struct {
	mu      sync.Mutex
	tasks   chan task
	stop    chan struct{}
	done    chan struct{}
	running bool
}

type task struct {
	name string
	fn   func()
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Start — идемпотентный запуск потребителя.
func (q *TaskQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.tasks = make(chan task, queueCapacity)
	q.stop = make(chan struct{})
	q.done = make(chan struct{})
	q.running = true
	go q.consume(q.tasks, q.stop, q.done)
	log.Printf("[QUEUE] started")
}

// Stop останавливает потребителя, добив уже поставленные задачи.
// Безопасен при повторном вызове и когда Start не вызывался.
func (q *TaskQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	stop, done := q.stop, q.done
	q.mu.Unlock()

	close(stop)
	<-done
	log.Printf("[QUEUE] stopped")
}

// Enqueue — постановка задачи. При остановленной или переполненной
// очереди задача отбрасывается: мониторинг поставит её на следующем цикле.
func (q *TaskQueue) Enqueue(name string, fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return false
	}
	select {
	case q.tasks <- task{name: name, fn: fn}:
		return true
	default:
		log.Printf("[QUEUE] full, dropped %s", name)
		return false
	}
}

func (q *TaskQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

func (q *TaskQueue) consume(tasks chan task, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case t := <-tasks:
			runTask(t)
		case <-stop:
			// добиваем хвост без приёма новых
			for {
				select {
				case t := <-tasks:
					runTask(t)
				default:
					return
				}
			}
		}
	}
}

func runTask(t task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[QUEUE] task %s panic: %v", t.name, r)
		}
	}()
	t.fn()
}
