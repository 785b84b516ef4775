package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job 是交给工作池的一个任务，Key用于在结果中识别它
type Job struct {
	Key string
	Do  func(ctx context.Context) (interface{}, error)
}

type Result struct {
	Key   string
	Value interface{}
	Err   error
}

// Pool 是固定大小的工作池，避免对同一上游并发过高
type Pool struct {
	options
}

func NewPool(opts ...Option) *Pool {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkCount < 1 {
		options.WorkCount = 1
	}
	return &Pool{options: options}
}

type indexed struct {
	pos int
	Result
}

/*
输入上下文和任务列表，输出与任务顺序一致的结果列表

WorkCount个worker从任务通道取任务，每完成一个任务等待Delay再取下一个。结果经完成通道汇总，
所有worker退出后才返回，不使用共享计数器。ctx结束后尚未开始的任务以ctx.Err()作为结果
*/
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	jobCh := make(chan int)
	doneCh := make(chan indexed)

	workers := p.WorkCount
	if workers > len(jobs) {
		workers = len(jobs)
	}
	for i := 0; i < workers; i++ {
		go p.work(ctx, jobs, jobCh, doneCh)
	}

	go func() {
		defer close(jobCh)
		for i := range jobs {
			select {
			case jobCh <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	received := make([]bool, len(jobs))
	for exited := 0; exited < workers; {
		r := <-doneCh
		if r.pos < 0 {
			exited++
			continue
		}
		results[r.pos] = r.Result
		received[r.pos] = true
	}
	// 派发因ctx结束而提前停止时，未执行的任务以ctx.Err()作为结果
	for i := range jobs {
		if !received[i] {
			results[i] = Result{Key: jobs[i].Key, Err: ctx.Err()}
		}
	}
	return results
}

func (p *Pool) work(ctx context.Context, jobs []Job, jobCh <-chan int, doneCh chan<- indexed) {
	defer func() { doneCh <- indexed{pos: -1} }()
	first := true
	for i := range jobCh {
		if !first && p.Delay > 0 {
			select {
			case <-time.After(p.Delay):
			case <-ctx.Done():
			}
		}
		first = false
		r := Result{Key: jobs[i].Key}
		if ctx.Err() != nil {
			r.Err = ctx.Err()
		} else {
			r.Value, r.Err = run(ctx, jobs[i])
		}
		if r.Err != nil {
			p.Logger.Debug("job failed", zap.String("key", r.Key), zap.Error(r.Err))
		}
		doneCh <- indexed{pos: i, Result: r}
	}
}

func run(ctx context.Context, job Job) (v interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{key: job.Key, value: p}
		}
	}()
	return job.Do(ctx)
}
