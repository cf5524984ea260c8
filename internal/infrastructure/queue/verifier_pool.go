package queue

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

const channelBuffer = 64

// ErrPoolClosed is returned for work submitted after the pool stopped.
var ErrPoolClosed = errors.New("verifier pool stopped")

// VerifyFunc checks a password against an encoded hash.
type VerifyFunc func(encodedHash, password string) (bool, error)

type verifyJob struct {
	ctx      context.Context
	hash     string
	password string
	result   chan verifyResult
}

type verifyResult struct {
	ok  bool
	err error
}

// VerifierPool runs password hash verification on a fixed set of workers.
// argon2id allocates its full memory cost per call, so the number of
// concurrent verifications is capped at the worker count.
type VerifierPool struct {
	jobs   chan verifyJob
	verify VerifyFunc
	done   chan struct{}
	stop   sync.Once
	log    zerolog.Logger
}

// NewVerifierPool creates a pool with numWorkers workers.
// If numWorkers <= 0, runtime.NumCPU() is used.
func NewVerifierPool(numWorkers int, verify VerifyFunc, log zerolog.Logger) *VerifierPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	p := &VerifierPool{
		jobs:   make(chan verifyJob, channelBuffer),
		verify: verify,
		done:   make(chan struct{}),
		log:    log,
	}
	p.log.Debug().Int("workers", numWorkers).Msg("password verifier pool configured")
	for i := 0; i < numWorkers; i++ {
		go p.runWorker(i)
	}
	return p
}

// Stop terminates all workers. Callers still waiting get ErrPoolClosed.
func (p *VerifierPool) Stop() {
	p.stop.Do(func() { close(p.done) })
}

// Verify queues a verification and waits for its result or for ctx to end.
func (p *VerifierPool) Verify(ctx context.Context, encodedHash, password string) (bool, error) {
	job := verifyJob{ctx: ctx, hash: encodedHash, password: password, result: make(chan verifyResult, 1)}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.done:
		return false, ErrPoolClosed
	case p.jobs <- job:
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-p.done:
		return false, ErrPoolClosed
	case res := <-job.result:
		return res.ok, res.err
	}
}

func (p *VerifierPool) runWorker(id int) {
	for {
		select {
		case <-p.done:
			return
		case job := <-p.jobs:
			if err := job.ctx.Err(); err != nil {
				job.result <- verifyResult{err: err}
				continue
			}
			ok, err := p.verify(job.hash, job.password)
			if err != nil {
				p.log.Debug().Err(err).Int("worker_id", id).Msg("password verification failed")
			}
			job.result <- verifyResult{ok: ok, err: err}
		}
	}
}
