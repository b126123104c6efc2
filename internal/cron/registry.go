package cron

import (
	"context"
	"fmt"
)

// Job is one unit of scheduled work. Name doubles as the metrics label.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order and rejects name clashes.
type Registry struct {
	order []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if err := r.Add(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends job to the run order.
func (r *Registry) Add(job Job) error {
	if job == nil {
		return fmt.Errorf("nil cron job")
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.order = append(r.order, job)
	return nil
}

// Len reports how many jobs are registered.
func (r *Registry) Len() int { return len(r.order) }

// Jobs returns a copy of the run order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.order...)
}
