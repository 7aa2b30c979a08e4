package service

import (
	"time"

	"opsflow/internal/jobs"

	"github.com/hibiken/asynq"
)

// JobClient interface for scheduling SLA timer jobs
type JobClient interface {
	ScheduleSLAWarning(requestID string, deadline time.Time) error
	ScheduleSLABreachCheck(requestID string, deadline time.Time) error
}

// AsynqJobClient implements JobClient using asynq
type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(client *asynq.Client) *AsynqJobClient {
	return &AsynqJobClient{client: client}
}

func (c *AsynqJobClient) ScheduleSLAWarning(requestID string, deadline time.Time) error {
	return jobs.ScheduleSLAWarning(c.client, requestID, deadline)
}

func (c *AsynqJobClient) ScheduleSLABreachCheck(requestID string, deadline time.Time) error {
	return jobs.ScheduleSLABreachCheck(c.client, requestID, deadline)
}
