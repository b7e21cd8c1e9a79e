package services

import "context"

// Publisher announces record changes to other processes. *amqp.Client
// implements it; a nil Publisher disables events.
type Publisher interface {
	PublishFinanceChanged(ctx context.Context, op string, id int64, year int) error
	PublishMinutesUploaded(ctx context.Context, activityID int64) error
}
