package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BloggingApp/notification-lifecycle/internal/dto"
	"github.com/BloggingApp/notification-lifecycle/internal/model"
	"github.com/BloggingApp/notification-lifecycle/internal/rabbitmq"
	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
)

func (s *notificationService) StartProcessingCreateNotifications(ctx context.Context) {
	s.consume(ctx, rabbitmq.CREATE_NOTIFICATION_QUEUE, s.processCreateNotification)
}

func (s *notificationService) StartProcessingFollows(ctx context.Context) {
	s.consume(ctx, rabbitmq.FOLLOWS_QUEUE, s.processFollow)
}

const (
	RETRY_INITIAL_INTERVAL = 500 * time.Millisecond
	RETRY_MAX_INTERVAL     = 30 * time.Second
)

func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RETRY_INITIAL_INTERVAL
	b.MaxInterval = RETRY_MAX_INTERVAL
	return b
}

func (s *notificationService) consume(ctx context.Context, queue string, process func(ctx context.Context, body []byte) error) {
	msgs, err := s.rabbitmq.Consume(queue)
	if err != nil {
		panic(err)
	}

	s.consumeDeliveries(ctx, queue, msgs, process)
}

// consumeDeliveries acks every message except those that failed on store
// unavailability. Those are requeued after an exponentially growing pause,
// so an outage does not turn into a hot redelivery loop. The pause resets
// once a message goes through.
func (s *notificationService) consumeDeliveries(ctx context.Context, queue string, msgs <-chan amqp.Delivery, process func(ctx context.Context, body []byte) error) {
	retry := newRetryBackOff()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				s.logger.Sugar().Infof("queue(%s) consumer channel closed", queue)
				return
			}

			err := process(ctx, msg.Body)
			if !errors.Is(err, ErrStoreUnavailable) {
				retry.Reset()
				s.settle(queue, msg, err)
				continue
			}

			wait := retry.NextBackOff()
			s.logger.Sugar().Errorf("store unavailable, requeueing msg from queue(%s) in %s", queue, wait.String())
			select {
			case <-ctx.Done():
			case <-s.clock.After(wait):
			}
			s.settle(queue, msg, err)

			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (s *notificationService) settle(queue string, msg amqp.Delivery, err error) {
	if errors.Is(err, ErrStoreUnavailable) {
		if nackErr := msg.Nack(false, true); nackErr != nil {
			s.logger.Sugar().Errorf("failed to nack msg from queue(%s): %s", queue, nackErr.Error())
		}
		return
	}
	if err != nil {
		s.logger.Sugar().Errorf("dropping msg from queue(%s): %s", queue, err.Error())
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		s.logger.Sugar().Errorf("failed to ack msg from queue(%s): %s", queue, ackErr.Error())
	}
}

func (s *notificationService) processCreateNotification(ctx context.Context, body []byte) error {
	var input dto.MQCreateNotification
	if err := json.Unmarshal(body, &input); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	_, err := s.CreateNotification(ctx, input.RecipientID, model.Kind(input.Kind), input.Message, input.Link)
	return err
}

func (s *notificationService) processFollow(ctx context.Context, body []byte) error {
	var follow dto.MQFollow
	if err := json.Unmarshal(body, &follow); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	message := fmt.Sprintf("%s started following you", follow.FollowerUsername)
	link := fmt.Sprintf("/users/%s", follow.FollowerID.String())

	_, err := s.CreateNotification(ctx, follow.UserID, model.KindNewFollower, message, &link)
	return err
}
