// Package push delivers notification pushes to registered devices after the
// notification has been committed.
package push

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/metrics"
	"github.com/anonto42/whoami-today/backend/internal/models"
)

// ErrUnregistered is returned by a Sender when the provider no longer knows the device.
var ErrUnregistered = errors.New("push: device unregistered")

// Job is one push for one recipient. A cancel job withdraws the device-side
// notification carrying the same tag.
type Job struct {
	RecipientID    uint
	NotificationID uint
	MessageKo      string
	MessageEn      string
	RedirectURL    string
	Cancel         bool
}

// Tag is the collapse key shared by a notification's pushes and its cancel.
func (j Job) Tag() string { return strconv.FormatUint(uint64(j.NotificationID), 10) }

// Message picks the text for a device language.
func (j Job) Message(lang models.Language) string {
	if lang == models.LanguageKo {
		return j.MessageKo
	}
	return j.MessageEn
}

func (j Job) kind() string {
	if j.Cancel {
		return "cancel"
	}
	return "notify"
}

// Dispatcher accepts jobs once their notifications are committed.
type Dispatcher interface {
	Dispatch(jobs ...Job)
}

// BatchDispatcher also offers a blocking enqueue for batch producers such as
// scheduled jobs, which must not lose pushes to a full queue.
type BatchDispatcher interface {
	Dispatcher
	DispatchWait(ctx context.Context, jobs ...Job) error
}

// Sender delivers one job to one device.
type Sender interface {
	Send(ctx context.Context, device models.Device, job Job) error
}

// DeviceStore is the slice of the device repository the service needs.
type DeviceStore interface {
	ActiveDevices(userID uint) ([]models.Device, error)
	DeactivateDevice(registrationID string) error
}

type Options struct {
	Workers   int
	Timeout   time.Duration
	MaxTries  uint
	QueueSize int
	// InitialInterval seeds the exponential backoff between attempts.
	InitialInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxTries == 0 {
		o.MaxTries = 3
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	return o
}

// Service fans jobs out to a pool of workers. Failures are logged and
// swallowed.
type Service struct {
	sender  Sender
	devices DeviceStore
	opts    Options

	queue chan Job
	wg    sync.WaitGroup
	once  sync.Once
}

func NewService(sender Sender, devices DeviceStore, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		sender:  sender,
		devices: devices,
		opts:    opts,
		queue:   make(chan Job, opts.QueueSize),
	}
}

// Start launches the workers. They exit when Stop is called or ctx ends.
func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case job, ok := <-s.queue:
					if !ok {
						return
					}
					s.Deliver(ctx, job)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

// Stop drains the queue and waits for the workers.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.queue) })
	s.wg.Wait()
}

// Dispatch enqueues without blocking the request path. Jobs are dropped when
// the queue is full.
func (s *Service) Dispatch(jobs ...Job) {
	for _, job := range jobs {
		select {
		case s.queue <- job:
		default:
			metrics.PushQueueDropped.Inc()
			zap.L().Warn("push queue full, dropping job",
				zap.Uint("recipient_id", job.RecipientID), zap.Uint("notification_id", job.NotificationID))
		}
	}
}

// DispatchWait enqueues every job, waiting for queue space. When ctx ends
// first the remaining jobs are counted as dropped and ctx's error returned.
func (s *Service) DispatchWait(ctx context.Context, jobs ...Job) error {
	for i, job := range jobs {
		select {
		case s.queue <- job:
		case <-ctx.Done():
			left := len(jobs) - i
			metrics.PushQueueDropped.Add(float64(left))
			zap.L().Warn("push enqueue cancelled, dropping jobs", zap.Int("dropped", left), zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}
	return nil
}

// Deliver sends job to every active device of the recipient.
func (s *Service) Deliver(ctx context.Context, job Job) {
	devices, err := s.devices.ActiveDevices(job.RecipientID)
	if err != nil {
		zap.L().Error("push: load devices", zap.Uint("recipient_id", job.RecipientID), zap.Error(err))
		return
	}
	for _, device := range devices {
		s.deliverToDevice(ctx, device, job)
	}
}

func (s *Service) deliverToDevice(ctx context.Context, device models.Device, job Job) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		sendCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
		err := s.sender.Send(sendCtx, device, job)
		if errors.Is(err, ErrUnregistered) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.opts.MaxTries))

	switch {
	case err == nil:
		metrics.PushSendsTotal.WithLabelValues(job.kind(), "ok").Inc()
	case errors.Is(err, ErrUnregistered):
		metrics.PushSendsTotal.WithLabelValues(job.kind(), "unregistered").Inc()
		if derr := s.devices.DeactivateDevice(device.RegistrationID); derr != nil {
			zap.L().Error("push: deactivate device", zap.Uint("device_id", device.ID), zap.Error(derr))
		}
	default:
		metrics.PushSendsTotal.WithLabelValues(job.kind(), "error").Inc()
		zap.L().Warn("push: delivery failed",
			zap.Uint("recipient_id", job.RecipientID),
			zap.Uint("device_id", device.ID),
			zap.String("tag", job.Tag()),
			zap.Error(err))
	}
}
