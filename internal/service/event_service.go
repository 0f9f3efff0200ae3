package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/observability"
)

const eventBufferSize = 16

// EventListener reacts to submission events inside the process.
type EventListener func(ctx context.Context, event dto.SubmissionEvent)

// EventService fans submission events out to SSE subscribers, in-process
// listeners and, when configured, to other nodes through redis and NATS.
type EventService interface {
	EventPublisher
	Subscribe(userID uint) (<-chan dto.SubmissionEvent, func())
	AddListener(listener EventListener)
	Start(ctx context.Context)
}

type eventService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *eventBroker
	nodeID       string

	listenersMu sync.RWMutex
	listeners   []EventListener
}

type eventEnvelope struct {
	Source string              `json:"source"`
	Event  dto.SubmissionEvent `json:"event"`
}

type eventBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.SubmissionEvent]struct{}
}

// NewEventService constructs the event fan-out. Either transport may be nil.
func NewEventService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) EventService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":submission-events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".submission-events"
	}

	return &eventService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "event_service").Logger(),
		broker: &eventBroker{
			subscribers: make(map[uint]map[chan dto.SubmissionEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *eventService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Publish delivers the event locally, then forwards it to the other nodes.
// Transport failures are logged; the write that produced the event stands.
func (s *eventService) Publish(ctx context.Context, event dto.SubmissionEvent) {
	s.deliver(ctx, event, "local")

	if err := s.forward(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to forward submission event")
	}
}

func (s *eventService) Subscribe(userID uint) (<-chan dto.SubmissionEvent, func()) {
	channel := make(chan dto.SubmissionEvent, eventBufferSize)

	s.broker.subscribe(userID, channel)
	observability.SSEClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(userID, channel)
			observability.SSEClientsActive().Dec()
		})
	}

	return channel, cleanup
}

func (s *eventService) AddListener(listener EventListener) {
	if listener == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, listener)
	s.listenersMu.Unlock()
}

func (s *eventService) deliver(ctx context.Context, event dto.SubmissionEvent, origin string) {
	observability.SubmissionEventsTotal().WithLabelValues(event.Type, origin).Inc()

	s.listenersMu.RLock()
	listeners := append([]EventListener(nil), s.listeners...)
	s.listenersMu.RUnlock()
	for _, listener := range listeners {
		listener(ctx, event)
	}

	s.broker.broadcast(event.StudentID, event)
	if event.TeacherID != 0 && event.TeacherID != event.StudentID {
		s.broker.broadcast(event.TeacherID, event)
	}
}

func (s *eventService) forward(ctx context.Context, event dto.SubmissionEvent) error {
	payload, err := json.Marshal(eventEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *eventService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("submission event redis subscription closed")
			return
		}
		s.handleRemote(ctx, []byte(msg.Payload))
	}
}

func (s *eventService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleRemote(ctx, msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats submission events")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain submission event subscription")
		}
	}()
}

func (s *eventService) handleRemote(ctx context.Context, payload []byte) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid submission event payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.deliver(ctx, envelope.Event, "remote")
}

func (b *eventBroker) subscribe(userID uint, ch chan dto.SubmissionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.SubmissionEvent]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *eventBroker) unsubscribe(userID uint, ch chan dto.SubmissionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

// broadcast never blocks; a slow subscriber misses events and re-fetches.
func (b *eventBroker) broadcast(userID uint, event dto.SubmissionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}
