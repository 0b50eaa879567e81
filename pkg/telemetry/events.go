package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event emitted by the keeper.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// PrimateID is the primate the event concerns, if any.
	PrimateID string `json:"primate_id,omitempty"`

	// Primate is the primate's name, if any.
	Primate string `json:"primate,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event types.
const (
	EventTypeAdmitted        = "primate.admitted"
	EventTypeMedicated       = "primate.medicated"
	EventTypeReleased        = "primate.released"
	EventTypeTransferred     = "primate.transferred"
	EventTypeDetached        = "primate.detached"
	EventTypePolicyViolation = "policy.violation"
	EventTypeError           = "error"
)

// Event severity levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber handles a delivered event.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher fans events out to subscribers. In async mode a single
// goroutine delivers events in publish order.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}
	if cfg.EnableAsync && cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("event buffer size must be positive, got: %d", cfg.BufferSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ep := &EventPublisher{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// NopPublisher returns a publisher that drops every event.
func NopPublisher() *EventPublisher {
	return &EventPublisher{}
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if !ep.config.EnableAsync {
		ep.deliverEvent(event)
		return nil
	}

	select {
	case <-ep.ctx.Done():
		return fmt.Errorf("event publisher stopped")
	default:
	}

	select {
	case ep.buffer <- event:
		return nil
	default:
		return fmt.Errorf("event buffer full, event dropped")
	}
}

// PublishAdmitted publishes a primate admitted event.
func (ep *EventPublisher) PublishAdmitted(id, name, species, unit string) error {
	return ep.Publish(Event{
		Type:      EventTypeAdmitted,
		Source:    "keeper",
		PrimateID: id,
		Primate:   name,
		Message:   fmt.Sprintf("%s (%s) admitted to isolation unit %s", name, species, unit),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"species": species,
			"unit":    unit,
		},
	})
}

// PublishMedicated publishes a primate medicated event.
func (ep *EventPublisher) PublishMedicated(id, name string) error {
	return ep.Publish(Event{
		Type:      EventTypeMedicated,
		Source:    "keeper",
		PrimateID: id,
		Primate:   name,
		Message:   fmt.Sprintf("%s received medical care", name),
		Level:     EventLevelInfo,
	})
}

// PublishReleased publishes a release from isolation event.
func (ep *EventPublisher) PublishReleased(id, name string) error {
	return ep.Publish(Event{
		Type:      EventTypeReleased,
		Source:    "keeper",
		PrimateID: id,
		Primate:   name,
		Message:   fmt.Sprintf("%s released from isolation", name),
		Level:     EventLevelInfo,
	})
}

// PublishTransferred publishes a transfer to enclosure event.
func (ep *EventPublisher) PublishTransferred(id, name, species string) error {
	return ep.Publish(Event{
		Type:      EventTypeTransferred,
		Source:    "keeper",
		PrimateID: id,
		Primate:   name,
		Message:   fmt.Sprintf("%s moved to the %s enclosure", name, species),
		Level:     EventLevelInfo,
		Data: map[string]interface{}{
			"species": species,
		},
	})
}

// PublishDetached publishes a release from enclosure event.
func (ep *EventPublisher) PublishDetached(id, name, species string) error {
	return ep.Publish(Event{
		Type:      EventTypeDetached,
		Source:    "keeper",
		PrimateID: id,
		Primate:   name,
		Message:   fmt.Sprintf("%s released from the %s enclosure", name, species),
		Level:     EventLevelInfo,
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(name, policyName, severity, message string, blocking bool) error {
	level := EventLevelWarning
	if blocking {
		level = EventLevelError
	}
	return ep.Publish(Event{
		Type:    EventTypePolicyViolation,
		Source:  "policy_engine",
		Primate: name,
		Message: fmt.Sprintf("%s: %s", policyName, message),
		Level:   level,
		Data: map[string]interface{}{
			"policy":   policyName,
			"severity": severity,
			"blocking": blocking,
		},
	})
}

// PublishError publishes a failed operation event.
func (ep *EventPublisher) PublishError(operation, name string, err error) error {
	return ep.Publish(Event{
		Type:    EventTypeError,
		Source:  "keeper",
		Primate: name,
		Message: fmt.Sprintf("%s failed: %v", operation, err),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"operation": operation,
		},
	})
}

// Subscribe adds a new event subscriber. A nil filter accepts every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	if ep == nil {
		return
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops the publisher after delivering buffered events.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// FilterByLevel allows events at minLevel or above.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType allows events of the given types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByPrimate allows events about the named primate.
func FilterByPrimate(name string) EventFilter {
	return func(event Event) bool {
		return event.Primate == name
	}
}
