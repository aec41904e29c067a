// Package runtime manages the lifecycle of the long running services of a
// voteperf node.
package runtime

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "registry")

// Service is a component with a managed lifecycle.
type Service interface {
	// Start spawns the goroutines of the service and returns.
	Start()
	// Stop terminates the service, blocking until its goroutines are done.
	Stop() error
	// Status returns an error if the service is not healthy.
	Status() error
}

// ServiceRegistry keeps one instance per service type, started in
// registration order and stopped in reverse.
type ServiceRegistry struct {
	mu           sync.RWMutex
	services     map[reflect.Type]Service
	serviceTypes []reflect.Type
}

// NewServiceRegistry returns an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[reflect.Type]Service),
	}
}

// RegisterService adds service. Only one service per concrete type is allowed.
func (s *ServiceRegistry) RegisterService(service Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind := reflect.TypeOf(service)
	if _, exists := s.services[kind]; exists {
		return errors.Errorf("service already exists: %v", kind)
	}
	s.services[kind] = service
	s.serviceTypes = append(s.serviceTypes, kind)
	return nil
}

// StartAll starts every service in registration order.
func (s *ServiceRegistry) StartAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log.Debugf("Starting %d services: %v", len(s.serviceTypes), s.serviceTypes)
	for _, kind := range s.serviceTypes {
		log.Debugf("Starting service type %v", kind)
		s.services[kind].Start()
	}
}

// StopAll stops every service in reverse registration order. Failures are
// logged and the first one is returned.
func (s *ServiceRegistry) StopAll() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var first error
	for i := len(s.serviceTypes) - 1; i >= 0; i-- {
		kind := s.serviceTypes[i]
		if err := s.services[kind].Stop(); err != nil {
			log.WithError(err).Errorf("Could not stop the following service: %v", kind)
			if first == nil {
				first = errors.Wrapf(err, "could not stop %v", kind)
			}
		}
	}
	return first
}

// Statuses returns the health of every registered service.
func (s *ServiceRegistry) Statuses() map[reflect.Type]error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := make(map[reflect.Type]error, len(s.serviceTypes))
	for _, kind := range s.serviceTypes {
		m[kind] = s.services[kind].Status()
	}
	return m
}

// FetchService sets the value pointed to by service to the registered
// service of the same type.
func (s *ServiceRegistry) FetchService(service interface{}) error {
	if reflect.TypeOf(service).Kind() != reflect.Ptr {
		return errors.Errorf("input must be of pointer type, received value type instead: %T", service)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	element := reflect.ValueOf(service).Elem()
	if running, ok := s.services[element.Type()]; ok {
		element.Set(reflect.ValueOf(running))
		return nil
	}
	return errors.Errorf("unknown service: %T", service)
}
