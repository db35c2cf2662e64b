// Package runtime provides the service lifecycle registry used by
// cmd/relayer, in the shape beacon-chain/rpc/service.go and
// validator/node/node.go expect of shared.ServiceRegistry (StartAll,
// StopAll, Statuses), whose definition did not survive retrieval from the
// teacher tree.
package runtime

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "runtime")

// Service is implemented by every long-lived component the registry manages.
type Service interface {
	Start()
	Stop() error
	Status() error
}

// ServiceRegistry tracks the relayer's services and starts/stops them in
// registration order (reversed on shutdown), exactly like prysm's
// shared.ServiceRegistry is used from validator/node/node.go.
type ServiceRegistry struct {
	lock     sync.RWMutex
	services map[reflect.Type]Service
	order    []reflect.Type
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[reflect.Type]Service),
	}
}

// RegisterService adds a service keyed by its concrete type. Registering the
// same type twice is a programming error.
func (r *ServiceRegistry) RegisterService(service Service) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	kind := reflect.TypeOf(service)
	if _, exists := r.services[kind]; exists {
		return errors.Errorf("service already registered: %v", kind)
	}
	r.services[kind] = service
	r.order = append(r.order, kind)
	return nil
}

// FetchService fills the pointer pointed to by service with the registered
// instance of the same type.
func (r *ServiceRegistry) FetchService(service interface{}) error {
	r.lock.RLock()
	defer r.lock.RUnlock()

	pointer := reflect.ValueOf(service)
	if pointer.Kind() != reflect.Ptr {
		return errors.New("input must be a pointer to a service")
	}
	element := pointer.Elem()
	if running, ok := r.services[element.Type()]; ok {
		element.Set(reflect.ValueOf(running))
		return nil
	}
	return fmt.Errorf("unknown service: %v", element.Type())
}

// StartAll starts every registered service in registration order.
func (r *ServiceRegistry) StartAll() {
	r.lock.RLock()
	defer r.lock.RUnlock()

	log.Infof("Starting %d services", len(r.order))
	for _, kind := range r.order {
		log.Debugf("Starting service %v", kind)
		r.services[kind].Start()
	}
}

// StopAll stops every registered service in reverse registration order.
func (r *ServiceRegistry) StopAll() {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		kind := r.order[i]
		if err := r.services[kind].Stop(); err != nil {
			log.Errorf("Could not stop service %v: %v", kind, err)
		}
	}
}

// Statuses returns the Status() error of each registered service, keyed by
// its type, for the /healthz handler.
func (r *ServiceRegistry) Statuses() map[reflect.Type]error {
	r.lock.RLock()
	defer r.lock.RUnlock()

	statuses := make(map[reflect.Type]error, len(r.order))
	for _, kind := range r.order {
		statuses[kind] = r.services[kind].Status()
	}
	return statuses
}
