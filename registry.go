package apnsgate

import (
	"bytes"
	"crypto/tls"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/takimoto3/apnsgate/certificate"
)

// Registry owns every provisioned App, keyed by (name, environment).
// The same name under both environments yields two disjoint apps.
type Registry struct {
	mu   sync.RWMutex
	apps map[registryKey]*App
	log  logrus.FieldLogger
}

type registryKey struct {
	name        string
	environment Environment
}

// NewRegistry returns an empty registry. A nil logger falls back to the
// logrus standard logger.
func NewRegistry(logger logrus.FieldLogger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		apps: make(map[registryKey]*App),
		log:  logger,
	}
}

// Provision creates the App for (name, environment), loading and
// validating its certificate material first; load failures propagate
// and leave the registry untouched. A timeout of zero applies
// DefaultTimeout.
//
// Provisioning is idempotent: the same material and timeout return the
// existing App. Different material replaces the App and closes the old
// session, failing its outstanding handles with ErrShutdown.
func (r *Registry) Provision(name string, environment Environment, material certificate.Certificate, timeout time.Duration) (*App, error) {
	if !environment.Valid() {
		return nil, ErrInvalidEnvironment
	}
	cert, err := material.TLSCertificate()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	key := registryKey{name: name, environment: environment}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.apps[key]; ok {
		if sameCertificate(existing.cert, cert) && existing.Timeout == timeout {
			return existing, nil
		}
		existing.close()
		r.log.WithFields(logrus.Fields{
			"app":         name,
			"environment": string(environment),
		}).Info("replacing provisioned app")
	}

	app := newApp(name, environment, material, cert, timeout, r.log)
	r.apps[key] = app
	return app, nil
}

// Get returns the App for (name, environment) or ErrUnknownApp.
func (r *Registry) Get(name string, environment Environment) (*App, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[registryKey{name: name, environment: environment}]
	if !ok {
		return nil, ErrUnknownApp
	}
	return app, nil
}

// Apps returns a snapshot of every provisioned App, in no particular
// order.
func (r *Registry) Apps() []*App {
	r.mu.RLock()
	defer r.mu.RUnlock()
	apps := make([]*App, 0, len(r.apps))
	for _, app := range r.apps {
		apps = append(apps, app)
	}
	return apps
}

// Close tears down every app's session, failing outstanding handles
// with ErrShutdown. Used at process shutdown.
func (r *Registry) Close() {
	for _, app := range r.Apps() {
		app.close()
	}
}

func sameCertificate(a, b tls.Certificate) bool {
	if len(a.Certificate) != len(b.Certificate) {
		return false
	}
	for i := range a.Certificate {
		if !bytes.Equal(a.Certificate[i], b.Certificate[i]) {
			return false
		}
	}
	return true
}
