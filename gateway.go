package apnsgate

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/takimoto3/apnsgate/certificate"
)

// Gateway is the operation surface external adapters drive: provision
// identities, submit notifications, drain the disconnection log, fetch
// feedback. It is safe for concurrent use.
type Gateway struct {
	registry *Registry
	log      logrus.FieldLogger
}

// New returns a Gateway with an empty registry. A nil logger falls
// back to the logrus standard logger.
func New(logger logrus.FieldLogger) *Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gateway{
		registry: NewRegistry(logger),
		log:      logger,
	}
}

// Provision registers (name, environment) with the given certificate
// material. See Registry.Provision for idempotence and replacement
// semantics.
func (g *Gateway) Provision(name string, environment Environment, material certificate.Certificate, timeout time.Duration) (*App, error) {
	return g.registry.Provision(name, environment, material, timeout)
}

// Notify submits notifications to the app's session. Notifications
// without an external identifier get a generated UUID so that error
// frames can still be attributed to them.
func (g *Gateway) Notify(name string, environment Environment, notifications []*Notification) (*Handle, error) {
	app, err := g.registry.Get(name, environment)
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		if n.Identifier == "" {
			n.Identifier = uuid.NewString()
		}
	}
	return app.Notify(notifications)
}

// Feedback drains the environment's feedback service for the app.
func (g *Gateway) Feedback(name string, environment Environment) ([]FeedbackTuple, error) {
	app, err := g.registry.Get(name, environment)
	if err != nil {
		return nil, err
	}
	return app.Feedback()
}

// Disconnections returns the app's logged error-frame events and
// clears the log.
func (g *Gateway) Disconnections(name string, environment Environment) ([]DisconnectionEvent, error) {
	app, err := g.registry.Get(name, environment)
	if err != nil {
		return nil, err
	}
	return app.Disconnections(), nil
}

// Get returns the provisioned App for (name, environment).
func (g *Gateway) Get(name string, environment Environment) (*App, error) {
	return g.registry.Get(name, environment)
}

// Apps returns a snapshot of every provisioned App.
func (g *Gateway) Apps() []*App {
	return g.registry.Apps()
}

// Close tears down every session. Used at process shutdown.
func (g *Gateway) Close() {
	g.registry.Close()
}
