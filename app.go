package apnsgate

import (
	"crypto/tls"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/takimoto3/apnsgate/certificate"
	"github.com/takimoto3/apnsgate/wire"
)

// DefaultTimeout applies when an app is provisioned without one. It
// bounds connection establishment for pending sends and the whole of a
// feedback drain.
const DefaultTimeout = 15 * time.Second

// App is one provisioned (name, environment) identity: its certificate,
// its memory of recently sent notifications, its disconnection log and
// its lazily-built gateway session. Apps are created by provisioning
// and live until the process exits or a re-provision replaces them.
type App struct {
	Name        string
	Environment Environment
	Timeout     time.Duration

	material certificate.Certificate
	cert     tls.Certificate
	log      logrus.FieldLogger

	// Dialers are fixed at construction; tests substitute in-memory
	// pipes before the session is built.
	gatewayDial  dialFunc
	feedbackDial dialFunc

	mu      sync.Mutex
	ring    *recentRing
	events  *disconnectionLog
	session *Session
}

func newApp(name string, environment Environment, material certificate.Certificate, cert tls.Certificate, timeout time.Duration, logger logrus.FieldLogger) *App {
	app := &App{
		Name:        name,
		Environment: environment,
		Timeout:     timeout,
		material:    material,
		cert:        cert,
		log: logger.WithFields(logrus.Fields{
			"app":         name,
			"environment": string(environment),
		}),
		ring:   newRecentRing(recentNotificationsToKeep),
		events: newDisconnectionLog(disconnectionsToKeep),
	}
	app.gatewayDial = tlsDialer(environment.GatewayAddress(), cert, timeout)
	app.feedbackDial = tlsDialer(environment.FeedbackAddress(), cert, timeout)
	return app
}

// Certificate returns the material the app was provisioned with.
func (a *App) Certificate() certificate.Certificate { return a.material }

// Session returns the app's gateway session, constructing it on first
// use. Construction does not touch the network; the session connects
// on its first send.
func (a *App) Session() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		a.session = newSession(a)
	}
	return a.session
}

// Notify submits notifications to the app's gateway session. See
// Session.Send for the contract.
func (a *App) Notify(notifications []*Notification) (*Handle, error) {
	return a.Session().Send(notifications)
}

// Disconnections returns the logged error-frame events and clears the
// log.
func (a *App) Disconnections() []DisconnectionEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events.drain()
}

// rememberDisconnection builds the event for an error frame, attributes
// the offending notification through the ring, and appends it to the
// log.
func (a *App) rememberDisconnection(resp wire.ErrorResponse) DisconnectionEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	event := DisconnectionEvent{
		Code:                  resp.Status,
		Timestamp:             time.Now().UTC(),
		Identifier:            uint16(resp.Identifier),
		OffendingNotification: a.ring.lookup(uint16(resp.Identifier)),
	}
	a.events.append(event)
	metricDisconnectionEvents.Inc()
	return event
}

// close tears the app's session down, if one was ever built.
func (a *App) close() {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()
	if session != nil {
		session.Close()
	}
}
