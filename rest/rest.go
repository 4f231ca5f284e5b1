// Package rest exposes the gateway's operation set as a small JSON
// surface:
//
//	GET  /apps                                    list provisioned apps
//	GET  /apps/{name}/{environment}               describe one app
//	POST /apps/{name}/{environment}               provision an app
//	POST /apps/{name}/{environment}/notifications submit notifications
//	GET  /apps/{name}/{environment}/disconnections drain the error log
//	GET  /apps/{name}/{environment}/feedback      drain the feedback service
//
// Responses wrap their data as {"code": n, "response": ...}; errors
// come back as {"code": n, "message": ..., "type": "error"}.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/takimoto3/apnsgate"
	"github.com/takimoto3/apnsgate/certificate"
)

// Server adapts HTTP requests onto a Gateway.
type Server struct {
	gateway *apnsgate.Gateway
	log     logrus.FieldLogger
}

// NewHandler returns the routed HTTP handler for gw.
func NewHandler(gw *apnsgate.Gateway, logger logrus.FieldLogger) http.Handler {
	s := &Server{gateway: gw, log: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /apps", s.listApps)
	mux.HandleFunc("GET /apps/{name}/{environment}", s.getApp)
	mux.HandleFunc("POST /apps/{name}/{environment}", s.provision)
	mux.HandleFunc("POST /apps/{name}/{environment}/notifications", s.notify)
	mux.HandleFunc("GET /apps/{name}/{environment}/disconnections", s.disconnections)
	mux.HandleFunc("GET /apps/{name}/{environment}/feedback", s.feedback)
	return mux
}

// appJSON is the wire form of a provisioned app.
type appJSON struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Certificate string `json:"certificate"`
	Timeout     int    `json:"timeout"`
}

func describeApp(app *apnsgate.App) appJSON {
	return appJSON{
		Type:        "app",
		Name:        app.Name,
		Environment: string(app.Environment),
		Certificate: app.Certificate().Description(),
		Timeout:     int(app.Timeout / time.Second),
	}
}

// notificationJSON is the wire form of a notification, shared by the
// submission body and the offending-notification field of
// disconnection events. All four keys are required on submission.
type notificationJSON struct {
	Type       string          `json:"type,omitempty"`
	Token      *string         `json:"token"`
	Payload    json.RawMessage `json:"payload"`
	Identifier *string         `json:"identifier"`
	Expiry     *uint32         `json:"expiry"`
}

func (n *notificationJSON) complete() bool {
	return n.Token != nil && n.Payload != nil && n.Identifier != nil && n.Expiry != nil
}

type disconnectionJSON struct {
	Type                  string            `json:"type"`
	Code                  uint8             `json:"code"`
	InternalIdentifier    uint16            `json:"internal_identifier"`
	OffendingNotification *notificationJSON `json:"offending_notification"`
	Timestamp             float64           `json:"timestamp"`
	VerboseMessage        string            `json:"verbose_message"`
}

type feedbackJSON struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
	Token     string  `json:"token"`
}

// epoch renders a time as fractional UNIX seconds with microsecond
// resolution.
func epoch(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func (s *Server) listApps(w http.ResponseWriter, r *http.Request) {
	apps := s.gateway.Apps()
	described := make([]appJSON, 0, len(apps))
	for _, app := range apps {
		described = append(described, describeApp(app))
	}
	s.writeResponse(w, http.StatusOK, described)
}

func (s *Server) getApp(w http.ResponseWriter, r *http.Request) {
	environment, ok := s.environment(w, r)
	if !ok {
		return
	}
	app, err := s.gateway.Get(r.PathValue("name"), environment)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "No app registered under that name and environment")
		return
	}
	s.writeResponse(w, http.StatusOK, describeApp(app))
}

func (s *Server) provision(w http.ResponseWriter, r *http.Request) {
	environment, ok := s.environment(w, r)
	if !ok {
		return
	}

	var body struct {
		Certificate *string `json:"certificate"`
		Timeout     int     `json:"timeout"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Certificate == nil {
		s.writeError(w, http.StatusBadRequest,
			"`certificate` is a required key. It must be either a path to a .pem file or the contents of the pem itself")
		return
	}

	app, err := s.gateway.Provision(r.PathValue("name"), environment,
		certificate.Sniff(*body.Certificate), time.Duration(body.Timeout)*time.Second)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeResponse(w, http.StatusCreated, describeApp(app))
}

func (s *Server) notify(w http.ResponseWriter, r *http.Request) {
	environment, ok := s.environment(w, r)
	if !ok {
		return
	}

	var body []notificationJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.notifyShapeError(w)
		return
	}
	notifications := make([]*apnsgate.Notification, 0, len(body))
	for i := range body {
		if !body[i].complete() {
			s.notifyShapeError(w)
			return
		}
		notifications = append(notifications, &apnsgate.Notification{
			Token:      *body[i].Token,
			Payload:    body[i].Payload,
			Identifier: *body[i].Identifier,
			Expiry:     *body[i].Expiry,
		})
	}

	name := r.PathValue("name")
	handle, err := s.gateway.Notify(name, environment, notifications)
	switch {
	case err == nil:
	case errors.Is(err, apnsgate.ErrUnknownApp):
		s.writeError(w, http.StatusNotFound, "No app registered under that name and environment")
		return
	case errors.Is(err, apnsgate.ErrInvalidToken), errors.Is(err, apnsgate.ErrPayloadTooLarge):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The client is not made to wait for the gateway connection; late
	// failures land in the log and the disconnection surface.
	go func() {
		if err := handle.Wait(); err != nil {
			s.log.WithError(err).WithField("app", name).Warn("deferred notification submission failed")
		}
	}()
	s.writeResponse(w, http.StatusCreated, struct{}{})
}

func (s *Server) disconnections(w http.ResponseWriter, r *http.Request) {
	environment, ok := s.environment(w, r)
	if !ok {
		return
	}
	events, err := s.gateway.Disconnections(r.PathValue("name"), environment)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "No app registered under that name and environment")
		return
	}

	described := make([]disconnectionJSON, 0, len(events))
	for _, event := range events {
		d := disconnectionJSON{
			Type:               "disconnection",
			Code:               uint8(event.Code),
			InternalIdentifier: event.Identifier,
			Timestamp:          epoch(event.Timestamp),
			VerboseMessage:     event.Code.String(),
		}
		if n := event.OffendingNotification; n != nil {
			payload, err := json.Marshal(n.Payload)
			if err != nil {
				payload = json.RawMessage("null")
			}
			identifier, token, expiry := n.Identifier, n.Token, n.Expiry
			d.OffendingNotification = &notificationJSON{
				Type:       "notification",
				Token:      &token,
				Payload:    payload,
				Identifier: &identifier,
				Expiry:     &expiry,
			}
		}
		described = append(described, d)
	}
	s.writeResponse(w, http.StatusOK, described)
}

func (s *Server) feedback(w http.ResponseWriter, r *http.Request) {
	environment, ok := s.environment(w, r)
	if !ok {
		return
	}
	tuples, err := s.gateway.Feedback(r.PathValue("name"), environment)
	switch {
	case err == nil:
	case errors.Is(err, apnsgate.ErrUnknownApp):
		s.writeError(w, http.StatusNotFound, "No app registered under that name and environment")
		return
	case errors.Is(err, apnsgate.ErrFeedbackTimeout):
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	case errors.Is(err, apnsgate.ErrMalformedFeedback):
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	described := make([]feedbackJSON, 0, len(tuples))
	for _, tuple := range tuples {
		described = append(described, feedbackJSON{
			Type:      "feedback",
			Timestamp: epoch(tuple.Timestamp),
			Token:     tuple.Token,
		})
	}
	s.writeResponse(w, http.StatusOK, described)
}

func (s *Server) environment(w http.ResponseWriter, r *http.Request) (apnsgate.Environment, bool) {
	environment, err := apnsgate.ParseEnvironment(r.PathValue("environment"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Environment must be either `production` or `sandbox`")
		return "", false
	}
	return environment, true
}

func (s *Server) notifyShapeError(w http.ResponseWriter) {
	s.writeError(w, http.StatusBadRequest,
		`Notifications must be a list of dictionaries in the proper format: [{"payload": {...}, "token": "...", "identifier": "...", "expiry": 30}]`)
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"code": status, "response": data}); err != nil {
		s.log.WithError(err).Warn("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"code": status, "message": message, "type": "error"}); err != nil {
		s.log.WithError(err).Warn("failed to write error response")
	}
}
