package apnsgate

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takimoto3/apnsgate/wire"
)

func TestGateway_NotifyUnknownApp(t *testing.T) {
	gw := New(testLogger())

	_, err := gw.Notify("nope", Sandbox, []*Notification{{Token: testToken, Identifier: "A"}})
	assert.ErrorIs(t, err, ErrUnknownApp)
}

func TestGateway_FeedbackUnknownApp(t *testing.T) {
	gw := New(testLogger())

	_, err := gw.Feedback("nope", Sandbox)
	assert.ErrorIs(t, err, ErrUnknownApp)

	_, err = gw.Disconnections("nope", Sandbox)
	assert.ErrorIs(t, err, ErrUnknownApp)
}

func TestGateway_NotifyFillsBlankIdentifiers(t *testing.T) {
	gw := New(testLogger())
	app, err := gw.Provision("app1", Sandbox, materialNamed(1), time.Minute)
	require.NoError(t, err)

	blocked := make(chan struct{})
	t.Cleanup(func() { close(blocked) })
	app.gatewayDial = func() (net.Conn, error) {
		<-blocked
		return nil, net.ErrClosed
	}
	t.Cleanup(app.close)

	notifications := []*Notification{
		{Token: testToken, Payload: map[string]any{}},
		{Token: testToken, Payload: map[string]any{}, Identifier: "kept"},
	}
	handle, err := gw.Notify("app1", Sandbox, notifications)
	require.NoError(t, err)
	defer handle.Cancel()

	assert.NotEmpty(t, notifications[0].Identifier, "blank identifier must be filled")
	assert.Equal(t, "kept", notifications[1].Identifier, "caller identifiers must survive")
}

func TestGateway_DisconnectionsDrain(t *testing.T) {
	gw := New(testLogger())
	app, err := gw.Provision("app1", Sandbox, materialNamed(1), 0)
	require.NoError(t, err)

	app.rememberDisconnection(wire.ErrorResponse{Status: wire.StatusInvalidToken, Identifier: 1})
	app.rememberDisconnection(wire.ErrorResponse{Status: wire.StatusShutdown, Identifier: 2})

	events, err := gw.Disconnections("app1", Sandbox)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, wire.StatusInvalidToken, events[0].Code)
	assert.Equal(t, wire.StatusShutdown, events[1].Code)

	// The drain law: a second call with no interleaving errors is empty.
	events, err = gw.Disconnections("app1", Sandbox)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDisconnectionLog_Bounded(t *testing.T) {
	l := newDisconnectionLog(5)
	for i := 0; i < 8; i++ {
		l.append(DisconnectionEvent{Identifier: uint16(i)})
	}

	events := l.drain()
	require.Len(t, events, 5)
	assert.Equal(t, uint16(3), events[0].Identifier, "oldest events must be dropped first")
	assert.Equal(t, uint16(7), events[4].Identifier)
	assert.Zero(t, l.size())
}
