// Package apnsgate is a multi-tenant gateway for Apple's legacy binary
// Push Notification service. It keeps one persistent TLS session per
// provisioned (app, environment) identity, frames notifications in the
// Enhanced Notification format, correlates the gateway's asynchronous
// error frames back to the notifications that caused them, and drains
// the feedback service on demand.
//
// The entry point is the Gateway, which owns a Registry of Apps:
//
//	gw := apnsgate.New(logger)
//	app, err := gw.Provision("com.example.app", apnsgate.Sandbox,
//		certificate.Path("/etc/apns/com.example.app.pem"), 0)
//	handle, err := gw.Notify("com.example.app", apnsgate.Sandbox, notifications)
//
// Sessions connect lazily on the first Notify, reconnect with
// exponential backoff, and never block the caller: Notify returns a
// Handle that resolves once the frames have been handed to the kernel.
// Rejections surface later through Disconnections, which drains the
// bounded per-app log of error-frame events.
package apnsgate
