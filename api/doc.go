// Package api is the typed client for the monitoring backend's REST resources: auth,
// devices, alerts, device logs and subscription status.
//
// Every call goes through the caller's *http.Client, whose transport is expected to be
// the classifying transport, so session signals are raised before a call returns.
// Any response outside 2xx is returned as an [*Error]; callers match the mapped
// sentinel with errors.Is or inspect the fields with errors.As.
package api
