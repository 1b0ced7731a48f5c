package mkclient

import (
	"errors"

	"github.com/MrEthical07/mkclient/api"
	"github.com/MrEthical07/mkclient/session"
	"github.com/MrEthical07/mkclient/storage"
)

var (
	// ErrBuilderUsed is returned by a second call to Builder.Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrConfigLoad wraps configuration file and environment errors.
	ErrConfigLoad = errors.New("config load failed")
	// ErrStorageInit wraps failures opening the configured storage.
	ErrStorageInit = errors.New("storage init failed")
	// ErrClosed is returned by operations on a closed Client.
	ErrClosed = errors.New("client closed")
	// ErrTenantSuspendedLocal is returned before sending a mutating request while the
	// session's tenant is suspended.
	ErrTenantSuspendedLocal = errors.New("tenant suspended: write operations are disabled")

	// ErrMissingToken is returned by Login when the backend accepted the credentials
	// but returned no token.
	ErrMissingToken = session.ErrMissingToken
	// ErrStorageUnavailable wraps storage backend failures.
	ErrStorageUnavailable = storage.ErrUnavailable
)

// Backend error classes, matched with errors.Is against errors returned by the Client.
var (
	ErrUnauthorized       = api.ErrUnauthorized
	ErrForbidden          = api.ErrForbidden
	ErrNotFound           = api.ErrNotFound
	ErrRateLimited        = api.ErrRateLimited
	ErrUpsellRequired     = api.ErrUpsellRequired
	ErrTenantSuspended    = api.ErrTenantSuspended
	ErrInvalidRequest     = api.ErrInvalidRequest
	ErrServer             = api.ErrServer
	ErrIdentifierRequired = api.ErrIdentifierRequired
	ErrIdentifierInvalid  = api.ErrIdentifierInvalid
	ErrIdentifierTaken    = api.ErrIdentifierTaken
	ErrWeakSecret         = api.ErrWeakSecret
	ErrInvalidAlertStatus = api.ErrInvalidAlertStatus
	ErrInvalidLimit       = api.ErrInvalidLimit
)

// APIError is a non-2xx backend response. Use errors.As to read its fields.
type APIError = api.Error
