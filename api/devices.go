package api

import (
	"context"
	"net/http"
)

// Device is a monitored router.
type Device struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	IPAddress       string    `json:"ip_address"`
	Port            int       `json:"port"`
	FirmwareVersion string    `json:"firmware_version,omitempty"`
	Location        string    `json:"location,omitempty"`
	WANType         string    `json:"wan_type,omitempty"`
	HealthStatus    string    `json:"health_status,omitempty"`
	CreatedAt       Timestamp `json:"created_at"`
}

// DeviceInput registers a router. Credentials are encrypted by the backend.
type DeviceInput struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	Location  string `json:"location,omitempty"`
	WANType   string `json:"wan_type,omitempty"`
}

// Devices is the device resource.
type Devices struct {
	c *Client
}

// List returns the tenant's devices.
func (d *Devices) List(ctx context.Context) ([]Device, error) {
	var out []Device
	if err := d.c.do(ctx, http.MethodGet, "/devices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create registers a device and returns its id. When the plan limit is reached the
// error matches ErrUpsellRequired and carries RequiredPlanHint.
func (d *Devices) Create(ctx context.Context, in DeviceInput) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := d.c.do(ctx, http.MethodPost, "/devices", nil, in, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}
