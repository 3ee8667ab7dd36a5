package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"building_telemetry/internal/logger"
	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"
)

// DeviceFetcher loads metadata of a device the store does not know yet.
type DeviceFetcher interface {
	Fetch(ctx context.Context, sel models.Selector) (*models.Device, error)
}

// DeviceRegistry resolves selectors to devices, provisioning unknown ones from a remote API.
type DeviceRegistry struct {
	devices repository.DeviceRepo
	remote  DeviceFetcher
	log     *logger.Logger
}

// NewDeviceRegistry accepts a nil remote; unknown devices then fail with ErrUnknownDevice.
func NewDeviceRegistry(devices repository.DeviceRepo, remote DeviceFetcher, log *logger.Logger) *DeviceRegistry {
	return &DeviceRegistry{devices: devices, remote: remote, log: log}
}

func (r *DeviceRegistry) Resolve(ctx context.Context, sel models.Selector) (*models.Device, error) {
	d, err := r.devices.Get(ctx, sel.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("get device %s: %w", sel.DeviceID, err)
	}
	if d != nil {
		return d, nil
	}
	if r.remote == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, sel)
	}

	fetched, err := r.remote.Fetch(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("fetch device %s: %w", sel, err)
	}
	if fetched.NetworkID == "" {
		fetched.NetworkID = sel.NetworkID
	}
	if err := r.devices.Create(ctx, *fetched); err != nil {
		// Another packet may have provisioned it first.
		if errors.Is(err, repository.ErrDuplicate) {
			return r.devices.Get(ctx, fetched.ID)
		}
		return nil, err
	}
	r.log.Infow("device_provisioned", "device_id", fetched.ID, "type", fetched.Type, "network_id", fetched.NetworkID)
	return fetched, nil
}

// remoteDevice is the device document returned by the mesh cloud API.
type remoteDevice struct {
	Key  string  `json:"key"`
	Type string  `json:"type"`
	Name string  `json:"name"`
	UID  *uint32 `json:"uid"`
}

// DeviceAPIClient fetches devices from GET <base>/<network>/<device>.
type DeviceAPIClient struct {
	base     string
	username string
	password string
	h        *http.Client
}

func NewDeviceAPIClient(base, username, password string) *DeviceAPIClient {
	return &DeviceAPIClient{
		base:     strings.TrimRight(base, "/"),
		username: username,
		password: password,
		h:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *DeviceAPIClient) Fetch(ctx context.Context, sel models.Selector) (*models.Device, error) {
	u := c.base + "/" + url.PathEscape(sel.NetworkID) + "/" + url.PathEscape(sel.DeviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.h.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("device api %s returned %d: %s", u, resp.StatusCode, string(b))
	}
	var doc remoteDevice
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode device document: %w", err)
	}
	if doc.Key == "" {
		doc.Key = sel.DeviceID
	}
	return &models.Device{
		ID:        doc.Key,
		NetworkID: sel.NetworkID,
		Type:      normalizeDeviceType(doc.Type),
		Name:      doc.Name,
		UID:       doc.UID,
	}, nil
}

// normalizeDeviceType folds versioned type names such as "building-sensor-v2".
func normalizeDeviceType(t string) models.DeviceType {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, known := range []models.DeviceType{models.DeviceBuildingSensor, models.DevicePowerMeter, models.DeviceWristband} {
		if strings.HasPrefix(t, string(known)) {
			return known
		}
	}
	return models.DeviceType(t)
}
