// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirclient

import (
	"context"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// Config configures Dial.
type Config struct {
	Addrs          []string      `mapstructure:"dir_addrs"`
	MaxRetries     int           `mapstructure:"dir_max_retries"`
	RetryWait      time.Duration `mapstructure:"dir_retry_wait"`
	RequestTimeout time.Duration `mapstructure:"dir_request_timeout"`
}

func (c Config) options() []Option {
	var opts []Option
	if c.MaxRetries > 0 {
		opts = append(opts, WithMaxRetries(c.MaxRetries))
	}
	if c.RetryWait > 0 {
		opts = append(opts, WithRetryWait(c.RetryWait))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, WithRequestTimeout(c.RequestTimeout))
	}
	return opts
}

// Client exposes the directory service operations. Every call fails over
// and follows redirects through its Caller.
type Client struct {
	caller *Caller
	owned  []interface{ Close() error }
}

func NewClient(caller *Caller) *Client {
	return &Client{caller: caller}
}

// Dial connects to the directory servers over gRPC and starts the caller.
func Dial(cfg Config) (*Client, error) {
	transport := NewGRPCTransport()
	caller, err := NewCaller(transport, cfg.Addrs, cfg.options()...)
	if err != nil {
		transport.Close()
		return nil, err
	}
	caller.Start()
	c := NewClient(caller)
	c.owned = append(c.owned, transport)
	return c, nil
}

// Caller returns the underlying caller.
func (c *Client) Caller() *Caller { return c.caller }

// Close stops the caller and releases connections opened by Dial.
func (c *Client) Close() error {
	err := c.caller.Close()
	for _, o := range c.owned {
		if cerr := o.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	v, err := c.caller.Call(ctx, func(ctx context.Context, t Transport, server string) (any, error) {
		resp := new(Resp)
		if err := t.Invoke(ctx, server, method, req, resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v.(*Resp), nil
}

func (c *Client) AddressMappingsGet(ctx context.Context, uuid string) ([]types.AddressMapping, error) {
	resp, err := invoke[AddressMappingSet](ctx, c, MethodAddressMappingsGet, &UUIDRequest{UUID: uuid})
	if err != nil {
		return nil, err
	}
	return resp.Mappings, nil
}

// AddressMappingsSet replaces the mappings of the UUIDs they name and
// returns the new version.
func (c *Client) AddressMappingsSet(ctx context.Context, mappings []types.AddressMapping) (uint64, error) {
	resp, err := invoke[VersionResponse](ctx, c, MethodAddressMappingsSet, &AddressMappingSet{Mappings: mappings})
	if err != nil {
		return 0, err
	}
	return resp.NewVersion, nil
}

func (c *Client) AddressMappingsRemove(ctx context.Context, uuid string) error {
	_, err := invoke[Empty](ctx, c, MethodAddressMappingsRemove, &UUIDRequest{UUID: uuid})
	return err
}

// ServiceRegister registers or updates a service. svc.Version must match the
// registered version; the new version is returned.
func (c *Client) ServiceRegister(ctx context.Context, svc types.ServiceEntry) (uint64, error) {
	resp, err := invoke[VersionResponse](ctx, c, MethodServiceRegister, &ServiceRegisterRequest{Service: svc})
	if err != nil {
		return 0, err
	}
	return resp.NewVersion, nil
}

func (c *Client) ServiceDeregister(ctx context.Context, uuid string) error {
	_, err := invoke[Empty](ctx, c, MethodServiceDeregister, &UUIDRequest{UUID: uuid})
	return err
}

// ServiceOffline marks a service as not updated since the epoch.
func (c *Client) ServiceOffline(ctx context.Context, uuid string) error {
	_, err := invoke[Empty](ctx, c, MethodServiceOffline, &UUIDRequest{UUID: uuid})
	return err
}

func (c *Client) ServiceGetByName(ctx context.Context, name string) (types.ServiceSet, error) {
	resp, err := invoke[ServiceSetResponse](ctx, c, MethodServiceGetByName, &NameRequest{Name: name})
	if err != nil {
		return nil, err
	}
	return resp.Services, nil
}

func (c *Client) ServiceGetByUUID(ctx context.Context, uuid string) (types.ServiceSet, error) {
	resp, err := invoke[ServiceSetResponse](ctx, c, MethodServiceGetByUUID, &UUIDRequest{UUID: uuid})
	if err != nil {
		return nil, err
	}
	return resp.Services, nil
}

// ServiceGetByType lists services of type t. ServiceTypeMixed lists all.
func (c *Client) ServiceGetByType(ctx context.Context, t types.ServiceType) (types.ServiceSet, error) {
	resp, err := invoke[ServiceSetResponse](ctx, c, MethodServiceGetByType, &TypeRequest{Type: t})
	if err != nil {
		return nil, err
	}
	return resp.Services, nil
}

func (c *Client) ConfigurationGet(ctx context.Context, uuid string) (types.Configuration, error) {
	resp, err := invoke[types.Configuration](ctx, c, MethodConfigurationGet, &UUIDRequest{UUID: uuid})
	if err != nil {
		return types.Configuration{}, err
	}
	return *resp, nil
}

func (c *Client) ConfigurationSet(ctx context.Context, cfg types.Configuration) (uint64, error) {
	resp, err := invoke[VersionResponse](ctx, c, MethodConfigurationSet, &ConfigurationSetRequest{Configuration: cfg})
	if err != nil {
		return 0, err
	}
	return resp.NewVersion, nil
}

// GlobalTimeGet returns the directory's clock.
func (c *Client) GlobalTimeGet(ctx context.Context) (time.Time, error) {
	resp, err := invoke[GlobalTimeResponse](ctx, c, MethodGlobalTimeGet, &Empty{})
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(resp.TimeMillis), nil
}
