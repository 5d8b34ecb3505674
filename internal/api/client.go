package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a LocalStorage gRPC server.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Initialize fires the server's one-time load.
func (c *Client) Initialize(ctx context.Context) error {
	return c.cc.Invoke(ctx, methodInitialize, &emptypb.Empty{}, new(emptypb.Empty))
}

// Set stores value, which must be valid JSON, under key.
func (c *Client) Set(ctx context.Context, key string, value json.RawMessage) error {
	v, err := jsonToValue(value)
	if err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"key":   structpb.NewStringValue(key),
		"value": v,
	}}
	return c.cc.Invoke(ctx, methodSet, req, new(emptypb.Empty))
}

// Remove deletes key.
func (c *Client) Remove(ctx context.Context, key string) error {
	return c.cc.Invoke(ctx, methodRemove, wrapperspb.String(key), new(emptypb.Empty))
}

// Clear drops every key.
func (c *Client) Clear(ctx context.Context) error {
	return c.cc.Invoke(ctx, methodClear, &emptypb.Empty{}, new(emptypb.Empty))
}

// Get returns the JSON value stored under key. found is false when the
// server reports NotFound.
func (c *Client) Get(ctx context.Context, key string) (value json.RawMessage, found bool, err error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, methodGet, wrapperspb.String(key), out); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	value, err = valueToJSON(out)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// GetAll returns the server's whole store.
func (c *Client) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetAll, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	all := make(map[string]json.RawMessage, len(out.GetFields()))
	for k, v := range out.GetFields() {
		raw, err := valueToJSON(v)
		if err != nil {
			return nil, err
		}
		all[k] = raw
	}
	return all, nil
}
