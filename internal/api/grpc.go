package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/heysubinoy/localstore/internal/engine"
)

// FetchIDMetadataKey carries the query correlation ID in gRPC metadata.
const FetchIDMetadataKey = "x-fetch-id"

// GRPCServer implements LocalStorageServer on top of a Storage.
type GRPCServer struct {
	Storage Storage
	logger  *zap.Logger
}

// Compile-time check to ensure GRPCServer implements LocalStorageServer.
var _ LocalStorageServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new gRPC server for the given storage.
func NewGRPCServer(storage Storage, logger *zap.Logger) *GRPCServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCServer{
		Storage: storage,
		logger:  logger.Named("grpc"),
	}
}

// Initialize fires the one-time load of the storage file.
func (s *GRPCServer) Initialize(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.Storage.Initialize(ctx); err != nil {
		return nil, s.toStatus("initialize", err)
	}
	return &emptypb.Empty{}, nil
}

// Set stores a key-value pair. The request carries "key" and "value".
func (s *GRPCServer) Set(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	keyField, ok := req.GetFields()["key"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}
	key, ok := keyField.GetKind().(*structpb.Value_StringValue)
	if !ok || key.StringValue == "" {
		return nil, status.Error(codes.InvalidArgument, "key must be a non-empty string")
	}

	valueField, ok := req.GetFields()["value"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "value is required")
	}
	value, err := valueToJSON(valueField)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid value: %v", err)
	}

	if err := s.Storage.Set(ctx, key.StringValue, value); err != nil {
		return nil, s.toStatus("set", err)
	}
	return &emptypb.Empty{}, nil
}

// Remove deletes a key.
func (s *GRPCServer) Remove(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	if err := s.Storage.Remove(ctx, req.GetValue()); err != nil {
		return nil, s.toStatus("remove", err)
	}
	return &emptypb.Empty{}, nil
}

// Clear drops every key.
func (s *GRPCServer) Clear(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.Storage.Clear(ctx); err != nil {
		return nil, s.toStatus("clear", err)
	}
	return &emptypb.Empty{}, nil
}

// Get retrieves a value by key. Missing keys yield NotFound.
func (s *GRPCServer) Get(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Value, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	raw, found, err := s.Storage.Get(s.withFetchID(ctx), req.GetValue())
	if err != nil {
		return nil, s.toStatus("get", err)
	}
	if !found {
		return nil, status.Errorf(codes.NotFound, "key %q not found", req.GetValue())
	}

	value, err := jsonToValue(raw)
	if err != nil {
		return nil, s.toStatus("get", err)
	}
	return value, nil
}

// GetAll returns the whole store as a Struct.
func (s *GRPCServer) GetAll(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	all, err := s.Storage.GetAll(s.withFetchID(ctx))
	if err != nil {
		return nil, s.toStatus("getAll", err)
	}

	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(all))}
	for k, raw := range all {
		v, err := jsonToValue(raw)
		if err != nil {
			return nil, s.toStatus("getAll", err)
		}
		out.Fields[k] = v
	}
	return out, nil
}

func (s *GRPCServer) toStatus(op string, err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidValue):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrNotReady):
		return status.Error(codes.Unavailable, "storage not loaded yet")
	case errors.Is(err, engine.ErrClosed):
		return status.Error(codes.Unavailable, "storage closed")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "failed to %s", op)
	}
}

// valueToJSON renders v as compact JSON. protojson varies its whitespace
// between runs, so the output is always compacted.
func valueToJSON(v *structpb.Value) (json.RawMessage, error) {
	data, err := protojson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// withFetchID takes the caller's x-fetch-id metadata (or a new ID), sends it
// back as a response header and attaches it to ctx for the engine's logs.
func (s *GRPCServer) withFetchID(ctx context.Context) context.Context {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(FetchIDMetadataKey); len(vals) > 0 {
			id = vals[0]
		}
	}
	if id == "" {
		id = engine.NewFetchID()
	}
	if err := grpc.SetHeader(ctx, metadata.Pairs(FetchIDMetadataKey, id)); err != nil {
		s.logger.Debug("could not set fetch id header", zap.Error(err))
	}
	return engine.ContextWithFetchID(ctx, id)
}

func jsonToValue(raw json.RawMessage) (*structpb.Value, error) {
	v := &structpb.Value{}
	if err := protojson.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}
