package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"startupconnect/internal/common"
	"startupconnect/internal/presence"
)

// StreamServer exposes the gateway over gRPC. Callers are authenticated by
// common.StreamAuthInterceptor and common.AuthInterceptor.
type StreamServer struct {
	gateway *Gateway
}

func NewStreamServer(gateway *Gateway) *StreamServer {
	return &StreamServer{gateway: gateway}
}

type grpcTransport struct {
	stream ChatStream_ConnectServer
	cancel context.CancelFunc
}

func (t *grpcTransport) WriteFrame(payload []byte) error {
	frame := new(structpb.Struct)
	if err := protojson.Unmarshal(payload, frame); err != nil {
		return err
	}
	return t.stream.Send(frame)
}

// Ping is a no-op; liveness is left to HTTP/2 keepalives.
func (t *grpcTransport) Ping() error { return nil }

func (t *grpcTransport) Close(string) error {
	t.cancel()
	return nil
}

func (h *StreamServer) Connect(stream ChatStream_ConnectServer) error {
	userID, ok := common.UserIDFromContext(stream.Context())
	if !ok {
		return status.Error(codes.Unauthenticated, "authorization required")
	}

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	s := h.gateway.Connect(ctx, userID, peerOrigin(ctx), &grpcTransport{stream: stream, cancel: cancel})
	defer h.gateway.Disconnect(s)

	recvErr := make(chan error, 1)
	go func() {
		for {
			in, err := stream.Recv()
			if err != nil {
				recvErr <- err
				return
			}
			raw, err := protojson.Marshal(in)
			if err != nil {
				continue
			}
			h.gateway.HandleInbound(ctx, s, raw)
		}
	}()

	select {
	case err := <-recvErr:
		if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
			return nil
		}
		return err
	case <-s.Done():
		return status.Error(codes.Unavailable, "session closed")
	}
}

// SendMessage is the request/response form of a chat_message frame.
func (h *StreamServer) SendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := common.UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authorization required")
	}

	raw, err := protojson.Marshal(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}

	msg, err := h.gateway.chat.SendMessage(ctx, in.sendInput(userID))
	if err != nil {
		return nil, toStatus(err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode message")
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(payload, out); err != nil {
		return nil, status.Error(codes.Internal, "encode message")
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrMalformedInput), errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, "conversation not found")
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, "not a participant of this conversation")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func peerOrigin(ctx context.Context) presence.Origin {
	var origin presence.Origin
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		origin.IPAddress = p.Addr.String()
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ua := md.Get("user-agent"); len(ua) > 0 {
			origin.UserAgent = ua[0]
		}
	}
	return origin
}
