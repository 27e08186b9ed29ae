package realtime

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ChatStream frames are google.protobuf.Struct values carrying the same JSON
// objects the WebSocket transport exchanges.

const (
	ChatStreamServiceName     = "startupconnect.chat.v1.ChatStream"
	chatStreamConnectName     = "/startupconnect.chat.v1.ChatStream/Connect"
	chatStreamSendMessageName = "/startupconnect.chat.v1.ChatStream/SendMessage"
)

type ChatStreamServer interface {
	Connect(ChatStream_ConnectServer) error
	SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type ChatStream_ConnectServer interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ServerStream
}

type chatStreamConnectServer struct {
	grpc.ServerStream
}

func (x *chatStreamConnectServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func (x *chatStreamConnectServer) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _ChatStream_Connect_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(ChatStreamServer).Connect(&chatStreamConnectServer{stream})
}

func _ChatStream_SendMessage_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatStreamServer).SendMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: chatStreamSendMessageName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ChatStreamServer).SendMessage(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var ChatStreamServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatStreamServiceName,
	HandlerType: (*ChatStreamServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendMessage", Handler: _ChatStream_SendMessage_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Connect", Handler: _ChatStream_Connect_Handler, ServerStreams: true, ClientStreams: true},
	},
	Metadata: "startupconnect/chat/v1/chat_stream.proto",
}

func RegisterChatStreamServer(s grpc.ServiceRegistrar, srv ChatStreamServer) {
	s.RegisterService(&ChatStreamServiceDesc, srv)
}

type ChatStreamClient interface {
	Connect(ctx context.Context, opts ...grpc.CallOption) (ChatStream_ConnectClient, error)
	SendMessage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type ChatStream_ConnectClient interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type chatStreamClient struct {
	cc grpc.ClientConnInterface
}

func NewChatStreamClient(cc grpc.ClientConnInterface) ChatStreamClient {
	return &chatStreamClient{cc}
}

func (c *chatStreamClient) Connect(ctx context.Context, opts ...grpc.CallOption) (ChatStream_ConnectClient, error) {
	stream, err := c.cc.NewStream(ctx, &ChatStreamServiceDesc.Streams[0], chatStreamConnectName, opts...)
	if err != nil {
		return nil, err
	}
	return &chatStreamConnectClient{stream}, nil
}

func (c *chatStreamClient) SendMessage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, chatStreamSendMessageName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type chatStreamConnectClient struct {
	grpc.ClientStream
}

func (x *chatStreamConnectClient) Send(m *structpb.Struct) error {
	return x.ClientStream.SendMsg(m)
}

func (x *chatStreamConnectClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
