package rpc

import (
	"context"
	"io"

	"google.golang.org/grpc"
)

const (
	agentService         = "/insightagent.Agent/"
	remoteControlService = "/insightagent.RemoteControl/"
)

func callOpts() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(codecName)}
}

// AgentClient is the client side of spec.md §6's Agent service:
// send_values, send_can_message, send_can_message_stream,
// send_current_state and heart_beat, each returning a Reply.
type AgentClient struct {
	cc *grpc.ClientConn
}

func NewAgentClient(cc *grpc.ClientConn) *AgentClient {
	return &AgentClient{cc: cc}
}

func (c *AgentClient) SendValues(ctx context.Context, in *Values) (*Reply, error) {
	out := new(Reply)
	if err := c.cc.Invoke(ctx, agentService+"SendValues", in, out, callOpts()...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) SendCanMessage(ctx context.Context, in *CanMessage) (*Reply, error) {
	out := new(Reply)
	if err := c.cc.Invoke(ctx, agentService+"SendCanMessage", in, out, callOpts()...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) SendCurrentState(ctx context.Context, in *State) (*Reply, error) {
	out := new(Reply)
	if err := c.cc.Invoke(ctx, agentService+"SendCurrentState", in, out, callOpts()...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AgentClient) HeartBeat(ctx context.Context, in *Status) (*Reply, error) {
	out := new(Reply)
	if err := c.cc.Invoke(ctx, agentService+"HeartBeat", in, out, callOpts()...); err != nil {
		return nil, err
	}
	return out, nil
}

// Agent_SendCanMessageStreamClient is the client-streaming handle for
// send_can_message_stream: the client sends an ordered batch of
// envelopes, then closes and receives the single Reply.
type Agent_SendCanMessageStreamClient interface {
	Send(*CanMessage) error
	CloseAndRecv() (*Reply, error)
}

var sendCanMessageStreamDesc = grpc.StreamDesc{
	StreamName:    "SendCanMessageStream",
	ClientStreams: true,
}

func (c *AgentClient) SendCanMessageStream(ctx context.Context) (Agent_SendCanMessageStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &sendCanMessageStreamDesc, agentService+"SendCanMessageStream", callOpts()...)
	if err != nil {
		return nil, err
	}
	return &canMessageStreamClient{stream}, nil
}

type canMessageStreamClient struct {
	grpc.ClientStream
}

func (x *canMessageStreamClient) Send(m *CanMessage) error {
	return x.ClientStream.SendMsg(m)
}

func (x *canMessageStreamClient) CloseAndRecv() (*Reply, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	out := new(Reply)
	if err := x.ClientStream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoteControlClient is the client side of spec.md §6's
// RemoteControl service: a server-streamed, client-opened session
// that the client initiates with a ControlStatus and then reads
// Commands from until the stream ends.
type RemoteControlClient struct {
	cc *grpc.ClientConn
}

func NewRemoteControlClient(cc *grpc.ClientConn) *RemoteControlClient {
	return &RemoteControlClient{cc: cc}
}

// RemoteControl_ControlStreamClient streams Commands from the server.
type RemoteControl_ControlStreamClient interface {
	Recv() (*Command, error)
}

var controlStreamDesc = grpc.StreamDesc{
	StreamName:    "ControlStream",
	ServerStreams: true,
}

func (c *RemoteControlClient) ControlStream(ctx context.Context, in *ControlStatus) (RemoteControl_ControlStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &controlStreamDesc, remoteControlService+"ControlStream", callOpts()...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &controlStreamClient{stream}, nil
}

type controlStreamClient struct {
	grpc.ClientStream
}

func (x *controlStreamClient) Recv() (*Command, error) {
	out := new(Command)
	if err := x.ClientStream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ensure io.EOF is the documented stream-end sentinel callers should
// compare against.
var _ = io.EOF
