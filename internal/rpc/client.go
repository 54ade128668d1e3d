package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// StepResult is the decoded response of a Step call.
type StepResult struct {
	Outputs map[string]float64
	Raw     map[string]float64
	Action  string
	Reason  string
	StepID  string
}

// Info describes the model a server is running.
type Info struct {
	Kind      string
	VersionID string
	SessionID string
	Rules     int
}

// #endregion types

// #region client-struct
// Client wraps a connection to a Controller server.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to a Controller server.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn uses an existing connection, which the caller closes.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region step
// Step sends one set of quantities, keyed by quantity name.
func (c *Client) Step(ctx context.Context, quantities map[string]float64) (StepResult, error) {
	req, err := structpb.NewStruct(map[string]any{"quantities": toAny(quantities)})
	if err != nil {
		return StepResult{}, fmt.Errorf("encode step: %w", err)
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodStep, req, resp); err != nil {
		return StepResult{}, fmt.Errorf("step rpc: %w", err)
	}

	fields := resp.GetFields()
	return StepResult{
		Outputs: numberMap(fields["outputs"]),
		Raw:     numberMap(fields["raw"]),
		Action:  fields["action"].GetStringValue(),
		Reason:  fields["reason"].GetStringValue(),
		StepID:  fields["step_id"].GetStringValue(),
	}, nil
}

// #endregion step

// #region transcript-info
// Transcript fetches the served program, one rule per line.
func (c *Client) Transcript(ctx context.Context) ([]string, error) {
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodTranscript, &emptypb.Empty{}, resp); err != nil {
		return nil, fmt.Errorf("transcript rpc: %w", err)
	}
	var lines []string
	for _, v := range resp.GetFields()["lines"].GetListValue().GetValues() {
		lines = append(lines, v.GetStringValue())
	}
	return lines, nil
}

// Info fetches the served model's description.
func (c *Client) Info(ctx context.Context) (Info, error) {
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodInfo, &emptypb.Empty{}, resp); err != nil {
		return Info{}, fmt.Errorf("info rpc: %w", err)
	}
	fields := resp.GetFields()
	return Info{
		Kind:      fields["kind"].GetStringValue(),
		VersionID: fields["version"].GetStringValue(),
		SessionID: fields["session"].GetStringValue(),
		Rules:     int(fields["rules"].GetNumberValue()),
	}, nil
}

// #endregion transcript-info

// #region helpers
func numberMap(v *structpb.Value) map[string]float64 {
	out := make(map[string]float64)
	for k, f := range v.GetStructValue().GetFields() {
		out[k] = f.GetNumberValue()
	}
	return out
}

// #endregion helpers
