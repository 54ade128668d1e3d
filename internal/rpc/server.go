package rpc

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/gate"
	"github.com/SmartCGMS/core-sub001/internal/logging"
	"github.com/SmartCGMS/core-sub001/internal/metrics"
	"github.com/SmartCGMS/core-sub001/internal/model"
)

// #region server
// Server steps one model per request. Requests are serialized because a
// model keeps state between steps.
type Server struct {
	mu        sync.Mutex
	model     *model.Model
	versionID string
	sessionID string
	gate      *gate.Gate
	audit     *sql.DB
	logger    *zap.Logger
}

// ServerOption configures NewServer.
type ServerOption func(*Server)

// WithAudit writes every step to the step_log table of db.
func WithAudit(db *sql.DB) ServerOption {
	return func(s *Server) { s.audit = db }
}

// WithSession names the audit session. NewServer picks a random one.
func WithSession(id string) ServerOption {
	return func(s *Server) {
		if id != "" {
			s.sessionID = id
		}
	}
}

// WithServerLogger sets the request logger.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer serves m, stored as versionID, behind g.
func NewServer(m *model.Model, versionID string, g *gate.Gate, opts ...ServerOption) *Server {
	s := &Server{
		model:     m,
		versionID: versionID,
		sessionID: uuid.New().String(),
		gate:      g,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the Controller service to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&ServiceDesc, s)
}

// #endregion server

// #region step
// Step expects {"quantities": {"glucose": 7.1, ...}} and returns the gated
// outputs, the raw model outputs and the gate verdict.
func (s *Server) Step(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	quantities, err := parseQuantities(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.model.Step(quantities)
	decision := s.gate.Evaluate(quantities, raw)
	metrics.RecordGate(string(decision.Action), decision.VetoTypes())

	var stepID string
	if s.audit != nil && s.versionID != "" {
		stepID, err = logging.LogStep(s.audit, logging.StepEntry{
			VersionID:  s.versionID,
			SessionID:  s.sessionID,
			Quantities: quantityNames(quantities),
			Outputs:    outputNames(decision.Outputs),
			GateAction: string(decision.Action),
			Reason:     decision.Reason,
		})
		if err != nil {
			s.logger.Warn("step audit failed", zap.Error(err))
		}
	}

	s.logger.Debug("step",
		zap.String("action", string(decision.Action)),
		zap.Any("outputs", outputNames(decision.Outputs)))

	resp, err := structpb.NewStruct(map[string]any{
		"outputs": toAny(outputNames(decision.Outputs)),
		"raw":     toAny(outputNames(raw)),
		"action":  string(decision.Action),
		"reason":  decision.Reason,
		"step_id": stepID,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

// #endregion step

// #region transcript-info
// Transcript returns {"lines": [...]} for the served program.
func (s *Server) Transcript(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.mu.Lock()
	lines := s.model.Transcript().Lines()
	s.mu.Unlock()

	list := make([]any, len(lines))
	for i, l := range lines {
		list[i] = l
	}
	resp, err := structpb.NewStruct(map[string]any{"lines": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode transcript: %v", err)
	}
	return resp, nil
}

// Info describes the served model.
func (s *Server) Info(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, err := structpb.NewStruct(map[string]any{
		"kind":    string(s.model.Kind()),
		"version": s.versionID,
		"session": s.sessionID,
		"rules":   s.model.RuleCount(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode info: %v", err)
	}
	return resp, nil
}

// #endregion transcript-info

// #region helpers
func parseQuantities(req *structpb.Struct) (map[env.Quantity]float64, error) {
	out := make(map[env.Quantity]float64)
	field, ok := req.GetFields()["quantities"]
	if !ok {
		return out, nil
	}
	qs := field.GetStructValue()
	if qs == nil {
		return nil, fmt.Errorf("quantities must be an object")
	}
	for name, v := range qs.GetFields() {
		q, err := env.ParseQuantity(name)
		if err != nil {
			return nil, err
		}
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("quantity %s must be a number", name)
		}
		out[q] = num.NumberValue
	}
	return out, nil
}

func quantityNames(in map[env.Quantity]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for q, v := range in {
		out[q.String()] = v
	}
	return out
}

func outputNames(in map[env.Output]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for o, v := range in {
		out[o.String()] = v
	}
	return out
}

func toAny(in map[string]float64) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// #endregion helpers
