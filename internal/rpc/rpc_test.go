package rpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/gate"
	"github.com/SmartCGMS/core-sub001/internal/model"
	"github.com/SmartCGMS/core-sub001/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// if glucose > 8 then basal_rate = 2.5; always bolus = 5
var rulesGenome = []float64{
	0.6, 0.25, 0.15, 0.25, 0, 0,
	0.3, 0.75, 0, 0, 0, 0,
	0.8, 0.2,
}

func newModel(t *testing.T) *model.Model {
	t.Helper()
	cfg := model.DefaultConfig(codon.Layout{Slots: 2, SlotWidth: 6, Constants: 2})
	cfg.ConstantScale = 10
	m, err := model.New(model.KindRules, rulesGenome, cfg)
	require.NoError(t, err)
	return m
}

// serve starts srv on an in-memory listener and returns a client for it.
func serve(t *testing.T, srv *Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	srv.Register(gs)
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		gs.Stop()
	})
	return NewClientWithConn(conn)
}

func TestStepPassesThroughGate(t *testing.T) {
	c := serve(t, NewServer(newModel(t), "", gate.NewGate(gate.DefaultGateConfig())))
	ctx := context.Background()

	res, err := c.Step(ctx, map[string]float64{"glucose": 12})
	require.NoError(t, err)
	assert.Equal(t, "pass", res.Action)
	assert.Equal(t, map[string]float64{"basal_rate": 2.5, "bolus": 5}, res.Outputs)
	assert.Equal(t, res.Outputs, res.Raw)
	assert.Empty(t, res.StepID)
}

func TestStepSuspendsOnLowGlucose(t *testing.T) {
	c := serve(t, NewServer(newModel(t), "", gate.NewGate(gate.DefaultGateConfig())))

	res, err := c.Step(context.Background(), map[string]float64{"glucose": 3})
	require.NoError(t, err)
	assert.Equal(t, "suspend", res.Action)
	assert.NotEmpty(t, res.Reason)
	assert.Equal(t, 0.0, res.Outputs["bolus"])
	assert.Equal(t, 5.0, res.Raw["bolus"])
}

func TestStepRejectsUnknownQuantity(t *testing.T) {
	c := serve(t, NewServer(newModel(t), "", gate.NewGate(gate.DefaultGateConfig())))

	_, err := c.Step(context.Background(), map[string]float64{"ketones": 1})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestTranscriptAndInfo(t *testing.T) {
	c := serve(t, NewServer(newModel(t), "v1", gate.NewGate(gate.DefaultGateConfig()), WithSession("s1")))
	ctx := context.Background()

	lines, err := c.Transcript(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"if glucose > 8.00 then basal_rate = 2.50",
		"always bolus = 5.00",
	}, lines)

	info, err := c.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, Info{Kind: "rules", VersionID: "v1", SessionID: "s1", Rules: 2}, info)
}

func TestServersGetDistinctSessions(t *testing.T) {
	g := gate.NewGate(gate.DefaultGateConfig())
	a := NewServer(newModel(t), "v1", g)
	b := NewServer(newModel(t), "v1", g)
	assert.NotEmpty(t, a.sessionID)
	assert.NotEqual(t, a.sessionID, b.sessionID)
}

func TestStepIsAudited(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := newModel(t)
	cfg := m.Config()
	v, err := s.SaveModel(store.ModelVersion{
		Kind:          string(m.Kind()),
		Layout:        cfg.Layout,
		ConstantScale: cfg.ConstantScale,
		MaxDepth:      cfg.MaxDepth,
		Prune:         cfg.Prune,
		Genome:        rulesGenome,
	}, true)
	require.NoError(t, err)

	c := serve(t, NewServer(m, v.VersionID, gate.NewGate(gate.DefaultGateConfig()), WithAudit(s.DB())))
	res, err := c.Step(context.Background(), map[string]float64{"glucose": 12, "iob": 0.5})
	require.NoError(t, err)
	require.NotEmpty(t, res.StepID)

	steps, err := s.ListSteps(v.VersionID, 0)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, res.StepID, steps[0].ID)
	assert.NotEmpty(t, steps[0].SessionID)
	assert.Equal(t, "pass", steps[0].GateAction)
	assert.JSONEq(t, `{"glucose":12,"iob":0.5}`, steps[0].QuantitiesJSON)
	assert.JSONEq(t, `{"basal_rate":2.5,"bolus":5}`, steps[0].OutputsJSON)
}
