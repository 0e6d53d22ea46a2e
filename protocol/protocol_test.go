package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	src := Address{Role: RoleStation, Station: "cd-1"}
	dst := Address{Role: RoleWMS}

	env, err := NewEnvelope(TypeContainerClosed, src, dst, &ContainerClosed{
		Code:        "22O00000001",
		Destination: "S1",
		LineCount:   1,
		Lines:       []ContainerLine{{PalletCode: "P1", SKU: "A1", Qty: decimal.RequireFromString("12.5")}},
	})
	require.NoError(t, err)
	assert.Equal(t, Version, env.Version)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, 24*time.Hour, env.ExpiresAt.Sub(env.Timestamp))

	data, err := env.Encode()
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env.ID, decoded.ID)
	assert.Equal(t, src, decoded.Src)

	var p ContainerClosed
	require.NoError(t, decoded.DecodePayload(&p))
	assert.Equal(t, "22O00000001", p.Code)
	require.Len(t, p.Lines, 1)
	assert.True(t, p.Lines[0].Qty.Equal(decimal.RequireFromString("12.5")))
}

func TestNewReply(t *testing.T) {
	reply, err := NewReply(TypeContainerDispatchAck, Address{Role: RoleStation}, Address{Role: RoleWMS},
		"orig-msg-id", &ContainerDispatchAck{Code: "22O00000001", Status: "DISPATCHED"})
	require.NoError(t, err)
	assert.Equal(t, "orig-msg-id", reply.CorID)
	assert.Equal(t, TypeContainerDispatchAck, reply.Type)
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, 30*time.Minute, DefaultTTLFor(TypeContainerDispatched))
	assert.Equal(t, FallbackTTL, DefaultTTLFor("unknown.type"))
}

func TestIsExpired(t *testing.T) {
	assert.False(t, IsExpired(&Envelope{}), "zero expiry never expires")
	assert.True(t, IsExpired(&Envelope{ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.False(t, IsExpired(&Envelope{ExpiresAt: time.Now().Add(time.Minute)}))
}

type recordingHandler struct {
	NoOpHandler
	dispatched []*ContainerDispatched
}

func (h *recordingHandler) HandleContainerDispatched(_ *Envelope, p *ContainerDispatched) {
	h.dispatched = append(h.dispatched, p)
}

func encode(t *testing.T, msgType string, dst Address, payload any) []byte {
	t.Helper()
	env, err := NewEnvelope(msgType, Address{Role: RoleWMS}, dst, payload)
	require.NoError(t, err)
	data, err := env.Encode()
	require.NoError(t, err)
	return data
}

func TestIngestorDispatch(t *testing.T) {
	h := &recordingHandler{}
	ing := NewIngestor(h, StationFilter("cd-1"))
	ing.DebugLog = t.Logf

	ing.HandleRaw(encode(t, TypeContainerDispatched, Address{Role: RoleStation, Station: "cd-1"},
		&ContainerDispatched{Code: "22O00000001", DispatchedBy: "wms"}))
	ing.HandleRaw(encode(t, TypeContainerDispatched, Address{Role: RoleStation},
		&ContainerDispatched{Code: "22O00000002"}))
	require.Len(t, h.dispatched, 2)
	assert.Equal(t, "22O00000001", h.dispatched[0].Code)
}

func TestIngestorDrops(t *testing.T) {
	h := &recordingHandler{}
	ing := NewIngestor(h, StationFilter("cd-1"))
	ing.DebugLog = t.Logf

	// other station
	ing.HandleRaw(encode(t, TypeContainerDispatched, Address{Role: RoleStation, Station: "cd-2"},
		&ContainerDispatched{Code: "X"}))

	// expired
	env, err := NewEnvelope(TypeContainerDispatched, Address{Role: RoleWMS}, Address{Role: RoleStation},
		&ContainerDispatched{Code: "Y"})
	require.NoError(t, err)
	env.ExpiresAt = time.Now().Add(-time.Second)
	data, err := env.Encode()
	require.NoError(t, err)
	ing.HandleRaw(data)

	// garbage and unknown types
	ing.HandleRaw([]byte("not json"))
	ing.HandleRaw(encode(t, "container.unknown", Address{}, map[string]string{}))

	assert.Empty(t, h.dispatched)
}
