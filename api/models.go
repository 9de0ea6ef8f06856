package api

import (
	"time"

	"github.com/emu-ps2/ee2/service"
)

// SessionCreateRequest represents a request to create a new session.
type SessionCreateRequest struct {
	PhysicalMemSize uint32 `json:"physicalMemSize,omitempty"` // default: 32 MiB
	CacheCapacity   int    `json:"cacheCapacity,omitempty"`   // default: 4096
}

// SessionCreateResponse represents the response from creating a session.
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// StepRequest requests N cycles of execution, per spec.md §5's step(N, bus).
type StepRequest struct {
	Cycles uint64 `json:"cycles"`
}

// RegistersResponse represents the full architectural register snapshot.
// U128 values are split into Lo/Hi 64-bit halves since JSON has no native
// 128-bit integer.
type RegistersResponse struct {
	GPR    [32]U128Pair `json:"gpr"`
	Lo     U128Pair     `json:"lo"`
	Hi     U128Pair     `json:"hi"`
	PC     uint32       `json:"pc"`
	Cycles uint64       `json:"cycles"`
	CP0    [32]uint32   `json:"cp0"`
	FPR    [32]uint32   `json:"fpr"`
}

// U128Pair is a JSON-friendly split of a 128-bit register value.
type U128Pair struct {
	Lo uint64 `json:"lo"`
	Hi uint64 `json:"hi"`
}

// CacheResponse reports code-cache occupancy, per spec.md §4.9/§6.
type CacheResponse struct {
	Entries  int `json:"entries"`
	Capacity int `json:"capacity"`
}

// InvalidateRequest requests a forced invalidation of a physical range,
// per spec.md §6 ("force-invalidate a physical range, for testing SMC
// behavior over the wire").
type InvalidateRequest struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// toRegistersResponse converts a service.RegisterSnapshot to its wire
// form.
func toRegistersResponse(snap *service.RegisterSnapshot) RegistersResponse {
	resp := RegistersResponse{
		Lo:     U128Pair{Lo: snap.Lo.Lo, Hi: snap.Lo.Hi},
		Hi:     U128Pair{Lo: snap.Hi.Lo, Hi: snap.Hi.Hi},
		PC:     snap.PC,
		Cycles: snap.Cycles,
	}
	for i, v := range snap.GPR {
		resp.GPR[i] = U128Pair{Lo: v.Lo, Hi: v.Hi}
	}
	resp.CP0 = snap.CP0
	resp.FPR = snap.FPR
	return resp
}
