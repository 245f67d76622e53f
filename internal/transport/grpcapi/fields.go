package grpcapi

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/association-portal/internal/workflow"
)

func str(in *structpb.Struct, key string) string {
	if v, ok := in.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func num(in *structpb.Struct, key string) (float64, bool) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, false
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, false
	}
	return v.GetNumberValue(), true
}

func requiredID(in *structpb.Struct, key string) (uint64, error) {
	f, ok := num(in, key)
	if !ok || f <= 0 || f != math.Trunc(f) {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	// float64(math.MaxInt64) округляется до 2^63, поэтому граница строгая.
	if f >= math.MaxInt64 {
		return 0, status.Errorf(codes.InvalidArgument, "%s is out of range", key)
	}
	return uint64(f), nil
}

func optionalInt(in *structpb.Struct, key string) int {
	f, ok := num(in, key)
	if !ok {
		return 0
	}
	return int(f)
}

func kindOf(in *structpb.Struct) (workflow.Kind, error) {
	switch k := workflow.Kind(str(in, "kind")); k {
	case workflow.KindClub, workflow.KindEvent:
		return k, nil
	default:
		return "", status.Errorf(codes.InvalidArgument, "kind must be %q or %q", workflow.KindClub, workflow.KindEvent)
	}
}

func dateOf(in *structpb.Struct, key string) (*time.Time, error) {
	raw := str(in, key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be YYYY-MM-DD", key)
	}
	return &t, nil
}

func mustStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func flagsOf(state *workflow.ApprovalState) map[string]any {
	out := make(map[string]any, len(state.Flags))
	for f, v := range state.Flags {
		out[string(f)] = int(v)
	}
	return out
}

func idString(id uint64) string {
	return fmt.Sprint(id)
}
