package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName: полное имя gRPC-сервиса. Сообщения: google.protobuf.Struct,
// поэтому сгенерированный код не нужен.
const ServiceName = "association.v1.Workflow"

// Методы сервиса.
const (
	MethodSubmitClub          = "SubmitClub"
	MethodSubmitEvent         = "SubmitEvent"
	MethodApprove             = "Approve"
	MethodSetApproval         = "SetApproval"
	MethodReject              = "Reject"
	MethodDeleteIfRejected    = "DeleteIfRejected"
	MethodListPending         = "ListPending"
	MethodListRejected        = "ListRejected"
	MethodPlanReconciliation  = "PlanReconciliation"
	MethodApplyReconciliation = "ApplyReconciliation"
	MethodSubscribe           = "Subscribe"
	MethodJoinClub            = "JoinClub"
	MethodApproveMember       = "ApproveMember"
	MethodLeaveClub           = "LeaveClub"
	MethodRegisterUser        = "RegisterUser"
	MethodSetRole             = "SetRole"
)

// FullMethod возвращает путь метода для Invoke.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type workflowServer interface {
	SubmitClub(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitEvent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Approve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetApproval(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteIfRejected(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPending(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRejected(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlanReconciliation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyReconciliation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinClub(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApproveMember(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LeaveClub(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetRole(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryFunc func(workflowServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(workflowServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(workflowServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*workflowServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodSubmitClub, workflowServer.SubmitClub),
		unary(MethodSubmitEvent, workflowServer.SubmitEvent),
		unary(MethodApprove, workflowServer.Approve),
		unary(MethodSetApproval, workflowServer.SetApproval),
		unary(MethodReject, workflowServer.Reject),
		unary(MethodDeleteIfRejected, workflowServer.DeleteIfRejected),
		unary(MethodListPending, workflowServer.ListPending),
		unary(MethodListRejected, workflowServer.ListRejected),
		unary(MethodPlanReconciliation, workflowServer.PlanReconciliation),
		unary(MethodApplyReconciliation, workflowServer.ApplyReconciliation),
		unary(MethodSubscribe, workflowServer.Subscribe),
		unary(MethodJoinClub, workflowServer.JoinClub),
		unary(MethodApproveMember, workflowServer.ApproveMember),
		unary(MethodLeaveClub, workflowServer.LeaveClub),
		unary(MethodRegisterUser, workflowServer.RegisterUser),
		unary(MethodSetRole, workflowServer.SetRole),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "association/v1/workflow.proto",
}

// Register регистрирует сервис на gRPC-сервере.
func Register(s grpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}
