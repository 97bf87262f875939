package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/service"
)

const serviceName = "safetywatch.v1.Dashboard"

type ListAlertsResponse struct {
	Alerts []models.Alert `json:"alerts"`
}

type StreamSnapshotsRequest struct{}

// DashboardServer is the server API of safetywatch.v1.Dashboard.
type DashboardServer interface {
	ListAlerts(ctx context.Context, in *service.ListAlertsInput) (*ListAlertsResponse, error)
	CreateAlert(ctx context.Context, in *service.CreateAlertInput) (*models.Alert, error)
	ResolveAlert(ctx context.Context, in *service.IDInput) (*models.Alert, error)
	GetUser(ctx context.Context, in *service.IDInput) (*models.User, error)
	StreamSnapshots(in *StreamSnapshotsRequest, stream grpc.ServerStreamingServer[models.Snapshot]) error
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

func unary[In any, Out any](name string, call func(DashboardServer, context.Context, *In) (Out, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(In)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DashboardServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DashboardServer), ctx, req.(*In))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func streamSnapshotsHandler(srv any, stream grpc.ServerStream) error {
	in := new(StreamSnapshotsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DashboardServer).StreamSnapshots(in, &grpc.GenericServerStream[StreamSnapshotsRequest, models.Snapshot]{ServerStream: stream})
}

var dashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListAlerts", DashboardServer.ListAlerts),
		unary("CreateAlert", DashboardServer.CreateAlert),
		unary("ResolveAlert", DashboardServer.ResolveAlert),
		unary("GetUser", DashboardServer.GetUser),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamSnapshots",
			Handler:       streamSnapshotsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "safetywatch/v1/dashboard",
}

func RegisterDashboardServer(s grpc.ServiceRegistrar, srv DashboardServer) {
	s.RegisterService(&dashboardServiceDesc, srv)
}
