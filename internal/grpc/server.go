package grpc

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/feed"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/service"
)

type Server struct {
	alerts     *service.AlertService
	users      *service.UserService
	feed       *feed.Feed
	grpcServer *grpc.Server
}

func NewServer(alerts *service.AlertService, users *service.UserService, f *feed.Feed, opts ...grpc.ServerOption) *Server {
	s := &Server{
		alerts:     alerts,
		users:      users,
		feed:       f,
		grpcServer: grpc.NewServer(opts...),
	}
	RegisterDashboardServer(s.grpcServer, s)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// Stop waits for unary calls to finish. Snapshot streams end when the feed
// is closed, which callers do first.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

func (s *Server) ListAlerts(ctx context.Context, in *service.ListAlertsInput) (*ListAlertsResponse, error) {
	alerts, err := s.alerts.List(ctx, *in)
	if err != nil {
		return nil, toStatus(err, "ListAlerts")
	}
	return &ListAlertsResponse{Alerts: alerts}, nil
}

func (s *Server) CreateAlert(ctx context.Context, in *service.CreateAlertInput) (*models.Alert, error) {
	alert, err := s.alerts.Create(ctx, *in)
	if err != nil {
		return nil, toStatus(err, "CreateAlert")
	}
	return alert, nil
}

func (s *Server) ResolveAlert(ctx context.Context, in *service.IDInput) (*models.Alert, error) {
	alert, err := s.alerts.Resolve(ctx, *in)
	if err != nil {
		return nil, toStatus(err, "ResolveAlert")
	}
	return alert, nil
}

func (s *Server) GetUser(ctx context.Context, in *service.IDInput) (*models.User, error) {
	user, err := s.users.Get(ctx, *in)
	if err != nil {
		return nil, toStatus(err, "GetUser")
	}
	return user, nil
}

func (s *Server) StreamSnapshots(_ *StreamSnapshotsRequest, stream grpc.ServerStreamingServer[models.Snapshot]) error {
	slog.Info("client subscribed to snapshot stream")

	err := s.feed.Run(stream.Context(), func(snap *models.Snapshot) error {
		return stream.Send(snap)
	})
	if err != nil {
		slog.Error("failed to send snapshot to stream", "error", err)
		return err
	}

	slog.Info("client disconnected from snapshot stream")
	return nil
}

func toStatus(err error, method string) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case apperr.KindConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	}
	slog.Error("gRPC call failed", "method", method, "error", err)
	return status.Error(codes.Internal, apperr.PublicMessage(err))
}
