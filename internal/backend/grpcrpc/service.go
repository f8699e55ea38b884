package grpcrpc

import (
	"context"

	"google.golang.org/grpc"

	"staff-dashboard/internal/backend"
)

// ServiceName is the fully qualified gRPC service exposing the session procedures.
const ServiceName = "staff.v1.StaffAuthService"

const (
	methodStaffLogin      = "StaffLogin"
	methodValidateSession = "ValidateSession"
	methodLogoutSession   = "LogoutSession"
)

// StaffLoginRequest is the staff_login argument message.
type StaffLoginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

// SessionRequest is the validate_session and logout_session argument message.
type SessionRequest struct {
	SessionToken string `json:"session_token"`
}

// Ack is the empty logout_session reply.
type Ack struct{}

// StaffAuthServer is the server side of ServiceName. Backends written in Go register it with
// RegisterStaffAuthServer; this repository only uses it to exercise the client.
type StaffAuthServer interface {
	StaffLogin(ctx context.Context, req *StaffLoginRequest) (*backend.LoginResponse, error)
	ValidateSession(ctx context.Context, req *SessionRequest) (*backend.ValidateResponse, error)
	LogoutSession(ctx context.Context, req *SessionRequest) (*Ack, error)
}

// RegisterStaffAuthServer registers srv on s.
func RegisterStaffAuthServer(s grpc.ServiceRegistrar, srv StaffAuthServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StaffAuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodStaffLogin, Handler: staffLoginHandler},
		{MethodName: methodValidateSession, Handler: validateSessionHandler},
		{MethodName: methodLogoutSession, Handler: logoutSessionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "staff/v1/staff_auth.json",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func staffLoginHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StaffLoginRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StaffAuthServer).StaffLogin(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(methodStaffLogin)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StaffAuthServer).StaffLogin(ctx, req.(*StaffLoginRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func validateSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StaffAuthServer).ValidateSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(methodValidateSession)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StaffAuthServer).ValidateSession(ctx, req.(*SessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func logoutSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StaffAuthServer).LogoutSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(methodLogoutSession)}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StaffAuthServer).LogoutSession(ctx, req.(*SessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}
