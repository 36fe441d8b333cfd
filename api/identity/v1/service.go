package identityv1

import (
	"context"

	"google.golang.org/grpc"
)

const (
	IdentityServiceName = "identity.v1.IdentityService"
	DevServiceName      = "identity.v1.DevService"

	IdentityService_SendCode_FullMethodName      = "/identity.v1.IdentityService/SendCode"
	IdentityService_VerifyCode_FullMethodName    = "/identity.v1.IdentityService/VerifyCode"
	IdentityService_Refresh_FullMethodName       = "/identity.v1.IdentityService/Refresh"
	IdentityService_Logout_FullMethodName        = "/identity.v1.IdentityService/Logout"
	IdentityService_UserInfo_FullMethodName      = "/identity.v1.IdentityService/UserInfo"
	IdentityService_ListDevices_FullMethodName   = "/identity.v1.IdentityService/ListDevices"
	IdentityService_DisableDevice_FullMethodName = "/identity.v1.IdentityService/DisableDevice"
	IdentityService_AssignRole_FullMethodName    = "/identity.v1.IdentityService/AssignRole"
	DevService_GetOTP_FullMethodName             = "/identity.v1.DevService/GetOTP"
)

// IdentityServiceServer is the server API for IdentityService.
type IdentityServiceServer interface {
	SendCode(context.Context, *SendCodeRequest) (*SendCodeResponse, error)
	VerifyCode(context.Context, *VerifyCodeRequest) (*TokenResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	UserInfo(context.Context, *UserInfoRequest) (*UserInfoResponse, error)
	ListDevices(context.Context, *ListDevicesRequest) (*ListDevicesResponse, error)
	DisableDevice(context.Context, *DisableDeviceRequest) (*DisableDeviceResponse, error)
	AssignRole(context.Context, *AssignRoleRequest) (*AssignRoleResponse, error)
}

// DevServiceServer is the server API for the dev-only DevService.
type DevServiceServer interface {
	GetOTP(context.Context, *GetOTPRequest) (*GetOTPResponse, error)
}

// unary adapts a typed method to a grpc.MethodDesc, running the server's interceptor chain.
func unary[S any, Req any, Resp any](name, fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// IdentityService_ServiceDesc is the grpc.ServiceDesc for IdentityService.
var IdentityService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: IdentityServiceName,
	HandlerType: (*IdentityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SendCode", IdentityService_SendCode_FullMethodName, IdentityServiceServer.SendCode),
		unary("VerifyCode", IdentityService_VerifyCode_FullMethodName, IdentityServiceServer.VerifyCode),
		unary("Refresh", IdentityService_Refresh_FullMethodName, IdentityServiceServer.Refresh),
		unary("Logout", IdentityService_Logout_FullMethodName, IdentityServiceServer.Logout),
		unary("UserInfo", IdentityService_UserInfo_FullMethodName, IdentityServiceServer.UserInfo),
		unary("ListDevices", IdentityService_ListDevices_FullMethodName, IdentityServiceServer.ListDevices),
		unary("DisableDevice", IdentityService_DisableDevice_FullMethodName, IdentityServiceServer.DisableDevice),
		unary("AssignRole", IdentityService_AssignRole_FullMethodName, IdentityServiceServer.AssignRole),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "identity/v1/identity.json",
}

// DevService_ServiceDesc is the grpc.ServiceDesc for DevService.
var DevService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DevServiceName,
	HandlerType: (*DevServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetOTP", DevService_GetOTP_FullMethodName, DevServiceServer.GetOTP),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "identity/v1/identity.json",
}

func RegisterIdentityServiceServer(s grpc.ServiceRegistrar, srv IdentityServiceServer) {
	s.RegisterService(&IdentityService_ServiceDesc, srv)
}

func RegisterDevServiceServer(s grpc.ServiceRegistrar, srv DevServiceServer) {
	s.RegisterService(&DevService_ServiceDesc, srv)
}
