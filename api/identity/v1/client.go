package identityv1

import (
	"context"

	"google.golang.org/grpc"
)

// IdentityServiceClient calls IdentityService with the JSON codec.
type IdentityServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewIdentityServiceClient(cc grpc.ClientConnInterface) *IdentityServiceClient {
	return &IdentityServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *IdentityServiceClient) SendCode(ctx context.Context, in *SendCodeRequest, opts ...grpc.CallOption) (*SendCodeResponse, error) {
	return invoke[SendCodeResponse](ctx, c.cc, IdentityService_SendCode_FullMethodName, in, opts)
}

func (c *IdentityServiceClient) VerifyCode(ctx context.Context, in *VerifyCodeRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, IdentityService_VerifyCode_FullMethodName, in, opts)
}

func (c *IdentityServiceClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, IdentityService_Refresh_FullMethodName, in, opts)
}

func (c *IdentityServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, IdentityService_Logout_FullMethodName, in, opts)
}

func (c *IdentityServiceClient) UserInfo(ctx context.Context, in *UserInfoRequest, opts ...grpc.CallOption) (*UserInfoResponse, error) {
	return invoke[UserInfoResponse](ctx, c.cc, IdentityService_UserInfo_FullMethodName, in, opts)
}

func (c *IdentityServiceClient) ListDevices(ctx context.Context, in *ListDevicesRequest, opts ...grpc.CallOption) (*ListDevicesResponse, error) {
	return invoke[ListDevicesResponse](ctx, c.cc, IdentityService_ListDevices_FullMethodName, in, opts)
}

func (c *IdentityServiceClient) DisableDevice(ctx context.Context, in *DisableDeviceRequest, opts ...grpc.CallOption) (*DisableDeviceResponse, error) {
	return invoke[DisableDeviceResponse](ctx, c.cc, IdentityService_DisableDevice_FullMethodName, in, opts)
}

func (c *IdentityServiceClient) AssignRole(ctx context.Context, in *AssignRoleRequest, opts ...grpc.CallOption) (*AssignRoleResponse, error) {
	return invoke[AssignRoleResponse](ctx, c.cc, IdentityService_AssignRole_FullMethodName, in, opts)
}

// DevServiceClient calls the dev-only DevService.
type DevServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDevServiceClient(cc grpc.ClientConnInterface) *DevServiceClient {
	return &DevServiceClient{cc: cc}
}

func (c *DevServiceClient) GetOTP(ctx context.Context, in *GetOTPRequest, opts ...grpc.CallOption) (*GetOTPResponse, error) {
	return invoke[GetOTPResponse](ctx, c.cc, DevService_GetOTP_FullMethodName, in, opts)
}
