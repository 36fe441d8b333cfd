package audit

import (
	"encoding/json"
	"strings"

	"multidevice-identity/backend/internal/audit/domain"
	"multidevice-identity/backend/internal/platform/ids"
	telemetrydomain "multidevice-identity/backend/internal/telemetry/domain"
)

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Identity method overrides: the session lifecycle RPCs are audited by what they do to a session.
const (
	identitySendCode   = "/identity.v1.IdentityService/SendCode"
	identityVerifyCode = "/identity.v1.IdentityService/VerifyCode"
	identityRefresh    = "/identity.v1.IdentityService/Refresh"
	identityLogout     = "/identity.v1.IdentityService/Logout"
	identityAssignRole = "/identity.v1.IdentityService/AssignRole"
)

// ParseFullMethod returns action and resource for a gRPC full method (e.g. /identity.v1.IdentityService/ListDevices).
// Action is a verb: get, list, create, update, delete, or a lowercase method name for others.
// Resource is derived from the method's noun, falling back to the service name.
func ParseFullMethod(fullMethod string) ActionResource {
	switch fullMethod {
	case identitySendCode:
		return ActionResource{Action: "code_requested", Resource: "otp"}
	case identityVerifyCode:
		return ActionResource{Action: "login", Resource: "session"}
	case identityRefresh:
		return ActionResource{Action: "refresh", Resource: "session"}
	case identityLogout:
		return ActionResource{Action: "logout", Resource: "session"}
	case identityAssignRole:
		return ActionResource{Action: "role_changed", Resource: "user"}
	}
	// fullMethod format: /package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	action, noun := methodToAction(method)
	resource := serviceToResource(beforeSlash[dot+1:])
	if noun != "" {
		resource = noun
	}
	return ActionResource{Action: action, Resource: resource}
}

func serviceToResource(serviceName string) string {
	// IdentityService -> identity
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

var verbs = []struct{ prefix, action string }{
	{"Get", "get"},
	{"List", "list"},
	{"Create", "create"},
	{"Update", "update"},
	{"Delete", "delete"},
	{"Disable", "disable"},
	{"Assign", "assign"},
	{"Revoke", "revoke"},
	{"Send", "send"},
	{"Verify", "verify"},
}

// methodToAction splits a method such as DisableDevice into ("disable", "device").
// The noun is singular and lower-case; it is empty when the method is a bare verb or unknown.
func methodToAction(method string) (action, noun string) {
	for _, v := range verbs {
		if strings.HasPrefix(method, v.prefix) && method != v.prefix {
			rest := method[len(v.prefix):]
			if strings.HasSuffix(rest, "s") && v.action == "list" {
				rest = strings.TrimSuffix(rest, "s")
			}
			return v.action, strings.ToLower(rest)
		}
	}
	return strings.ToLower(method), ""
}

// FromEvent converts an identity event into an audit entry. The event type "identity.refreshed"
// becomes resource "identity" and action "refreshed"; metadata and the token id are stored as JSON.
func FromEvent(ev *telemetrydomain.Event) *domain.AuditLog {
	resource, action := "event", ev.Type
	if i := strings.Index(ev.Type, "."); i > 0 {
		resource, action = ev.Type[:i], ev.Type[i+1:]
	}
	meta := map[string]string{}
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	if ev.DeviceID != "" {
		meta["device_id"] = ev.DeviceID
	}
	if ev.TokenID != "" {
		meta["token_id"] = ev.TokenID
	}
	if ev.Source != "" {
		meta["source"] = ev.Source
	}
	var metadata string
	if len(meta) > 0 {
		b, _ := json.Marshal(meta)
		metadata = string(b)
	}
	ip := ev.IP
	if ip == "" {
		ip = UnknownIP
	}
	return &domain.AuditLog{
		ID:        ids.New(),
		UserID:    ev.UserID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: ev.CreatedAt,
	}
}
