package authapi

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"projectmanager/cmd/internal/auth/session"
	authv1 "projectmanager/shared/contracts/auth/v1"

	"github.com/go-playground/validator/v10"
)

func toSessionResponse(issued session.Issued) authv1.SessionResponse {
	refreshExp := issued.RefreshExp.UTC()
	return authv1.SessionResponse{
		AccessToken:      issued.AccessToken,
		AccessExpiryUtc:  issued.AccessExp.UTC(),
		Email:            issued.Email,
		UserID:           issued.UserID,
		RefreshToken:     issued.RefreshToken,
		RefreshExpiryUtc: &refreshExp,
	}
}

// validationFailure maps validator errors onto a wire code and a message that
// names the field without echoing its value.
func validationFailure(err error) (code, msg string) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return authv1.CodeInvalidRequest, "invalid request"
	}
	fe := ve[0]
	switch fe.Field() {
	case "Password":
		return authv1.CodeWeakPassword, "password is required"
	case "Email":
		if fe.Tag() == "required" {
			return authv1.CodeInvalidRequest, "email is required"
		}
		return authv1.CodeInvalidRequest, "email is not a valid address"
	default:
		return authv1.CodeInvalidRequest, strings.ToLower(fe.Field()) + " is invalid"
	}
}

func deviceContext(r *http.Request, trustProxy bool) session.DeviceContext {
	return session.DeviceContext{
		IP:     clientIP(r, trustProxy),
		Device: strings.TrimSpace(r.UserAgent()),
	}
}

func ipAttr(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
