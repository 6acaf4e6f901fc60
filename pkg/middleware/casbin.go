package middleware

import (
	"fmt"
	"net/http"

	"NoticeBoard/internal/auth"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// rbacPolicies maps each role to the route patterns it may call.
var rbacPolicies = [][]string{
	{string(auth.RoleAdmin), "/admin/*", "(GET)|(POST)|(PUT)|(DELETE)"},
	{string(auth.RoleUser), "/user/notices", "GET"},
}

// NewEnforcer builds the in-memory RBAC enforcer for the route table.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if _, err := e.AddPolicies(rbacPolicies); err != nil {
		return nil, fmt.Errorf("load rbac policies: %w", err)
	}
	return e, nil
}

// RBAC authorises the route pattern and method against the role carried by
// the token. It must run after JWT.
func RBAC(e *casbin.Enforcer, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := auth.ClaimsFrom(c)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "No token provided"})
			}
			allowed, err := e.Enforce(string(claims.Role), c.Path(), c.Request().Method)
			if err != nil {
				log.Error("rbac enforce failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
			}
			if !allowed {
				log.Info("rbac denied",
					zap.String("role", string(claims.Role)),
					zap.String("path", c.Path()),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusForbidden, map[string]string{"message": "Forbidden: insufficient permissions"})
			}
			return next(c)
		}
	}
}
