package middleware

import (
	"net/http"
	"os"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/casbin/casbin/v2/util"
	"github.com/labstack/echo/v4"

	"ExamPortal/internal/auth"
)

var (
	enforcer     *casbin.Enforcer
	enforcerOnce sync.Once
	enforcerErr  error
)

// rbacModel is the RBAC model, kept in code so deployment only ships the
// policy CSV.
const rbacModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act, eft

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && r.act == p.act`

// initEnforcer builds the Casbin enforcer singleton from the policy CSV
// (RBAC_POLICY_PATH, default rbac_policy.csv).
func initEnforcer() (*casbin.Enforcer, error) {
	enforcerOnce.Do(func() {
		policyPath := os.Getenv("RBAC_POLICY_PATH")
		if policyPath == "" {
			policyPath = "rbac_policy.csv"
		}

		m, err := model.NewModelFromString(rbacModel)
		if err != nil {
			enforcerErr = err
			return
		}
		enforcer, enforcerErr = casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
		if enforcerErr == nil {
			enforcer.AddFunction("keyMatch", util.KeyMatchFunc)
		}
	})
	return enforcer, enforcerErr
}

// CasbinMiddleware enforces RBAC for each request using the caller's role
// claim against the route path and method.
func CasbinMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get("user").(*auth.JWTClaims)
		if !ok || claims == nil {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Unauthorized: missing user claims"})
		}
		enf, err := initEnforcer()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "RBAC system error"})
		}

		allowed, err := enf.Enforce(claims.Role, c.Request().URL.Path, c.Request().Method)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "RBAC system error"})
		}
		if !allowed {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: insufficient permissions"})
		}
		return next(c)
	}
}
