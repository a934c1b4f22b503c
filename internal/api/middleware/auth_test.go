package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/finlead/membership-backend/internal/types"
)

func authAs(memberID string, role types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("memberID", memberID)
		c.Set("memberRole", string(role))
		c.Next()
	}
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func perform(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if header != nil {
		req.Header = header
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRole(t *testing.T) {
	// GIVEN: A route restricted to managers
	// WHEN: A manager and a base member call it
	// THEN: Only the manager gets through

	gin.SetMode(gin.TestMode)

	asManager := gin.New()
	asManager.GET("/stats", authAs("mgr-1", types.RoleManager), RequireRole(types.RoleManager), okHandler)
	assert.Equal(t, http.StatusOK, perform(asManager, http.MethodGet, "/stats", nil).Code)

	asMember := gin.New()
	asMember.GET("/stats", authAs("mem-1", types.RoleMember), RequireRole(types.RoleManager), okHandler)
	assert.Equal(t, http.StatusForbidden, perform(asMember, http.MethodGet, "/stats", nil).Code)
}

func TestRequireSelfOrRole(t *testing.T) {
	// GIVEN: A member-scoped route allowing the member themselves or a manager
	// WHEN: The member, a manager, and an unrelated member act on the same id
	// THEN: The unrelated member is the only one rejected

	gin.SetMode(gin.TestMode)
	guard := RequireSelfOrRole(types.RoleManager)

	self := gin.New()
	self.POST("/members/:id/suspension", authAs("mem-1", types.RoleMember), guard, okHandler)
	assert.Equal(t, http.StatusOK, perform(self, http.MethodPost, "/members/mem-1/suspension", nil).Code)

	manager := gin.New()
	manager.POST("/members/:id/suspension", authAs("mgr-1", types.RoleManager), guard, okHandler)
	assert.Equal(t, http.StatusOK, perform(manager, http.MethodPost, "/members/mem-1/suspension", nil).Code)

	other := gin.New()
	other.POST("/members/:id/suspension", authAs("mem-2", types.RoleMember), guard, okHandler)
	assert.Equal(t, http.StatusForbidden, perform(other, http.MethodPost, "/members/mem-1/suspension", nil).Code)
}

func TestCronAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/jobs/auto-resume", CronAuthMiddleware("topsecret"), okHandler)

	good := http.Header{"Authorization": []string{"Bearer topsecret"}}
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/jobs/auto-resume", good).Code)

	bad := http.Header{"Authorization": []string{"Bearer wrong"}}
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodPost, "/jobs/auto-resume", bad).Code)

	disabled := gin.New()
	disabled.POST("/jobs/auto-resume", CronAuthMiddleware(""), okHandler)
	assert.Equal(t, http.StatusForbidden, perform(disabled, http.MethodPost, "/jobs/auto-resume", good).Code)
}
