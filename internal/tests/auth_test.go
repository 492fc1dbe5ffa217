// internal/tests/auth_test.go
package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AuthTestSuite struct {
	suite.Suite
	server *testServer
}

func (suite *AuthTestSuite) SetupTest() {
	suite.server = newTestServer(suite.T())
}

func (suite *AuthTestSuite) TestUserRegistration() {
	registerData := map[string]interface{}{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "TestPass123!",
		"role":     "exporter",
	}

	w := suite.server.do(http.MethodPost, "/api/auth/register", "", registerData)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response authBody
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), response.Token)
	assert.Equal(suite.T(), "testuser", response.User.Username)
	assert.Equal(suite.T(), "exporter", response.User.Role)
	assert.NotEmpty(suite.T(), response.User.ID)
	assert.NotContains(suite.T(), w.Body.String(), "password")
}

func (suite *AuthTestSuite) TestRegistrationRejectsDuplicateUsername() {
	w := suite.server.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "exporter1",
		"password": "whatever",
		"role":     "exporter",
	})

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *AuthTestSuite) TestRegistrationRejectsUnknownRole() {
	w := suite.server.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "farmer",
		"password": "whatever",
		"role":     "farmer",
	})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	decode(suite.T(), w, &response)
	assert.False(suite.T(), response["success"].(bool))
	assert.NotEmpty(suite.T(), response["msg"])
}

func (suite *AuthTestSuite) TestUserLogin() {
	out := suite.server.login(suite.T(), "exporter1", seedPassword)

	assert.NotEmpty(suite.T(), out.Token)
	assert.Equal(suite.T(), "exporter1", out.User.Username)
	assert.Equal(suite.T(), "exporter", out.User.Role)
}

func (suite *AuthTestSuite) TestLoginWithWrongPassword() {
	w := suite.server.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "exporter1",
		"password": "nope",
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	unknown := suite.server.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "ghost",
		"password": "nope",
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(suite.T(), w.Body.String(), unknown.Body.String())
}

func (suite *AuthTestSuite) TestMeAndLogout() {
	out := suite.server.login(suite.T(), "importer1", seedPassword)

	me := suite.server.do(http.MethodGet, "/api/auth/me", out.Token, nil)
	assert.Equal(suite.T(), http.StatusOK, me.Code)
	assert.Contains(suite.T(), me.Body.String(), `"username":"importer1"`)

	logout := suite.server.do(http.MethodPost, "/api/auth/logout", out.Token, nil)
	assert.Equal(suite.T(), http.StatusOK, logout.Code)

	after := suite.server.do(http.MethodGet, "/api/auth/me", out.Token, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, after.Code)
}

func (suite *AuthTestSuite) TestProtectedRouteRequiresToken() {
	w := suite.server.do(http.MethodGet, "/api/inspections/pending", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.server.do(http.MethodGet, "/api/inspections/pending", "not-a-jwt", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}
