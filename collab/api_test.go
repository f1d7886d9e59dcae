package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	settings := DefaultHubSettings()
	settings.Session.BcryptCost = 4
	hub := NewHub(context.Background(), NewLogNotificationSink(), settings)
	t.Cleanup(hub.Close)
	server := httptest.NewServer(NewApi(hub).Router())
	t.Cleanup(server.Close)
	return hub, server
}

func doJson(t *testing.T, method string, url string, token string, body any, result any) int {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	assert.Equal(t, err, nil)
	req, err := http.NewRequest(method, url, bytes.NewReader(bodyBytes))
	assert.Equal(t, err, nil)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	r, err := http.DefaultClient.Do(req)
	assert.Equal(t, err, nil)
	defer r.Body.Close()
	if result != nil {
		assert.Equal(t, json.NewDecoder(r.Body).Decode(result), nil)
	}
	return r.StatusCode
}

func TestApiSignupLogin(t *testing.T) {
	_, server := newTestServer(t)

	signupResult := &SignupResult{}
	status := doJson(t, "POST", server.URL+"/api/auth/signup", "", &SignupArgs{
		Username: "ann",
		Email:    "ann@example.com",
		Password: "x",
	}, signupResult)
	assert.Equal(t, status, http.StatusCreated)
	assert.Equal(t, signupResult.User.Username, "ann")

	// duplicate username maps to 409
	status = doJson(t, "POST", server.URL+"/api/auth/signup", "", &SignupArgs{
		Username: "ann",
		Email:    "ann@example.com",
		Password: "x",
	}, nil)
	assert.Equal(t, status, http.StatusConflict)

	loginResult := &LoginResult{}
	status = doJson(t, "POST", server.URL+"/api/auth/login", "", &LoginArgs{
		Username: "ann",
		Password: "x",
	}, loginResult)
	assert.Equal(t, status, http.StatusOK)
	assert.NotEqual(t, loginResult.Token, "")

	// credential mismatch maps to 401
	status = doJson(t, "POST", server.URL+"/api/auth/login", "", &LoginArgs{
		Username: "ann",
		Password: "wrong",
	}, nil)
	assert.Equal(t, status, http.StatusUnauthorized)

	// malformed input maps to 400
	status = doJson(t, "POST", server.URL+"/api/auth/login", "", &LoginArgs{
		Username: "ann",
	}, nil)
	assert.Equal(t, status, http.StatusBadRequest)
}

func TestApiAppLifecycle(t *testing.T) {
	_, server := newTestServer(t)

	doJson(t, "POST", server.URL+"/api/auth/signup", "", &SignupArgs{Username: "ann", Email: "a@b", Password: "x"}, nil)
	doJson(t, "POST", server.URL+"/api/auth/signup", "", &SignupArgs{Username: "bob", Email: "b@b", Password: "x"}, nil)

	loginResult := &LoginResult{}
	doJson(t, "POST", server.URL+"/api/auth/login", "", &LoginArgs{Username: "ann", Password: "x"}, loginResult)

	// the bearer session supplies the owner
	app := &App{}
	status := doJson(t, "POST", server.URL+"/api/apps", loginResult.Token, &CreateAppArgs{Name: "demo"}, app)
	assert.Equal(t, status, http.StatusCreated)
	assert.Equal(t, app.Owner, "ann")

	fetched := &App{}
	status = doJson(t, "GET", server.URL+"/api/apps/"+app.Id, "", nil, fetched)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, fetched.Id, app.Id)

	status = doJson(t, "GET", server.URL+"/api/apps/app-missing", "", nil, nil)
	assert.Equal(t, status, http.StatusNotFound)

	apps := []*App{}
	status = doJson(t, "GET", server.URL+"/api/apps?user=ann", "", nil, &apps)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, len(apps), 1)

	// a collaborator
	collaborator := &Collaborator{}
	status = doJson(t, "POST", server.URL+"/api/collaborators/"+app.Id, loginResult.Token, &AddCollaboratorArgs{
		Username: "bob",
		Role:     RoleWrite,
	}, collaborator)
	assert.Equal(t, status, http.StatusCreated)
	status = doJson(t, "POST", server.URL+"/api/collaborators/"+app.Id, loginResult.Token, &AddCollaboratorArgs{
		Username: "bob",
		Role:     RoleWrite,
	}, nil)
	assert.Equal(t, status, http.StatusConflict)

	// comments
	comment := &Comment{}
	status = doJson(t, "POST", server.URL+"/api/comments/"+app.Id, "", &PostCommentArgs{Author: "eve", Text: "hi"}, comment)
	assert.Equal(t, status, http.StatusCreated)
	assert.Equal(t, comment.Author, "eve")

	comments := []*Comment{}
	doJson(t, "GET", server.URL+"/api/comments/"+app.Id, "", nil, &comments)
	assert.Equal(t, len(comments), 1)

	// a non-owner cannot delete the app, even with the body claiming otherwise
	bobLogin := &LoginResult{}
	doJson(t, "POST", server.URL+"/api/auth/login", "", &LoginArgs{Username: "bob", Password: "x"}, bobLogin)
	status = doJson(t, "DELETE", server.URL+"/api/apps/"+app.Id, bobLogin.Token, map[string]string{"username": "ann"}, nil)
	assert.Equal(t, status, http.StatusForbidden)

	status = doJson(t, "DELETE", server.URL+"/api/apps/"+app.Id, loginResult.Token, nil, nil)
	assert.Equal(t, status, http.StatusOK)

	doJson(t, "GET", server.URL+"/api/comments/"+app.Id, "", nil, &comments)
	assert.Equal(t, len(comments), 0)
}

func TestApiLegacyBodyActor(t *testing.T) {
	// without a bearer token the body supplies the actor, which is the
	// shape older clients send
	_, server := newTestServer(t)
	doJson(t, "POST", server.URL+"/api/auth/signup", "", &SignupArgs{Username: "ann", Email: "a@b", Password: "x"}, nil)

	app := &App{}
	status := doJson(t, "POST", server.URL+"/api/apps", "", &CreateAppArgs{Name: "demo", Owner: "ann"}, app)
	assert.Equal(t, status, http.StatusCreated)

	status = doJson(t, "DELETE", server.URL+"/api/apps/"+app.Id, "", map[string]string{"username": "ann"}, nil)
	assert.Equal(t, status, http.StatusOK)
}
