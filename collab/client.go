package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// client for the hub's http api, used by collabctl and by anything else
// that talks to a hub from outside the process

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R])
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

type FreehostApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	token string
}

func NewFreehostApi(apiUrl string) *FreehostApi {
	return NewFreehostApiWithContext(context.Background(), apiUrl)
}

func NewFreehostApiWithContext(ctx context.Context, apiUrl string) *FreehostApi {
	cancelCtx, cancel := context.WithCancel(ctx)
	return &FreehostApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

// this gets attached to api calls that need it
func (self *FreehostApi) SetToken(token string) {
	self.token = token
}

type SignupCallback apiCallback[*SignupResult]

func (self *FreehostApi) Signup(signup *SignupArgs, callback SignupCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/api/auth/signup", self.apiUrl),
		signup,
		self.token,
		&SignupResult{},
		callback,
	)
}

type LoginCallback apiCallback[*LoginResult]

func (self *FreehostApi) Login(login *LoginArgs, callback LoginCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/api/auth/login", self.apiUrl),
		login,
		self.token,
		&LoginResult{},
		callback,
	)
}

func (self *FreehostApi) LoginSync(login *LoginArgs) (*LoginResult, error) {
	return request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/api/auth/login", self.apiUrl),
		login,
		self.token,
		&LoginResult{},
		NewNoopApiCallback[*LoginResult](),
	)
}

type GetAppsCallback apiCallback[*[]*App]

func (self *FreehostApi) GetApps(username string, callback GetAppsCallback) {
	go request(
		self.ctx,
		"GET",
		fmt.Sprintf("%s/api/apps?user=%s", self.apiUrl, url.QueryEscape(username)),
		nil,
		self.token,
		&[]*App{},
		callback,
	)
}

type CreateAppCallback apiCallback[*App]

func (self *FreehostApi) CreateApp(createApp *CreateAppArgs, callback CreateAppCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/api/apps", self.apiUrl),
		createApp,
		self.token,
		&App{},
		callback,
	)
}

type DeleteAppResult struct {
	Success bool `json:"success"`
}

type DeleteAppCallback apiCallback[*DeleteAppResult]

func (self *FreehostApi) DeleteApp(deleteApp *DeleteAppArgs, callback DeleteAppCallback) {
	go request(
		self.ctx,
		"DELETE",
		fmt.Sprintf("%s/api/apps/%s", self.apiUrl, deleteApp.AppId),
		map[string]string{"username": deleteApp.Actor},
		self.token,
		&DeleteAppResult{},
		callback,
	)
}

type PostCommentCallback apiCallback[*Comment]

func (self *FreehostApi) PostComment(postComment *PostCommentArgs, callback PostCommentCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/api/comments/%s", self.apiUrl, postComment.AppId),
		postComment,
		self.token,
		&Comment{},
		callback,
	)
}

type AddCollaboratorCallback apiCallback[*Collaborator]

func (self *FreehostApi) AddCollaborator(addCollaborator *AddCollaboratorArgs, callback AddCollaboratorCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/api/collaborators/%s", self.apiUrl, addCollaborator.AppId),
		addCollaborator,
		self.token,
		&Collaborator{},
		callback,
	)
}

func request[R any](ctx context.Context, method string, url string, args any, token string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "application/json")

	if token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if r.StatusCode < 200 || 300 <= r.StatusCode {
		// the response body carries the error message
		message := strings.TrimSpace(string(responseBodyBytes))
		apiErr := &apiError{}
		if json.Unmarshal(responseBodyBytes, apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		err = errors.New(message)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}
