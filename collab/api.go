package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
)

// the http transport edge. Decodes requests into the typed pipeline
// commands and maps the error taxonomy onto status codes. The actor for a
// mutation comes from the bearer session token when one is presented,
// otherwise from the request body, which is the shape older clients send.

type Api struct {
	hub *Hub
}

func NewApi(hub *Hub) *Api {
	return &Api{
		hub: hub,
	}
}

func (self *Api) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(corsMiddleware)
	router.Post("/api/auth/signup", self.signup)
	router.Post("/api/auth/login", self.login)
	router.Get("/api/apps", self.getApps)
	router.Post("/api/apps", self.createApp)
	router.Get("/api/apps/{appId}", self.getApp)
	router.Delete("/api/apps/{appId}", self.deleteApp)
	router.Get("/api/comments/{appId}", self.getComments)
	router.Post("/api/comments/{appId}", self.postComment)
	router.Put("/api/comments/{commentId}", self.updateComment)
	router.Delete("/api/comments/{commentId}", self.deleteComment)
	router.Get("/api/collaborators/{appId}", self.getCollaborators)
	router.Post("/api/collaborators/{appId}", self.addCollaborator)
	router.Delete("/api/collaborators/{appId}", self.removeCollaborator)
	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJson(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type apiError struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict):
		status = http.StatusConflict
	default:
		glog.Infof("[api]unmapped error = %s\n", err)
	}
	writeJson(w, status, &apiError{Error: err.Error()})
}

func decodeBody(r *http.Request, args any) error {
	err := json.NewDecoder(r.Body).Decode(args)
	if err == nil || errors.Is(err, io.EOF) {
		// an empty body decodes to the zero args
		return nil
	}
	return fmt.Errorf("decode body: %w", ErrInvalidInput)
}

// the session actor, or the fallback the body carried
func (self *Api) actor(r *http.Request, bodyActor string) string {
	authorization := r.Header.Get("Authorization")
	if !strings.HasPrefix(authorization, "Bearer ") {
		return bodyActor
	}
	token := strings.TrimPrefix(authorization, "Bearer ")
	if _, err := ParseSessionToken(self.hub.Settings().Session, token); err != nil {
		return bodyActor
	}
	user, err := self.hub.SessionUser(token)
	if err != nil {
		return bodyActor
	}
	return user.Username
}

func (self *Api) signup(w http.ResponseWriter, r *http.Request) {
	args := &SignupArgs{}
	if err := decodeBody(r, args); err != nil {
		writeError(w, err)
		return
	}
	result, err := self.hub.Signup(args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusCreated, result)
}

func (self *Api) login(w http.ResponseWriter, r *http.Request) {
	args := &LoginArgs{}
	if err := decodeBody(r, args); err != nil {
		writeError(w, err)
		return
	}
	result, err := self.hub.Login(args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, result)
}

func (self *Api) getApps(w http.ResponseWriter, r *http.Request) {
	username := self.actor(r, r.URL.Query().Get("user"))
	writeJson(w, http.StatusOK, self.hub.Apps(username))
}

func (self *Api) createApp(w http.ResponseWriter, r *http.Request) {
	args := &CreateAppArgs{}
	if err := decodeBody(r, args); err != nil {
		writeError(w, err)
		return
	}
	args.Owner = self.actor(r, args.Owner)
	app, err := self.hub.CreateApp(args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusCreated, app)
}

func (self *Api) getApp(w http.ResponseWriter, r *http.Request) {
	app, err := self.hub.App(chi.URLParam(r, "appId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, app)
}

func (self *Api) deleteApp(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Username string `json:"username"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	err := self.hub.DeleteApp(&DeleteAppArgs{
		AppId: chi.URLParam(r, "appId"),
		Actor: self.actor(r, body.Username),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"success": true})
}

func (self *Api) getComments(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, self.hub.Comments(chi.URLParam(r, "appId")))
}

func (self *Api) postComment(w http.ResponseWriter, r *http.Request) {
	args := &PostCommentArgs{}
	if err := decodeBody(r, args); err != nil {
		writeError(w, err)
		return
	}
	args.AppId = chi.URLParam(r, "appId")
	args.Author = self.actor(r, args.Author)
	comment, err := self.hub.PostComment(args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusCreated, comment)
}

func (self *Api) updateComment(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Text     string `json:"text"`
		Username string `json:"username"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	comment, err := self.hub.UpdateComment(&UpdateCommentArgs{
		CommentId: chi.URLParam(r, "commentId"),
		Actor:     self.actor(r, body.Username),
		Text:      body.Text,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, comment)
}

func (self *Api) deleteComment(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Username string `json:"username"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	err := self.hub.DeleteComment(&DeleteCommentArgs{
		CommentId: chi.URLParam(r, "commentId"),
		Actor:     self.actor(r, body.Username),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"success": true})
}

func (self *Api) getCollaborators(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, self.hub.Collaborators(chi.URLParam(r, "appId")))
}

func (self *Api) addCollaborator(w http.ResponseWriter, r *http.Request) {
	args := &AddCollaboratorArgs{}
	if err := decodeBody(r, args); err != nil {
		writeError(w, err)
		return
	}
	args.AppId = chi.URLParam(r, "appId")
	args.AddedBy = self.actor(r, args.AddedBy)
	collaborator, err := self.hub.AddCollaborator(args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusCreated, collaborator)
}

func (self *Api) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	body := struct {
		RemovedBy string `json:"removedBy"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	err := self.hub.RemoveCollaborator(&RemoveCollaboratorArgs{
		AppId:     chi.URLParam(r, "appId"),
		Username:  r.URL.Query().Get("username"),
		RemovedBy: self.actor(r, body.RemovedBy),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]bool{"success": true})
}
