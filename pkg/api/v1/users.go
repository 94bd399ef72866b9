package v1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/api/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/directory"
)

// UsersRoutes defines the routes for directory lookups.
type UsersRoutes struct {
	directory UserDirectory
}

// UsersRouter creates the /api/users router. All routes pass through requireAuth.
func UsersRouter(dir UserDirectory, requireAuth Middleware) http.Handler {
	routes := &UsersRoutes{directory: dir}
	if requireAuth == nil {
		requireAuth = passthrough
	}

	r := chi.NewRouter()
	r.Use(requireAuth)
	r.Get("/", apierrors.ErrorHandler(routes.listUsers))
	r.Get("/list", apierrors.ErrorHandler(routes.listUsers))
	r.Post("/search", apierrors.ErrorHandler(routes.searchUsers))
	r.Get("/{id}", apierrors.ErrorHandler(routes.getUser))
	return r
}

// userView is a directory user as rendered to the UI.
type userView struct {
	directory.User
	Email string `json:"email"`
}

func toView(u directory.User) userView {
	return userView{User: u, Email: u.Email()}
}

type userListResponse struct {
	Success    bool       `json:"success"`
	Users      []userView `json:"users"`
	TotalCount int        `json:"totalCount"`
	Message    string     `json:"message,omitempty"`
}

func writeUserList(w http.ResponseWriter, res *directory.ListResult) {
	out := userListResponse{Success: true, Users: make([]userView, 0, len(res.Users))}
	for _, u := range res.Users {
		out.Users = append(out.Users, toView(u))
	}
	out.TotalCount = len(out.Users)
	if n := res.Filtered(); n > 0 {
		out.Message = fmt.Sprintf("%d non-user accounts filtered out", n)
	}
	apierrors.WriteJSON(w, http.StatusOK, out)
}

// listUsers
//
//	@Summary		List users
//	@Description	List directory users, optionally filtered by a search term
//	@Tags			users
//	@Produce		json
//	@Param			search	query		string	false	"Search term"
//	@Param			top		query		int		false	"Maximum number of users"
//	@Success		200		{object}	userListResponse
//	@Failure		400		{string}	string	"Bad Request"
//	@Router			/api/users [get]
//	@Router			/api/users/list [get]
func (s *UsersRoutes) listUsers(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	top, err := intParam(q.Get("top"), "top")
	if err != nil {
		return err
	}
	res, err := s.directory.List(r.Context(), q.Get("search"), top)
	if err != nil {
		return err
	}
	writeUserList(w, res)
	return nil
}

// searchUsers
//
//	@Summary		Search users
//	@Description	Search directory users by field filters
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		directory.SearchFilter	true	"Search filter"
//	@Success		200		{object}	userListResponse
//	@Failure		400		{string}	string	"Bad Request"
//	@Router			/api/users/search [post]
func (s *UsersRoutes) searchUsers(w http.ResponseWriter, r *http.Request) error {
	var f directory.SearchFilter
	if err := decodeJSON(r, &f); err != nil {
		return err
	}
	res, err := s.directory.Search(r.Context(), f)
	if err != nil {
		return err
	}
	writeUserList(w, res)
	return nil
}

// getUser
//
//	@Summary		Get a user
//	@Description	Get a single directory user by ID
//	@Tags			users
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	map[string]any
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/api/users/{id} [get]
func (s *UsersRoutes) getUser(w http.ResponseWriter, r *http.Request) error {
	u, err := s.directory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user": toView(*u)})
	return nil
}
