// Package v1 contains the HTTP handlers of the admin API.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/auth"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/callback"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/directory"
	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/issuance"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/vcadmin"
)

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks -source=api.go ContractLister,Issuer,UserDirectory,LoginFlow

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ContractLister lists the contracts of the tenant.
type ContractLister interface {
	ListContracts(ctx context.Context) ([]vcadmin.Contract, error)
}

// Issuer submits issuance requests.
type Issuer interface {
	Issue(ctx context.Context, in issuance.IssueInput) (*issuance.IssueResult, error)
}

// CallbackApplier applies Request Service callbacks to stored requests.
type CallbackApplier interface {
	OnCallback(ctx context.Context, cb callback.Callback) (callback.Outcome, error)
}

// UserDirectory looks up subjects in the tenant directory.
type UserDirectory interface {
	List(ctx context.Context, search string, top int) (*directory.ListResult, error)
	Search(ctx context.Context, f directory.SearchFilter) (*directory.ListResult, error)
	Get(ctx context.Context, id string) (*directory.User, error)
}

// LoginFlow runs the operator OIDC login.
type LoginFlow interface {
	LoginURL(ctx context.Context) (string, error)
	Exchange(ctx context.Context, state, code string) (*auth.Identity, error)
	LogoutURL() string
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return vcerrors.NewInvalidArgumentError("Invalid request body", err)
	}
	return nil
}

// Middleware is an HTTP middleware.
type Middleware = func(http.Handler) http.Handler

func passthrough(next http.Handler) http.Handler { return next }
