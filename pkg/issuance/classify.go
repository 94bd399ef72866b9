package issuance

import (
	"errors"
	"net/http"
	"strings"

	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/networking"
)

// IsPINUnsupported reports whether a failed attempt should be retried
// without a PIN. Structured innererror fields are checked first; the
// message and status heuristics cover services that do not set them.
func IsPINUnsupported(err error) bool {
	httpErr, ok := networking.AsHTTPError(err)
	if !ok {
		return false
	}

	if strings.EqualFold(httpErr.Field("error.innererror.target").String(), "pin") {
		return true
	}
	if strings.Contains(strings.ToLower(httpErr.Field("error.innererror.code").String()), "pin") {
		return true
	}

	msg := strings.ToLower(httpErr.Message())
	if strings.Contains(msg, "pin") || strings.Contains(msg, "not supported") {
		return true
	}
	return httpErr.StatusCode == http.StatusBadRequest
}

// IsEndpointNotFound reports whether the attempted endpoint does not exist.
func IsEndpointNotFound(err error) bool {
	return networking.IsHTTPError(err, http.StatusNotFound)
}

// toIssuanceError converts the final attempt failure into the error
// reported to the operator.
func toIssuanceError(err error) error {
	var typed *vcerrors.Error
	if errors.As(err, &typed) {
		return err
	}

	httpErr, ok := networking.AsHTTPError(err)
	if !ok {
		return vcerrors.NewUpstreamIssuanceError("Request Service call failed", 0, nil, err)
	}

	msg := httpErr.Message()
	if msg == "" {
		msg = http.StatusText(httpErr.StatusCode)
	}
	return vcerrors.NewUpstreamIssuanceError("Credential issuance failed: "+msg, httpErr.StatusCode, httpErr.Details(), err)
}
