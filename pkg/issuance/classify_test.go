package issuance

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/networking"
)

func TestIsPINUnsupported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "structured target",
			err:  networking.NewHTTPError(422, "u", []byte(`{"error":{"message":"bad","innererror":{"target":"pin"}}}`)),
			want: true,
		},
		{
			name: "structured code",
			err:  networking.NewHTTPError(422, "u", []byte(`{"error":{"message":"bad","innererror":{"code":"pinNotAllowed"}}}`)),
			want: true,
		},
		{
			name: "message mentions pin",
			err:  networking.NewHTTPError(500, "u", []byte(`{"error":{"message":"The PIN code is invalid"}}`)),
			want: true,
		},
		{
			name: "message says not supported",
			err:  networking.NewHTTPError(404, "u", []byte(`{"error":{"message":"Feature not supported"}}`)),
			want: true,
		},
		{
			name: "bare 400",
			err:  networking.NewHTTPError(http.StatusBadRequest, "u", []byte(`{}`)),
			want: true,
		},
		{
			name: "404 without hints",
			err:  networking.NewHTTPError(http.StatusNotFound, "u", []byte(`{"error":{"message":"Not Found"}}`)),
		},
		{
			name: "403",
			err:  networking.NewHTTPError(http.StatusForbidden, "u", []byte(`{"error":{"message":"Forbidden"}}`)),
		},
		{
			name: "transport error",
			err:  context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPINUnsupported(tt.err))
		})
	}
}

func TestIsEndpointNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, IsEndpointNotFound(networking.NewHTTPError(http.StatusNotFound, "u", nil)))
	assert.False(t, IsEndpointNotFound(networking.NewHTTPError(http.StatusBadRequest, "u", nil)))
	assert.False(t, IsEndpointNotFound(errors.New("boom")))
}

func TestToIssuanceError(t *testing.T) {
	t.Parallel()

	err := toIssuanceError(networking.NewHTTPError(http.StatusForbidden, "u", []byte(`{"error":{"message":"denied"}}`)))
	assert.True(t, vcerrors.IsUpstreamIssuance(err))
	assert.Equal(t, http.StatusForbidden, vcerrors.Code(err))
	assert.Contains(t, err.Error(), "denied")
	assert.NotNil(t, vcerrors.DetailsOf(err))

	err = toIssuanceError(errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, vcerrors.Code(err))

	typed := vcerrors.NewConfigurationError("x", nil)
	assert.Same(t, typed, toIssuanceError(typed))
}

func TestGeneratePIN(t *testing.T) {
	t.Parallel()

	for range 200 {
		pin, err := GeneratePIN()
		assert.NoError(t, err)
		assert.Len(t, pin.Value, PINLength)
		assert.Equal(t, PINLength, pin.Length)
		assert.GreaterOrEqual(t, pin.Value, "1000")
		assert.LessOrEqual(t, pin.Value, "9999")
	}
}
