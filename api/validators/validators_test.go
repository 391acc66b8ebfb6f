package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type reviewBody struct {
	OrderID string   `json:"orderId" validate:"required,uuid"`
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	Images  []string `json:"images" validate:"max=2,dive,url"`
}

func decode(t *testing.T, body string) (reviewBody, error) {
	t.Helper()
	var dest reviewBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	return dest, err
}

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"orderId":"6f1c1f8e-2d7a-4a7e-9a53-2f4b8d0c9e11","rating":4,"images":["https://cdn.example.com/a.png"]}`)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)
	assert.Len(t, got.Images, 1)
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	_, err := decode(t, `{"orderId":"nope","rating":6,"images":["ok","https://cdn.example.com/b.png"]}`)
	details := validationDetails(t, err)
	assert.Equal(t, "must be a UUID", details["orderId"])
	assert.Equal(t, "must be at most 5", details["rating"])
	assert.Equal(t, "must be a URL", details["images[0]"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"unknown field":  `{"orderId":"6f1c1f8e-2d7a-4a7e-9a53-2f4b8d0c9e11","rating":3,"extra":true}`,
		"trailing value": `{"orderId":"6f1c1f8e-2d7a-4a7e-9a53-2f4b8d0c9e11","rating":3}{}`,
		"not json":       `rating=3`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyLimitsSize(t *testing.T) {
	body := `{"orderId":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	_, err := decode(t, body)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "request body too large", typed.Message())
}

func TestParseQueryInt(t *testing.T) {
	bounds := IntRange{Default: 20, Min: 1, Max: 100}
	req := httptest.NewRequest(http.MethodGet, "/?limit=50&bad=x&big=500", nil)

	got, err := ParseQueryInt(req, "limit", bounds)
	require.NoError(t, err)
	assert.Equal(t, 50, got)

	got, err = ParseQueryInt(req, "missing", bounds)
	require.NoError(t, err)
	assert.Equal(t, 20, got)

	_, err = ParseQueryInt(req, "bad", bounds)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(req, "big", bounds)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "late delivery", SanitizeString("  late delivery \x00 ", 0))
	assert.Equal(t, "héllo", SanitizeString("héllo wörld", 5))
	assert.Equal(t, "line one\nline two", SanitizeString("line one\nline two", 100))
}
