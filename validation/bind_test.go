package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"store-ratings-api/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(method, target, body string, params gin.Params) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Params = params
	return c
}

type storeSchema struct {
	Name       string  `json:"name" norm:"trim" binding:"required" msg:"name required"`
	Address    string  `json:"address" norm:"trim" binding:"required,max=400"`
	OwnerEmail *string `json:"ownerEmail" norm:"trim,lower" binding:"omitnil,email"`
	Phone      *string `json:"phone" norm:"trim" binding:"omitnil,phone"`
	IsActive   *bool   `json:"isActive"`
}

type ratingSchema struct {
	StoreID string  `uri:"storeId" binding:"required,uuid"`
	Rating  int     `json:"rating" binding:"required,min=1,max=5" msg:"rating 1–5"`
	Comment *string `json:"comment" norm:"trim" binding:"omitnil,max=500"`
}

type pageSchema struct {
	Page  int    `form:"page" binding:"omitempty,min=1"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort  string `form:"sort" binding:"omitempty,oneof=name address avgRating"`
}

func asValidation(t *testing.T, err error) *apperror.Error {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok, "expected *apperror.Error, got %T", err)
	require.Equal(t, apperror.KindValidation, appErr.Kind)
	return appErr
}

func fieldNames(e *apperror.Error) []string {
	var out []string
	for _, f := range e.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestBind_NormalizesBody(t *testing.T) {
	c := newContext(http.MethodPost, "/api/stores",
		`{"name":"  Flipkart ","address":" Bangalore","ownerEmail":" Owner1@Example.COM ","isActive":"false"}`, nil)

	var req storeSchema
	require.NoError(t, Bind(c, &req))
	assert.Equal(t, "Flipkart", req.Name)
	assert.Equal(t, "Bangalore", req.Address)
	require.NotNil(t, req.OwnerEmail)
	assert.Equal(t, "owner1@example.com", *req.OwnerEmail)
	require.NotNil(t, req.IsActive)
	assert.False(t, *req.IsActive)
	assert.Nil(t, req.Phone)
}

func TestBind_CollectsEveryViolation(t *testing.T) {
	c := newContext(http.MethodPost, "/api/stores",
		`{"name":"   ","ownerEmail":"not-an-email","phone":"abc","isActive":"maybe"}`, nil)

	var req storeSchema
	e := asValidation(t, Bind(c, &req))
	assert.ElementsMatch(t, []string{"name", "address", "ownerEmail", "phone", "isActive"}, fieldNames(e))
	for _, f := range e.Fields {
		assert.Equal(t, apperror.LocationBody, f.Location)
		if f.Field == "name" {
			assert.Equal(t, "name required", f.Message)
		}
	}
}

func TestBind_ParamAndCoercion(t *testing.T) {
	id := "0b6d3f4e-8a2a-4c55-9d6f-3f0c2f9b7e11"
	c := newContext(http.MethodPost, "/api/ratings/"+id, `{"rating":"4","comment":"  nice  "}`,
		gin.Params{{Key: "storeId", Value: id}})

	var req ratingSchema
	require.NoError(t, Bind(c, &req))
	assert.Equal(t, id, req.StoreID)
	assert.Equal(t, 4, req.Rating)
	require.NotNil(t, req.Comment)
	assert.Equal(t, "nice", *req.Comment)
}

func TestBind_RatingOutOfRangeAndBadParam(t *testing.T) {
	c := newContext(http.MethodPost, "/api/ratings/42", `{"rating":7}`,
		gin.Params{{Key: "storeId", Value: "42"}})

	var req ratingSchema
	e := asValidation(t, Bind(c, &req))
	require.Len(t, e.Fields, 2)
	byField := map[string]apperror.FieldError{}
	for _, f := range e.Fields {
		byField[f.Field] = f
	}
	assert.Equal(t, apperror.LocationParam, byField["storeId"].Location)
	assert.Equal(t, "storeId must be UUID", byField["storeId"].Message)
	assert.Equal(t, "rating 1–5", byField["rating"].Message)
}

func TestBind_NonIntegerRatingReportedOnce(t *testing.T) {
	id := "0b6d3f4e-8a2a-4c55-9d6f-3f0c2f9b7e11"
	c := newContext(http.MethodPost, "/x", `{"rating":4.5}`, gin.Params{{Key: "storeId", Value: id}})

	var req ratingSchema
	e := asValidation(t, Bind(c, &req))
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "rating must be an integer", e.Fields[0].Message)
}

func TestBind_Query(t *testing.T) {
	c := newContext(http.MethodGet, "/api/stores?page=2&limit=10&sort=avgRating", "", nil)
	var req pageSchema
	require.NoError(t, Bind(c, &req))
	assert.Equal(t, 2, req.Page)
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, "avgRating", req.Sort)

	c = newContext(http.MethodGet, "/api/stores?page=zero&limit=500&sort=owner", "", nil)
	req = pageSchema{}
	e := asValidation(t, Bind(c, &req))
	assert.ElementsMatch(t, []string{"page", "limit", "sort"}, fieldNames(e))
	for _, f := range e.Fields {
		assert.Equal(t, apperror.LocationQuery, f.Location)
	}
}

func TestBind_MalformedJSON(t *testing.T) {
	c := newContext(http.MethodPost, "/api/stores", `{"name":`, nil)
	var req storeSchema
	e := asValidation(t, Bind(c, &req))
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "body", e.Fields[0].Field)
}

func TestStrongPassword(t *testing.T) {
	assert.True(t, StrongPassword("Secret#123"))
	assert.False(t, StrongPassword("Sh0rt!"))
	assert.False(t, StrongPassword("alllowercase#1"))
	assert.False(t, StrongPassword("NoSpecials123"))
	assert.False(t, StrongPassword("Waaaaaaaaaaaaaaay#TooLong"))
}
