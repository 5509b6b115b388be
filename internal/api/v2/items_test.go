package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
)

func notFound() error {
	return errors.New(datastore.ErrItemNotFound).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Build()
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestListItemsUsesCallerScope(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("ListItems", mock.Anything, datastore.Scope{UserID: 1}).
		Return([]datastore.Item{{ID: 3, UserID: 1, Name: "Laptop"}}, nil)
	mockDS.On("ListItems", mock.Anything, datastore.Scope{UserID: 9, Superuser: true}).
		Return([]datastore.Item{{ID: 3, UserID: 1, Name: "Laptop"}, {ID: 4, UserID: 2, Name: "Phone"}}, nil)

	c, rec := newContext(e, http.MethodGet, "/api/v2/items", "", &aliceCaller)
	require.NoError(t, controller.ListItems(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Equal(t, []ItemResponse{{ID: 3, Name: "Laptop", Owner: 1}}, items)

	c, rec = newContext(e, http.MethodGet, "/api/v2/items", "", &rootCaller)
	require.NoError(t, controller.ListItems(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	mockDS.AssertExpectations(t)
}

func TestListItemsEmptyIsArray(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)
	mockDS.On("ListItems", mock.Anything, mock.Anything).Return(nil, nil)

	c, rec := newContext(e, http.MethodGet, "/api/v2/items", "", &bobCaller)
	require.NoError(t, controller.ListItems(c))
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestItemsRequireCaller(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	c, rec := newContext(e, http.MethodGet, "/api/v2/items", "", nil)
	require.NoError(t, controller.ListItems(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	mockDS.AssertNotCalled(t, "ListItems", mock.Anything, mock.Anything)
}

func TestCreateItemStampsOwner(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("CreateItem", mock.Anything, datastore.Scope{UserID: 1}, mock.AnythingOfType("*datastore.Item")).
		Run(func(args mock.Arguments) {
			item := args.Get(2).(*datastore.Item)
			item.ID = 11
			item.UserID = 1
		}).
		Return(nil)

	// the owner field in the body is ignored
	c, rec := newContext(e, http.MethodPost, "/api/v2/items",
		`{"name":"Laptop","description":"Dell XPS","owner":2,"user":2}`, &aliceCaller)
	require.NoError(t, controller.CreateItem(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var item ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, ItemResponse{ID: 11, Name: "Laptop", Description: "Dell XPS", Owner: 1}, item)

	// owner is rendered as the numeric user id
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.InDelta(t, 1, raw["owner"], 0)

	mockDS.AssertExpectations(t)
}

func TestCreateItemValidation(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"missing name", `{"description":"x"}`, http.StatusBadRequest, "Name is required"},
		{"blank name", `{"name":"   "}`, http.StatusBadRequest, "Name is required"},
		{"malformed json", `{"name":`, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodPost, "/api/v2/items", tt.body, &aliceCaller)
			require.NoError(t, controller.CreateItem(c))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec.Body.Bytes()).Message)
		})
	}

	mockDS.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateItemNameTooLong(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	tooLong := errors.Newf("name must be at most 100 characters").
		Component("datastore").
		Category(errors.CategoryValidation).
		Build()
	mockDS.On("CreateItem", mock.Anything, mock.Anything, mock.Anything).Return(tooLong)

	c, rec := newContext(e, http.MethodPost, "/api/v2/items", `{"name":"long"}`, &aliceCaller)
	require.NoError(t, controller.CreateItem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name must be at most 100 characters", decodeError(t, rec.Body.Bytes()).Message)
}

func TestGetItem(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("GetItem", mock.Anything, datastore.Scope{UserID: 1}, uint(3)).
		Return(&datastore.Item{ID: 3, UserID: 1, Name: "Laptop"}, nil)
	mockDS.On("GetItem", mock.Anything, datastore.Scope{UserID: 2}, uint(3)).
		Return(nil, notFound())

	c, rec := newContext(e, http.MethodGet, "/api/v2/items/3", "", &aliceCaller)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, controller.GetItem(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// another owner's item looks missing
	c, rec = newContext(e, http.MethodGet, "/api/v2/items/3", "", &bobCaller)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, controller.GetItem(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec.Body.Bytes())
	assert.Equal(t, "Item not found", resp.Message)
	assert.Equal(t, "Item not found", resp.Error)

	mockDS.AssertExpectations(t)
}

func TestNonIntegerItemIDIsNotFound(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	for _, id := range []string{"abc", "0", "-1", "1.5"} {
		t.Run(id, func(t *testing.T) {
			c, rec := newContext(e, http.MethodGet, "/api/v2/items/"+id, "", &aliceCaller)
			c.SetParamNames("id")
			c.SetParamValues(id)
			require.NoError(t, controller.GetItem(c))
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
	mockDS.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestReplaceItem(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	name := "Laptop Pro"
	empty := ""
	mockDS.On("UpdateItem", mock.Anything, datastore.Scope{UserID: 1}, uint(3),
		datastore.ItemUpdate{Name: &name, Description: &empty}).
		Return(&datastore.Item{ID: 3, UserID: 1, Name: name}, nil)

	c, rec := newContext(e, http.MethodPut, "/api/v2/items/3", `{"name":"Laptop Pro"}`, &aliceCaller)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, controller.ReplaceItem(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// PUT without a name is rejected before the store is called
	c, rec = newContext(e, http.MethodPut, "/api/v2/items/3", `{"description":"x"}`, &aliceCaller)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, controller.ReplaceItem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mockDS.AssertExpectations(t)
}

func TestPatchItem(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	desc := "refurbished"
	mockDS.On("UpdateItem", mock.Anything, datastore.Scope{UserID: 1}, uint(3),
		datastore.ItemUpdate{Description: &desc}).
		Return(&datastore.Item{ID: 3, UserID: 1, Name: "Laptop", Description: desc}, nil)
	mockDS.On("UpdateItem", mock.Anything, datastore.Scope{UserID: 1}, uint(4), mock.Anything).
		Return(nil, notFound())

	c, rec := newContext(e, http.MethodPatch, "/api/v2/items/3", `{"description":"refurbished"}`, &aliceCaller)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, controller.PatchItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "Laptop", item.Name)
	assert.Equal(t, desc, item.Description)

	c, rec = newContext(e, http.MethodPatch, "/api/v2/items/4", `{"name":"x"}`, &aliceCaller)
	c.SetParamNames("id")
	c.SetParamValues("4")
	require.NoError(t, controller.PatchItem(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// a blank name is never accepted
	c, rec = newContext(e, http.MethodPatch, "/api/v2/items/3", `{"name":""}`, &aliceCaller)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, controller.PatchItem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mockDS.AssertExpectations(t)
}

func TestDeleteItem(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	mockDS.On("DeleteItem", mock.Anything, datastore.Scope{UserID: 1}, uint(3)).Return(nil)
	mockDS.On("DeleteItem", mock.Anything, datastore.Scope{UserID: 2}, uint(3)).Return(notFound())

	c, rec := newContext(e, http.MethodDelete, "/api/v2/items/3", "", &aliceCaller)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, controller.DeleteItem(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	c, rec = newContext(e, http.MethodDelete, "/api/v2/items/3", "", &bobCaller)
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, controller.DeleteItem(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mockDS.AssertExpectations(t)
}

func TestItemDatabaseFailure(t *testing.T) {
	e, mockDS, controller := setupTestEnvironment(t)

	dbErr := errors.New(fmt.Errorf("disk I/O error")).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
	mockDS.On("ListItems", mock.Anything, mock.Anything).Return(nil, dbErr)

	c, rec := newContext(e, http.MethodGet, "/api/v2/items", "", &aliceCaller)
	require.NoError(t, controller.ListItems(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeError(t, rec.Body.Bytes())
	assert.Equal(t, "disk I/O error", resp.Error)
	assert.Equal(t, "Database operation failed", resp.Message)
}
