package serverutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessResponse(t *testing.T) {
	res := SuccessResponse("Success get all projects", []string{"a", "b"})
	assert.Equal(t, 200, res.Code)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "Success get all projects", res.Message)
	assert.Equal(t, []string{"a", "b"}, res.Data)
}

func TestErrorResponse(t *testing.T) {
	res := ErrorResponse(404, "Project not found")
	assert.Equal(t, 404, res.Code)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "Project not found", res.Message)
	assert.Nil(t, res.Data)
}
