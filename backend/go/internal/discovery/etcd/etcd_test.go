package etcd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceKey(t *testing.T) {
	assert.Equal(t, "/coordinator/10.0.0.1:8080", ServiceKey("coordinator", "10.0.0.1:8080"))
	assert.Equal(t, "/coordinator/10.0.0.1:8080", ServiceKey("/coordinator/", "10.0.0.1:8080"))
	assert.Equal(t, "/coordinator/", servicePrefix("coordinator"))
}
