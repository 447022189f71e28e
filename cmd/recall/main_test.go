package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pavelanni/recall/internal/source"
)

func TestTakeHTTPTimeoutCoversGrading(t *testing.T) {
	assert.Equal(t, 5*time.Minute, takeHTTPTimeout(5*time.Minute))
	assert.Equal(t, source.DefaultTimeout, takeHTTPTimeout(time.Second))
	assert.Zero(t, takeHTTPTimeout(0), "unbounded grading keeps the client unbounded")
}
