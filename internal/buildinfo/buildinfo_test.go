package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortHash(t *testing.T) {
	original := CommitHash
	defer func() { CommitHash = original }()

	CommitHash = "0123456789abcdef"
	assert.Equal(t, "0123456", ShortHash())

	CommitHash = "abc"
	assert.Equal(t, "unknown", ShortHash())
}

func TestFillKeepsLinkedValues(t *testing.T) {
	original := CommitHash
	defer func() { CommitHash = original }()

	CommitHash = "linked-at-build"
	Fill()
	assert.Equal(t, "linked-at-build", CommitHash)
}
